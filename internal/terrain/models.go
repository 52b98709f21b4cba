package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Model discriminator strings for Decode.
const (
	FlatModelName  = "flat"
	SlopeModelName = "slope"
	WaveModelName  = "wave"
	GridModelName  = "grid"
)

// ErrUnknownModel is returned by Decode for an unrecognised "model" value.
var ErrUnknownModel = errors.New("unknown terrain model")

// Flat is an infinite horizontal plane.
//
// JSON discriminator: "model": "flat"
type Flat struct {
	Height     float64  `json:"height"`            // metres
	Material   *Surface `json:"surface,omitempty"` // nil = DefaultSurface
	GravityVal float64  `json:"gravity,omitempty"` // m/s²; 0 = DefaultGravity
}

func (f Flat) HeightAt(_, _ float64) float64     { return f.Height }
func (f Flat) NormalAt(_, _ float64) mgl64.Vec3 { return Up }

func (f Flat) SurfaceAt(_, _ float64) Surface {
	if f.Material == nil {
		return DefaultSurface
	}
	return *f.Material
}

func (f Flat) Gravity() float64 { return f.GravityVal }

// Slope is an inclined plane through (0, Height, 0) rising GradeX metres per
// metre along +X and GradeZ along +Z.
//
// JSON discriminator: "model": "slope"
type Slope struct {
	Height float64 `json:"height"`
	GradeX float64 `json:"grade_x"`
	GradeZ float64 `json:"grade_z"`
}

func (s Slope) HeightAt(x, z float64) float64 { return s.Height + s.GradeX*x + s.GradeZ*z }

func (s Slope) NormalAt(_, _ float64) mgl64.Vec3 { return normalFromGradient(s.GradeX, s.GradeZ) }

// Wave is rolling sinusoidal terrain, the sum of one wave along X and one
// along the X+Z diagonal.
//
// JSON discriminator: "model": "wave"
type Wave struct {
	Height     float64 `json:"height"`
	Amplitude  float64 `json:"amplitude"`  // metres
	Wavelength float64 `json:"wavelength"` // metres
}

func (w Wave) k() float64 {
	if w.Wavelength <= 0 {
		return 0
	}
	return 2 * math.Pi / w.Wavelength
}

func (w Wave) HeightAt(x, z float64) float64 {
	k := w.k()
	return w.Height + w.Amplitude*math.Sin(k*x) + 0.5*w.Amplitude*math.Sin(k*(x+z)*0.7)
}

func (w Wave) NormalAt(x, z float64) mgl64.Vec3 {
	k := w.k()
	diag := 0.5 * w.Amplitude * k * 0.7 * math.Cos(k*(x+z)*0.7)
	dhdx := w.Amplitude*k*math.Cos(k*x) + diag
	return normalFromGradient(dhdx, diag)
}

// Patch overrides the surface inside an axis-aligned rectangle of a Grid.
type Patch struct {
	MinX    float64 `json:"min_x"`
	MinZ    float64 `json:"min_z"`
	MaxX    float64 `json:"max_x"`
	MaxZ    float64 `json:"max_z"`
	Surface Surface `json:"surface"`
}

// Grid is a regular heightfield sampled every CellSize metres, starting at
// (OriginX, OriginZ). Heights are row-major with Cols samples per row along X
// and Rows rows along Z. Queries outside the grid clamp to the border.
//
// JSON discriminator: "model": "grid"
type Grid struct {
	OriginX  float64   `json:"origin_x"`
	OriginZ  float64   `json:"origin_z"`
	CellSize float64   `json:"cell_size"`
	Cols     int       `json:"cols"`
	Rows     int       `json:"rows"`
	Heights  []float64 `json:"heights"`
	Patches  []Patch   `json:"patches,omitempty"`
}

// Validate checks that the grid dimensions match the sample count.
func (g *Grid) Validate() error {
	if g.CellSize <= 0 {
		return fmt.Errorf("grid: cell_size must be positive, got %v", g.CellSize)
	}
	if g.Cols < 2 || g.Rows < 2 {
		return fmt.Errorf("grid: need at least 2x2 samples, got %dx%d", g.Cols, g.Rows)
	}
	if len(g.Heights) != g.Cols*g.Rows {
		return fmt.Errorf("grid: expected %d heights, got %d", g.Cols*g.Rows, len(g.Heights))
	}
	return nil
}

func (g *Grid) sample(i, j int) float64 {
	i = clampInt(i, 0, g.Cols-1)
	j = clampInt(j, 0, g.Rows-1)
	return g.Heights[j*g.Cols+i]
}

// HeightAt bilinearly interpolates the four surrounding samples.
func (g *Grid) HeightAt(x, z float64) float64 {
	if len(g.Heights) == 0 || g.CellSize <= 0 {
		return 0
	}
	fx := (x - g.OriginX) / g.CellSize
	fz := (z - g.OriginZ) / g.CellSize
	fx = math.Max(0, math.Min(fx, float64(g.Cols-1)))
	fz = math.Max(0, math.Min(fz, float64(g.Rows-1)))

	i0, j0 := int(math.Floor(fx)), int(math.Floor(fz))
	tx, tz := fx-float64(i0), fz-float64(j0)

	h00 := g.sample(i0, j0)
	h10 := g.sample(i0+1, j0)
	h01 := g.sample(i0, j0+1)
	h11 := g.sample(i0+1, j0+1)

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

func (g *Grid) NormalAt(x, z float64) mgl64.Vec3 {
	return NumericNormal(g.HeightAt, x, z, g.CellSize*0.25)
}

// SurfaceAt returns the last patch containing (x, z), or DefaultSurface.
func (g *Grid) SurfaceAt(x, z float64) Surface {
	for i := len(g.Patches) - 1; i >= 0; i-- {
		p := g.Patches[i]
		if x >= p.MinX && x <= p.MaxX && z >= p.MinZ && z <= p.MaxZ {
			return p.Surface
		}
	}
	return DefaultSurface
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
