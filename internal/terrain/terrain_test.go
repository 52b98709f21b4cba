package terrain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify the built-in models satisfy the optional interfaces they claim to.
var (
	_ SurfaceProvider = Flat{}
	_ GravityProvider = Flat{}
	_ SurfaceProvider = (*Grid)(nil)
)

func TestGravity_Defaults(t *testing.T) {
	assert.Equal(t, DefaultGravity, Gravity(Slope{}))
	assert.Equal(t, DefaultGravity, Gravity(Flat{}))
	assert.Equal(t, DefaultGravity, Gravity(Flat{GravityVal: -3}))
	assert.Equal(t, 1.62, Gravity(Flat{GravityVal: 1.62}))
}

func TestSurfaceAt_Defaults(t *testing.T) {
	assert.Equal(t, DefaultSurface, SurfaceAt(Slope{}, 1, 2))

	ice := Surface{FrictionMultiplier: 0.2, DragMultiplier: 1}
	assert.Equal(t, ice, SurfaceAt(Flat{Material: &ice}, 0, 0))

	// zero-valued multipliers are treated as unset
	assert.Equal(t, DefaultSurface, SurfaceAt(Flat{Material: &Surface{}}, 0, 0))
}

func TestSlope_NormalMatchesGradient(t *testing.T) {
	s := Slope{GradeX: 0.1}
	n := s.NormalAt(0, 0)

	assert.InDelta(t, 1.0, n.Len(), 1e-12)
	assert.Less(t, n.X(), 0.0, "normal leans away from the uphill direction")
	assert.InDelta(t, 0.1, s.HeightAt(1, 0), 1e-12)

	numeric := NumericNormal(s.HeightAt, 3, -2, 0.1)
	assertVecInDelta(t, n, numeric, 1e-9)
}

func TestWave_NormalIsUnitAndConsistent(t *testing.T) {
	w := Wave{Amplitude: 1.5, Wavelength: 40}
	for _, p := range [][2]float64{{0, 0}, {3.3, -7}, {12, 25}, {-40, 8}} {
		analytic := w.NormalAt(p[0], p[1])
		numeric := NumericNormal(w.HeightAt, p[0], p[1], 0.001)
		assert.InDelta(t, 1.0, analytic.Len(), 1e-9)
		assertVecInDelta(t, numeric, analytic, 1e-4, "at %v: %v vs %v", p, analytic, numeric)
	}
}

func TestNumericNormal_DegenerateFallsBackToUp(t *testing.T) {
	nan := func(x, z float64) float64 { return math.NaN() }
	assert.Equal(t, Up, NumericNormal(nan, 0, 0, 0.1))
}

func TestGrid_BilinearHeight(t *testing.T) {
	g := &Grid{
		CellSize: 2,
		Cols:     2,
		Rows:     2,
		Heights:  []float64{0, 2, 4, 6},
	}
	require.NoError(t, g.Validate())

	assert.InDelta(t, 0, g.HeightAt(0, 0), 1e-12)
	assert.InDelta(t, 1, g.HeightAt(1, 0), 1e-12)
	assert.InDelta(t, 3, g.HeightAt(1, 1), 1e-12)
	assert.InDelta(t, 6, g.HeightAt(10, 10), 1e-12, "clamps outside the grid")
	assert.InDelta(t, 0, g.HeightAt(-5, -5), 1e-12)

	n := g.NormalAt(1, 1)
	assert.InDelta(t, 1.0, n.Len(), 1e-9)
}

func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
	}{
		{"zero cell", Grid{Cols: 2, Rows: 2, Heights: make([]float64, 4)}},
		{"too small", Grid{CellSize: 1, Cols: 1, Rows: 2, Heights: make([]float64, 2)}},
		{"count mismatch", Grid{CellSize: 1, Cols: 3, Rows: 2, Heights: make([]float64, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.grid.Validate())
		})
	}
}

func TestGrid_Patches(t *testing.T) {
	mud := Surface{FrictionMultiplier: 0.5, DragMultiplier: 3}
	g := &Grid{
		CellSize: 1, Cols: 2, Rows: 2, Heights: make([]float64, 4),
		Patches: []Patch{{MinX: 0, MinZ: 0, MaxX: 1, MaxZ: 1, Surface: mud}},
	}
	assert.Equal(t, mud, SurfaceAt(g, 0.5, 0.5))
	assert.Equal(t, DefaultSurface, SurfaceAt(g, 5, 5))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, p Provider)
	}{
		{
			name:  "empty is flat",
			input: ``,
			check: func(t *testing.T, p Provider) { assert.Equal(t, Flat{}, p) },
		},
		{
			name:  "flat with height",
			input: `{"model":"flat","height":2.5}`,
			check: func(t *testing.T, p Provider) { assert.Equal(t, 2.5, p.HeightAt(9, 9)) },
		},
		{
			name:  "slope",
			input: `{"model":"slope","grade_z":0.2}`,
			check: func(t *testing.T, p Provider) { assert.InDelta(t, 2.0, p.HeightAt(0, 10), 1e-12) },
		},
		{
			name:  "wave",
			input: `{"model":"wave","amplitude":1,"wavelength":20}`,
			check: func(t *testing.T, p Provider) { assert.IsType(t, Wave{}, p) },
		},
		{
			name:  "grid",
			input: `{"model":"grid","cell_size":1,"cols":2,"rows":2,"heights":[1,1,1,1]}`,
			check: func(t *testing.T, p Provider) {
				assert.Equal(t, 1.0, p.HeightAt(0.5, 0.5))
				assert.Equal(t, mgl64.Vec3{0, 1, 0}, p.NormalAt(0.5, 0.5))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(json.RawMessage(tt.input))
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(json.RawMessage(`{"model":"lava"}`))
	require.ErrorIs(t, err, ErrUnknownModel)

	_, err = Decode(json.RawMessage(`{"model":"grid","cell_size":1,"cols":2,"rows":2,"heights":[1]}`))
	require.Error(t, err)

	_, err = Decode(json.RawMessage(`{not json`))
	require.Error(t, err)
}

func assertVecInDelta(t *testing.T, want, got mgl64.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}
