package suspension

import (
	"math"
	"testing"

	"github.com/cxd309/vds-engine/internal/terrain"
	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{
	WheelRadius:        0.3,
	RestLength:         0.35,
	Travel:             0.2,
	Stiffness:          35000,
	Damping:            3500,
	ReboundRatio:       0.6,
	BumpStiffnessScale: 10,
	BumpDampingScale:   5,
}

func mountAt(height float64) Input {
	return Input{
		Mount:   mgl64.Vec3{0, height, 0},
		Up:      mgl64.Vec3{0, 1, 0},
		Terrain: terrain.Flat{},
	}
}

func TestEvaluate_Spring(t *testing.T) {
	// 0.1 m of compression
	res := Evaluate(testParams, mountAt(0.55))
	require.True(t, res.Grounded)
	assert.InDelta(t, 0.1, res.Compression, 1e-12)
	assert.InDelta(t, 3500, res.Load, 1e-6)
	assert.InDelta(t, 0.5, res.Ratio, 1e-12)
	assertVecInDelta(t, mgl64.Vec3{0, 3500, 0}, res.Force, 1e-6)
	assertVecInDelta(t, mgl64.Vec3{}, res.Contact, 1e-12)
	assert.False(t, res.BumpStop)
	assert.Equal(t, terrain.DefaultSurface, res.Surface)
}

func TestEvaluate_NotGrounded(t *testing.T) {
	res := Evaluate(testParams, mountAt(0.7))
	assert.False(t, res.Grounded)
	assert.Zero(t, res.Load)
	assert.InDelta(t, 0.7, res.Distance, 1e-12)

	// beyond rest + travel of compression the mount is inside the wheel
	res = Evaluate(testParams, mountAt(0.05))
	assert.False(t, res.Grounded)
}

func TestEvaluate_FlippedIsNotGrounded(t *testing.T) {
	in := mountAt(0.5)
	in.Up = mgl64.Vec3{0, -1, 0}
	assert.False(t, Evaluate(testParams, in).Grounded)

	in.Up = mgl64.Vec3{1, 0, 0}
	assert.False(t, Evaluate(testParams, in).Grounded)
}

func TestEvaluate_DamperIsAsymmetric(t *testing.T) {
	in := mountAt(0.55)
	in.MountVelocity = mgl64.Vec3{0, -1, 0}
	compressing := Evaluate(testParams, in)
	assert.InDelta(t, 1.0, compressing.ClosingVelocity, 1e-12)
	assert.InDelta(t, 3500+3500, compressing.Load, 1e-6)

	in.MountVelocity = mgl64.Vec3{0, 0.5, 0}
	rebounding := Evaluate(testParams, in)
	assert.InDelta(t, 3500-3500*0.6*0.5, rebounding.Load, 1e-6)

	in.MountVelocity = mgl64.Vec3{0, 10, 0}
	assert.Zero(t, Evaluate(testParams, in).Load, "suspension only pushes")
}

func TestEvaluate_BumpStop(t *testing.T) {
	// 0.3 m compression: 0.1 past travel
	res := Evaluate(testParams, mountAt(0.35))
	require.True(t, res.Grounded)
	assert.True(t, res.BumpStop)
	assert.InDelta(t, 35000*0.2+35000*10*0.1, res.Load, 1e-6)
	assert.InDelta(t, 0.25, res.BumpCancel, 1e-12)
	assert.Equal(t, 1.0, res.Ratio)
}

func TestEvaluate_MaxForce(t *testing.T) {
	p := testParams
	p.MaxForce = 5000
	res := Evaluate(p, mountAt(0.35))
	assert.Equal(t, 5000.0, res.Load)
}

func TestEvaluate_MeasuresAlongChassisUp(t *testing.T) {
	// on a 45° slope with the chassis aligned to it, the distance is the
	// perpendicular distance, not the vertical one
	slope := terrain.Slope{GradeX: 1}
	n := slope.NormalAt(0, 0)
	mount := n.Mul(0.55)
	res := Evaluate(testParams, Input{Mount: mount, Up: n, Terrain: slope})
	require.True(t, res.Grounded)
	assert.InDelta(t, 0.55, res.Distance, 1e-9)
	assert.InDelta(t, 0.1, res.Compression, 1e-9)
	assertVecInDelta(t, n, res.Force.Normalize(), 1e-9)
}

func TestEvaluate_TorqueAboutCenter(t *testing.T) {
	in := mountAt(0.55)
	in.Mount = mgl64.Vec3{0.75, 0.55, 1.2}
	in.BodyCenter = mgl64.Vec3{0, 0.55, 0}
	res := Evaluate(testParams, in)
	want := mgl64.Vec3{0.75, 0, 1.2}.Cross(res.Force)
	assertVecInDelta(t, want, res.Torque, 1e-9)
	// an upward push at the front-left pitches the nose up (-X torque) and
	// rolls toward the right
	assert.Greater(t, res.Torque.Z(), 0.0)
	assert.Less(t, res.Torque.X(), 0.0)
}

type nanTerrain struct{}

func (nanTerrain) HeightAt(_, _ float64) float64     { return math.NaN() }
func (nanTerrain) NormalAt(_, _ float64) mgl64.Vec3 { return terrain.Up }

func TestEvaluate_BadTerrain(t *testing.T) {
	in := mountAt(0.5)
	in.Terrain = nanTerrain{}
	res := Evaluate(testParams, in)
	assert.False(t, res.Grounded)
	assert.Zero(t, res.Load)
}

func TestParamsFromSpec(t *testing.T) {
	s, err := vehicle.Preset("compact")
	require.NoError(t, err)
	p := ParamsFromSpec(s, 9.81)
	assert.Equal(t, s.Wheels.Radius, p.WheelRadius)
	assert.InDelta(t, 10*950*9.81/4, p.MaxForce, 1e-6)
}

func assertVecInDelta(t *testing.T, want, got mgl64.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}
