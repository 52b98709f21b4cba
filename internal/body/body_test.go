package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BoxInertia(t *testing.T) {
	b := New(12, 1, 2, 3)
	assert.InDelta(t, 13, b.Inertia.X(), 1e-12)
	assert.InDelta(t, 10, b.Inertia.Y(), 1e-12)
	assert.InDelta(t, 5, b.Inertia.Z(), 1e-12)
	assert.InDelta(t, 0.2, b.InverseInertia.Z(), 1e-12)
	assert.Equal(t, mgl64.QuatIdent(), b.Orientation)
}

func TestAxes(t *testing.T) {
	b := New(1000, 1.8, 1.4, 4)
	assert.Equal(t, LocalForward, b.Forward())
	assert.Equal(t, LocalUp, b.Up())
	assertVecInDelta(t, b.Forward().Cross(b.Up()), b.Right(), 1e-12)

	b.SetPose(mgl64.Vec3{1, 2, 3}, HeadingQuat(math.Pi/2))
	assert.InDelta(t, math.Pi/2, b.Heading(), 1e-12)
	assertVecInDelta(t, mgl64.Vec3{1, 0, 0}, b.Forward(), 1e-12)

	local := mgl64.Vec3{0.5, 0, 1}
	assertVecInDelta(t, local, b.ToLocal(b.ToWorld(local)), 1e-12)
	assertVecInDelta(t, mgl64.Vec3{1, 2, 3}, b.WorldPoint(mgl64.Vec3{}), 1e-12)
}

func TestPointVelocity(t *testing.T) {
	b := New(1000, 1.8, 1.4, 4)
	b.Velocity = mgl64.Vec3{0, 0, 5}
	b.AngularVelocity = mgl64.Vec3{0, 1, 0}
	// a point one metre to +X moves toward -Z under +Y spin
	v := b.PointVelocity(mgl64.Vec3{1, 0, 0})
	assertVecInDelta(t, mgl64.Vec3{0, 0, 4}, v, 1e-12, "%v", v)
}

func TestIntegrate_LinearMotion(t *testing.T) {
	b := New(100, 1, 1, 1)
	used := b.Integrate(mgl64.Vec3{100, 0, 0}, mgl64.Vec3{}, 0.01, true, DefaultDamping)
	assert.Equal(t, 0.01, used)
	assert.InDelta(t, 0.01, b.Velocity.X(), 1e-12)
	// semi-implicit: position uses the updated velocity
	assert.InDelta(t, 0.0001, b.Position.X(), 1e-12)
}

func TestIntegrate_ClampsStep(t *testing.T) {
	b := New(100, 1, 1, 1)
	used := b.Integrate(mgl64.Vec3{100, 0, 0}, mgl64.Vec3{}, 0.5, true, DefaultDamping)
	assert.Equal(t, 0.05, used)
	assert.InDelta(t, 0.05, b.Velocity.X(), 1e-12)

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.Zero(t, b.Integrate(mgl64.Vec3{}, mgl64.Vec3{}, dt, true, DefaultDamping))
	}
}

func TestIntegrate_DropsNonFiniteInputs(t *testing.T) {
	b := New(100, 1, 1, 1)
	b.Integrate(mgl64.Vec3{math.NaN(), 0, 0}, mgl64.Vec3{0, math.Inf(1), 0}, 0.01, true, DefaultDamping)
	assert.Equal(t, mgl64.Vec3{}, b.Velocity)
	assert.Equal(t, mgl64.Vec3{}, b.AngularVelocity)
}

func TestIntegrate_TorqueUsesBodyInertia(t *testing.T) {
	b := New(12, 1, 2, 3)
	b.Integrate(mgl64.Vec3{}, mgl64.Vec3{0, 10, 0}, 0.01, false, DefaultDamping)
	// Iyy = 10, so 1 rad/s² for 0.01 s
	assert.InDelta(t, 0.01, b.AngularVelocity.Y(), 1e-12)

	// rotate the body a quarter turn about X so body Y points along world Z;
	// a world-Z torque now acts on the Y inertia
	c := New(12, 1, 2, 3)
	c.Orientation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0})
	c.Integrate(mgl64.Vec3{}, mgl64.Vec3{0, 0, 10}, 0.01, false, DefaultDamping)
	assert.InDelta(t, 0.01, c.AngularVelocity.Z(), 1e-9)
}

func TestIntegrate_OrientationStaysUnit(t *testing.T) {
	b := New(1000, 1.8, 1.4, 4)
	b.AngularVelocity = mgl64.Vec3{3, 7, -2}
	for range 10000 {
		b.Integrate(mgl64.Vec3{}, mgl64.Vec3{50, -20, 80}, 1.0/60, false, DefaultDamping)
		require.InDelta(t, 1.0, b.Orientation.Len(), 1e-9)
	}
}

func TestIntegrate_AirborneSpinPreserved(t *testing.T) {
	air := New(1000, 1.8, 1.4, 4)
	ground := New(1000, 1.8, 1.4, 4)
	air.AngularVelocity = mgl64.Vec3{0, 2, 0}
	ground.AngularVelocity = mgl64.Vec3{0, 2, 0}

	for range 60 {
		air.Integrate(mgl64.Vec3{}, mgl64.Vec3{}, 1.0/60, false, DefaultDamping)
		ground.Integrate(mgl64.Vec3{}, mgl64.Vec3{}, 1.0/60, true, DefaultDamping)
	}

	assert.InDelta(t, 2.0, air.AngularVelocity.Len(), 1e-9, "airborne spin is not damped")
	assert.InDelta(t, 2*math.Pow(0.98, 60), ground.AngularVelocity.Len(), 1e-9)
}

func TestIntegrate_DampingIndependentOfStepSize(t *testing.T) {
	a := New(1000, 1.8, 1.4, 4)
	b := New(1000, 1.8, 1.4, 4)
	a.AngularVelocity = mgl64.Vec3{1, 0, 0}
	b.AngularVelocity = mgl64.Vec3{1, 0, 0}
	for range 60 {
		a.Integrate(mgl64.Vec3{}, mgl64.Vec3{}, 1.0/60, true, DefaultDamping)
	}
	for range 30 {
		b.Integrate(mgl64.Vec3{}, mgl64.Vec3{}, 1.0/30, true, DefaultDamping)
	}
	assert.InDelta(t, a.AngularVelocity.Len(), b.AngularVelocity.Len(), 1e-9)
}

func TestIntegrate_SpeedClamp(t *testing.T) {
	b := New(1, 1, 1, 1)
	b.Integrate(mgl64.Vec3{1e6, 0, 0}, mgl64.Vec3{1e6, 0, 0}, 0.05, false, DefaultDamping)
	assert.InDelta(t, DefaultDamping.MaxSpeed, b.Velocity.Len(), 1e-9)
	assert.InDelta(t, DefaultDamping.MaxAngularSpeed, b.AngularVelocity.Len(), 1e-9)
}

func TestDepenetrate(t *testing.T) {
	b := New(1000, 1.8, 1.4, 4)
	b.Position = mgl64.Vec3{0, 0.1, 0}
	b.Velocity = mgl64.Vec3{1, -4, 0}
	ground := func(x, z float64) float64 { return 0 }
	probes := []Probe{
		{Local: mgl64.Vec3{0, 0, 0}, Clearance: 0.35},
		{Local: mgl64.Vec3{0, -0.2, 1.2}, Clearance: 0.3},
	}

	lift := b.Depenetrate(probes, ground, 0.25)
	assert.InDelta(t, 0.4, lift, 1e-12)
	assert.InDelta(t, 0.5, b.Position.Y(), 1e-12)
	assert.InDelta(t, 1.0, b.Velocity.Y(), 1e-12)
	assert.Equal(t, 1.0, b.Velocity.X())

	// already clear: nothing changes
	assert.InDelta(t, 0, b.Depenetrate(probes, ground, 0.25), 1e-12)
	assert.InDelta(t, 0.5, b.Position.Y(), 1e-12)
}

func assertVecInDelta(t *testing.T, want, got mgl64.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}
