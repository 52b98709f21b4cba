package dynamics

import (
	"bytes"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cxd309/vds-engine/internal/drivetrain"
	"github.com/cxd309/vds-engine/internal/terrain"
	"github.com/cxd309/vds-engine/internal/tire"
	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const step = 1.0 / 60

func compact(t *testing.T) vehicle.Spec {
	t.Helper()
	s, err := vehicle.Preset("compact")
	require.NoError(t, err)
	return s
}

func newVehicle(t *testing.T, terr terrain.Provider, opts ...Option) *Vehicle {
	t.Helper()
	v, err := New(compact(t), terr, opts...)
	require.NoError(t, err)
	return v
}

func run(v *Vehicle, seconds float64, in Input) Snapshot {
	var s Snapshot
	for range int(math.Round(seconds / step)) {
		s = v.Update(step, in)
	}
	return s
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	s := compact(t)
	s.Body.Mass = 0
	_, err := New(s, nil)
	assert.ErrorIs(t, err, vehicle.ErrInvalidSpec)
}

func TestNew_CopiesSpec(t *testing.T) {
	s := compact(t)
	v, err := New(s, nil)
	require.NoError(t, err)
	s.Transmission.Gears[2] = 99
	assert.NotEqual(t, 99.0, v.Spec().Transmission.Gears[2])
}

func TestInput_Clamped(t *testing.T) {
	in := Input{Throttle: 2, Brake: -1, Steer: -3, Handbrake: math.NaN()}.Clamped()
	assert.Equal(t, Input{Throttle: 1, Brake: 0, Steer: -1, Handbrake: 0}, in)
}

func TestSuspensionEquilibrium(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	s := run(v, 5, Input{})

	spec := v.Spec()
	want := spec.EquilibriumCompression(terrain.DefaultGravity)
	mean := 0.0
	for _, w := range s.Wheels {
		require.True(t, w.Grounded, "%s grounded", w.Wheel)
		mean += w.Compression / 4
	}
	assert.InDelta(t, want, mean, want*0.05)
	assert.InDelta(t, 0, s.Velocity.Y(), 1e-3)

	// and it stays there
	for range 600 {
		s = v.Update(step, Input{})
		require.Equal(t, 4, s.GroundedWheels)
		require.InDelta(t, 0, s.Velocity.Y(), 1e-3)
	}
}

func TestIdleIsIdempotent(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	prev := run(v, 10, Input{})
	for range 120 {
		s := v.Update(step, Input{})
		assert.Less(t, s.Position.Sub(prev.Position).Len(), 1e-6)
		for i := range s.Orientation {
			assert.InDelta(t, prev.Orientation[i], s.Orientation[i], 1e-6)
		}
		prev = s
	}
}

func TestGroundNonPenetration(t *testing.T) {
	terrains := map[string]terrain.Provider{
		"wave":  terrain.Wave{Amplitude: 1.2, Wavelength: 18},
		"slope": terrain.Slope{GradeX: 0.15, GradeZ: -0.25},
		"grid": &terrain.Grid{
			OriginX: -50, OriginZ: -50, CellSize: 10, Cols: 11, Rows: 11,
			Heights: func() []float64 {
				rng := rand.New(rand.NewPCG(7, 7))
				h := make([]float64, 121)
				for i := range h {
					h[i] = rng.Float64() * 2
				}
				return h
			}(),
		},
	}
	for name, terr := range terrains {
		t.Run(name, func(t *testing.T) {
			spec := compact(t)
			v, err := New(spec, terr, WithPose(SpawnPose(spec, terr, 0, 0, 0.3, 0.5)))
			require.NoError(t, err)

			rng := rand.New(rand.NewPCG(42, uint64(len(name))))
			var in Input
			for i := range 1500 {
				if i%30 == 0 {
					in = Input{
						Throttle:  rng.Float64(),
						Brake:     rng.Float64() * 0.3,
						Steer:     rng.Float64()*2 - 1,
						Handbrake: float64(rng.IntN(4) / 3),
						Boost:     rng.IntN(2) == 0,
					}
					switch rng.IntN(6) {
					case 0:
						v.ShiftUp()
					case 1:
						v.ShiftDown()
					}
				}
				dt := step
				if i%97 == 0 {
					dt = 0.2 // frame hitch
				}
				s := v.Update(dt, in)

				for _, w := range vehicle.AllWheels {
					mount := v.body.WorldPoint(spec.MountOffset(w))
					require.GreaterOrEqual(t, mount.Y(), terr.HeightAt(mount.X(), mount.Z())-1e-6,
						"step %d wheel %s below ground", i, w)
				}
				c := s.Position
				require.GreaterOrEqual(t, c.Y(), terr.HeightAt(c.X(), c.Z())-1e-6, "step %d centre below ground", i)
				require.InDelta(t, 1.0, v.body.Orientation.Len(), 1e-9)
				require.GreaterOrEqual(t, s.RPM, spec.Engine.IdleRPM)
				require.LessOrEqual(t, s.RPM, spec.Engine.RedlineRPM)
			}
		})
	}
}

func TestAirborneSpinPreserved(t *testing.T) {
	spin := mgl64.Vec3{0, 2, 0}

	air := newVehicle(t, terrain.Flat{})
	air.Reset(Pose{Position: mgl64.Vec3{0, 30, 0}, AngularVelocity: spin})
	s := run(air, 0.5, Input{})
	require.True(t, s.Airborne)
	assert.InDelta(t, spin.Len(), s.AngularVelocity.Len(), spin.Len()*0.01)
	assert.InDelta(t, 0.5, s.AirTime, 1e-9)

	spec := compact(t)
	ground := newVehicle(t, terrain.Flat{})
	p := SpawnPose(spec, terrain.Flat{}, 0, 0, 0, 0)
	p.AngularVelocity = spin
	ground.Reset(p)
	s = run(ground, 0.5, Input{})
	assert.False(t, s.Airborne)
	assert.Less(t, s.AngularVelocity.Len(), spin.Len()*0.7)
}

func TestFullThrottleFirstGear(t *testing.T) {
	spec := compact(t)
	require.Equal(t, 950.0, spec.Body.Mass)

	v, err := New(spec, terrain.Flat{}, WithPose(Pose{
		Position: mgl64.Vec3{0, spec.Suspension.RestLength + spec.Wheels.Radius + 0.01, 0},
	}))
	require.NoError(t, err)
	require.NoError(t, v.SetGear(drivetrain.GearFirst))

	full := Input{Throttle: 1}
	before := run(v, 1.9, full)
	after := run(v, 0.1, full)

	assert.InDelta(t, 2.0, after.Time, 1e-9)
	assert.Greater(t, after.ForwardSpeed, 0.0)
	assert.Greater(t, after.ForwardSpeed, before.ForwardSpeed, "still accelerating")
	for _, w := range after.Wheels {
		assert.True(t, w.Grounded, "%s grounded", w.Wheel)
	}
	assert.Equal(t, "1", after.GearLabel)
	assert.Greater(t, after.RPM, spec.Engine.IdleRPM)
	assert.InDelta(t, 0, after.Position.X(), 0.05, "drives straight")
}

func TestBrakingStops(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	s := run(v, 3, Input{Throttle: 1})
	require.Greater(t, s.ForwardSpeed, 3.0)

	s = run(v, 4, Input{Brake: 1})
	assert.InDelta(t, 0, s.ForwardSpeed, 0.05)
}

func TestSteeringTurns(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	run(v, 2, Input{Throttle: 0.6})
	s := run(v, 1, Input{Throttle: 0.4, Steer: 1})
	// positive steer turns right, which is toward -X for a car facing +Z
	assert.Less(t, s.Heading, 0.0)
	assert.Less(t, s.Position.X(), 0.0)
	assert.Greater(t, s.Wheels[vehicle.FR].SteerAngle, s.Wheels[vehicle.FL].SteerAngle)
}

func TestReverseGear(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	run(v, 1, Input{})
	require.NoError(t, v.SetGear(drivetrain.GearReverse))
	s := run(v, 2, Input{Throttle: 1})
	assert.Less(t, s.ForwardSpeed, 0.0)
	assert.Equal(t, "R", s.GearLabel)
}

func TestHandbrakeStartsDrift(t *testing.T) {
	spec := compact(t)
	v := newVehicle(t, terrain.Flat{})
	run(v, 3, Input{Throttle: 1})
	s := v.Update(step, Input{Handbrake: 1, Steer: 0.5})
	assert.True(t, s.Drifting)
	assert.Less(t, s.GripMultiplier, 1.0)
	assert.GreaterOrEqual(t, s.GripMultiplier, spec.Drift.GripMultiplier)
}

func TestLandingEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v := newVehicle(t, terrain.Flat{}, WithLogger(logger))
	spec := v.Spec()
	v.Reset(Pose{Position: mgl64.Vec3{0, spec.RideHeight() + 1.5, 0}})

	var landed Snapshot
	for range 180 {
		s := v.Update(step, Input{})
		if s.Landed {
			landed = s
			break
		}
	}
	require.True(t, landed.Landed)
	assert.Greater(t, landed.LandingAirTime, 0.3)
	assert.Contains(t, buf.String(), "vehicle landed")
}

func TestShiftAndReset(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	assert.True(t, v.ShiftUp())
	assert.Equal(t, "2", v.Snapshot().GearLabel)
	assert.True(t, v.ShiftDown())
	assert.True(t, v.ShiftDown())
	assert.Equal(t, "N", v.Snapshot().GearLabel)
	assert.ErrorIs(t, v.SetGear(42), drivetrain.ErrGearOutOfRange)

	run(v, 1, Input{Throttle: 1})
	v.Reset(Pose{Position: mgl64.Vec3{5, 2, 5}, Heading: math.Pi})
	s := v.Snapshot()
	assert.Equal(t, mgl64.Vec3{5, 2, 5}, s.Position)
	assert.Equal(t, mgl64.Vec3{}, s.Velocity)
	assert.Equal(t, "1", s.GearLabel)
	assert.InDelta(t, math.Pi, math.Abs(s.Heading), 1e-9)
}

func TestZeroStepIsNoop(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	before := v.Snapshot()
	after := v.Update(0, Input{Throttle: 1})
	assert.Equal(t, before.Position, after.Position)
	assert.Zero(t, after.Time)
}

func TestWithCurve(t *testing.T) {
	v := newVehicle(t, terrain.Flat{}, WithCurve(tire.Linear{Stiffness: 6}))
	assert.Equal(t, tire.Linear{Stiffness: 6}, v.tireParams.Curve)
	s := run(v, 2, Input{Throttle: 0.5, Steer: 0.3})
	assert.Greater(t, s.Speed, 0.0)
}

func TestIndependentVehicles(t *testing.T) {
	a := newVehicle(t, terrain.Flat{})
	b := newVehicle(t, terrain.Flat{})
	run(a, 1, Input{Throttle: 1})
	assert.Greater(t, a.Snapshot().Speed, b.Snapshot().Speed)
	assert.Zero(t, b.Time())
}

func TestSnapshot_AirborneFollowsDriftMode(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	assert.False(t, v.Snapshot().Airborne, "resting on its suspension before the first step")

	v.Reset(Pose{Position: mgl64.Vec3{0, 30, 0}})
	assert.False(t, v.Snapshot().Airborne, "no step taken since the reset")
	s := v.Update(step, Input{})
	assert.True(t, s.Airborne)
	assert.Zero(t, s.GroundedWheels)
}

func TestLateralWeightDelta_ExcludesLongitudinalShare(t *testing.T) {
	v := newVehicle(t, terrain.Flat{})
	s := run(v, 1, Input{Throttle: 1})
	require.NotZero(t, v.drive.LongitudinalWeightTransfer)
	for _, w := range s.Wheels {
		assert.Zero(t, w.LateralWeightDelta, "%s in a straight line", w.Wheel)
	}

	s = run(v, 0.5, Input{Throttle: 0.5, Steer: 1})
	assert.Greater(t, s.Wheels[vehicle.FL].LateralWeightDelta, 0.0, "right turn loads the left side")
	assert.InDelta(t, s.Wheels[vehicle.FL].LateralWeightDelta, s.Wheels[vehicle.RL].LateralWeightDelta, 1e-9)
	assert.InDelta(t, -s.Wheels[vehicle.FL].LateralWeightDelta, s.Wheels[vehicle.FR].LateralWeightDelta, 1e-9)
}

func TestGravityResolvedAtReset(t *testing.T) {
	spec := compact(t)
	v := newVehicle(t, terrain.Flat{GravityVal: 3.7})
	want := spec.Suspension.MaxForceScale * spec.StaticCornerLoad(3.7)

	assert.Equal(t, 3.7, v.gravity)
	assert.InDelta(t, want, v.suspParams.MaxForce, 1e-9)
	run(v, 0.5, Input{Throttle: 0.3})
	assert.InDelta(t, want, v.suspParams.MaxForce, 1e-9)
}
