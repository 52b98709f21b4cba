// Package dynamics is the per-vehicle simulation pipeline: steering and
// weight transfer, suspension and tyre forces, integration, ground
// correction, then drivetrain and drift state.
//
// A Vehicle is single-threaded. Separate Vehicles share no mutable state and
// can be stepped from different goroutines.
package dynamics

import (
	"log/slog"
	"math"

	"github.com/cxd309/vds-engine/internal/body"
	"github.com/cxd309/vds-engine/internal/drift"
	"github.com/cxd309/vds-engine/internal/drivetrain"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/terrain"
	"github.com/cxd309/vds-engine/internal/tire"
	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/cxd309/vds-engine/internal/weight"
	"github.com/go-gl/mathgl/mgl64"
)

// Engine is the vehicle dynamics contract the host drives once per frame.
type Engine interface {
	// Update runs one full step and returns the resulting snapshot.
	Update(dt float64, in Input) Snapshot
	// Snapshot returns the state after the last Update.
	Snapshot() Snapshot
	ShiftUp() bool
	ShiftDown() bool
	SetGear(gear int) error
	// Reset places the vehicle and clears all motion and transient state.
	Reset(p Pose)
}

// Verify Vehicle satisfies Engine.
var _ Engine = (*Vehicle)(nil)

// Input is one step of driver input.
type Input struct {
	Throttle  float64 `json:"throttle"`  // [0, 1]
	Brake     float64 `json:"brake"`     // [0, 1]
	Steer     float64 `json:"steer"`     // [-1, 1], positive right
	Handbrake float64 `json:"handbrake"` // [0, 1]
	Boost     bool    `json:"boost"`
}

// Clamped returns the input with every axis inside its range. NaN reads as 0.
func (in Input) Clamped() Input {
	in.Throttle = clampRange(in.Throttle, 0, 1)
	in.Brake = clampRange(in.Brake, 0, 1)
	in.Steer = clampRange(in.Steer, -1, 1)
	in.Handbrake = clampRange(in.Handbrake, 0, 1)
	return in
}

// Pose places a vehicle. Heading is the yaw from +Z toward +X.
type Pose struct {
	Position        mgl64.Vec3
	Heading         float64
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// SpawnPose returns a pose at (x, z) with the body resting on fully
// extended suspension, lifted a further drop metres.
func SpawnPose(s vehicle.Spec, t terrain.Provider, x, z, heading, drop float64) Pose {
	h := 0.0
	if t != nil {
		h = t.HeightAt(x, z)
	}
	return Pose{
		Position: mgl64.Vec3{x, h + s.RideHeight() + drop, z},
		Heading:  heading,
	}
}

type wheel struct {
	index    vehicle.WheelIndex
	offset   mgl64.Vec3
	driven   bool
	spin     float64
	steer    float64
	susp     suspension.Result
	tire     tire.Result
	load     float64
	latDelta float64
}

// Vehicle is the canonical Engine implementation.
type Vehicle struct {
	spec    vehicle.Spec
	terrain terrain.Provider
	logger  *slog.Logger

	body   *body.Body
	wheels [vehicle.NumWheels]wheel
	drive  *drivetrain.Drivetrain
	drift  drift.State

	suspParams  suspension.Params
	tireParams  tire.Params
	driftParams drift.Params
	damping     body.Damping
	probes      []body.Probe

	steer   float64
	time    float64
	events  drift.Events
	input   Input
	lastDt  float64
	gravity float64
}

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithLogger routes state-transition debug logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vehicle) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithCurve replaces the spec's Pacejka lateral curve.
func WithCurve(c tire.LateralCurve) Option {
	return func(v *Vehicle) {
		if c != nil {
			v.tireParams.Curve = c
		}
	}
}

// WithPose sets the starting pose. Without it the vehicle spawns at the
// origin resting on its suspension.
func WithPose(p Pose) Option {
	return func(v *Vehicle) { v.Reset(p) }
}

// New validates and copies spec, then builds a vehicle on t. A nil terrain is
// a flat plane at height zero.
func New(spec vehicle.Spec, t terrain.Provider, opts ...Option) (*Vehicle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.Clone()
	if t == nil {
		t = terrain.Flat{}
	}

	v := &Vehicle{
		spec:        spec,
		terrain:     t,
		logger:      slog.New(slog.DiscardHandler),
		body:        body.New(spec.Body.Mass, spec.Body.Width, spec.Body.Height, spec.Body.Length),
		drive:       drivetrain.New(spec),
		drift:       drift.NewState(),
		tireParams:  tire.ParamsFromSpec(spec),
		driftParams: drift.ParamsFromSpec(spec),
		damping: body.Damping{
			MaxStep:         spec.Limits.MaxStep,
			Grounded:        spec.Limits.GroundedAngularDamping,
			Airborne:        spec.Limits.AirborneAngularDamping,
			MaxSpeed:        spec.Limits.MaxSpeed,
			MaxAngularSpeed: spec.Limits.MaxAngularSpeed,
		},
	}

	for _, w := range vehicle.AllWheels {
		off := spec.MountOffset(w)
		v.wheels[w] = wheel{index: w, offset: off, driven: spec.IsDriven(w)}
		v.probes = append(v.probes, body.Probe{Local: off, Clearance: spec.Wheels.Radius})
	}
	v.probes = append(v.probes, body.Probe{Clearance: spec.Limits.BodyClearance})

	v.Reset(SpawnPose(spec, t, 0, 0, 0, 0))
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Spec returns the vehicle's private spec copy.
func (v *Vehicle) Spec() vehicle.Spec { return v.spec.Clone() }

// Time is the simulated time accumulated by Update.
func (v *Vehicle) Time() float64 { return v.time }

// Reset places the vehicle at p, stops it and returns every transient state
// (wheel spin, RPM, gear, drift) to its initial value.
func (v *Vehicle) Reset(p Pose) {
	v.body.SetPose(p.Position, body.HeadingQuat(p.Heading))
	v.body.Velocity = p.Velocity
	v.body.AngularVelocity = p.AngularVelocity
	for i := range v.wheels {
		w := &v.wheels[i]
		w.spin, w.steer, w.load, w.latDelta = 0, 0, 0, 0
		w.susp = suspension.Result{}
		w.tire = tire.Result{}
	}
	v.drive = drivetrain.New(v.spec)
	v.drift = drift.NewState()
	v.steer = 0
	v.events = drift.Events{}
	v.input = Input{}
	// gravity and the suspension force cap hold until the next reset
	v.gravity = terrain.Gravity(v.terrain)
	v.suspParams = suspension.ParamsFromSpec(v.spec, v.gravity)
}

func (v *Vehicle) ShiftUp() bool {
	ok := v.drive.ShiftUp()
	if ok {
		v.logger.Debug("shift up", "gear", drivetrain.GearLabel(v.drive.Gear))
	}
	return ok
}

func (v *Vehicle) ShiftDown() bool {
	ok := v.drive.ShiftDown()
	if ok {
		v.logger.Debug("shift down", "gear", drivetrain.GearLabel(v.drive.Gear))
	}
	return ok
}

func (v *Vehicle) SetGear(gear int) error {
	return v.drive.SetGear(gear)
}

func clampRange(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(lo, math.Min(hi, x))
}

// weightParams resolves the weight-transfer constants for this step's gravity.
func (v *Vehicle) weightParams() weight.Params {
	return weight.ParamsFromSpec(v.spec, v.gravity)
}
