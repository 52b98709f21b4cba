package dynamics

import (
	"math"

	"github.com/cxd309/vds-engine/internal/body"
	"github.com/cxd309/vds-engine/internal/drift"
	"github.com/cxd309/vds-engine/internal/suspension"
	"github.com/cxd309/vds-engine/internal/tire"
	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/cxd309/vds-engine/internal/weight"
	"github.com/go-gl/mathgl/mgl64"
)

// Update runs the whole pipeline for one step.
func (v *Vehicle) Update(dt float64, in Input) Snapshot {
	in = in.Clamped()
	v.input = in
	dt = v.damping.ClampStep(dt)
	if dt == 0 {
		return v.Snapshot()
	}
	v.lastDt = dt

	g := v.gravity

	b := v.body
	up, fwd := b.Up(), b.Forward()
	local := b.ToLocal(b.Velocity)
	forwardSpeed := local.Dot(body.LocalForward)

	v.updateSteering(in.Steer, forwardSpeed, dt)
	left, right := tire.Ackermann(v.steer, v.spec.Wheels.Wheelbase, v.spec.Wheels.TrackWidth)
	v.wheels[vehicle.FL].steer = left
	v.wheels[vehicle.FR].steer = right

	wp := v.weightParams()
	lateral := weight.Lateral(wp, forwardSpeed, v.steer)
	longTarget := weight.Longitudinal(wp, in.Throttle, in.Brake)
	v.drive.LongitudinalWeightTransfer = weight.Approach(
		v.drive.LongitudinalWeightTransfer, longTarget, v.spec.Weight.Response, dt)
	deltas := weight.Distribute(lateral, v.drive.LongitudinalWeightTransfer)
	lateralDeltas := weight.Distribute(lateral, 0)

	force := mgl64.Vec3{0, -b.Mass * g, 0}
	var torque mgl64.Vec3

	// suspension
	var loads [vehicle.NumWheels]float64
	grounded := 0
	bumpCancel := 0.0
	for i := range v.wheels {
		w := &v.wheels[i]
		mount := b.WorldPoint(w.offset)
		w.susp = suspension.Evaluate(v.suspParams, suspension.Input{
			Mount:         mount,
			Up:            up,
			MountVelocity: b.PointVelocity(mount),
			BodyCenter:    b.Position,
			Terrain:       v.terrain,
		})
		w.latDelta = lateralDeltas[i]
		if !w.susp.Grounded {
			continue
		}
		grounded++
		loads[i] = w.susp.Load
		force = force.Add(w.susp.Force)
		torque = torque.Add(w.susp.Torque)
		bumpCancel = math.Max(bumpCancel, w.susp.BumpCancel)
	}
	loads = weight.Apply(loads, deltas)

	// tyres
	boost := 1.0
	if in.Boost {
		boost = v.spec.Boost.Multiplier
	}
	driveTotal := v.drive.DriveForce(in.Throttle, boost, v.spec.Wheels.Radius)
	perWheel := 0.0
	if n := v.spec.DrivenCount(); n > 0 {
		perWheel = driveTotal / float64(n)
	}
	speed := b.Speed()
	for i := range v.wheels {
		w := &v.wheels[i]
		w.load = loads[i]
		c := tire.Contact{
			Wheel:      w.index,
			Driven:     w.driven,
			Load:       loads[i],
			Spin:       w.spin,
			DriveForce: perWheel,
			Brake:      in.Brake,
			Handbrake:  in.Handbrake,
			Drifting:   v.drift.Drifting,
			DriftGrip:  v.drift.GripMultiplier,
			Speed:      speed,
			Gravity:    g,
			Dt:         dt,
		}
		if w.susp.Grounded {
			wf, wr := wheelAxes(fwd, up, w.steer, w.susp.Normal)
			c.Forward, c.Right = wf, wr
			c.Velocity = b.PointVelocity(w.susp.Contact)
			c.LeverArm = w.susp.Contact.Sub(b.Position)
			c.Friction = w.susp.Surface.FrictionMultiplier
			c.Drag = w.susp.Surface.DragMultiplier
		}
		w.tire = tire.Evaluate(v.tireParams, c)
		w.spin = w.tire.Spin
		if w.susp.Grounded {
			force = force.Add(w.tire.Force)
			torque = torque.Add(w.tire.Torque)
		}
	}

	force = force.Add(v.aeroDrag())

	if grounded == 0 {
		localOmega := b.ToLocal(b.AngularVelocity)
		delta := drift.AirControl(v.driftParams, localOmega, in.Throttle, in.Brake, in.Steer, dt)
		b.AngularVelocity = b.AngularVelocity.Add(b.ToWorld(delta))
	}

	// bump stops bleed off velocity into the ground
	if bumpCancel > 0 {
		if vu := b.Velocity.Dot(up); vu < 0 {
			b.Velocity = b.Velocity.Sub(up.Mul(vu * bumpCancel))
		}
	}

	b.Integrate(force, torque, dt, grounded > 0, v.damping)
	b.Depenetrate(v.probes, v.terrain.HeightAt, v.spec.Limits.Bounce)

	v.drive.Update(dt, in.Throttle, v.meanDrivenSpin(), grounded)

	local = b.ToLocal(b.Velocity)
	prevMode := v.drift.Mode
	v.events = v.drift.Update(v.driftParams, drift.Observation{
		Grounded:     grounded,
		ForwardSpeed: local.Dot(body.LocalForward),
		LateralSpeed: local.Dot(body.LocalRight),
		Handbrake:    in.Handbrake,
	}, dt)
	v.logTransitions(prevMode)

	v.time += dt
	return v.Snapshot()
}

func (v *Vehicle) updateSteering(steer, forwardSpeed, dt float64) {
	maxAngle := v.spec.Steering.MaxAngle / (1 + v.spec.Steering.SpeedSensitivity*math.Abs(forwardSpeed))
	target := steer * maxAngle
	if v.spec.Steering.Rate <= 0 {
		v.steer = target
		return
	}
	step := v.spec.Steering.Rate * dt
	v.steer += math.Max(-step, math.Min(step, target-v.steer))
}

// wheelAxes returns the steered wheel forward and right axes projected onto
// the ground plane with normal n.
func wheelAxes(fwd, up mgl64.Vec3, steer float64, n mgl64.Vec3) (forward, right mgl64.Vec3) {
	forward = fwd
	if steer != 0 {
		forward = mgl64.QuatRotate(-steer, up).Rotate(fwd)
	}
	projected := forward.Sub(n.Mul(forward.Dot(n)))
	if l := projected.Len(); l > 1e-6 {
		forward = projected.Mul(1 / l)
	}
	right = forward.Cross(n)
	if l := right.Len(); l > 1e-6 {
		right = right.Mul(1 / l)
	} else {
		right = forward.Cross(up)
	}
	return forward, right
}

func (v *Vehicle) aeroDrag() mgl64.Vec3 {
	a := v.spec.Aero
	vel := v.body.Velocity
	s := vel.Len()
	if s < 1e-6 {
		return mgl64.Vec3{}
	}
	mag := 0.5 * a.AirDensity * a.DragCoefficient * a.FrontalArea * s * s
	// never reverse the velocity within one step
	if dt := v.lastDt; dt > 0 {
		mag = math.Min(mag, v.body.Mass*s/dt)
	}
	return vel.Mul(-mag / s)
}

func (v *Vehicle) meanDrivenSpin() float64 {
	sum, n := 0.0, 0
	for _, w := range v.wheels {
		if w.driven {
			sum += math.Abs(w.spin)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (v *Vehicle) logTransitions(prev drift.Mode) {
	ev := v.events
	switch {
	case ev.TookOff:
		v.logger.Debug("vehicle airborne", "t", v.time)
	case ev.Landed:
		v.logger.Debug("vehicle landed", "t", v.time, "air_time", ev.AirTime)
	}
	if ev.DriftStarted || ev.DriftEnded || prev != v.drift.Mode {
		v.logger.Debug("drift state", "t", v.time, "mode", v.drift.Mode.String(),
			"grip", v.drift.GripMultiplier)
	}
}
