// Package tire turns a wheel's contact velocity and normal load into
// longitudinal and lateral forces.
package tire

import (
	"math"

	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// slipEpsilon keeps the slip angle finite at a standstill.
	slipEpsilon = 0.5 // m/s
	// spinFloor is the reference speed for slip ratios near a standstill.
	spinFloor = 2.0 // m/s
	// rollingThreshold is the speed below which rolling resistance is off.
	rollingThreshold = 0.1 // m/s
)

// Params are the per-vehicle tire constants.
type Params struct {
	Curve             LateralCurve
	Grip              float64
	RollingResistance float64
	SpinResponse      float64 // 1/s
	SlipFalloff       float64
	MaxSlipRatio      float64
	WheelRadius       float64
	BrakeForce        float64 // N per wheel at full brake
	HandbrakeForce    float64 // N per rear wheel at full handbrake
	Tuning            GripTuning
}

// ParamsFromSpec derives tire constants from a validated spec using the
// spec's Pacejka shape.
func ParamsFromSpec(s vehicle.Spec) Params {
	return Params{
		Curve:             Pacejka{B: s.Tire.B, C: s.Tire.C, E: s.Tire.E},
		Grip:              s.Tire.Grip,
		RollingResistance: s.Tire.RollingResistance,
		SpinResponse:      s.Tire.SpinResponse,
		SlipFalloff:       s.Tire.SlipFalloff,
		MaxSlipRatio:      s.Tire.MaxSlipRatio,
		WheelRadius:       s.Wheels.Radius,
		BrakeForce:        s.Brakes.MaxForce,
		HandbrakeForce:    s.Brakes.HandbrakeForce,
		Tuning: GripTuning{
			HandbrakeGrip:      s.Drift.HandbrakeGrip,
			SlipAngleThreshold: s.Drift.SlipAngleThreshold,
			SpeedGripBoost:     s.Tire.SpeedGripBoost,
			SpeedGripReference: s.Tire.SpeedGripReference,
		},
	}
}

// Contact is one wheel's per-step input. Vectors are world space; Forward and
// Right are the steered wheel axes projected onto the ground.
type Contact struct {
	Wheel    vehicle.WheelIndex
	Driven   bool
	Load     float64 // N, after weight transfer
	Velocity mgl64.Vec3
	Forward  mgl64.Vec3
	Right    mgl64.Vec3
	LeverArm mgl64.Vec3 // contact point minus body centre

	Spin       float64 // rad/s at the start of the step
	DriveForce float64 // N requested at this contact patch, signed
	Brake      float64 // [0, 1]
	Handbrake  float64 // [0, 1]

	Friction  float64 // surface friction multiplier
	Drag      float64 // surface drag multiplier, scales rolling resistance
	Drifting  bool
	DriftGrip float64 // drift state's current grip multiplier
	Speed     float64 // vehicle speed, m/s
	Gravity   float64
	Dt        float64
}

// Result is one wheel's evaluated force.
type Result struct {
	ForwardVel     float64
	LateralVel     float64
	SlipAngle      float64
	SlipRatio      float64
	GripMultiplier float64
	Longitudinal   float64 // N along Forward
	Lateral        float64 // N along Right
	Spin           float64 // rad/s after the step
	Force          mgl64.Vec3
	Torque         mgl64.Vec3
}

// Evaluate computes the wheel's tire force. A wheel without load produces no
// force; its spin coasts, or stops under brakes.
func Evaluate(p Params, c Contact) Result {
	res := Result{
		ForwardVel: c.Velocity.Dot(c.Forward),
		LateralVel: c.Velocity.Dot(c.Right),
		Spin:       c.Spin,
	}
	fwd, lat := res.ForwardVel, res.LateralVel
	res.SlipAngle = math.Atan2(lat, math.Abs(fwd)+slipEpsilon)
	res.GripMultiplier = GripMultiplier(p.Tuning, GripInput{
		Wheel:     c.Wheel,
		Handbrake: c.Handbrake,
		SlipAngle: res.SlipAngle,
		Drifting:  c.Drifting,
		DriftGrip: c.DriftGrip,
		Speed:     c.Speed,
	})

	r := p.WheelRadius
	if r <= 0 {
		r = 0.3
	}
	blend := 1.0
	if c.Dt > 0 {
		blend = math.Min(1, p.SpinResponse*c.Dt)
	}

	if !(c.Load > 0) {
		if c.Brake > 0 || (c.Wheel.IsRear() && c.Handbrake > 0) {
			res.Spin -= res.Spin * blend
		}
		return res
	}

	friction := c.Friction
	if !(friction > 0) {
		friction = 1
	}
	maxTraction := p.Grip * friction * c.Load
	massShare := c.Load / gravityOr(c.Gravity)

	// wheel spin and drive
	ref := math.Max(math.Abs(fwd), spinFloor)
	groundRate := fwd / r
	target := groundRate
	if c.Driven && c.DriveForce != 0 {
		excess := math.Max(0, math.Abs(c.DriveForce)-maxTraction) / (maxTraction + 1)
		target += math.Copysign(math.Min(excess, 1)*p.MaxSlipRatio*ref/r, c.DriveForce)
	}
	if c.Wheel.IsRear() && c.Handbrake > 0 {
		target *= 1 - math.Min(c.Handbrake, 1)
	}
	res.Spin += (target - res.Spin) * blend
	res.SlipRatio = (res.Spin*r - fwd) / ref

	long := 0.0
	if c.Driven && c.DriveForce != 0 {
		limit := maxTraction / (1 + p.SlipFalloff*math.Abs(res.SlipRatio))
		long = clamp(c.DriveForce, -limit, limit)
	}

	// brakes never reverse the contact's forward velocity within a step
	brake := c.Brake * p.BrakeForce
	if c.Wheel.IsRear() {
		brake += c.Handbrake * p.HandbrakeForce
	}
	if brake > 0 {
		brake = math.Min(brake, maxTraction)
		if c.Dt > 0 {
			brake = math.Min(brake, massShare*math.Abs(fwd)/c.Dt)
		}
		long -= math.Copysign(brake, fwd)
	}

	if math.Abs(fwd) > rollingThreshold {
		drag := c.Drag
		if !(drag > 0) {
			drag = 1
		}
		long -= math.Copysign(p.RollingResistance*c.Load*drag, fwd)
	}

	// lateral
	peak := c.Load * p.Grip * friction * res.GripMultiplier
	latF := 0.0
	if p.Curve != nil {
		latF = -p.Curve.Force(res.SlipAngle, peak)
	}
	if c.Dt > 0 {
		bound := massShare * math.Abs(lat) / c.Dt
		latF = clamp(latF, -bound, bound)
	}

	// friction circle, longitudinal first
	circle := maxTraction * math.Max(1, res.GripMultiplier)
	long = clamp(long, -circle, circle)
	latMax := math.Sqrt(math.Max(0, circle*circle-long*long))
	latF = clamp(latF, -latMax, latMax)

	res.Longitudinal = long
	res.Lateral = latF
	res.Force = c.Forward.Mul(long).Add(c.Right.Mul(latF))
	res.Torque = c.LeverArm.Cross(res.Force)
	return res
}

// Ackermann splits a signed steer angle (positive turns right) into left and
// right front wheel angles so the inner wheel turns more sharply.
func Ackermann(steer, wheelbase, track float64) (left, right float64) {
	a := math.Abs(steer)
	if a < 1e-6 || wheelbase <= 0 {
		return steer, steer
	}
	radius := wheelbase / math.Tan(a)
	inner := math.Atan(wheelbase / math.Max(radius-track/2, 1e-3))
	outer := math.Atan(wheelbase / (radius + track/2))
	if steer > 0 {
		return outer, inner
	}
	return -inner, -outer
}

func gravityOr(g float64) float64 {
	if g > 0 {
		return g
	}
	return 9.81
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
