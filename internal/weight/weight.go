// Package weight estimates load transfer between the four wheels from
// cornering, braking and throttle.
package weight

import (
	"math"

	"github.com/cxd309/vds-engine/internal/vehicle"
)

// Params are the vehicle constants weight transfer depends on.
type Params struct {
	Mass          float64
	CGHeight      float64
	TrackWidth    float64
	Wheelbase     float64
	MaxLateralG   float64
	MinTurnRadius float64
	LongitudinalG float64
	Gravity       float64
}

// ParamsFromSpec derives weight-transfer constants from a validated spec.
func ParamsFromSpec(s vehicle.Spec, gravity float64) Params {
	return Params{
		Mass:          s.Body.Mass,
		CGHeight:      s.Body.CGHeight,
		TrackWidth:    s.Wheels.TrackWidth,
		Wheelbase:     s.Wheels.Wheelbase,
		MaxLateralG:   s.Weight.MaxLateralG,
		MinTurnRadius: s.Weight.MinTurnRadius,
		LongitudinalG: s.Weight.LongitudinalG,
		Gravity:       gravity,
	}
}

// Lateral returns the load moved onto the left wheels (negative: onto the
// right wheels) while turning with steer angle steer (positive right) at the
// given forward speed.
func Lateral(p Params, forwardSpeed, steer float64) float64 {
	if math.Abs(steer) < 1e-4 || p.TrackWidth <= 0 {
		return 0
	}
	radius := p.Wheelbase / math.Abs(math.Tan(steer))
	minRadius := math.Max(p.MinTurnRadius, 0.1)
	if radius < minRadius || math.IsNaN(radius) {
		radius = minRadius
	}
	accel := forwardSpeed * forwardSpeed / radius
	if limit := p.MaxLateralG * p.Gravity; limit > 0 && accel > limit {
		accel = limit
	}
	transfer := accel * p.Mass * p.CGHeight / p.TrackWidth
	if steer < 0 {
		return -transfer
	}
	return transfer
}

// Longitudinal returns the load moved onto the front axle (negative: onto
// the rear) for the given brake and throttle in [0, 1].
func Longitudinal(p Params, throttle, brake float64) float64 {
	if p.Wheelbase <= 0 {
		return 0
	}
	throttle = math.Max(0, math.Min(throttle, 1))
	brake = math.Max(0, math.Min(brake, 1))
	accel := (brake - throttle) * p.LongitudinalG * p.Gravity
	return accel * p.Mass * p.CGHeight / p.Wheelbase
}

// Distribute splits axle and side transfers into per-wheel deltas. Each side
// or axle total is shared evenly between its two wheels.
func Distribute(lateral, longitudinal float64) [vehicle.NumWheels]float64 {
	var d [vehicle.NumWheels]float64
	for _, w := range vehicle.AllWheels {
		v := longitudinal / 2
		if w.IsRear() {
			v = -v
		}
		if w.IsLeft() {
			v += lateral / 2
		} else {
			v -= lateral / 2
		}
		d[w] = v
	}
	return d
}

// Apply adds deltas to loads, clamping each result at zero. Wheels without
// load stay unloaded.
func Apply(loads, deltas [vehicle.NumWheels]float64) [vehicle.NumWheels]float64 {
	var out [vehicle.NumWheels]float64
	for i := range loads {
		if loads[i] <= 0 {
			continue
		}
		out[i] = math.Max(0, loads[i]+deltas[i])
	}
	return out
}

// Approach moves current toward target at rate (1/s) over dt without
// overshooting.
func Approach(current, target, rate, dt float64) float64 {
	if rate <= 0 || dt <= 0 {
		return current
	}
	k := math.Min(1, rate*dt)
	return current + (target-current)*k
}
