package tire

import (
	"math"

	"github.com/cxd309/vds-engine/internal/vehicle"
)

// GripTuning holds the grip-modulation constants.
type GripTuning struct {
	HandbrakeGrip      float64 // rear multiplier at full handbrake
	SlipAngleThreshold float64 // radians; rear wheels beyond it take the drift grip
	SpeedGripBoost     float64 // extra front grip at SpeedGripReference
	SpeedGripReference float64 // m/s
}

// GripInput is the per-wheel state grip depends on.
type GripInput struct {
	Wheel     vehicle.WheelIndex
	Handbrake float64
	SlipAngle float64
	Drifting  bool
	DriftGrip float64
	Speed     float64
}

// GripMultiplier scales a wheel's lateral peak force. Rear wheels lose grip
// under handbrake and when sliding past the slip threshold; front wheels gain
// grip with speed while the car is not drifting, which counters understeer.
func GripMultiplier(t GripTuning, in GripInput) float64 {
	m := 1.0
	if in.Wheel.IsRear() {
		if h := math.Min(math.Max(in.Handbrake, 0), 1); h > 0 {
			m *= 1 + (t.HandbrakeGrip-1)*h
		}
		if t.SlipAngleThreshold > 0 && math.Abs(in.SlipAngle) > t.SlipAngleThreshold && in.DriftGrip > 0 {
			m *= in.DriftGrip
		}
		return m
	}
	if !in.Drifting && t.SpeedGripReference > 0 {
		m *= 1 + math.Min(math.Abs(in.Speed)/t.SpeedGripReference, 1)*t.SpeedGripBoost
	}
	return m
}
