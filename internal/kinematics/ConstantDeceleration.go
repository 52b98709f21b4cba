package kinematics

import "math"

// ConstantModelName is the JSON discriminator string for the Constant model.
const ConstantModelName = "constant"

// Constant implements SpeedEnvelope with a fixed braking deceleration and a
// fixed lateral acceleration budget for corners.
//
// JSON discriminator: "model": "constant"
type Constant struct {
	ADcc    float64 `json:"a_dcc"` // planned braking deceleration, m/s² (positive)
	ALat    float64 `json:"a_lat"` // lateral acceleration allowed in corners, m/s²
	VMaxVal float64 `json:"v_max"` // m/s
}

// DefaultConstant is a conservative envelope for the compact preset.
func DefaultConstant() Constant {
	return Constant{ADcc: 5, ALat: 6, VMaxVal: 25}
}

func (c Constant) VMax() float64 { return c.VMaxVal }

func (c Constant) BrakingDistance(v float64) float64 {
	return c.BrakingDistanceTo(v, 0)
}

func (c Constant) BrakingDistanceTo(v, targetV float64) float64 {
	if c.ADcc <= 0 {
		return math.Inf(1)
	}
	if v <= targetV {
		return 0
	}
	return (v*v - targetV*targetV) / (2 * c.ADcc)
}

func (c Constant) MaxEntrySpeed(dist, targetV float64) float64 {
	targetV = math.Max(0, targetV)
	if c.ADcc <= 0 {
		return targetV
	}
	return math.Sqrt(targetV*targetV + 2*c.ADcc*math.Max(0, dist))
}

func (c Constant) CornerSpeed(radius float64) float64 {
	if c.ALat <= 0 || math.IsInf(radius, 1) {
		return c.VMaxVal
	}
	return math.Min(c.VMaxVal, math.Sqrt(c.ALat*math.Max(0, radius)))
}
