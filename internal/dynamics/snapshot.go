package dynamics

import (
	"github.com/cxd309/vds-engine/internal/drift"
	"github.com/cxd309/vds-engine/internal/drivetrain"
	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
)

// WheelSnapshot is the presentation view of one wheel.
type WheelSnapshot struct {
	Wheel              string     `json:"wheel"`
	Grounded           bool       `json:"grounded"`
	Compression        float64    `json:"compression"`       // metres
	CompressionRatio   float64    `json:"compression_ratio"` // of travel
	SuspensionForce    float64    `json:"suspension_force"`  // N
	Load               float64    `json:"load"`              // N, after weight transfer
	LateralWeightDelta float64    `json:"lateral_weight_delta"`
	Spin               float64    `json:"spin"`        // rad/s
	SteerAngle         float64    `json:"steer_angle"` // radians
	SlipAngle          float64    `json:"slip_angle"`
	SlipRatio          float64    `json:"slip_ratio"`
	ContactPoint       mgl64.Vec3 `json:"contact_point"`
}

// Snapshot is the read model of a vehicle after a step. It holds no
// references into the vehicle.
type Snapshot struct {
	Time            float64    `json:"time"`
	Position        mgl64.Vec3 `json:"position"`
	Orientation     [4]float64 `json:"orientation"` // w, x, y, z
	Heading         float64    `json:"heading"`
	Velocity        mgl64.Vec3 `json:"velocity"`
	AngularVelocity mgl64.Vec3 `json:"angular_velocity"`
	Speed           float64    `json:"speed"` // m/s
	SpeedKmh        float64    `json:"speed_kmh"`
	ForwardSpeed    float64    `json:"forward_speed"`
	LateralSpeed    float64    `json:"lateral_speed"`

	RPM       float64 `json:"rpm"`
	Gear      int     `json:"gear"`
	GearLabel string  `json:"gear_label"`
	Steer     float64 `json:"steer"` // radians at the wheel centre line

	Drifting       bool    `json:"drifting"`
	DriftIntensity float64 `json:"drift_intensity"`
	GripMultiplier float64 `json:"grip_multiplier"`
	Airborne       bool    `json:"airborne"`
	AirTime        float64 `json:"air_time"`
	Landed         bool    `json:"landed"`
	LandingAirTime float64 `json:"landing_air_time,omitempty"`
	GroundedWheels int     `json:"grounded_wheels"`

	Wheels [vehicle.NumWheels]WheelSnapshot `json:"wheels"`
}

// Snapshot returns the state after the last Update.
func (v *Vehicle) Snapshot() Snapshot {
	b := v.body
	local := b.ToLocal(b.Velocity)
	speed := b.Speed()
	q := b.Orientation

	s := Snapshot{
		Time:            v.time,
		Position:        b.Position,
		Orientation:     [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
		Heading:         b.Heading(),
		Velocity:        b.Velocity,
		AngularVelocity: b.AngularVelocity,
		Speed:           speed,
		SpeedKmh:        speed * 3.6,
		ForwardSpeed:    local.Z(),
		LateralSpeed:    -local.X(),
		RPM:             v.drive.RPM,
		Gear:            v.drive.Gear,
		GearLabel:       drivetrain.GearLabel(v.drive.Gear),
		Steer:           v.steer,
		Drifting:        v.drift.Drifting,
		DriftIntensity:  v.drift.Intensity,
		GripMultiplier:  v.drift.GripMultiplier,
		AirTime:         v.drift.AirTime,
		Landed:          v.events.Landed,
	}
	if v.events.Landed {
		s.LandingAirTime = v.events.AirTime
	}

	for i, w := range v.wheels {
		s.Wheels[i] = WheelSnapshot{
			Wheel:              w.index.String(),
			Grounded:           w.susp.Grounded,
			Compression:        w.susp.Compression,
			CompressionRatio:   w.susp.Ratio,
			SuspensionForce:    w.susp.Load,
			Load:               w.load,
			LateralWeightDelta: w.latDelta,
			Spin:               w.spin,
			SteerAngle:         w.steer,
			SlipAngle:          w.tire.SlipAngle,
			SlipRatio:          w.tire.SlipRatio,
			ContactPoint:       w.susp.Contact,
		}
		if w.susp.Grounded {
			s.GroundedWheels++
		}
	}
	s.Airborne = v.drift.Mode == drift.Airborne
	return s
}

// Input returns the clamped input applied by the last Update.
func (v *Vehicle) Input() Input { return v.input }
