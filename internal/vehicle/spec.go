// Package vehicle defines the immutable vehicle specification record consumed
// by the dynamics engine, its defaults and validation, and the fixed wheel
// layout shared by every component.
//
// A Spec is configuration, not behaviour. It is validated once when loaded;
// the simulation never mutates it and never re-validates it per step.
package vehicle

import "math"

// DriveLayout selects which axle receives engine torque.
type DriveLayout string

const (
	DriveRWD DriveLayout = "rwd"
	DriveFWD DriveLayout = "fwd"
	DriveAWD DriveLayout = "awd"
)

// Body holds the chassis mass and box dimensions. All fields are required.
type Body struct {
	Mass     float64 `json:"mass" mapstructure:"mass"`           // kg
	Width    float64 `json:"width" mapstructure:"width"`         // metres (local X)
	Height   float64 `json:"height" mapstructure:"height"`       // metres (local Y)
	Length   float64 `json:"length" mapstructure:"length"`       // metres (local Z)
	CGHeight float64 `json:"cg_height" mapstructure:"cg_height"` // metres above ground at rest
}

// Suspension holds the per-corner spring-damper constants.
type Suspension struct {
	RestLength         float64 `json:"rest_length" mapstructure:"rest_length"` // metres
	Travel             float64 `json:"travel" mapstructure:"travel"`           // metres
	Stiffness          float64 `json:"stiffness" mapstructure:"stiffness"`     // N/m
	Damping            float64 `json:"damping" mapstructure:"damping"`         // N·s/m
	ReboundRatio       float64 `json:"rebound_ratio" mapstructure:"rebound_ratio"`
	BumpStiffnessScale float64 `json:"bump_stiffness_scale" mapstructure:"bump_stiffness_scale"`
	BumpDampingScale   float64 `json:"bump_damping_scale" mapstructure:"bump_damping_scale"`
	MaxForceScale      float64 `json:"max_force_scale" mapstructure:"max_force_scale"` // multiples of the static corner load
}

// Wheels holds wheel geometry and the drive layout.
type Wheels struct {
	Radius      float64     `json:"radius" mapstructure:"radius"`           // metres
	TrackWidth  float64     `json:"track_width" mapstructure:"track_width"` // metres
	Wheelbase   float64     `json:"wheelbase" mapstructure:"wheelbase"`     // metres
	MountHeight float64     `json:"mount_height" mapstructure:"mount_height"`
	Drive       DriveLayout `json:"drive" mapstructure:"drive"`
}

// Steering holds steering limits.
type Steering struct {
	MaxAngle         float64 `json:"max_angle" mapstructure:"max_angle"`                 // radians
	Rate             float64 `json:"rate" mapstructure:"rate"`                           // rad/s
	SpeedSensitivity float64 `json:"speed_sensitivity" mapstructure:"speed_sensitivity"` // lock reduction per m/s
}

// Engine holds the engine curve. TorqueCurve samples are [rpm, factor]
// pairs sorted by rpm; factor scales MaxTorque.
type Engine struct {
	IdleRPM     float64      `json:"idle_rpm" mapstructure:"idle_rpm"`
	RedlineRPM  float64      `json:"redline_rpm" mapstructure:"redline_rpm"`
	MaxTorque   float64      `json:"max_torque" mapstructure:"max_torque"` // N·m
	TorqueCurve [][2]float64 `json:"torque_curve" mapstructure:"torque_curve"`
	RPMResponse float64      `json:"rpm_response" mapstructure:"rpm_response"` // 1/s
}

// Transmission holds the gear table. Index 0 is reverse (negative ratio),
// index 1 is neutral (ratio 0), and indices 2.. are the forward gears.
type Transmission struct {
	Gears        []float64 `json:"gears" mapstructure:"gears"`
	FinalDrive   float64   `json:"final_drive" mapstructure:"final_drive"`
	Efficiency   float64   `json:"efficiency" mapstructure:"efficiency"`
	Automatic    bool      `json:"automatic" mapstructure:"automatic"`
	UpshiftRPM   float64   `json:"upshift_rpm" mapstructure:"upshift_rpm"`
	DownshiftRPM float64   `json:"downshift_rpm" mapstructure:"downshift_rpm"`
}

// Brakes holds per-wheel brake forces.
type Brakes struct {
	MaxForce       float64 `json:"max_force" mapstructure:"max_force"`             // N per wheel
	HandbrakeForce float64 `json:"handbrake_force" mapstructure:"handbrake_force"` // N per rear wheel
}

// Tire holds the tire constants. B, C and E are opaque Pacejka tuning values.
type Tire struct {
	Grip               float64 `json:"grip" mapstructure:"grip"`
	B                  float64 `json:"b" mapstructure:"b"`
	C                  float64 `json:"c" mapstructure:"c"`
	E                  float64 `json:"e" mapstructure:"e"`
	RollingResistance  float64 `json:"rolling_resistance" mapstructure:"rolling_resistance"`
	SpinResponse       float64 `json:"spin_response" mapstructure:"spin_response"` // 1/s
	SlipFalloff        float64 `json:"slip_falloff" mapstructure:"slip_falloff"`
	MaxSlipRatio       float64 `json:"max_slip_ratio" mapstructure:"max_slip_ratio"`
	SpeedGripBoost     float64 `json:"speed_grip_boost" mapstructure:"speed_grip_boost"`
	SpeedGripReference float64 `json:"speed_grip_reference" mapstructure:"speed_grip_reference"` // m/s
}

// Aero holds the drag constants.
type Aero struct {
	DragCoefficient float64 `json:"drag_coefficient" mapstructure:"drag_coefficient"`
	FrontalArea     float64 `json:"frontal_area" mapstructure:"frontal_area"` // m²
	AirDensity      float64 `json:"air_density" mapstructure:"air_density"`   // kg/m³
}

// Drift holds drift tuning.
type Drift struct {
	GripMultiplier     float64 `json:"grip_multiplier" mapstructure:"grip_multiplier"`
	HandbrakeGrip      float64 `json:"handbrake_grip" mapstructure:"handbrake_grip"`
	DropRate           float64 `json:"drop_rate" mapstructure:"drop_rate"`         // 1/s
	RecoveryRate       float64 `json:"recovery_rate" mapstructure:"recovery_rate"` // 1/s
	SlipThreshold      float64 `json:"slip_threshold" mapstructure:"slip_threshold"`
	SlipAngleThreshold float64 `json:"slip_angle_threshold" mapstructure:"slip_angle_threshold"` // radians
	SlipSmoothing      float64 `json:"slip_smoothing" mapstructure:"slip_smoothing"`             // 1/s
	MinSpeed           float64 `json:"min_speed" mapstructure:"min_speed"`                       // m/s
}

// Air holds airborne control tuning.
type Air struct {
	ControlStrength float64 `json:"control_strength" mapstructure:"control_strength"` // rad/s²
	MaxSpin         float64 `json:"max_spin" mapstructure:"max_spin"`                 // rad/s
}

// Boost holds the boost multiplier applied to drive force.
type Boost struct {
	Multiplier float64 `json:"multiplier" mapstructure:"multiplier"`
}

// Weight holds weight-transfer bounds.
type Weight struct {
	MaxLateralG   float64 `json:"max_lateral_g" mapstructure:"max_lateral_g"`
	MinTurnRadius float64 `json:"min_turn_radius" mapstructure:"min_turn_radius"` // metres
	LongitudinalG float64 `json:"longitudinal_g" mapstructure:"longitudinal_g"`   // g at full brake/throttle
	Response      float64 `json:"response" mapstructure:"response"`               // 1/s
}

// Limits holds integrator safety bounds.
type Limits struct {
	MaxStep                float64 `json:"max_step" mapstructure:"max_step"`                   // seconds
	MaxSpeed               float64 `json:"max_speed" mapstructure:"max_speed"`                 // m/s
	MaxAngularSpeed        float64 `json:"max_angular_speed" mapstructure:"max_angular_speed"` // rad/s
	GroundedAngularDamping float64 `json:"grounded_angular_damping" mapstructure:"grounded_angular_damping"`
	AirborneAngularDamping float64 `json:"airborne_angular_damping" mapstructure:"airborne_angular_damping"`
	Bounce                 float64 `json:"bounce" mapstructure:"bounce"`
	BodyClearance          float64 `json:"body_clearance" mapstructure:"body_clearance"` // metres
}

// Spec is the complete vehicle specification.
type Spec struct {
	Name         string       `json:"name" mapstructure:"name"`
	Body         Body         `json:"body" mapstructure:"body"`
	Suspension   Suspension   `json:"suspension" mapstructure:"suspension"`
	Wheels       Wheels       `json:"wheels" mapstructure:"wheels"`
	Steering     Steering     `json:"steering" mapstructure:"steering"`
	Engine       Engine       `json:"engine" mapstructure:"engine"`
	Transmission Transmission `json:"transmission" mapstructure:"transmission"`
	Brakes       Brakes       `json:"brakes" mapstructure:"brakes"`
	Tire         Tire         `json:"tire" mapstructure:"tire"`
	Aero         Aero         `json:"aero" mapstructure:"aero"`
	Drift        Drift        `json:"drift" mapstructure:"drift"`
	Air          Air          `json:"air" mapstructure:"air"`
	Boost        Boost        `json:"boost" mapstructure:"boost"`
	Weight       Weight       `json:"weight" mapstructure:"weight"`
	Limits       Limits       `json:"limits" mapstructure:"limits"`
}

// Clone returns a deep copy so the caller can hold a private, never-shared spec.
func (s Spec) Clone() Spec {
	out := s
	if s.Engine.TorqueCurve != nil {
		out.Engine.TorqueCurve = append([][2]float64(nil), s.Engine.TorqueCurve...)
	}
	if s.Transmission.Gears != nil {
		out.Transmission.Gears = append([]float64(nil), s.Transmission.Gears...)
	}
	return out
}

// StaticCornerLoad is the normal load on one wheel at rest on level ground.
func (s Spec) StaticCornerLoad(gravity float64) float64 {
	return s.Body.Mass * gravity / 4
}

// RideHeight is the body-centre height above flat ground with the suspension
// unloaded (fully extended).
func (s Spec) RideHeight() float64 {
	return s.Wheels.Radius + s.Suspension.RestLength - s.Wheels.MountHeight
}

// EquilibriumCompression is the compression at which four springs carry
// the vehicle's weight, ignoring weight transfer.
func (s Spec) EquilibriumCompression(gravity float64) float64 {
	if s.Suspension.Stiffness <= 0 {
		return math.Inf(1)
	}
	return s.StaticCornerLoad(gravity) / s.Suspension.Stiffness
}
