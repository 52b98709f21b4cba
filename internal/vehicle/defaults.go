package vehicle

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidSpec is wrapped by every Validate failure.
var ErrInvalidSpec = errors.New("invalid vehicle spec")

// ErrUnknownPreset is returned by Preset for an unrecognised name.
var ErrUnknownPreset = errors.New("unknown vehicle preset")

// Validate checks the fields the simulation cannot run without. It is meant
// to be called once, at load time.
func (s Spec) Validate() error {
	required := []struct {
		name  string
		value float64
	}{
		{"body.mass", s.Body.Mass},
		{"body.width", s.Body.Width},
		{"body.height", s.Body.Height},
		{"body.length", s.Body.Length},
		{"wheels.radius", s.Wheels.Radius},
		{"wheels.track_width", s.Wheels.TrackWidth},
		{"wheels.wheelbase", s.Wheels.Wheelbase},
		{"suspension.rest_length", s.Suspension.RestLength},
		{"suspension.travel", s.Suspension.Travel},
		{"suspension.stiffness", s.Suspension.Stiffness},
	}
	for _, r := range required {
		if !(r.value > 0) || math.IsInf(r.value, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidSpec, r.name, r.value)
		}
	}

	switch s.Wheels.Drive {
	case DriveRWD, DriveFWD, DriveAWD:
	default:
		return fmt.Errorf("%w: wheels.drive must be rwd, fwd or awd, got %q", ErrInvalidSpec, s.Wheels.Drive)
	}

	if s.Engine.IdleRPM <= 0 || s.Engine.RedlineRPM <= s.Engine.IdleRPM {
		return fmt.Errorf("%w: engine needs 0 < idle_rpm < redline_rpm, got %v/%v",
			ErrInvalidSpec, s.Engine.IdleRPM, s.Engine.RedlineRPM)
	}
	if s.Engine.MaxTorque < 0 {
		return fmt.Errorf("%w: engine.max_torque must not be negative", ErrInvalidSpec)
	}
	if !sort.SliceIsSorted(s.Engine.TorqueCurve, func(i, j int) bool {
		return s.Engine.TorqueCurve[i][0] < s.Engine.TorqueCurve[j][0]
	}) {
		return fmt.Errorf("%w: engine.torque_curve must be sorted by rpm", ErrInvalidSpec)
	}

	g := s.Transmission.Gears
	if len(g) < 3 {
		return fmt.Errorf("%w: transmission.gears needs reverse, neutral and at least one forward gear, got %d entries",
			ErrInvalidSpec, len(g))
	}
	if g[0] >= 0 {
		return fmt.Errorf("%w: transmission.gears[0] (reverse) must be negative, got %v", ErrInvalidSpec, g[0])
	}
	if g[1] != 0 {
		return fmt.Errorf("%w: transmission.gears[1] (neutral) must be 0, got %v", ErrInvalidSpec, g[1])
	}
	for i := 2; i < len(g); i++ {
		if g[i] <= 0 {
			return fmt.Errorf("%w: transmission.gears[%d] must be positive, got %v", ErrInvalidSpec, i, g[i])
		}
	}
	if s.Transmission.FinalDrive <= 0 {
		return fmt.Errorf("%w: transmission.final_drive must be positive", ErrInvalidSpec)
	}
	return nil
}

// WithDefaults returns a copy with unset tuning fields filled in. Required
// fields (mass, dimensions, core suspension constants) are left untouched so
// Validate still rejects them.
func (s Spec) WithDefaults() Spec {
	out := s.Clone()
	d := compact()

	def := func(v *float64, fallback float64) {
		if *v == 0 {
			*v = fallback
		}
	}

	if out.Body.CGHeight == 0 {
		out.Body.CGHeight = out.Body.Height * 0.35
	}

	def(&out.Suspension.Damping, 2*math.Sqrt(out.Suspension.Stiffness*out.Body.Mass/4)*0.3)
	def(&out.Suspension.ReboundRatio, d.Suspension.ReboundRatio)
	def(&out.Suspension.BumpStiffnessScale, d.Suspension.BumpStiffnessScale)
	def(&out.Suspension.BumpDampingScale, d.Suspension.BumpDampingScale)
	def(&out.Suspension.MaxForceScale, d.Suspension.MaxForceScale)

	if out.Wheels.Drive == "" {
		out.Wheels.Drive = DriveRWD
	}

	def(&out.Steering.MaxAngle, d.Steering.MaxAngle)
	def(&out.Steering.Rate, d.Steering.Rate)

	def(&out.Engine.IdleRPM, d.Engine.IdleRPM)
	def(&out.Engine.RedlineRPM, d.Engine.RedlineRPM)
	def(&out.Engine.MaxTorque, d.Engine.MaxTorque)
	def(&out.Engine.RPMResponse, d.Engine.RPMResponse)
	if len(out.Engine.TorqueCurve) == 0 {
		out.Engine.TorqueCurve = append([][2]float64(nil), d.Engine.TorqueCurve...)
	}

	if len(out.Transmission.Gears) == 0 {
		out.Transmission.Gears = append([]float64(nil), d.Transmission.Gears...)
	}
	def(&out.Transmission.FinalDrive, d.Transmission.FinalDrive)
	def(&out.Transmission.Efficiency, d.Transmission.Efficiency)
	def(&out.Transmission.UpshiftRPM, out.Engine.RedlineRPM*0.92)
	def(&out.Transmission.DownshiftRPM, out.Engine.IdleRPM+0.25*(out.Engine.RedlineRPM-out.Engine.IdleRPM))

	def(&out.Brakes.MaxForce, out.Body.Mass*9.81*0.45)
	def(&out.Brakes.HandbrakeForce, out.Body.Mass*9.81*0.3)

	def(&out.Tire.Grip, d.Tire.Grip)
	def(&out.Tire.B, d.Tire.B)
	def(&out.Tire.C, d.Tire.C)
	def(&out.Tire.E, d.Tire.E)
	def(&out.Tire.RollingResistance, d.Tire.RollingResistance)
	def(&out.Tire.SpinResponse, d.Tire.SpinResponse)
	def(&out.Tire.SlipFalloff, d.Tire.SlipFalloff)
	def(&out.Tire.MaxSlipRatio, d.Tire.MaxSlipRatio)
	def(&out.Tire.SpeedGripReference, d.Tire.SpeedGripReference)

	def(&out.Aero.DragCoefficient, d.Aero.DragCoefficient)
	def(&out.Aero.FrontalArea, out.Body.Width*out.Body.Height*0.85)
	def(&out.Aero.AirDensity, d.Aero.AirDensity)

	def(&out.Drift.GripMultiplier, d.Drift.GripMultiplier)
	def(&out.Drift.HandbrakeGrip, d.Drift.HandbrakeGrip)
	def(&out.Drift.DropRate, d.Drift.DropRate)
	def(&out.Drift.RecoveryRate, d.Drift.RecoveryRate)
	def(&out.Drift.SlipThreshold, d.Drift.SlipThreshold)
	def(&out.Drift.SlipAngleThreshold, d.Drift.SlipAngleThreshold)
	def(&out.Drift.SlipSmoothing, d.Drift.SlipSmoothing)
	def(&out.Drift.MinSpeed, d.Drift.MinSpeed)

	def(&out.Air.ControlStrength, d.Air.ControlStrength)
	def(&out.Air.MaxSpin, d.Air.MaxSpin)

	def(&out.Boost.Multiplier, d.Boost.Multiplier)

	def(&out.Weight.MaxLateralG, d.Weight.MaxLateralG)
	def(&out.Weight.MinTurnRadius, d.Weight.MinTurnRadius)
	def(&out.Weight.LongitudinalG, d.Weight.LongitudinalG)
	def(&out.Weight.Response, d.Weight.Response)

	def(&out.Limits.MaxStep, d.Limits.MaxStep)
	def(&out.Limits.MaxSpeed, d.Limits.MaxSpeed)
	def(&out.Limits.MaxAngularSpeed, d.Limits.MaxAngularSpeed)
	def(&out.Limits.GroundedAngularDamping, d.Limits.GroundedAngularDamping)
	def(&out.Limits.AirborneAngularDamping, d.Limits.AirborneAngularDamping)
	def(&out.Limits.Bounce, d.Limits.Bounce)
	def(&out.Limits.BodyClearance, out.Body.Height*0.25)

	return out
}

// Preset returns a named, fully populated spec.
//
// Supported presets: "compact" (950 kg front-driven hatch), "sport"
// (1250 kg rear-driven coupe).
func Preset(name string) (Spec, error) {
	switch name {
	case "compact", "":
		return compact(), nil
	case "sport":
		return sport(), nil
	default:
		return Spec{}, fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}
}

// PresetNames lists the names accepted by Preset.
func PresetNames() []string {
	return []string{"compact", "sport"}
}

func compact() Spec {
	return Spec{
		Name: "compact",
		Body: Body{Mass: 950, Width: 1.7, Height: 1.4, Length: 3.9, CGHeight: 0.5},
		Suspension: Suspension{
			RestLength:         0.35,
			Travel:             0.2,
			Stiffness:          35000,
			Damping:            3500,
			ReboundRatio:       0.6,
			BumpStiffnessScale: 10,
			BumpDampingScale:   5,
			MaxForceScale:      10,
		},
		Wheels:   Wheels{Radius: 0.3, TrackWidth: 1.5, Wheelbase: 2.4, Drive: DriveFWD},
		Steering: Steering{MaxAngle: 0.6, Rate: 2.5, SpeedSensitivity: 0.01},
		Engine: Engine{
			IdleRPM:    900,
			RedlineRPM: 6500,
			MaxTorque:  160,
			TorqueCurve: [][2]float64{
				{0, 0.6}, {1000, 0.7}, {2500, 0.9}, {4000, 1.0}, {5500, 0.95}, {6500, 0.8},
			},
			RPMResponse: 8,
		},
		Transmission: Transmission{
			Gears:        []float64{-3.2, 0, 3.4, 2.1, 1.45, 1.1, 0.9},
			FinalDrive:   3.9,
			Efficiency:   0.85,
			UpshiftRPM:   6000,
			DownshiftRPM: 2200,
		},
		Brakes: Brakes{MaxForce: 4000, HandbrakeForce: 3000},
		Tire: Tire{
			Grip:               1.2,
			B:                  10,
			C:                  1.9,
			E:                  0.97,
			RollingResistance:  0.015,
			SpinResponse:       12,
			SlipFalloff:        0.8,
			MaxSlipRatio:       0.5,
			SpeedGripBoost:     0.25,
			SpeedGripReference: 40,
		},
		Aero: Aero{DragCoefficient: 0.32, FrontalArea: 2.1, AirDensity: 1.225},
		Drift: Drift{
			GripMultiplier:     0.55,
			HandbrakeGrip:      0.35,
			DropRate:           6,
			RecoveryRate:       1.5,
			SlipThreshold:      0.25,
			SlipAngleThreshold: 0.2,
			SlipSmoothing:      8,
			MinSpeed:           4,
		},
		Air:    Air{ControlStrength: 3, MaxSpin: 6},
		Boost:  Boost{Multiplier: 1.5},
		Weight: Weight{MaxLateralG: 1.5, MinTurnRadius: 2, LongitudinalG: 0.8, Response: 6},
		Limits: Limits{
			MaxStep:                0.05,
			MaxSpeed:               120,
			MaxAngularSpeed:        25,
			GroundedAngularDamping: 0.98,
			AirborneAngularDamping: 1.0,
			Bounce:                 0.3,
			BodyClearance:          0.35,
		},
	}
}

func sport() Spec {
	s := compact()
	s.Name = "sport"
	s.Body = Body{Mass: 1250, Width: 1.85, Height: 1.25, Length: 4.4, CGHeight: 0.45}
	s.Suspension.Stiffness = 55000
	s.Suspension.Damping = 5200
	s.Suspension.Travel = 0.15
	s.Suspension.RestLength = 0.3
	s.Wheels = Wheels{Radius: 0.33, TrackWidth: 1.6, Wheelbase: 2.6, Drive: DriveRWD}
	s.Steering = Steering{MaxAngle: 0.55, Rate: 3, SpeedSensitivity: 0.008}
	s.Engine.IdleRPM = 1000
	s.Engine.RedlineRPM = 7800
	s.Engine.MaxTorque = 420
	s.Engine.TorqueCurve = [][2]float64{
		{0, 0.55}, {1500, 0.75}, {3500, 0.95}, {5000, 1.0}, {6800, 0.92}, {7800, 0.78},
	}
	s.Transmission = Transmission{
		Gears:        []float64{-3.0, 0, 3.1, 2.2, 1.6, 1.25, 1.0, 0.82},
		FinalDrive:   3.6,
		Efficiency:   0.88,
		UpshiftRPM:   7400,
		DownshiftRPM: 3000,
	}
	s.Brakes = Brakes{MaxForce: 6500, HandbrakeForce: 4200}
	s.Tire.Grip = 1.35
	s.Drift.GripMultiplier = 0.5
	s.Aero = Aero{DragCoefficient: 0.3, FrontalArea: 2.0, AirDensity: 1.225}
	s.Limits.BodyClearance = 0.3
	return s
}
