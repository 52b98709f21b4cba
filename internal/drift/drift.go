// Package drift tracks the grounded/drifting/airborne state machine that
// modulates rear grip and drives landing and tyre-smoke cues.
package drift

import (
	"math"

	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
)

// slipEpsilon keeps the slip ratio finite at a standstill.
const slipEpsilon = 0.5 // m/s

// intensityRate is how quickly drift intensity follows its target.
const intensityRate = 4.0 // 1/s

// handbrakeEngage is the handbrake level that forces a drift.
const handbrakeEngage = 0.1

// Mode is the drift state machine's state.
type Mode int

const (
	GroundedNormal Mode = iota
	GroundedDrifting
	Airborne
)

func (m Mode) String() string {
	switch m {
	case GroundedNormal:
		return "grounded"
	case GroundedDrifting:
		return "drifting"
	case Airborne:
		return "airborne"
	}
	return "unknown"
}

// Params are the drift and air-control tuning values.
type Params struct {
	GripMultiplier  float64
	DropRate        float64
	RecoveryRate    float64
	SlipThreshold   float64
	SlipSmoothing   float64
	MinSpeed        float64
	ControlStrength float64
	MaxSpin         float64
}

// ParamsFromSpec derives drift tuning from a validated spec.
func ParamsFromSpec(s vehicle.Spec) Params {
	return Params{
		GripMultiplier:  s.Drift.GripMultiplier,
		DropRate:        s.Drift.DropRate,
		RecoveryRate:    s.Drift.RecoveryRate,
		SlipThreshold:   s.Drift.SlipThreshold,
		SlipSmoothing:   s.Drift.SlipSmoothing,
		MinSpeed:        s.Drift.MinSpeed,
		ControlStrength: s.Air.ControlStrength,
		MaxSpin:         s.Air.MaxSpin,
	}
}

// State is read by the presentation layer; only Update mutates it.
type State struct {
	Mode            Mode    `json:"mode"`
	LateralVelocity float64 `json:"lateral_velocity"`
	SmoothedSlip    float64 `json:"smoothed_slip"`
	Intensity       float64 `json:"intensity"`
	Drifting        bool    `json:"drifting"`
	GripMultiplier  float64 `json:"grip_multiplier"`
	AirTime         float64 `json:"air_time"`
	LastAirTime     float64 `json:"last_air_time"`
}

// NewState returns a grounded, full-grip state.
func NewState() State {
	return State{Mode: GroundedNormal, GripMultiplier: 1}
}

// Observation is what the state machine sees of the vehicle each step.
type Observation struct {
	Grounded     int
	ForwardSpeed float64 // m/s along the chassis forward axis
	LateralSpeed float64 // m/s along the chassis right axis
	Handbrake    float64
}

// Events are the transitions that happened during one Update.
type Events struct {
	TookOff      bool
	Landed       bool
	AirTime      float64 // seconds spent airborne, set when Landed
	DriftStarted bool
	DriftEnded   bool
}

// Update advances the state machine by dt.
func (s *State) Update(p Params, obs Observation, dt float64) Events {
	var ev Events
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	if obs.Grounded == 0 {
		if s.Mode != Airborne {
			ev.TookOff = true
			if s.Drifting {
				ev.DriftEnded = true
			}
			s.Mode = Airborne
			s.AirTime = 0
			s.Drifting = false
		}
		s.AirTime += dt
		s.Intensity = approach(s.Intensity, 0, intensityRate, dt)
		return ev
	}

	if s.Mode == Airborne {
		ev.Landed = true
		ev.AirTime = s.AirTime
		s.LastAirTime = s.AirTime
		s.AirTime = 0
	}

	slip := math.Abs(obs.LateralSpeed) / (math.Abs(obs.ForwardSpeed) + slipEpsilon)
	s.SmoothedSlip = approach(s.SmoothedSlip, slip, p.SlipSmoothing, dt)
	s.LateralVelocity = obs.LateralSpeed

	speed := math.Hypot(obs.ForwardSpeed, obs.LateralSpeed)
	drifting := speed >= p.MinSpeed &&
		(s.SmoothedSlip > p.SlipThreshold || obs.Handbrake > handbrakeEngage)
	switch {
	case drifting && !s.Drifting:
		ev.DriftStarted = true
	case !drifting && s.Drifting:
		ev.DriftEnded = true
	}
	s.Drifting = drifting

	if drifting {
		s.Mode = GroundedDrifting
		s.GripMultiplier = approach(s.GripMultiplier, p.GripMultiplier, p.DropRate, dt)
		target := 1.0
		if p.SlipThreshold > 0 {
			target = math.Min(1, s.SmoothedSlip/(2*p.SlipThreshold))
		}
		if obs.Handbrake > handbrakeEngage {
			target = math.Max(target, 0.5)
		}
		s.Intensity = approach(s.Intensity, target, intensityRate, dt)
	} else {
		s.Mode = GroundedNormal
		s.GripMultiplier = approach(s.GripMultiplier, 1, p.RecoveryRate, dt)
		s.Intensity = approach(s.Intensity, 0, intensityRate, dt)
	}
	return ev
}

// AirControl returns the body-local angular velocity change player input
// applies during one airborne step. Throttle pitches the nose down, brake
// pitches it up, and steer yaws (positive to the right). A component is not
// pushed past MaxSpin, though input that slows an over-limit spin is kept.
func AirControl(p Params, local mgl64.Vec3, throttle, brake, steer, dt float64) mgl64.Vec3 {
	if dt <= 0 || p.ControlStrength <= 0 {
		return mgl64.Vec3{}
	}
	step := p.ControlStrength * dt
	delta := mgl64.Vec3{
		(clamp01(throttle) - clamp01(brake)) * step,
		-math.Max(-1, math.Min(1, steer)) * step,
		0,
	}
	for i := range 2 {
		next := local[i] + delta[i]
		if p.MaxSpin > 0 && math.Abs(next) > p.MaxSpin && math.Abs(next) > math.Abs(local[i]) {
			limit := math.Copysign(p.MaxSpin, next)
			delta[i] = limit - local[i]
			if math.Abs(local[i]) > p.MaxSpin {
				delta[i] = 0
			}
		}
	}
	return delta
}

func approach(current, target, rate, dt float64) float64 {
	if rate <= 0 {
		return target
	}
	return current + (target-current)*math.Min(1, rate*dt)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }
