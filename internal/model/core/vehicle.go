package core

import (
	"time"

	"github.com/cxd309/vds-engine/internal/dynamics"
)

// Vehicle is one simulated vehicle registered with a run. ID is assigned by
// the backend; VehicleID is the scenario's identifier.
type Vehicle struct {
	ID        uint    `json:"id"`
	RunID     uint    `json:"runId"`
	VehicleID string  `json:"vehicleId"`
	Preset    string  `json:"preset"`
	Mass      float64 `json:"mass"`
	Drive     string  `json:"drive"`
}

// WheelState is the recorded view of one wheel.
type WheelState struct {
	Wheel       string  `json:"wheel"`
	Grounded    bool    `json:"grounded"`
	Compression float64 `json:"compression"`
	Load        float64 `json:"load"`
	Spin        float64 `json:"spin"`
	SlipAngle   float64 `json:"slipAngle"`
	SlipRatio   float64 `json:"slipRatio"`
}

// VehicleState is one recorded frame of a vehicle.
type VehicleState struct {
	RunID     uint      `json:"runId"`
	VehicleID string    `json:"vehicleId"`
	Frame     uint      `json:"frame"`
	SimTime   float64   `json:"simTime"`
	Time      time.Time `json:"time"`
	State     string    `json:"state"`

	Position     Position3D `json:"position"`
	Heading      float64    `json:"heading"`
	Speed        float64    `json:"speed"`
	ForwardSpeed float64    `json:"forwardSpeed"`
	LateralSpeed float64    `json:"lateralSpeed"`
	RPM          float64    `json:"rpm"`
	Gear         string     `json:"gear"`

	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steer     float64 `json:"steer"`
	Handbrake float64 `json:"handbrake"`

	Drifting       bool    `json:"drifting"`
	DriftIntensity float64 `json:"driftIntensity"`
	GripMultiplier float64 `json:"gripMultiplier"`
	Airborne       bool    `json:"airborne"`
	GroundedWheels int     `json:"groundedWheels"`

	Wheels []WheelState `json:"wheels"`
}

// StateFromSnapshot flattens a dynamics snapshot and the input that
// produced it.
func StateFromSnapshot(vehicleID string, frame uint, in dynamics.Input, s dynamics.Snapshot) VehicleState {
	st := VehicleState{
		VehicleID:      vehicleID,
		Frame:          frame,
		SimTime:        s.Time,
		Position:       Position3D{X: s.Position.X(), Y: s.Position.Y(), Z: s.Position.Z()},
		Heading:        s.Heading,
		Speed:          s.Speed,
		ForwardSpeed:   s.ForwardSpeed,
		LateralSpeed:   s.LateralSpeed,
		RPM:            s.RPM,
		Gear:           s.GearLabel,
		Throttle:       in.Throttle,
		Brake:          in.Brake,
		Steer:          in.Steer,
		Handbrake:      in.Handbrake,
		Drifting:       s.Drifting,
		DriftIntensity: s.DriftIntensity,
		GripMultiplier: s.GripMultiplier,
		Airborne:       s.Airborne,
		GroundedWheels: s.GroundedWheels,
		Wheels:         make([]WheelState, len(s.Wheels)),
	}
	for i, w := range s.Wheels {
		st.Wheels[i] = WheelState{
			Wheel:       w.Wheel,
			Grounded:    w.Grounded,
			Compression: w.Compression,
			Load:        w.Load,
			Spin:        w.Spin,
			SlipAngle:   w.SlipAngle,
			SlipRatio:   w.SlipRatio,
		}
	}
	return st
}
