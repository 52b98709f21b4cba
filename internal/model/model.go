package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table in the recording schema, in migration
// order.
var DatabaseModels = []any{
	&Run{},
	&Vehicle{},
	&VehicleState{},
	&Event{},
}

// Run is one simulation run.
type Run struct {
	gorm.Model
	RunName   string    `json:"runName" gorm:"size:200"`
	StartTime time.Time `json:"startTime" gorm:"index:idx_run_start"`
	TimeStep  float64   `json:"timeStep"`
	RunTime   float64   `json:"runTime"`
	Terrain   string    `json:"terrain" gorm:"size:64"`
	Vehicles  []Vehicle
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is a vehicle registered with a run. Trajectory holds the driven
// path as WKT once the run has ended.
type Vehicle struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID      uint           `json:"runId" gorm:"index:idx_vehicle_run_id"`
	Run        Run            `gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	VehicleID  string         `json:"vehicleId" gorm:"size:64;index:idx_vehicle_vehicle_id"`
	Preset     string         `json:"preset" gorm:"size:64"`
	Mass       float64        `json:"mass"`
	Drive      string         `json:"drive" gorm:"size:8"`
	Trajectory string         `json:"trajectory"`
	CreatedAt  time.Time      `json:"createdAt"`
	DeletedAt  gorm.DeletedAt `json:"deletedAt" gorm:"index"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleState is one recorded frame. Per-wheel detail is kept as JSON.
type VehicleState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	RunID     uint      `json:"runId" gorm:"index:idx_vehiclestate_run_id"`
	Run       Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Frame     uint      `json:"frame" gorm:"index:idx_vehiclestate_frame"`
	SimTime   float64   `json:"simTime"`
	VehicleID string    `json:"vehicleId" gorm:"size:64;index:idx_vehiclestate_vehicle_id"`
	State     string    `json:"state" gorm:"size:16"`

	PosX         float64 `json:"posX"`
	PosY         float64 `json:"posY"`
	PosZ         float64 `json:"posZ"`
	Heading      float64 `json:"heading"`
	Speed        float64 `json:"speed"`
	ForwardSpeed float64 `json:"forwardSpeed"`
	LateralSpeed float64 `json:"lateralSpeed"`
	RPM          float64 `json:"rpm"`
	Gear         string  `json:"gear" gorm:"size:4"`

	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steer     float64 `json:"steer"`
	Handbrake float64 `json:"handbrake"`

	Drifting       bool    `json:"drifting"`
	DriftIntensity float64 `json:"driftIntensity"`
	GripMultiplier float64 `json:"gripMultiplier"`
	Airborne       bool    `json:"airborne"`
	GroundedWheels int     `json:"groundedWheels"`

	Wheels datatypes.JSON `json:"wheels"`
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// Event is a discrete vehicle transition such as a landing or the start of
// a drift.
type Event struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	RunID     uint      `json:"runId" gorm:"index:idx_event_run_id"`
	Run       Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Frame     uint      `json:"frame" gorm:"index:idx_event_frame"`
	SimTime   float64   `json:"simTime"`
	VehicleID string    `json:"vehicleId" gorm:"size:64"`
	Name      string    `json:"name" gorm:"size:32"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
}

func (*Event) TableName() string {
	return "events"
}
