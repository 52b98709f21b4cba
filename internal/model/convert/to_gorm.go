// Package convert maps telemetry core types onto their GORM models.
package convert

import (
	"encoding/json"

	"github.com/cxd309/vds-engine/internal/model"
	"github.com/cxd309/vds-engine/internal/model/core"
	"gorm.io/datatypes"
)

// CoreToRun converts a core.Run to a GORM model.Run. The GORM ID is left
// for the database to assign.
func CoreToRun(r core.Run) model.Run {
	return model.Run{
		RunName:   r.RunName,
		StartTime: r.StartTime,
		TimeStep:  r.TimeStep,
		RunTime:   r.RunTime,
		Terrain:   r.Terrain,
	}
}

func CoreToVehicle(v core.Vehicle) model.Vehicle {
	return model.Vehicle{
		ID:        v.ID,
		RunID:     v.RunID,
		VehicleID: v.VehicleID,
		Preset:    v.Preset,
		Mass:      v.Mass,
		Drive:     v.Drive,
	}
}

func CoreToVehicleState(s core.VehicleState) model.VehicleState {
	return model.VehicleState{
		Time:           s.Time,
		RunID:          s.RunID,
		Frame:          s.Frame,
		SimTime:        s.SimTime,
		VehicleID:      s.VehicleID,
		State:          s.State,
		PosX:           s.Position.X,
		PosY:           s.Position.Y,
		PosZ:           s.Position.Z,
		Heading:        s.Heading,
		Speed:          s.Speed,
		ForwardSpeed:   s.ForwardSpeed,
		LateralSpeed:   s.LateralSpeed,
		RPM:            s.RPM,
		Gear:           s.Gear,
		Throttle:       s.Throttle,
		Brake:          s.Brake,
		Steer:          s.Steer,
		Handbrake:      s.Handbrake,
		Drifting:       s.Drifting,
		DriftIntensity: s.DriftIntensity,
		GripMultiplier: s.GripMultiplier,
		Airborne:       s.Airborne,
		GroundedWheels: s.GroundedWheels,
		Wheels:         wheelsToJSON(s.Wheels),
	}
}

func CoreToEvent(e core.Event) model.Event {
	return model.Event{
		Time:      e.Time,
		RunID:     e.RunID,
		Frame:     e.Frame,
		SimTime:   e.SimTime,
		VehicleID: e.VehicleID,
		Name:      e.Name,
		Message:   e.Message,
		Value:     e.Value,
	}
}

// wheelsToJSON converts wheel states to datatypes.JSON for DB storage.
func wheelsToJSON(wheels []core.WheelState) datatypes.JSON {
	if len(wheels) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(wheels)
	return datatypes.JSON(data)
}
