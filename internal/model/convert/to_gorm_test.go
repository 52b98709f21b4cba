package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cxd309/vds-engine/internal/model/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreToRun(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r := CoreToRun(core.Run{ID: 7, RunName: "skidpad", StartTime: start, TimeStep: 0.01, RunTime: 30, Terrain: "flat"})
	assert.Zero(t, r.ID)
	assert.Equal(t, "skidpad", r.RunName)
	assert.Equal(t, start, r.StartTime)
	assert.Equal(t, 0.01, r.TimeStep)
	assert.Equal(t, "flat", r.Terrain)
}

func TestCoreToVehicle(t *testing.T) {
	v := CoreToVehicle(core.Vehicle{ID: 3, RunID: 1, VehicleID: "car-1", Preset: "compact", Mass: 950, Drive: "fwd"})
	assert.Equal(t, uint(3), v.ID)
	assert.Equal(t, uint(1), v.RunID)
	assert.Equal(t, "car-1", v.VehicleID)
	assert.Equal(t, 950.0, v.Mass)
	assert.Empty(t, v.Trajectory)
}

func TestCoreToVehicleState(t *testing.T) {
	s := CoreToVehicleState(core.VehicleState{
		RunID:     2,
		VehicleID: "car-1",
		Frame:     10,
		Position:  core.Position3D{X: 1, Y: 0.5, Z: -4},
		Gear:      "3",
		Wheels:    []core.WheelState{{Wheel: "FL", Grounded: true, Load: 2000}},
	})
	assert.Equal(t, 1.0, s.PosX)
	assert.Equal(t, 0.5, s.PosY)
	assert.Equal(t, -4.0, s.PosZ)
	assert.Equal(t, "3", s.Gear)

	var wheels []core.WheelState
	require.NoError(t, json.Unmarshal(s.Wheels, &wheels))
	assert.Equal(t, []core.WheelState{{Wheel: "FL", Grounded: true, Load: 2000}}, wheels)
}

func TestCoreToVehicleState_NoWheels(t *testing.T) {
	s := CoreToVehicleState(core.VehicleState{})
	assert.JSONEq(t, "[]", string(s.Wheels))
}

func TestCoreToEvent(t *testing.T) {
	e := CoreToEvent(core.Event{RunID: 1, VehicleID: "car-1", Frame: 5, Name: core.EventLanded, Value: 0.8})
	assert.Equal(t, core.EventLanded, e.Name)
	assert.Equal(t, 0.8, e.Value)
	assert.Equal(t, uint(5), e.Frame)
}
