package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "runs", (&Run{}).TableName())
	assert.Equal(t, "vehicles", (&Vehicle{}).TableName())
	assert.Equal(t, "vehicle_states", (&VehicleState{}).TableName())
	assert.Equal(t, "events", (&Event{}).TableName())
}

func TestDatabaseModels(t *testing.T) {
	assert.Len(t, DatabaseModels, 4)
	assert.IsType(t, &Run{}, DatabaseModels[0], "runs migrate first")
}
