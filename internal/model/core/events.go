package core

import "time"

// Event names.
const (
	EventDeparted   = "departed"
	EventFinished   = "finished"
	EventLanded     = "landed"
	EventDriftStart = "drift_start"
	EventDriftEnd   = "drift_end"
)

// Event is a discrete vehicle transition. Value carries the event's
// magnitude where it has one, such as the air time of a landing.
type Event struct {
	RunID     uint      `json:"runId"`
	VehicleID string    `json:"vehicleId"`
	Frame     uint      `json:"frame"`
	SimTime   float64   `json:"simTime"`
	Time      time.Time `json:"time"`
	Name      string    `json:"name"`
	Message   string    `json:"message,omitempty"`
	Value     float64   `json:"value"`
}
