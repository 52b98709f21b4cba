// Package core holds the storage-neutral telemetry types that every
// recording backend accepts.
package core

import "time"

// Position3D is a world position in metres. Y is up.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Run describes one simulation run.
type Run struct {
	ID        uint      `json:"id"`
	RunName   string    `json:"runName"`
	StartTime time.Time `json:"startTime"`
	TimeStep  float64   `json:"timeStep"` // seconds
	RunTime   float64   `json:"runTime"`  // seconds
	Terrain   string    `json:"terrain"`
}

// At converts simulated seconds into a wall-clock timestamp on the run's
// timeline.
func (r Run) At(simTime float64) time.Time {
	return r.StartTime.Add(time.Duration(simTime * float64(time.Second)))
}
