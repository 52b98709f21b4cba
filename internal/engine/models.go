package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cxd309/vds-engine/internal/driver"
	"github.com/cxd309/vds-engine/internal/metrics"
	"github.com/cxd309/vds-engine/internal/model/core"
	"github.com/cxd309/vds-engine/internal/route"
	"github.com/cxd309/vds-engine/internal/storage"
	"github.com/cxd309/vds-engine/internal/terrain"
)

// SimulationMeta holds the identity and timing parameters for a simulation run.
type SimulationMeta struct {
	SimulationID string  `json:"simulation_id"`
	RunTime      float64 `json:"run_time"`  // seconds
	TimeStep     float64 `json:"time_step"` // seconds
	// LogEvery keeps every Nth step in the returned log; the final step is
	// always kept. 0 means every step.
	LogEvery int  `json:"log_every,omitempty"`
	Parallel bool `json:"parallel,omitempty"` // step vehicles concurrently
}

// SimulationInput is the JSON-serialisable input to the engine.
type SimulationInput struct {
	Meta     SimulationMeta   `json:"simulation_meta"`
	Terrain  json.RawMessage  `json:"terrain,omitempty"` // flat plane when omitted
	Routes   *route.GraphData `json:"routes,omitempty"`
	Vehicles []driver.Entry   `json:"vehicles"`
}

// SimulationLogRow is the state of all vehicles after a single step.
type SimulationLogRow struct {
	Timestamp   float64             `json:"timestamp"` // seconds
	VehicleLogs []driver.VehicleLog `json:"vehicle_logs"`
}

// SimulationLog is the complete output of a simulation run.
type SimulationLog struct {
	Meta   SimulationMeta     `json:"simulation_meta"`
	Output []SimulationLogRow `json:"output"`
}

// observed is what the engine remembers about a driver between steps to
// detect transitions.
type observed struct {
	state    driver.State
	drifting bool
}

// Sim is the scenario simulation state.
type Sim struct {
	meta    SimulationMeta
	terrain terrain.Provider
	terrKey string
	graph   *route.Graph
	drivers []*driver.Driver
	prev    []observed
	steps   int
	frame   uint
	curTime float64

	logger      *slog.Logger
	metrics     *metrics.Recorder
	backend     storage.Backend
	run         *core.Run
	recordEvery int
	startTime   time.Time
	recordErrs  map[string]bool
}

// Option configures a Sim.
type Option func(*Sim)

// WithLogger routes engine and driver logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sim) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics publishes step and event counters through r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Sim) { s.metrics = r }
}

// WithRecorder records the run to b, writing a state for every vehicle
// every `every` steps. b must already be initialised.
func WithRecorder(b storage.Backend, every int) Option {
	return func(s *Sim) {
		s.backend = b
		s.recordEvery = max(every, 1)
	}
}

// WithStartTime anchors the recorded timeline. It defaults to the wall
// clock when Run starts.
func WithStartTime(t time.Time) Option {
	return func(s *Sim) { s.startTime = t }
}
