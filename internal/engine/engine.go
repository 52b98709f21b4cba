// Package engine implements the scenario simulation loop.
//
// The simulation advances in fixed timesteps. Each step, every driver
// decides its input (scripted program, route follower or hold) and advances
// its vehicle through the dynamics pipeline. Vehicles share only the
// read-only terrain, so they may be stepped concurrently. After the step the
// engine detects transitions (departure, landing, drift start and end,
// finish) and hands states and events to the optional recorder.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cxd309/vds-engine/internal/driver"
	"github.com/cxd309/vds-engine/internal/model/core"
	"github.com/cxd309/vds-engine/internal/route"
	"github.com/cxd309/vds-engine/internal/terrain"
)

// ErrInvalidInput wraps every scenario-level validation failure.
var ErrInvalidInput = errors.New("invalid simulation input")

// NewSim constructs a Sim from a SimulationInput, building the terrain, the
// route graph and one driver per vehicle entry.
func NewSim(input SimulationInput, opts ...Option) (*Sim, error) {
	m := input.Meta
	if !(m.TimeStep > 0) {
		return nil, fmt.Errorf("%w: time_step must be positive", ErrInvalidInput)
	}
	if m.RunTime < 0 || math.IsNaN(m.RunTime) {
		return nil, fmt.Errorf("%w: run_time must not be negative", ErrInvalidInput)
	}
	if m.LogEvery < 0 {
		return nil, fmt.Errorf("%w: log_every must not be negative", ErrInvalidInput)
	}

	s := &Sim{
		meta:       m,
		logger:     slog.New(slog.DiscardHandler),
		recordErrs: make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("simulation_id", m.SimulationID)

	t, err := terrain.Decode(input.Terrain)
	if err != nil {
		return nil, fmt.Errorf("building terrain: %w", err)
	}
	s.terrain = t
	s.terrKey = terrainModel(input.Terrain)

	if input.Routes != nil {
		g, err := route.NewGraph(*input.Routes)
		if err != nil {
			return nil, fmt.Errorf("building route graph: %w", err)
		}
		s.graph = g
	}

	seen := make(map[string]bool, len(input.Vehicles))
	s.drivers = make([]*driver.Driver, 0, len(input.Vehicles))
	for _, e := range input.Vehicles {
		if seen[e.VehicleID] {
			return nil, fmt.Errorf("%w: duplicate vehicle_id %q", ErrInvalidInput, e.VehicleID)
		}
		seen[e.VehicleID] = true
		d, err := driver.New(e, t, s.graph, s.logger)
		if err != nil {
			return nil, err
		}
		s.drivers = append(s.drivers, d)
	}
	s.prev = make([]observed, len(s.drivers))
	for i, d := range s.drivers {
		s.prev[i] = observed{state: d.State}
	}
	s.steps = int(math.Round(m.RunTime / m.TimeStep))
	return s, nil
}

// terrainModel reads the terrain discriminator for recording.
func terrainModel(raw json.RawMessage) string {
	var disc struct {
		Model string `json:"model"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &disc)
	}
	if disc.Model == "" {
		return terrain.FlatModelName
	}
	return disc.Model
}

// Drivers returns the scenario's drivers in input order.
func (s *Sim) Drivers() []*driver.Driver { return s.drivers }

// Time is the simulated time reached so far.
func (s *Sim) Time() float64 { return s.curTime }

// Run executes the full simulation and returns the log.
func (s *Sim) Run() (SimulationLog, error) {
	return s.RunContext(context.Background())
}

// RunContext is Run with cancellation checked between steps.
func (s *Sim) RunContext(ctx context.Context) (SimulationLog, error) {
	log := SimulationLog{Meta: s.meta}
	every := max(s.meta.LogEvery, 1)

	if err := s.startRecording(); err != nil {
		return SimulationLog{}, err
	}
	s.logger.Info("simulation started", "vehicles", len(s.drivers), "steps", s.steps, "time_step", s.meta.TimeStep)

	for i := 0; i < s.steps; i++ {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("at t=%.2f: %w", s.curTime, err)
			if stopErr := s.stopRecording(); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
			return SimulationLog{}, err
		}
		row := s.step(ctx)
		if (i+1)%every == 0 || i == s.steps-1 {
			log.Output = append(log.Output, row)
		}
	}

	if err := s.stopRecording(); err != nil {
		return SimulationLog{}, err
	}
	s.logger.Info("simulation finished", "t", s.curTime)
	return log, nil
}

// step advances every vehicle by one timestep and returns the resulting log row.
func (s *Sim) step(ctx context.Context) SimulationLogRow {
	dt := s.meta.TimeStep
	now := s.curTime
	start := time.Now()

	if s.meta.Parallel && len(s.drivers) > 1 {
		var wg sync.WaitGroup
		for _, d := range s.drivers {
			wg.Add(1)
			go func(d *driver.Driver) {
				defer wg.Done()
				d.Step(now, dt)
			}(d)
		}
		wg.Wait()
	} else {
		for _, d := range s.drivers {
			d.Step(now, dt)
		}
	}

	s.frame++
	s.curTime = float64(s.frame) * dt
	s.metrics.Step(ctx, time.Since(start), len(s.drivers))

	logs := make([]driver.VehicleLog, len(s.drivers))
	for i, d := range s.drivers {
		logs[i] = d.GetLog()
		s.observe(ctx, i, logs[i])
	}
	if s.backend != nil && s.frame%uint(s.recordEvery) == 0 {
		for _, l := range logs {
			s.recordState(ctx, l)
		}
	}
	return SimulationLogRow{Timestamp: s.curTime, VehicleLogs: logs}
}

// observe emits events for the transitions of driver i since the last step.
func (s *Sim) observe(ctx context.Context, i int, l driver.VehicleLog) {
	prev := &s.prev[i]
	v := l.Vehicle

	if prev.state == driver.StateWaiting && l.State != driver.StateWaiting {
		s.emit(ctx, l.VehicleID, core.EventDeparted, "", 0)
	}
	if v.Landed {
		s.emit(ctx, l.VehicleID, core.EventLanded, "", v.LandingAirTime)
	}
	switch {
	case v.Drifting && !prev.drifting:
		s.emit(ctx, l.VehicleID, core.EventDriftStart, "", v.DriftIntensity)
	case !v.Drifting && prev.drifting:
		s.emit(ctx, l.VehicleID, core.EventDriftEnd, "", 0)
	}
	if prev.state != driver.StateFinished && l.State == driver.StateFinished {
		s.emit(ctx, l.VehicleID, core.EventFinished, "", 0)
	}

	prev.state = l.State
	prev.drifting = v.Drifting
}

func (s *Sim) emit(ctx context.Context, vehicleID, name, msg string, value float64) {
	s.metrics.Event(ctx, name)
	if s.backend == nil {
		return
	}
	e := core.Event{
		VehicleID: vehicleID,
		Frame:     s.frame,
		SimTime:   s.curTime,
		Time:      s.startTime.Add(time.Duration(s.curTime * float64(time.Second))),
		Name:      name,
		Message:   msg,
		Value:     value,
	}
	if err := s.backend.RecordEvent(&e); err != nil {
		s.recordFailed(ctx, "event", err)
	}
}

// RunJSON is the primary entry point for the CLI and WASM targets. It accepts
// a JSON-encoded SimulationInput, runs the simulation, and returns a
// JSON-encoded SimulationLog.
func RunJSON(jsonInput string, opts ...Option) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	sim, err := NewSim(input, opts...)
	if err != nil {
		return "", err
	}

	simLog, err := sim.Run()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(simLog)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
