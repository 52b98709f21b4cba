// Package memory keeps a run in memory and exports it as (optionally
// gzipped) JSON when the run ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/geo"
	"github.com/cxd309/vds-engine/internal/model/core"
)

// VehicleRecord groups a vehicle with all its recorded states.
type VehicleRecord struct {
	Vehicle core.Vehicle
	States  []core.VehicleState
}

// Backend stores run data in memory and exports to JSON.
type Backend struct {
	cfg config.MemoryConfig
	geo *geo.Referencer
	run *core.Run

	vehicles map[string]*VehicleRecord // keyed by VehicleID
	order    []string
	events   []core.Event

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend. ref may be nil, in which case exported
// trajectories stay in local metres.
func New(cfg config.MemoryConfig, ref *geo.Referencer) *Backend {
	return &Backend{
		cfg:      cfg,
		geo:      ref,
		vehicles: make(map[string]*VehicleRecord),
	}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run and drops anything recorded before.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	run.ID = b.idCounter
	b.run = run

	b.vehicles = make(map[string]*VehicleRecord)
	b.order = nil
	b.events = nil
	return nil
}

// EndRun finalizes and exports the run.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no run started")
	}
	return b.exportJSON()
}

// AddVehicle registers a new vehicle.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.vehicles[v.VehicleID]; ok {
		return fmt.Errorf("vehicle %q already registered", v.VehicleID)
	}
	b.idCounter++
	v.ID = b.idCounter
	if b.run != nil {
		v.RunID = b.run.ID
	}

	b.vehicles[v.VehicleID] = &VehicleRecord{
		Vehicle: *v,
		States:  make([]core.VehicleState, 0),
	}
	b.order = append(b.order, v.VehicleID)
	return nil
}

// GetVehicle looks up a vehicle by its scenario ID.
func (b *Backend) GetVehicle(vehicleID string) (*core.Vehicle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.vehicles[vehicleID]; ok {
		return &record.Vehicle, true
	}
	return nil, false
}

// States returns a copy of the states recorded for a vehicle.
func (b *Backend) States(vehicleID string) []core.VehicleState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.vehicles[vehicleID]
	if !ok {
		return nil
	}
	return append([]core.VehicleState(nil), record.States...)
}

// Events returns a copy of the recorded events.
func (b *Backend) Events() []core.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Event(nil), b.events...)
}

func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.vehicles[s.VehicleID]
	if !ok {
		return fmt.Errorf("vehicle %q not found", s.VehicleID)
	}
	record.States = append(record.States, *s)
	return nil
}

func (b *Backend) RecordEvent(e *core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, *e)
	return nil
}

// ExportedFilePath returns the path of the last export, or "" before the
// first EndRun.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
