// Package gormstore records runs into a relational database through GORM.
// SQLite and Postgres share the same schema and write path; states and
// events are buffered and inserted in batches.
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cxd309/vds-engine/internal/geo"
	"github.com/cxd309/vds-engine/internal/model"
	"github.com/cxd309/vds-engine/internal/model/convert"
	"github.com/cxd309/vds-engine/internal/model/core"
	"gorm.io/gorm"
)

// ErrNoRun is returned when recording before StartRun.
var ErrNoRun = errors.New("no run started")

// Backend implements storage.Backend on a *gorm.DB.
type Backend struct {
	db        *gorm.DB
	batchSize int
	logger    *slog.Logger
	geo       *geo.Referencer

	mu       sync.Mutex
	run      *core.Run
	vehicles map[string]uint // VehicleID -> row ID
	paths    map[string][]core.Position3D
	states   []model.VehicleState
	events   []model.Event
}

// New wraps an open database. ref may be nil.
func New(db *gorm.DB, batchSize int, logger *slog.Logger, ref *geo.Referencer) *Backend {
	if batchSize < 1 {
		batchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		db:        db,
		batchSize: batchSize,
		logger:    logger,
		geo:       ref,
	}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the schema.
func (b *Backend) Init() error {
	b.logger.Info("Migrating schema", "dialect", b.db.Name())
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close flushes anything still buffered and closes the connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	err := b.flush()
	b.mu.Unlock()

	sqlDB, dbErr := b.db.DB()
	if dbErr != nil {
		return errors.Join(err, dbErr)
	}
	return errors.Join(err, sqlDB.Close())
}

// StartRun inserts the run row and assigns its ID back to run.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := convert.CoreToRun(*run)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	run.ID = row.ID
	b.run = run
	b.vehicles = make(map[string]uint)
	b.paths = make(map[string][]core.Position3D)
	b.states = b.states[:0]
	b.events = b.events[:0]
	return nil
}

// EndRun flushes the buffers, then stores each vehicle's trajectory and the
// run's final duration.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	if err := b.flush(); err != nil {
		return err
	}
	for vehicleID, rowID := range b.vehicles {
		wkt := geo.TrajectoryWKT(b.paths[vehicleID], b.geo)
		if wkt == "" {
			continue
		}
		if err := b.db.Model(&model.Vehicle{}).Where("id = ?", rowID).Update("trajectory", wkt).Error; err != nil {
			return fmt.Errorf("failed to store trajectory for %s: %w", vehicleID, err)
		}
	}
	if err := b.db.Model(&model.Run{}).Where("id = ?", b.run.ID).Update("run_time", b.run.RunTime).Error; err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	b.logger.Info("Run stored", "run_id", b.run.ID, "vehicles", len(b.vehicles))
	b.run = nil
	return nil
}

// AddVehicle inserts the vehicle synchronously so its ID is known at once.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	v.RunID = b.run.ID
	row := convert.CoreToVehicle(*v)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert vehicle %s: %w", v.VehicleID, err)
	}
	v.ID = row.ID
	b.vehicles[v.VehicleID] = row.ID
	return nil
}

// RecordVehicleState buffers a state, flushing when the batch is full.
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	if _, ok := b.vehicles[s.VehicleID]; !ok {
		return fmt.Errorf("vehicle %q not found", s.VehicleID)
	}
	s.RunID = b.run.ID
	b.states = append(b.states, convert.CoreToVehicleState(*s))
	b.paths[s.VehicleID] = append(b.paths[s.VehicleID], s.Position)
	if len(b.states) >= b.batchSize {
		return b.flush()
	}
	return nil
}

// RecordEvent buffers an event, flushing when the batch is full.
func (b *Backend) RecordEvent(e *core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	e.RunID = b.run.ID
	b.events = append(b.events, convert.CoreToEvent(*e))
	if len(b.events) >= b.batchSize {
		return b.flush()
	}
	return nil
}

// flush writes the buffers. Callers hold mu.
func (b *Backend) flush() error {
	if len(b.states) > 0 {
		if err := b.db.CreateInBatches(b.states, b.batchSize).Error; err != nil {
			return fmt.Errorf("failed to insert %d vehicle states: %w", len(b.states), err)
		}
		b.logger.Debug("Flushed vehicle states", "count", len(b.states))
		b.states = b.states[:0]
	}
	if len(b.events) > 0 {
		if err := b.db.CreateInBatches(b.events, b.batchSize).Error; err != nil {
			return fmt.Errorf("failed to insert %d events: %w", len(b.events), err)
		}
		b.events = b.events[:0]
	}
	return nil
}
