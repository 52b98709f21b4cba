// Package storage selects and builds the telemetry recorder for a run.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/geo"
	"github.com/cxd309/vds-engine/internal/storage/gormstore"
	"github.com/cxd309/vds-engine/internal/storage/influx"
	"github.com/cxd309/vds-engine/internal/storage/memory"
	"github.com/cxd309/vds-engine/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// Dependencies are the shared services a backend may use.
type Dependencies struct {
	Logger  *slog.Logger
	Zerolog zerolog.Logger
	Geo     *geo.Referencer // nil keeps trajectories in local metres
}

// NewBackend creates a storage backend based on configuration. Type "none"
// (or empty) returns a nil Backend and no error: nothing is recorded.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.New(cfg.Memory, deps.Geo), nil
	case "sqlite":
		db, err := gormstore.OpenSQLite(cfg.SQLite.Path, cfg.SQLite.BatchSize)
		if err != nil {
			return nil, err
		}
		return gormstore.New(db, cfg.SQLite.BatchSize, deps.Logger, deps.Geo), nil
	case "postgres":
		db, err := gormstore.OpenPostgres(cfg.Postgres.DSN(), cfg.Postgres.BatchSize)
		if err != nil {
			return nil, err
		}
		return gormstore.New(db, cfg.Postgres.BatchSize, deps.Logger, deps.Geo), nil
	case "influx":
		return influx.NewManager(cfg.Influx, deps.Zerolog), nil
	case "websocket":
		return websocket.New(cfg.WebSocket, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// GeoReferencer builds the optional Referencer from configuration.
func GeoReferencer(cfg config.GeoConfig) (*geo.Referencer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return geo.NewReferencer(cfg.OriginLat, cfg.OriginLon)
}
