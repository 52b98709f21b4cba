// Package influx streams vehicle telemetry to InfluxDB 2. When the server
// is unreachable at Init, points are written as line protocol to a gzip
// backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/model/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	MeasurementRun     = "vds_run"
	MeasurementVehicle = "vehicle"
	MeasurementState   = "vehicle_state"
	MeasurementEvent   = "vehicle_event"
)

const (
	pingTimeout     = 3 * time.Second
	retentionPeriod = 60 * 60 * 24 * 90 // 90 days
)

// Manager handles the InfluxDB connection and writes. It implements
// storage.Backend.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	run        *core.Run
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, Logger: log}
}

// Init connects to InfluxDB, falling back to the backup file if the server
// does not answer a ping.
func (m *Manager) Init() error {
	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	running, err := m.Client.Ping(ctx)
	cancel()

	if err != nil || !running {
		m.IsValid = false
		m.Logger.Info().Str("backupPath", m.cfg.BackupPath).
			Msg("Failed to reach InfluxDB, writing to backup file")
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBucket(); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket() error {
	ctx := context.Background()
	orgName := m.cfg.Org

	org, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionPeriod,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}
	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

func (m *Manager) runName() string {
	if m.run == nil {
		return ""
	}
	return m.run.RunName
}

// StartRun writes a run marker point.
func (m *Manager) StartRun(run *core.Run) error {
	m.run = run
	p := influxdb2_write.NewPoint(MeasurementRun,
		map[string]string{"run": run.RunName, "terrain": run.Terrain},
		map[string]any{"time_step": run.TimeStep, "run_time": run.RunTime, "status": "started"},
		run.StartTime)
	return m.WritePoint(p)
}

// EndRun writes the closing run marker and flushes.
func (m *Manager) EndRun() error {
	if m.run == nil {
		return errors.New("no run started")
	}
	p := influxdb2_write.NewPoint(MeasurementRun,
		map[string]string{"run": m.run.RunName, "terrain": m.run.Terrain},
		map[string]any{"time_step": m.run.TimeStep, "run_time": m.run.RunTime, "status": "ended"},
		m.run.At(m.run.RunTime))
	if err := m.WritePoint(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.BackupWriter != nil {
		return m.BackupWriter.Flush()
	}
	return nil
}

func (m *Manager) AddVehicle(v *core.Vehicle) error {
	ts := time.Now()
	if m.run != nil {
		ts = m.run.StartTime
	}
	p := influxdb2_write.NewPoint(MeasurementVehicle,
		map[string]string{"run": m.runName(), "vehicle_id": v.VehicleID, "preset": v.Preset, "drive": v.Drive},
		map[string]any{"mass": v.Mass},
		ts)
	return m.WritePoint(p)
}

func (m *Manager) RecordVehicleState(s *core.VehicleState) error {
	p := influxdb2_write.NewPoint(MeasurementState,
		map[string]string{"run": m.runName(), "vehicle_id": s.VehicleID, "gear": s.Gear, "state": s.State},
		map[string]any{
			"frame":           int64(s.Frame),
			"sim_time":        s.SimTime,
			"x":               s.Position.X,
			"y":               s.Position.Y,
			"z":               s.Position.Z,
			"heading":         s.Heading,
			"speed":           s.Speed,
			"forward_speed":   s.ForwardSpeed,
			"lateral_speed":   s.LateralSpeed,
			"rpm":             s.RPM,
			"throttle":        s.Throttle,
			"brake":           s.Brake,
			"steer":           s.Steer,
			"handbrake":       s.Handbrake,
			"drifting":        s.Drifting,
			"drift_intensity": s.DriftIntensity,
			"grip_multiplier": s.GripMultiplier,
			"airborne":        s.Airborne,
			"grounded_wheels": int64(s.GroundedWheels),
		},
		s.Time)
	return m.WritePoint(p)
}

func (m *Manager) RecordEvent(e *core.Event) error {
	fields := map[string]any{"frame": int64(e.Frame), "sim_time": e.SimTime, "value": e.Value}
	if e.Message != "" {
		fields["message"] = e.Message
	}
	p := influxdb2_write.NewPoint(MeasurementEvent,
		map[string]string{"run": m.runName(), "vehicle_id": e.VehicleID, "event": e.Name},
		fields,
		e.Time)
	return m.WritePoint(p)
}
