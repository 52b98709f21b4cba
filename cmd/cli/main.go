// Command vds-engine reads a SimulationInput JSON from a file argument (or
// stdin), runs the simulation, and writes the SimulationLog JSON to stdout.
//
// Logging, recording and geo-referencing are configured from vds.cfg.json in
// the directory given by -config.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/logging"
	"github.com/cxd309/vds-engine/internal/metrics"
	"github.com/cxd309/vds-engine/internal/storage"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

var (
	configDir   = flag.String("config", ".", "directory containing "+config.FileName)
	runName     = flag.String("name", "", "run name used for log and recording files (default: simulation_id)")
	listPresets = flag.Bool("presets", false, "print the built-in vehicle presets and exit")
)

func main() {
	flag.Parse()

	if *listPresets {
		fmt.Println(strings.Join(vehicle.PresetNames(), "\n"))
		return
	}

	data, err := readInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
		os.Exit(1)
	}

	if err := run(data); err != nil {
		fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

// simulationID peeks at the input's simulation_id for naming the log file.
func simulationID(data []byte) string {
	var in struct {
		Meta engine.SimulationMeta `json:"simulation_meta"`
	}
	if json.Unmarshal(data, &in) != nil || in.Meta.SimulationID == "" {
		return "vds"
	}
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(in.Meta.SimulationID)
}

func run(data []byte) error {
	cfgErr := config.Load(*configDir)

	logCfg := config.GetLoggingConfig()
	start := time.Now()

	name := *runName
	if name == "" {
		name = simulationID(data)
	}
	if err := os.MkdirAll(logCfg.Dir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logCfg.Dir, name, start))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	graylogAddr := ""
	if logCfg.Graylog.Enabled {
		graylogAddr = logCfg.Graylog.Address
	}
	slogMgr := logging.NewSlogManager()
	if err := slogMgr.Setup(logFile, logCfg.Level, graylogAddr); err != nil {
		return err
	}
	defer slogMgr.Close()
	logger := slogMgr.Logger()

	if cfgErr != nil {
		logger.Warn("using default configuration", "error", cfgErr)
	}

	ref, err := storage.GeoReferencer(config.GetGeoConfig())
	if err != nil {
		return err
	}

	storeCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storeCfg, storage.Dependencies{
		Logger:  logger,
		Zerolog: slogMgr.Zerolog(),
		Geo:     ref,
	})
	if err != nil {
		return err
	}

	rec, err := metrics.New()
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(rec),
		engine.WithStartTime(start.UTC()),
	}
	if backend != nil {
		if err := backend.Init(); err != nil {
			return fmt.Errorf("initializing %s storage: %w", storeCfg.Type, err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Error("closing storage", "error", err)
			}
		}()
		opts = append(opts, engine.WithRecorder(backend, storeCfg.RecordEvery))
		logger.Info("recording enabled", "type", storeCfg.Type, "record_every", storeCfg.RecordEvery)
	}

	result, err := engine.RunJSON(string(data), opts...)
	if err != nil {
		logger.Error("simulation failed", "error", err)
		return err
	}

	if exp, ok := backend.(storage.Exporter); ok {
		if path := exp.ExportedFilePath(); path != "" {
			abs, _ := filepath.Abs(path)
			logger.Info("run exported", "path", abs)
		}
	}
	logger.Info("run complete", slog.Duration("elapsed", time.Since(start)))

	fmt.Println(result)
	return nil
}
