package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cxd309/vds-engine/internal/geo"
	"github.com/cxd309/vds-engine/internal/model/core"
)

// RunExport is the root JSON structure of an exported run.
type RunExport struct {
	RunName   string        `json:"runName"`
	StartTime string        `json:"startTime"`
	TimeStep  float64       `json:"timeStep"`
	RunTime   float64       `json:"runTime"`
	Terrain   string        `json:"terrain"`
	EndFrame  uint          `json:"endFrame"`
	Vehicles  []VehicleJSON `json:"vehicles"`
	Events    [][]any       `json:"events"`
}

// VehicleJSON is one vehicle with its frames.
//
// Each entry of Positions is
// [frame, [x, y, z], heading, speedKmh, gear, rpm, drifting].
type VehicleJSON struct {
	ID         uint    `json:"id"`
	VehicleID  string  `json:"vehicleId"`
	Preset     string  `json:"preset"`
	Mass       float64 `json:"mass"`
	Drive      string  `json:"drive"`
	Trajectory string  `json:"trajectory,omitempty"`
	Positions  [][]any `json:"positions"`
}

// exportJSON writes the run data to a (gzipped) JSON file.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	runName := strings.ReplaceAll(b.run.RunName, " ", "_")
	runName = strings.ReplaceAll(runName, ":", "_")
	if runName == "" {
		runName = "run"
	}
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", runName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", runName, timestamp)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		RunName:   b.run.RunName,
		StartTime: b.run.StartTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		TimeStep:  b.run.TimeStep,
		RunTime:   b.run.RunTime,
		Terrain:   b.run.Terrain,
		Vehicles:  make([]VehicleJSON, 0, len(b.order)),
		Events:    make([][]any, 0, len(b.events)),
	}

	var maxFrame uint
	for _, id := range b.order {
		record := b.vehicles[id]
		v := VehicleJSON{
			ID:        record.Vehicle.ID,
			VehicleID: record.Vehicle.VehicleID,
			Preset:    record.Vehicle.Preset,
			Mass:      record.Vehicle.Mass,
			Drive:     record.Vehicle.Drive,
			Positions: make([][]any, 0, len(record.States)),
		}

		points := make([]core.Position3D, 0, len(record.States))
		for _, s := range record.States {
			v.Positions = append(v.Positions, []any{
				s.Frame,
				[]float64{s.Position.X, s.Position.Y, s.Position.Z},
				s.Heading,
				s.Speed * 3.6,
				s.Gear,
				s.RPM,
				boolToInt(s.Drifting),
			})
			points = append(points, s.Position)
			if s.Frame > maxFrame {
				maxFrame = s.Frame
			}
		}
		v.Trajectory = geo.TrajectoryWKT(points, b.geo)

		export.Vehicles = append(export.Vehicles, v)
	}
	export.EndFrame = maxFrame

	// Format: [frame, name, vehicleId, message, value]
	for _, e := range b.events {
		export.Events = append(export.Events, []any{
			e.Frame,
			e.Name,
			e.VehicleID,
			e.Message,
			e.Value,
		})
	}

	return export
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
