package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/geo"
	"github.com/cxd309/vds-engine/internal/model/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRun(t *testing.T, b *Backend) *core.Run {
	t.Helper()
	run := &core.Run{
		RunName:   "Skid pad: wet",
		StartTime: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		TimeStep:  0.01,
		RunTime:   2,
		Terrain:   "flat",
	}
	require.NoError(t, b.StartRun(run))
	return run
}

func record(t *testing.T, b *Backend, id string, frames int) {
	t.Helper()
	for i := range frames {
		require.NoError(t, b.RecordVehicleState(&core.VehicleState{
			VehicleID: id,
			Frame:     uint(i),
			Position:  core.Position3D{X: float64(i), Y: 0.4, Z: float64(2 * i)},
			Speed:     10,
			Gear:      "2",
			Drifting:  i == 1,
		}))
	}
}

func TestAddVehicle_AssignsIDs(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, nil)
	require.NoError(t, b.Init())
	run := startRun(t, b)

	a := &core.Vehicle{VehicleID: "a"}
	c := &core.Vehicle{VehicleID: "c"}
	require.NoError(t, b.AddVehicle(a))
	require.NoError(t, b.AddVehicle(c))
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, run.ID, a.RunID)

	assert.Error(t, b.AddVehicle(&core.Vehicle{VehicleID: "a"}), "duplicate")

	got, ok := b.GetVehicle("c")
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)
	_, ok = b.GetVehicle("zzz")
	assert.False(t, ok)
}

func TestRecordVehicleState_UnknownVehicle(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, nil)
	startRun(t, b)
	assert.Error(t, b.RecordVehicleState(&core.VehicleState{VehicleID: "ghost"}))
}

func TestStartRun_Resets(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, nil)
	startRun(t, b)
	require.NoError(t, b.AddVehicle(&core.Vehicle{VehicleID: "a"}))
	record(t, b, "a", 3)
	require.NoError(t, b.RecordEvent(&core.Event{Name: core.EventLanded}))

	startRun(t, b)
	_, ok := b.GetVehicle("a")
	assert.False(t, ok)
	assert.Empty(t, b.Events())
}

func TestEndRun_WithoutStart(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, nil)
	assert.Error(t, b.EndRun())
}

func TestEndRun_ExportsPlainJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, nil)
	startRun(t, b)
	require.NoError(t, b.AddVehicle(&core.Vehicle{VehicleID: "car-1", Preset: "compact", Mass: 950, Drive: "fwd"}))
	record(t, b, "car-1", 3)
	require.NoError(t, b.RecordEvent(&core.Event{VehicleID: "car-1", Frame: 2, Name: core.EventLanded, Value: 0.6}))
	require.NoError(t, b.EndRun())

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "Skid_pad__wet_20240203_040506.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export RunExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Equal(t, "Skid pad: wet", export.RunName)
	assert.Equal(t, uint(2), export.EndFrame)
	require.Len(t, export.Vehicles, 1)
	v := export.Vehicles[0]
	assert.Equal(t, "car-1", v.VehicleID)
	require.Len(t, v.Positions, 3)
	assert.Equal(t, []any{1.0, []any{1.0, 0.4, 2.0}, 0.0, 36.0, "2", 0.0, 1.0}, v.Positions[1])
	assert.True(t, strings.HasPrefix(v.Trajectory, "LINESTRING Z"), v.Trajectory)

	require.Len(t, export.Events, 1)
	assert.Equal(t, []any{2.0, "landed", "car-1", "", 0.6}, export.Events[0])
}

func TestEndRun_ExportsGzipWithGeoTrajectory(t *testing.T) {
	dir := t.TempDir()
	ref, err := geo.NewReferencer(48.2, 16.37)
	require.NoError(t, err)

	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true}, ref)
	startRun(t, b)
	require.NoError(t, b.AddVehicle(&core.Vehicle{VehicleID: "car-1"}))
	record(t, b, "car-1", 2)
	require.NoError(t, b.EndRun())

	path := b.ExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export RunExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	require.Len(t, export.Vehicles, 1)
	want := geo.TrajectoryWKT([]core.Position3D{{Y: 0.4}, {X: 1, Y: 0.4, Z: 2}}, ref)
	assert.Equal(t, want, export.Vehicles[0].Trajectory)
	assert.NotEqual(t, geo.TrajectoryWKT([]core.Position3D{{Y: 0.4}, {X: 1, Y: 0.4, Z: 2}}, nil), want)
}
