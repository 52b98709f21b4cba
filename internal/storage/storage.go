package storage

import "github.com/cxd309/vds-engine/internal/model/core"

// Backend is the interface all recording backends must satisfy. The engine
// calls StartRun once, then AddVehicle for each vehicle, then any number of
// Record calls, then EndRun.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Entity registration (assigns ID to the passed pointer)
	AddVehicle(v *core.Vehicle) error

	// Recording
	RecordVehicleState(s *core.VehicleState) error
	RecordEvent(e *core.Event) error
}

// Exporter is an optional interface for backends that write a file at the
// end of a run.
type Exporter interface {
	ExportedFilePath() string
}
