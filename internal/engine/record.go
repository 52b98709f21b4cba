package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cxd309/vds-engine/internal/driver"
	"github.com/cxd309/vds-engine/internal/model/core"
)

// startRecording opens the run on the backend and registers every vehicle.
func (s *Sim) startRecording() error {
	if s.startTime.IsZero() {
		s.startTime = time.Now().UTC()
	}
	if s.backend == nil {
		return nil
	}

	run := core.Run{
		RunName:   s.meta.SimulationID,
		StartTime: s.startTime,
		TimeStep:  s.meta.TimeStep,
		RunTime:   s.meta.RunTime,
		Terrain:   s.terrKey,
	}
	if err := s.backend.StartRun(&run); err != nil {
		return fmt.Errorf("starting recording: %w", err)
	}
	s.run = &run

	for _, d := range s.drivers {
		spec := d.Spec()
		preset := d.Preset
		if preset == "" {
			preset = "compact"
		}
		v := core.Vehicle{
			RunID:     run.ID,
			VehicleID: d.VehicleID,
			Preset:    preset,
			Mass:      spec.Body.Mass,
			Drive:     string(spec.Wheels.Drive),
		}
		if err := s.backend.AddVehicle(&v); err != nil {
			return fmt.Errorf("registering vehicle %q: %w", d.VehicleID, err)
		}
	}
	return nil
}

func (s *Sim) stopRecording() error {
	if s.backend == nil {
		return nil
	}
	s.run.RunTime = s.curTime
	if err := s.backend.EndRun(); err != nil {
		return fmt.Errorf("ending recording: %w", err)
	}
	return nil
}

func (s *Sim) recordState(ctx context.Context, l driver.VehicleLog) {
	st := core.StateFromSnapshot(l.VehicleID, s.frame, l.Input, l.Vehicle)
	st.SimTime = s.curTime
	st.Time = s.startTime.Add(time.Duration(s.curTime * float64(time.Second)))
	st.State = string(l.State)
	if err := s.backend.RecordVehicleState(&st); err != nil {
		s.recordFailed(ctx, "state", err)
	}
}

// recordFailed counts a failed write and warns once per operation.
func (s *Sim) recordFailed(ctx context.Context, op string, err error) {
	s.metrics.RecordError(ctx, op)
	if s.recordErrs[op] {
		s.logger.Debug("recording failed", "op", op, "error", err)
		return
	}
	s.recordErrs[op] = true
	s.logger.Warn("recording failed", "op", op, "error", err)
}
