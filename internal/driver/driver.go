// Package driver defines the vehicle entries of a scenario and the Driver
// state machine that turns a scripted program or a route into per-step input.
package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cxd309/vds-engine/internal/dynamics"
	"github.com/cxd309/vds-engine/internal/kinematics"
	"github.com/cxd309/vds-engine/internal/route"
	"github.com/cxd309/vds-engine/internal/terrain"
	"github.com/cxd309/vds-engine/internal/tire"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

// VehicleID is a unique string identifier for a vehicle in a scenario.
type VehicleID = string

// State describes where a driver is in its lifecycle.
type State string

const (
	StateWaiting  State = "waiting"
	StateDriving  State = "driving"
	StateFinished State = "finished"
)

// ErrInvalidEntry wraps every entry validation failure.
var ErrInvalidEntry = errors.New("invalid vehicle entry")

// Spawn places a vehicle on the terrain at (X, Z), lifted Drop metres above
// its resting height.
type Spawn struct {
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"` // radians, from +Z toward +X
	Drop    float64 `json:"drop,omitempty"`
}

// Segment holds one input for Duration seconds. Gear changes apply when the
// segment starts.
type Segment struct {
	Duration  float64        `json:"duration"` // seconds
	Input     dynamics.Input `json:"input"`
	Gear      *int           `json:"gear,omitempty"` // gear table index
	ShiftUp   bool           `json:"shift_up,omitempty"`
	ShiftDown bool           `json:"shift_down,omitempty"`
}

// RoutePlan makes an autopilot entry: the vehicle follows the shortest path
// through Stops and brakes to a halt at the last one.
type RoutePlan struct {
	Stops      []route.NodeID       `json:"stops"`
	Kinematics json.RawMessage      `json:"kinematics,omitempty"`
	Follower   route.FollowerConfig `json:"follower"`
}

// Entry is the static definition of one vehicle in a scenario. Exactly one
// of Program and Route drives it; with neither it idles.
type Entry struct {
	VehicleID VehicleID       `json:"vehicle_id"`
	Preset    string          `json:"preset,omitempty"` // default "compact"
	Spec      json.RawMessage `json:"spec,omitempty"`   // overlaid on Preset
	TireCurve json.RawMessage `json:"tire_curve,omitempty"`
	// Spawn defaults to the first route stop facing the second, or the origin.
	Spawn *Spawn `json:"spawn,omitempty"`
	// StartDelay is the number of simulation seconds the vehicle waits,
	// held on the brakes, before it starts driving.
	StartDelay float64    `json:"start_delay,omitempty"`
	Program    []Segment  `json:"program,omitempty"`
	Loop       bool       `json:"loop,omitempty"` // repeat Program forever
	Route      *RoutePlan `json:"route,omitempty"`
}

// Validate checks the entry without building anything.
func (e Entry) Validate() error {
	if e.VehicleID == "" {
		return fmt.Errorf("%w: missing vehicle_id", ErrInvalidEntry)
	}
	if e.StartDelay < 0 || math.IsNaN(e.StartDelay) {
		return fmt.Errorf("%w: vehicle %q: negative start_delay", ErrInvalidEntry, e.VehicleID)
	}
	if e.Route != nil && len(e.Program) > 0 {
		return fmt.Errorf("%w: vehicle %q has both a program and a route", ErrInvalidEntry, e.VehicleID)
	}
	for i, s := range e.Program {
		if !(s.Duration > 0) {
			return fmt.Errorf("%w: vehicle %q: segment %d needs a positive duration", ErrInvalidEntry, e.VehicleID, i)
		}
	}
	return nil
}

// Driver is an Entry enriched with its live vehicle and program state.
type Driver struct {
	Entry
	State State

	vehicle  *dynamics.Vehicle
	spec     vehicle.Spec
	follower *route.Follower
	logger   *slog.Logger

	segIndex   int
	segElapsed float64
	input      dynamics.Input
	command    route.Command
	last       dynamics.Snapshot
}

// New builds the entry's vehicle on t. g is only consulted for route entries.
func New(e Entry, t terrain.Provider, g *route.Graph, logger *slog.Logger) (*Driver, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("vehicle_id", e.VehicleID)

	base := e.Preset
	if base == "" {
		base = "compact"
	}
	spec, err := vehicle.Parse(e.Spec, base)
	if err != nil {
		return nil, fmt.Errorf("vehicle %q: %w", e.VehicleID, err)
	}
	curve, err := tire.DecodeCurve(e.TireCurve, nil)
	if err != nil {
		return nil, fmt.Errorf("vehicle %q: %w", e.VehicleID, err)
	}

	d := &Driver{Entry: e, State: StateWaiting, logger: logger}
	spawn := Spawn{}
	if e.Spawn != nil {
		spawn = *e.Spawn
	}

	if e.Route != nil {
		if g == nil {
			return nil, fmt.Errorf("%w: vehicle %q has a route but the scenario has no graph", ErrInvalidEntry, e.VehicleID)
		}
		path, err := g.Plan(e.Route.Stops)
		if err != nil {
			return nil, fmt.Errorf("vehicle %q route: %w", e.VehicleID, err)
		}
		env, err := kinematics.Decode(e.Route.Kinematics)
		if err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", e.VehicleID, err)
		}
		// the follower only asks for forward speed
		spec.Transmission.Automatic = true
		d.follower = route.NewFollower(path, env, e.Route.Follower, spec.Wheels.Wheelbase, spec.Steering.MaxAngle)
		if e.Spawn == nil {
			spawn = spawnOnPath(path)
		}
	}

	pose := dynamics.SpawnPose(spec, t, spawn.X, spawn.Z, spawn.Heading, spawn.Drop)
	v, err := dynamics.New(spec, t,
		dynamics.WithPose(pose),
		dynamics.WithCurve(curve),
		dynamics.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("vehicle %q: %w", e.VehicleID, err)
	}
	d.vehicle = v
	d.spec = v.Spec()
	d.last = v.Snapshot()
	return d, nil
}

func spawnOnPath(p route.Path) Spawn {
	a, b := p.Points[0].Loc, p.Points[1].Loc
	return Spawn{X: a.X, Z: a.Z, Heading: math.Atan2(b.X-a.X, b.Z-a.Z)}
}

// Vehicle returns the driven vehicle.
func (d *Driver) Vehicle() *dynamics.Vehicle { return d.vehicle }

// Spec returns the resolved vehicle spec.
func (d *Driver) Spec() vehicle.Spec { return d.spec.Clone() }

// Step decides this step's input at simulation time now and advances the
// vehicle by dt.
func (d *Driver) Step(now, dt float64) dynamics.Snapshot {
	d.input = d.decide(now, dt)
	d.last = d.vehicle.Update(dt, d.input)
	return d.last
}

func (d *Driver) decide(now, dt float64) dynamics.Input {
	switch d.State {
	case StateWaiting:
		if now < d.StartDelay {
			return dynamics.Input{Brake: 1}
		}
		d.State = StateDriving
		d.logger.Info("vehicle departed", "t", now)
		return d.decide(now, dt)
	case StateDriving:
		if d.follower != nil {
			return d.follow(now)
		}
		return d.program(now, dt)
	default:
		if d.follower != nil {
			return dynamics.Input{Brake: 1}
		}
		return dynamics.Input{}
	}
}

func (d *Driver) follow(now float64) dynamics.Input {
	s := d.last
	d.command = d.follower.Control(route.State{
		Position: route.Coordinate{X: s.Position.X(), Z: s.Position.Z()},
		Heading:  s.Heading,
		Speed:    s.ForwardSpeed,
	})
	if d.command.Done {
		d.finish(now, "route complete")
	}
	return dynamics.Input{
		Throttle: d.command.Throttle,
		Brake:    d.command.Brake,
		Steer:    d.command.Steer,
	}
}

func (d *Driver) program(now, dt float64) dynamics.Input {
	if d.segIndex >= len(d.Program) {
		if !d.Loop || len(d.Program) == 0 {
			d.finish(now, "program finished")
			return dynamics.Input{}
		}
		d.segIndex = 0
	}
	seg := d.Program[d.segIndex]
	if d.segElapsed == 0 {
		d.enterSegment(seg)
	}
	d.segElapsed += dt
	if d.segElapsed >= seg.Duration-1e-9 {
		d.segIndex++
		d.segElapsed = 0
	}
	return seg.Input
}

func (d *Driver) enterSegment(seg Segment) {
	if seg.Gear != nil {
		if err := d.vehicle.SetGear(*seg.Gear); err != nil {
			d.logger.Warn("ignoring gear change", "segment", d.segIndex, "error", err)
		}
	}
	if seg.ShiftUp {
		d.vehicle.ShiftUp()
	}
	if seg.ShiftDown {
		d.vehicle.ShiftDown()
	}
}

func (d *Driver) finish(now float64, why string) {
	d.State = StateFinished
	d.logger.Info(why, "t", now)
}

// VehicleLog is a point-in-time snapshot of a driver and its vehicle.
type VehicleLog struct {
	VehicleID     VehicleID         `json:"vehicle_id"`
	State         State             `json:"state"`
	Segment       int               `json:"segment,omitempty"`
	RouteProgress float64           `json:"route_progress,omitempty"` // metres
	TargetSpeed   float64           `json:"target_speed,omitempty"`   // m/s
	Input         dynamics.Input    `json:"input"`
	Vehicle       dynamics.Snapshot `json:"vehicle"`
}

// GetLog returns a point-in-time snapshot of the driver state.
func (d *Driver) GetLog() VehicleLog {
	l := VehicleLog{
		VehicleID: d.VehicleID,
		State:     d.State,
		Segment:   d.segIndex,
		Input:     d.input,
		Vehicle:   d.last,
	}
	if d.follower != nil {
		l.RouteProgress = d.follower.Progress()
		l.TargetSpeed = d.command.TargetSpeed
	}
	return l
}
