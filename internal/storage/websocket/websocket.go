// Package websocket streams a run live to a telemetry server. Run
// boundaries wait for a server ack; vehicles, states and events are
// fire-and-forget, and states are the only frames dropped under load.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/model/core"
)

// Backend implements storage.Backend over a WebSocket connection.
type Backend struct {
	cfg    config.WebSocketConfig
	logger *slog.Logger
	link   *link

	ackTimeout  time.Duration
	redialDelay time.Duration

	mu    sync.Mutex
	runID uint
	seq   uint64
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:         cfg,
		logger:      logger,
		ackTimeout:  ackTimeout,
		redialDelay: time.Second,
	}
}

// Init connects to the server.
func (b *Backend) Init() error {
	l, err := newLink(b.cfg.URL, b.cfg.Secret, b.redialDelay, b.logger)
	if err != nil {
		return err
	}
	if err := l.open(); err != nil {
		return err
	}
	b.link = l
	return nil
}

// Close disconnects from the server.
func (b *Backend) Close() error {
	if b.link == nil {
		return nil
	}
	return b.link.close()
}

// DroppedStates is the number of vehicle states dropped because the
// connection could not keep up.
func (b *Backend) DroppedStates() uint64 {
	if b.link == nil {
		return 0
	}
	return b.link.droppedStates()
}

// marshalEnvelope fills env's payload and encodes it.
func marshalEnvelope(env Envelope, payload any) ([]byte, error) {
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", env.Type, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	return data, nil
}

// envelope stamps msgType with the open run and the next sequence number.
func (b *Backend) envelope(msgType string, payload any) ([]byte, Envelope, error) {
	b.mu.Lock()
	b.seq++
	env := Envelope{Type: msgType, Run: b.runID, Seq: b.seq}
	b.mu.Unlock()

	data, err := marshalEnvelope(env, payload)
	return data, env, err
}

func (b *Backend) send(msgType string, payload any, kind frameKind) error {
	if b.link == nil {
		return ErrClosed
	}
	data, _, err := b.envelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.link.enqueue(frame{data: data, kind: kind})
}

func (b *Backend) currentRun() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runID
}

// StartRun numbers the run, sends it and waits for the server ack.
func (b *Backend) StartRun(run *core.Run) error {
	if b.link == nil {
		return ErrClosed
	}
	b.mu.Lock()
	b.runID++
	run.ID = b.runID
	b.mu.Unlock()

	data, env, err := b.envelope(TypeStartRun, run)
	if err != nil {
		return err
	}
	b.link.resetSession()
	return b.link.request(frame{data: data, kind: frameSession}, env.Run, env.Seq, b.ackTimeout)
}

// EndRun sends end_run and waits for the server ack.
func (b *Backend) EndRun() error {
	if b.link == nil {
		return ErrClosed
	}
	data, env, err := b.envelope(TypeEndRun, nil)
	if err != nil {
		return err
	}
	err = b.link.request(frame{data: data, kind: frameBoundary}, env.Run, env.Seq, b.ackTimeout)
	b.link.resetSession()

	if n := b.link.droppedStates(); n > 0 {
		b.logger.Warn("vehicle states dropped during run", "run", env.Run, "count", n)
	}
	return err
}

func (b *Backend) AddVehicle(v *core.Vehicle) error {
	v.RunID = b.currentRun()
	return b.send(TypeAddVehicle, v, frameSession)
}

func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	s.RunID = b.currentRun()
	return b.send(TypeVehicleState, s, frameState)
}

func (b *Backend) RecordEvent(e *core.Event) error {
	e.RunID = b.currentRun()
	return b.send(TypeEvent, e, frameControl)
}
