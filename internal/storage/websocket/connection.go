package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	controlQueue = 1024
	stateQueue   = 4096
	ackQueue     = 16
	maxRedials   = 8
	maxBackoff   = 15 * time.Second
	writeWait    = 5 * time.Second
	ackTimeout   = 10 * time.Second
)

var (
	ErrClosed       = errors.New("websocket stream closed")
	ErrStateDropped = errors.New("state queue full, vehicle state dropped")
)

type frameKind int

const (
	frameState   frameKind = iota // dropped when the state queue is full
	frameControl                  // events and run boundaries, never dropped
	frameSession                  // control frames replayed after a reconnect
	frameBoundary                 // end_run; queued states are written first
)

type frame struct {
	data []byte
	kind frameKind
}

// link owns one server connection. A single pump goroutine does every
// write, draining control frames ahead of vehicle states, and redials when
// the connection breaks.
type link struct {
	url         string
	redialDelay time.Duration
	logger      *slog.Logger
	dialer      *ws.Dialer

	control chan frame
	states  chan frame
	acks    chan AckMessage
	done    chan struct{} // closed by close
	stopped chan struct{} // closed when the pump exits

	mu       sync.Mutex
	closed   bool
	session  [][]byte // start_run then add_vehicle frames of the open run
	dropped  uint64
	closeErr error
}

func newLink(rawURL, secret string, redialDelay time.Duration, logger *slog.Logger) (*link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	return &link{
		url:         u.String(),
		redialDelay: redialDelay,
		logger:      logger,
		dialer:      &ws.Dialer{HandshakeTimeout: writeWait},
		control:     make(chan frame, controlQueue),
		states:      make(chan frame, stateQueue),
		acks:        make(chan AckMessage, ackQueue),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}, nil
}

func (l *link) dial() (*ws.Conn, error) {
	conn, _, err := l.dialer.Dial(l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// open dials once and starts the pump.
func (l *link) open() error {
	conn, err := l.dial()
	if err != nil {
		return err
	}
	go l.pump(conn)
	return nil
}

func (l *link) pump(conn *ws.Conn) {
	defer close(l.stopped)
	readErr := l.read(conn)

	for {
		var f frame
		select {
		case f = <-l.control:
		default:
			select {
			case <-l.done:
				l.hangUp(conn)
				return
			case err := <-readErr:
				if conn, readErr = l.redial(conn, err, nil); conn == nil {
					return
				}
				continue
			case f = <-l.control:
			case f = <-l.states:
			}
		}

		if f.kind == frameBoundary {
			l.drainStates(conn)
		}
		if err := writeText(conn, f.data); err != nil {
			var pending *frame
			if f.kind == frameControl || f.kind == frameBoundary {
				pending = &f
			}
			if conn, readErr = l.redial(conn, err, pending); conn == nil {
				return
			}
		}
	}
}

// drainStates writes every queued state, stopping at the first write error.
func (l *link) drainStates(conn *ws.Conn) {
	for {
		select {
		case f := <-l.states:
			if writeText(conn, f.data) != nil {
				return
			}
		default:
			return
		}
	}
}

// read forwards acks until the connection fails, then reports the error
// once on the returned channel.
func (l *link) read(conn *ws.Conn) <-chan error {
	errc := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errc <- err
				return
			}
			var ack AckMessage
			if json.Unmarshal(msg, &ack) != nil || ack.Type != "ack" {
				l.logger.Debug("ignoring server message", "raw", string(msg))
				continue
			}
			select {
			case l.acks <- ack:
			default:
				l.logger.Debug("ack queue full, dropping", "for", ack.For, "seq", ack.Seq)
			}
		}
	}()
	return errc
}

// redial replaces a broken connection, replaying the open run's session
// frames and then pending. It returns a nil connection once the link is
// closed or the redial budget is spent.
func (l *link) redial(conn *ws.Conn, cause error, pending *frame) (*ws.Conn, <-chan error) {
	_ = conn.Close()
	l.logger.Warn("websocket connection lost", "error", cause)

	delay := l.redialDelay
	for attempt := 1; attempt <= maxRedials; attempt++ {
		select {
		case <-l.done:
			return nil, nil
		case <-time.After(delay):
		}

		next, err := l.dial()
		if err == nil {
			if err = l.replay(next, pending); err != nil {
				_ = next.Close()
			}
		}
		if err != nil {
			l.logger.Warn("websocket redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, maxBackoff)
			continue
		}
		l.logger.Info("websocket reconnected", "attempt", attempt)
		return next, l.read(next)
	}

	l.logger.Error("websocket redial budget spent, stream stopped", "attempts", maxRedials)
	return nil, nil
}

func (l *link) replay(conn *ws.Conn, pending *frame) error {
	l.mu.Lock()
	session := append([][]byte(nil), l.session...)
	l.mu.Unlock()

	for _, data := range session {
		if err := writeText(conn, data); err != nil {
			return err
		}
	}
	if pending != nil {
		return writeText(conn, pending.data)
	}
	return nil
}

func (l *link) hangUp(conn *ws.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "recorder closed"))
	l.closeErr = conn.Close()
}

func writeText(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// enqueue hands f to the pump. Vehicle states never block: they are
// counted and dropped when their queue is full. Control frames wait for
// room.
func (l *link) enqueue(f frame) error {
	select {
	case <-l.stopped:
		return ErrClosed
	default:
	}

	if f.kind == frameState {
		select {
		case l.states <- f:
			return nil
		default:
			l.mu.Lock()
			l.dropped++
			l.mu.Unlock()
			return ErrStateDropped
		}
	}

	if f.kind == frameSession {
		l.mu.Lock()
		l.session = append(l.session, f.data)
		l.mu.Unlock()
	}
	select {
	case l.control <- f:
		return nil
	case <-l.stopped:
		return ErrClosed
	}
}

// request enqueues f and waits for the ack carrying its run and seq.
func (l *link) request(f frame, run uint, seq uint64, timeout time.Duration) error {
	if err := l.enqueue(f); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.Run == run && ack.Seq == seq {
				return nil
			}
			l.logger.Debug("ignoring stale ack", "for", ack.For, "run", ack.Run, "seq", ack.Seq)
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of run %d seq %d", run, seq)
		case <-l.stopped:
			return fmt.Errorf("%w while waiting for ack of run %d seq %d", ErrClosed, run, seq)
		}
	}
}

// resetSession forgets the replay frames of the previous run.
func (l *link) resetSession() {
	l.mu.Lock()
	l.session = nil
	l.mu.Unlock()
}

func (l *link) droppedStates() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// close stops the pump, which sends a close frame on its way out.
func (l *link) close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()

	select {
	case <-l.stopped:
		return l.closeErr
	case <-time.After(2 * writeWait):
		return errors.New("websocket pump did not stop")
	}
}
