// Package logging wires the runner's structured logs: slog for the engine
// and drivers, zerolog for the storage managers, both writing to the same
// sinks.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// SlogManager owns the log sinks and the loggers built on them.
type SlogManager struct {
	logger  *slog.Logger
	level   slog.Level
	writers []io.Writer
	gelf    *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{level: slog.LevelInfo}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Logs go to file, or to stdout when
// file is nil, and additionally to a GELF endpoint when graylogAddr is set.
func (m *SlogManager) Setup(file io.Writer, level, graylogAddr string) error {
	m.level = parseLevel(level)

	handlerOpts := &slog.HandlerOptions{
		Level: m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	out := file
	if out == nil {
		out = os.Stdout
	}
	m.writers = []io.Writer{out}
	handlers := []slog.Handler{slog.NewTextHandler(out, handlerOpts)}

	if graylogAddr != "" {
		gw, err := gelf.NewWriter(graylogAddr)
		if err != nil {
			return fmt.Errorf("connecting to graylog at %s: %w", graylogAddr, err)
		}
		m.gelf = gw
		handlers = append(handlers, slog.NewJSONHandler(gw, handlerOpts))
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", m.level.String())
	return nil
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog.Logger writing console-formatted lines to the
// same sinks at the same level.
func (m *SlogManager) Zerolog() zerolog.Logger {
	writers := m.writers
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	console := make([]io.Writer, 0, len(writers)+1)
	for _, w := range writers {
		console = append(console, zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true})
	}
	if m.gelf != nil {
		console = append(console, m.gelf)
	}
	return zerolog.New(zerolog.MultiLevelWriter(console...)).
		Level(zerologLevel(m.level)).
		With().Timestamp().Logger()
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Close releases the GELF connection, if any.
func (m *SlogManager) Close() error {
	if m.gelf != nil {
		return m.gelf.Close()
	}
	return nil
}
