package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_FileAndLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(&buf, "info", ""))

	m.Logger().Debug("hidden")
	m.Logger().Info("shown", "vehicle_id", "a")

	out := buf.String()
	assert.Contains(t, out, "Logging initialized")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "vehicle_id=a")
	assert.NotContains(t, out, "hidden")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(&buf, "debug", ""))
	m.Logger().Debug("debug msg")
	assert.Contains(t, buf.String(), "debug msg")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestZerolog_SharesSinkAndLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(&buf, "warn", ""))

	zl := m.Zerolog()
	zl.Info().Msg("quiet")
	zl.Warn().Str("bucket", "vehicle_telemetry").Msg("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "bucket=vehicle_telemetry")
}

func TestSetup_Graylog(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)

	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(&buf, "info", r.Addr()))
	t.Cleanup(func() { _ = m.Close() })

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, msg.Short, "Logging initialized")
}

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h failingHandler) WithGroup(string) slog.Handler      { return h }

func TestMultiHandler_FansOutAndJoinsErrors(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		nil,
		failingHandler{},
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).With("run", "r1").WithGroup("g")

	assert.NotPanics(t, func() { log.Info("one", "k", 1) })
	assert.Contains(t, a.String(), "run=r1")
	assert.Contains(t, a.String(), "g.k=1")
	assert.Empty(t, b.String())

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "direct", 0)
	assert.ErrorContains(t, h.Handle(context.Background(), r), "sink down")
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestLogFilePath(t *testing.T) {
	start := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "vds.20240309_140507.log"), LogFilePath("logs", "vds", start))
}
