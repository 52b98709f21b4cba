package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewWithMeter(t *testing.T) {
	r, err := NewWithMeter(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, r)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.Step(ctx, 3*time.Millisecond, 2)
		r.Event(ctx, "landed")
		r.RecordError(ctx, "state")
	})
}

func TestNew_GlobalProvider(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.Step(ctx, time.Millisecond, 1)
		r.Event(ctx, "drift_start")
		r.RecordError(ctx, "event")
	})
}
