// Package metrics publishes simulation counters through the global
// OpenTelemetry meter provider. Without an installed SDK every instrument is
// a no-op.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/cxd309/vds-engine/internal/metrics"

// Recorder holds the simulation instruments. A nil *Recorder records
// nothing.
type Recorder struct {
	steps        metric.Int64Counter
	stepDuration metric.Float64Histogram
	events       metric.Int64Counter
	recordErrors metric.Int64Counter
}

// New builds a Recorder on the global meter provider.
func New() (*Recorder, error) {
	return NewWithMeter(otel.Meter(instrumentationName))
}

// NewWithMeter builds a Recorder on m.
func NewWithMeter(m metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	r.steps, err = m.Int64Counter(
		"vds.steps",
		metric.WithDescription("Simulation steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	r.stepDuration, err = m.Float64Histogram(
		"vds.step.duration",
		metric.WithDescription("Wall-clock time spent stepping all vehicles once"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}

	r.events, err = m.Int64Counter(
		"vds.vehicle.events",
		metric.WithDescription("Vehicle transitions such as landings and drift starts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	r.recordErrors, err = m.Int64Counter(
		"vds.record.errors",
		metric.WithDescription("Failed writes to the telemetry backend"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating record errors counter: %w", err)
	}

	return r, nil
}

// Step records one engine step over vehicles vehicles.
func (r *Recorder) Step(ctx context.Context, d time.Duration, vehicles int) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("vehicles", vehicles))
	r.steps.Add(ctx, 1, attrs)
	r.stepDuration.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
}

// Event counts a vehicle transition.
func (r *Recorder) Event(ctx context.Context, name string) {
	if r == nil {
		return
	}
	r.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
}

// RecordError counts a failed backend write.
func (r *Recorder) RecordError(ctx context.Context, op string) {
	if r == nil {
		return
	}
	r.recordErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
