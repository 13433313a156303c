/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/storagemodels"
)

const instrumentationName = "github.com/suparena/familystore/workflow"

// Sink is what the workflow runner reports to: one operation per step and
// per store call, exceptions, and a flush at the end of a run.
type Sink interface {
	StartOperation(ctx context.Context, name string) (context.Context, *Operation)
	TrackException(ctx context.Context, err error)
	Flush(ctx context.Context) error
}

// OtelSink implements Sink with OpenTelemetry spans and metrics.
type OtelSink struct {
	tel    *Telemetry
	tracer oteltrace.Tracer

	duration   metric.Float64Histogram
	charge     metric.Float64Counter
	operations metric.Int64Counter
	exceptions metric.Int64Counter
}

// NewSink creates a sink over t's providers.
func NewSink(t *Telemetry) (*OtelSink, error) {
	meter := t.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("familystore.operation.duration",
		metric.WithDescription("Duration of workflow steps and store calls"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	charge, err := meter.Float64Counter("familystore.request_units",
		metric.WithDescription("Capacity consumed by store calls"),
		metric.WithUnit("{unit}"))
	if err != nil {
		return nil, fmt.Errorf("create request unit counter: %w", err)
	}
	operations, err := meter.Int64Counter("familystore.operations",
		metric.WithDescription("Completed operations by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create operation counter: %w", err)
	}
	exceptions, err := meter.Int64Counter("familystore.exceptions",
		metric.WithDescription("Failures tracked at the top of a run"))
	if err != nil {
		return nil, fmt.Errorf("create exception counter: %w", err)
	}

	return &OtelSink{
		tel:        t,
		tracer:     t.Tracer(instrumentationName),
		duration:   duration,
		charge:     charge,
		operations: operations,
		exceptions: exceptions,
	}, nil
}

// StartOperation opens a span named name as a child of the span in ctx.
func (s *OtelSink) StartOperation(ctx context.Context, name string) (context.Context, *Operation) {
	ctx, span := s.tracer.Start(ctx, name)
	return ctx, &Operation{sink: s, ctx: ctx, span: span, name: name, start: time.Now()}
}

// TrackException records err on the span in ctx.
func (s *OtelSink) TrackException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	span.RecordError(err, oteltrace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
	s.exceptions.Add(ctx, 1, metric.WithAttributes(attribute.String("exception.type", fmt.Sprintf("%T", err))))
}

// Flush exports everything recorded so far.
func (s *OtelSink) Flush(ctx context.Context) error {
	return s.tel.ForceFlush(ctx)
}

// Operation is one traced unit of work.
type Operation struct {
	sink  *OtelSink
	ctx   context.Context
	span  oteltrace.Span
	name  string
	start time.Time

	mu     sync.Mutex
	charge float64
	failed bool
	ended  bool
}

// SetProperty adds a string attribute to the operation's span.
func (o *Operation) SetProperty(key, value string) {
	o.span.SetAttributes(attribute.String(key, value))
}

// AttachDiagnostics records the store call's diagnostics on the span.
func (o *Operation) AttachDiagnostics(d storagemodels.Diagnostics) {
	o.mu.Lock()
	o.charge += d.RequestCharge
	o.mu.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("store.diagnostics", d.String()),
		attribute.Float64("store.request_charge", d.RequestCharge),
		attribute.Int("store.status_code", d.StatusCode),
		attribute.Float64("store.latency_ms", float64(d.Latency.Microseconds())/1000),
	}
	if d.RequestID != "" {
		attrs = append(attrs, attribute.String("store.request_id", d.RequestID))
	}
	o.span.SetAttributes(attrs...)
}

// Fail marks the operation failed. Diagnostics carried by a store error are
// attached before the error is recorded.
func (o *Operation) Fail(err error) {
	if err == nil {
		return
	}
	if d, ok := datastore.DiagnosticsFromError(err); ok {
		o.AttachDiagnostics(d)
	}
	o.mu.Lock()
	o.failed = true
	o.mu.Unlock()
	o.span.RecordError(err)
	o.span.SetStatus(codes.Error, err.Error())
}

// End closes the span and records duration and consumed units. Calling End
// more than once has no effect.
func (o *Operation) End() {
	o.mu.Lock()
	if o.ended {
		o.mu.Unlock()
		return
	}
	o.ended = true
	charge, failed := o.charge, o.failed
	o.mu.Unlock()

	outcome := "success"
	if failed {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", o.name),
		attribute.String("outcome", outcome),
	)
	o.sink.duration.Record(o.ctx, float64(time.Since(o.start).Microseconds())/1000, attrs)
	o.sink.operations.Add(o.ctx, 1, attrs)
	if charge > 0 {
		o.sink.charge.Add(o.ctx, charge, metric.WithAttributes(attribute.String("operation", o.name)))
	}
	o.span.End()
}

var _ Sink = (*OtelSink)(nil)
