/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package telemetry

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry provides in-memory telemetry for testing.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	MetricReader *sdkmetric.ManualReader
	LogRecorder  *LogRecorder
}

// NewTestTelemetry creates telemetry that records every span and metric in
// memory. Nothing is registered globally.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.DrainDelay = 0

	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	logs := NewLogRecorder()
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(logs)))

	tel := &Telemetry{config: cfg, tracerProvider: tp, meterProvider: mp, loggerProvider: lp, logProvider: lp}
	tel.healthy.Store(true)

	return &TestTelemetry{Telemetry: tel, SpanRecorder: recorder, MetricReader: reader, LogRecorder: logs}
}

// LoggedRecord is the part of an exported log record tests look at.
type LoggedRecord struct {
	Body     string
	Severity log.Severity
	TraceID  string
}

// LogRecorder is an in-memory sdklog.Exporter.
type LogRecorder struct {
	mu      sync.Mutex
	records []LoggedRecord
}

var _ sdklog.Exporter = (*LogRecorder)(nil)

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

// Export copies the records; the SDK reuses them after Export returns.
func (r *LogRecorder) Export(_ context.Context, records []sdklog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records = append(r.records, LoggedRecord{
			Body:     rec.Body().AsString(),
			Severity: rec.Severity(),
			TraceID:  rec.TraceID().String(),
		})
	}
	return nil
}

func (r *LogRecorder) Shutdown(context.Context) error   { return nil }
func (r *LogRecorder) ForceFlush(context.Context) error { return nil }

// Records returns the exported records in order.
func (r *LogRecorder) Records() []LoggedRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoggedRecord(nil), r.records...)
}

// Bodies returns the body of every exported record.
func (r *LogRecorder) Bodies() []string {
	records := r.Records()
	bodies := make([]string, len(records))
	for i, rec := range records {
		bodies[i] = rec.Body
	}
	return bodies
}

// Spans returns all ended spans.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName finds an ended span by name, or nil if not found.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	for _, span := range t.Spans() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

// SpanNames returns the names of all ended spans in end order.
func (t *TestTelemetry) SpanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name()
	}
	return names
}

// AssertSpanExists verifies a span with the given name was recorded.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) == nil {
		tb.Errorf("expected span %q not found, got: %v", name, t.SpanNames())
	}
}

// AssertSpanAttribute verifies a span has the expected attribute.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName, key string, expected interface{}) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("span %q not found", spanName)
	}
	if got, ok := SpanAttribute(span, key); !ok {
		tb.Errorf("span %q missing attribute %q", spanName, key)
	} else if got != expected {
		tb.Errorf("span %q attribute %q: got %v, want %v", spanName, key, got, expected)
	}
}

// SpanAttribute returns the value of the attribute key on span.
func SpanAttribute(span trace.ReadOnlySpan, key string) (interface{}, bool) {
	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			return attrValue(attr.Value), true
		}
	}
	return nil, false
}

func attrValue(v attribute.Value) interface{} {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}

// CollectMetrics reads the current metric state.
func (t *TestTelemetry) CollectMetrics(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.MetricReader.Collect(ctx, &rm)
	return rm, err
}

// FindMetric returns the metric named name from rm.
func FindMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// RecordingSink is an OtelSink over TestTelemetry that also remembers the
// exceptions it tracked and counts flushes.
type RecordingSink struct {
	*OtelSink

	mu         sync.Mutex
	exceptions []error
	flushes    int
}

// NewRecordingSink creates a sink recording into tt.
func NewRecordingSink(tt *TestTelemetry) *RecordingSink {
	sink, err := NewSink(tt.Telemetry)
	if err != nil {
		panic(err)
	}
	return &RecordingSink{OtelSink: sink}
}

// TrackException records err and forwards it to the span.
func (s *RecordingSink) TrackException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.exceptions = append(s.exceptions, err)
	s.mu.Unlock()
	s.OtelSink.TrackException(ctx, err)
}

// Flush counts the call and flushes the providers.
func (s *RecordingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
	return s.OtelSink.Flush(ctx)
}

// Exceptions returns the tracked exceptions in order.
func (s *RecordingSink) Exceptions() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.exceptions...)
}

// Flushes returns how many times Flush was called.
func (s *RecordingSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

var _ Sink = (*RecordingSink)(nil)
