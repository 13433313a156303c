// Package telemetry provides OpenTelemetry instrumentation for the family
// worker.
//
// Telemetry owns a TracerProvider and a MeterProvider exporting over OTLP
// (gRPC or HTTP/protobuf). Root spans are sampled either adaptively, with at
// most sampling.max_traces_per_second traces started per second, or at a
// fixed percentage. Child spans always follow their parent.
//
// The workflow reports through the Sink interface:
//
//	ctx, op := sink.StartOperation(ctx, "AddItemsToContainerAsync.ReadItemAsync")
//	defer op.End()
//	op.SetProperty("FamilyMemberId", id)
//	resp, err := container.ReadItem(ctx, id, pk, &family)
//	if err != nil {
//	    op.Fail(err)
//	    return err
//	}
//	op.AttachDiagnostics(resp.Diagnostics)
//
// When a run is over, the host calls Drain, which flushes, waits
// drain_delay for background export, and shuts the providers down.
//
// Tests use TestTelemetry and RecordingSink, which keep spans and metrics
// in memory.
package telemetry
