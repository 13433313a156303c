/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package workflow

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap/zapcore"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/datastore/memory"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/logging"
	"github.com/suparena/familystore/storagemodels"
	"github.com/suparena/familystore/telemetry"
)

type harness struct {
	store  *memory.Client
	tel    *telemetry.TestTelemetry
	sink   *telemetry.RecordingSink
	logs   *logging.TestLogger
	runner *Runner
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store: memory.New(),
		tel:   telemetry.NewTestTelemetry(),
		logs:  logging.NewTestLogger(),
	}
	h.sink = telemetry.NewRecordingSink(h.tel)
	h.runner = New(h.store, h.sink, h.logs.Logger, opts...)
	return h
}

// prepare runs the steps that create the database, the container and the seeds.
func (h *harness) prepare(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := h.runner.createDatabase(ctx)
	require.NoError(t, err)
	_, err = h.runner.createContainer(ctx)
	require.NoError(t, err)
	_, err = h.runner.addItems(ctx)
	require.NoError(t, err)
}

func (h *harness) eventCount(e Event) int {
	return len(h.logs.FilterField("event.id", int64(e.ID)))
}

func TestRunDemoEndToEnd(t *testing.T) {
	h := newHarness(t)

	h.runner.RunDemo(context.Background())

	assert.Empty(t, h.sink.Exceptions())
	assert.Equal(t, 1, h.sink.Flushes())
	assert.Equal(t, -1, h.store.Count("db", "items"), "container is gone")
	assert.False(t, h.store.DatabaseExists("db"))

	for _, e := range []Event{
		EventExecuteStarting, EventCreateDatabase, EventCreateContainer,
		EventRunningQuery, EventReadFamily, EventUpdateFamily, EventDeleteFamily,
		EventDeleteContainer, EventDeleteDatabase, EventExecuteFinished,
	} {
		assert.Equal(t, 1, h.eventCount(e), e.Name)
	}
	assert.Equal(t, 2, h.eventCount(EventItemCreated))
	assert.Zero(t, h.eventCount(EventItemAlreadyExists))
	assert.Zero(t, h.eventCount(EventExecuteError))

	h.logs.AssertField(t, EventItemCreated.Message, "request_charge", memory.WriteCharge)
	h.logs.AssertField(t, EventItemCreated.Message, "event.name", "ItemCreated")
	h.logs.AssertField(t, EventRunningQuery.Message, "query", "SELECT * FROM c WHERE c.LastName = 'Andersen'")
	h.logs.AssertTraceCorrelation(t, EventItemCreated.Message)

	root := h.tel.SpanByName("Worker")
	require.NotNil(t, root)
	runID, ok := telemetry.SpanAttribute(root, "run.id")
	require.True(t, ok)
	h.logs.AssertField(t, EventExecuteStarting.Message, "run.id", runID)

	for _, name := range []string{
		"CreateDatabaseAsync", "CreateDatabaseAsync.CreateDatabaseIfNotExistsAsync",
		"CreateContainerAsync", "CreateContainerAsync.CreateContainerIfNotExistsAsync",
		"AddItemsToContainerAsync", "AddItemsToContainerAsync.ReadItemAsync", "AddItemsToContainerAsync.CreateItemAsync",
		"QueryItemsAsync", "QueryItemsAsync.GetItemQueryIterator", "QueryItemsAsync.ReadNextAsync",
		"ReplaceFamilyItemAsync", "ReplaceFamilyItemAsync.ReadItemAsync", "ReplaceFamilyItemAsync.ReplaceItemAsync",
		"DeleteFamilyItemAsync", "DeleteFamilyItemAsync.DeleteItemAsync",
		"DeleteDatabaseAndCleanupAsync", "DeleteDatabaseAndCleanupAsync.DeleteContainerAsync",
	} {
		h.tel.AssertSpanExists(t, name)
	}

	step := h.tel.SpanByName("AddItemsToContainerAsync")
	call := h.tel.SpanByName("AddItemsToContainerAsync.CreateItemAsync")
	assert.Equal(t, root.SpanContext().SpanID(), step.Parent().SpanID())
	assert.Equal(t, step.SpanContext().SpanID(), call.Parent().SpanID())
	h.tel.AssertSpanAttribute(t, "AddItemsToContainerAsync.CreateItemAsync", "FamilyMemberId", "Andersen.1")
	h.tel.AssertSpanAttribute(t, "AddItemsToContainerAsync.CreateItemAsync", "PartitionKey", "Andersen")
	h.tel.AssertSpanAttribute(t, "AddItemsToContainerAsync.CreateItemAsync", "store.request_charge", memory.WriteCharge)
	h.tel.AssertSpanAttribute(t, "QueryItemsAsync.GetItemQueryIterator", "Query", "SELECT * FROM c WHERE c.LastName = 'Andersen'")

	// The first read of a fresh store misses; its diagnostics are still attached.
	h.tel.AssertSpanAttribute(t, "AddItemsToContainerAsync.ReadItemAsync", "store.status_code", int64(404))
	assert.Equal(t, codes.Unset, step.Status().Code, "a missing seed does not fail the step")
}

func TestRunDemoTwiceIsSelfCleaning(t *testing.T) {
	h := newHarness(t)

	h.runner.RunDemo(context.Background())
	h.runner.RunDemo(context.Background())

	assert.Empty(t, h.sink.Exceptions())
	assert.Equal(t, 2, h.sink.Flushes())
	assert.Equal(t, 4, h.eventCount(EventItemCreated))
	assert.False(t, h.store.DatabaseExists("db"))
}

func TestEnsureExistsTwice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.runner.createDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	outcome, err = h.runner.createContainer(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	outcome, err = h.runner.createDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)
	outcome, err = h.runner.createContainer(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)

	outcomes, err := h.runner.addItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeCreated, OutcomeCreated}, outcomes)

	outcomes, err = h.runner.addItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeAlreadyExists, OutcomeAlreadyExists}, outcomes)

	assert.Equal(t, 2, h.store.Calls(memory.OpCreateItem), "no duplicate write")
	assert.Equal(t, 2, h.store.Count("db", "items"))
	assert.Equal(t, 2, h.eventCount(EventItemAlreadyExists))
	h.logs.AssertField(t, EventCreateDatabase.Message, "outcome", "AlreadyExists")
}

func TestQueryDrainsAllPages(t *testing.T) {
	extra := storagemodels.Family{ID: "Andersen.2", LastName: "Andersen"}

	tests := []struct {
		name      string
		seeds     []storagemodels.Family
		wantIDs   []string
		wantPages int
	}{
		{
			name:      "single match",
			seeds:     DefaultSeeds(),
			wantIDs:   []string{"Andersen.1"},
			wantPages: 1,
		},
		{
			name:      "one record per page",
			seeds:     append([]storagemodels.Family{DefaultSeeds()[0], extra}, DefaultSeeds()[1]),
			wantIDs:   []string{"Andersen.1", "Andersen.2"},
			wantPages: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, WithSeeds(tt.seeds), WithQueryPageSize(1))
			h.prepare(t)

			families, err := h.runner.queryItems(context.Background())
			require.NoError(t, err)

			ids := make([]string, len(families))
			for i, f := range families {
				ids[i] = f.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantPages, h.store.Calls(memory.OpQueryPage))
			assert.Equal(t, len(tt.wantIDs), h.eventCount(EventReadFamily))
		})
	}
}

func TestReplaceTwice(t *testing.T) {
	h := newHarness(t)
	h.prepare(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		updated, err := h.runner.replaceFamilyItem(ctx)
		require.NoError(t, err)
		assert.True(t, updated.IsRegistered)
	}

	var stored storagemodels.Family
	_, err := h.runner.container.ReadItem(ctx, "Wakefield.7", "Wakefield", &stored)
	require.NoError(t, err)
	assert.True(t, stored.IsRegistered)
	require.Len(t, stored.Children, 2)
	assert.Equal(t, 6, stored.Children[0].Grade)
	assert.Equal(t, 1, stored.Children[1].Grade)
	assert.Equal(t, 2, h.eventCount(EventUpdateFamily))
}

func TestDeleteThenRead(t *testing.T) {
	h := newHarness(t)
	h.prepare(t)
	ctx := context.Background()

	require.NoError(t, h.runner.deleteFamilyItem(ctx))

	var stored storagemodels.Family
	_, err := h.runner.container.ReadItem(ctx, "Wakefield.7", "Wakefield", &stored)
	assert.True(t, errors.IsNotFound(err))

	err = h.runner.deleteFamilyItem(ctx)
	assert.True(t, errors.IsNotFound(err), "a second delete is not special-cased")
}

func TestFatalErrorStopsRun(t *testing.T) {
	throttled := errors.NewStoreError(errors.ErrThrottled, "TooManyRequests", "request rate is large")

	tests := []struct {
		failing   memory.Op
		failSpan  string
		notCalled []memory.Op
	}{
		{memory.OpCreateDatabase, "CreateDatabaseAsync", []memory.Op{memory.OpCreateContainer}},
		{memory.OpCreateContainer, "CreateContainerAsync", []memory.Op{memory.OpReadItem}},
		{memory.OpReadItem, "AddItemsToContainerAsync", []memory.Op{memory.OpCreateItem, memory.OpQueryPage}},
		{memory.OpCreateItem, "AddItemsToContainerAsync", []memory.Op{memory.OpQueryPage}},
		{memory.OpQueryPage, "QueryItemsAsync", []memory.Op{memory.OpReplaceItem}},
		{memory.OpReplaceItem, "ReplaceFamilyItemAsync", []memory.Op{memory.OpDeleteItem}},
		{memory.OpDeleteItem, "DeleteFamilyItemAsync", []memory.Op{memory.OpDeleteContainer}},
		{memory.OpDeleteContainer, "DeleteDatabaseAndCleanupAsync", []memory.Op{memory.OpListContainers}},
		{memory.OpListContainers, "DeleteDatabaseAndCleanupAsync", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.failing), func(t *testing.T) {
			h := newHarness(t)
			h.store.WithError(tt.failing, throttled)

			h.runner.RunDemo(context.Background())

			require.Len(t, h.sink.Exceptions(), 1)
			assert.True(t, errors.IsThrottled(h.sink.Exceptions()[0]))
			assert.Equal(t, 1, h.sink.Flushes(), "flush happens after a failure")
			assert.Equal(t, 1, h.eventCount(EventExecuteError))
			assert.Equal(t, 1, h.eventCount(EventExecuteFinished))
			assert.Zero(t, h.eventCount(EventDeleteDatabase))
			h.logs.AssertLogged(t, zapcore.ErrorLevel, EventExecuteError.Message)

			for _, op := range tt.notCalled {
				assert.Zero(t, h.store.Calls(op), "%s ran after the failure", op)
			}

			span := h.tel.SpanByName(tt.failSpan)
			require.NotNil(t, span)
			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, codes.Error, h.tel.SpanByName("Worker").Status().Code)
		})
	}
}

func TestFailedCallCarriesDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.store.WithError(memory.OpReplaceItem, errors.NewStoreError(errors.ErrThrottled, "TooManyRequests", "slow down"))

	h.runner.RunDemo(context.Background())

	h.tel.AssertSpanAttribute(t, "ReplaceFamilyItemAsync.ReplaceItemAsync", "store.status_code", int64(429))
	_, ok := datastore.DiagnosticsFromError(h.sink.Exceptions()[0])
	assert.True(t, ok)
}

type panickingClient struct {
	datastore.Client
}

func (panickingClient) CreateDatabaseIfNotExists(context.Context, string) (*datastore.DatabaseResponse, error) {
	panic("connection pool corrupted")
}

func TestPanicIsRecovered(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	sink := telemetry.NewRecordingSink(tel)
	logs := logging.NewTestLogger()
	runner := New(panickingClient{memory.New()}, sink, logs.Logger)

	assert.NotPanics(t, func() { runner.RunDemo(context.Background()) })

	require.Len(t, sink.Exceptions(), 1)
	var pe *PanicError
	require.True(t, stderrors.As(sink.Exceptions()[0], &pe))
	assert.Equal(t, "connection pool corrupted", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, 1, sink.Flushes())

	for _, name := range []string{"CreateDatabaseAsync.CreateDatabaseIfNotExistsAsync", "CreateDatabaseAsync", "Worker"} {
		span := tel.SpanByName(name)
		require.NotNil(t, span, name)
		assert.Equal(t, codes.Error, span.Status().Code, name)
	}
	call := tel.SpanByName("CreateDatabaseAsync.CreateDatabaseIfNotExistsAsync")
	require.NotEmpty(t, call.Events())
	assert.Equal(t, "exception", call.Events()[0].Name)
	assert.Nil(t, tel.SpanByName("CreateContainerAsync"), "no step runs after the panic")
}

func TestCancelledContextDoesNotInterruptRun(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.runner.RunDemo(ctx)

	assert.Empty(t, h.sink.Exceptions())
	assert.False(t, h.store.DatabaseExists("db"))
}

func TestCustomResourceNames(t *testing.T) {
	h := newHarness(t, WithDatabaseID("familydb"), WithContainerID("families"))
	h.prepare(t)

	assert.Equal(t, 2, h.store.Count("familydb", "families"))
	assert.Equal(t, -1, h.store.Count("db", "items"))
}

func TestInvalidPartitionKeyPathFailsRun(t *testing.T) {
	h := newHarness(t, WithPartitionKeyPath("/Address/City"))

	h.runner.RunDemo(context.Background())

	require.Len(t, h.sink.Exceptions(), 1)
	assert.True(t, errors.IsValidationError(h.sink.Exceptions()[0]))
	assert.Zero(t, h.store.Calls(memory.OpCreateContainer))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "Created", OutcomeCreated.String())
	assert.Equal(t, "AlreadyExists", OutcomeAlreadyExists.String())
	assert.Equal(t, "Failed", OutcomeFailed.String())
}
