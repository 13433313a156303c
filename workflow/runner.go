/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/logging"
	"github.com/suparena/familystore/storagemodels"
	"github.com/suparena/familystore/telemetry"
)

const rootOperation = "Worker"

// Outcome is the result of an ensure-exists step.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeAlreadyExists
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "Created"
	case OutcomeAlreadyExists:
		return "AlreadyExists"
	default:
		return "Failed"
	}
}

// PanicError is a panic recovered while a step was running.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected fault: %v", e.Value)
}

// asPanicError keeps the stack of the innermost recovery.
func asPanicError(p any) *PanicError {
	if pe, ok := p.(*PanicError); ok {
		return pe
	}
	return &PanicError{Value: p, Stack: debug.Stack()}
}

type options struct {
	databaseID       string
	containerID      string
	partitionKeyPath string
	queryPageSize    int32
	seeds            []storagemodels.Family
}

// Option configures a Runner.
type Option func(*options)

func WithDatabaseID(id string) Option {
	return func(o *options) { o.databaseID = id }
}

func WithContainerID(id string) Option {
	return func(o *options) { o.containerID = id }
}

func WithPartitionKeyPath(path string) Option {
	return func(o *options) { o.partitionKeyPath = path }
}

// WithQueryPageSize caps the records per query page. Zero leaves it to the store.
func WithQueryPageSize(n int32) Option {
	return func(o *options) { o.queryPageSize = n }
}

// WithSeeds replaces the seed records. The first one is the query target,
// the last one is updated and deleted.
func WithSeeds(seeds []storagemodels.Family) Option {
	return func(o *options) { o.seeds = seeds }
}

// Runner executes the demonstration workflow once per RunDemo call.
// A Runner is not safe for concurrent use.
type Runner struct {
	client datastore.Client
	sink   telemetry.Sink
	logger *logging.Logger
	opts   options

	pkAttr    string
	database  datastore.Database
	container datastore.Container
}

// New creates a runner over client, reporting to sink and logger.
func New(client datastore.Client, sink telemetry.Sink, logger *logging.Logger, opts ...Option) *Runner {
	o := options{
		databaseID:       "db",
		containerID:      "items",
		partitionKeyPath: "/LastName",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seeds == nil {
		o.seeds = DefaultSeeds()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{client: client, sink: sink, logger: logger, opts: o}
}

// RunDemo runs every step in order and stops at the first failure, which is
// tracked as an exception and logged. Cancelling ctx does not interrupt a
// run in progress. Telemetry is flushed before RunDemo returns.
func (r *Runner) RunDemo(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	r.log(ctx, EventExecuteStarting, zap.Stringer("time", strfmt.DateTime(time.Now().UTC())))

	rootCtx, root := r.sink.StartOperation(ctx, rootOperation)
	root.SetProperty("run.id", runID)
	if err := r.runSteps(rootCtx); err != nil {
		r.sink.TrackException(rootCtx, err)
		r.log(rootCtx, EventExecuteError, zap.Error(err))
	}
	root.End()

	r.log(ctx, EventExecuteFinished, zap.Stringer("time", strfmt.DateTime(time.Now().UTC())))

	if err := r.sink.Flush(ctx); err != nil {
		r.logger.Warn(ctx, "Telemetry flush failed", zap.Error(err))
	}
}

func (r *Runner) runSteps(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = asPanicError(p)
		}
	}()

	steps := []func(context.Context) error{
		func(ctx context.Context) error { _, err := r.createDatabase(ctx); return err },
		func(ctx context.Context) error { _, err := r.createContainer(ctx); return err },
		func(ctx context.Context) error { _, err := r.addItems(ctx); return err },
		func(ctx context.Context) error { _, err := r.queryItems(ctx); return err },
		func(ctx context.Context) error { _, err := r.replaceFamilyItem(ctx); return err },
		r.deleteFamilyItem,
		func(ctx context.Context) error { _, err := r.deleteContainerAndCleanup(ctx); return err },
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// trace runs fn inside an operation named name. A returned error or a panic
// fails the operation before it ends; the panic continues as a *PanicError.
func (r *Runner) trace(ctx context.Context, name string, fn func(ctx context.Context, op *telemetry.Operation) error) error {
	ctx, op := r.sink.StartOperation(ctx, name)
	defer op.End()
	defer func() {
		if p := recover(); p != nil {
			pe := asPanicError(p)
			op.Fail(pe)
			panic(pe)
		}
	}()
	if err := fn(ctx, op); err != nil {
		op.Fail(err)
		return err
	}
	return nil
}
