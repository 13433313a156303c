/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package workflow

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event is an entry of the worker's log catalog. Every log line the runner
// writes is one of these, tagged with event.id and event.name.
type Event struct {
	ID      int
	Name    string
	Level   zapcore.Level
	Message string
}

var (
	EventExecuteStarting   = Event{1, "ExecuteStarting", zapcore.InfoLevel, "Worker starting"}
	EventExecuteFinished   = Event{2, "ExecuteFinished", zapcore.InfoLevel, "Worker finished"}
	EventExecuteError      = Event{3, "ExecuteError", zapcore.ErrorLevel, "Error running demo"}
	EventCreateDatabase    = Event{1001, "CreateDatabase", zapcore.InfoLevel, "Created database"}
	EventDeleteDatabase    = Event{1002, "DeleteDatabase", zapcore.InfoLevel, "Deleted database"}
	EventCreateContainer   = Event{2001, "CreateContainer", zapcore.InfoLevel, "Created container"}
	EventDeleteContainer   = Event{2002, "DeleteContainer", zapcore.InfoLevel, "Deleted container"}
	EventItemAlreadyExists = Event{3001, "ItemAlreadyExists", zapcore.InfoLevel, "Item already exists"}
	EventItemCreated       = Event{3002, "ItemCreated", zapcore.InfoLevel, "Created item"}
	EventRunningQuery      = Event{4001, "RunningQuery", zapcore.InfoLevel, "Running query"}
	EventReadFamily        = Event{4002, "ReadFamily", zapcore.InfoLevel, "Read family"}
	EventUpdateFamily      = Event{5001, "UpdateFamily", zapcore.InfoLevel, "Updated family"}
	EventDeleteFamily      = Event{6001, "DeleteFamily", zapcore.InfoLevel, "Deleted family"}
)

// Events lists the catalog in id order.
func Events() []Event {
	return []Event{
		EventExecuteStarting, EventExecuteFinished, EventExecuteError,
		EventCreateDatabase, EventDeleteDatabase,
		EventCreateContainer, EventDeleteContainer,
		EventItemAlreadyExists, EventItemCreated,
		EventRunningQuery, EventReadFamily,
		EventUpdateFamily,
		EventDeleteFamily,
	}
}

// Fields returns the event.id and event.name fields.
func (e Event) Fields() []zap.Field {
	return []zap.Field{zap.Int("event.id", e.ID), zap.String("event.name", e.Name)}
}

func (r *Runner) log(ctx context.Context, e Event, fields ...zap.Field) {
	fields = append(e.Fields(), fields...)
	switch e.Level {
	case zapcore.ErrorLevel:
		r.logger.Error(ctx, e.Message, fields...)
	case zapcore.WarnLevel:
		r.logger.Warn(ctx, e.Message, fields...)
	case zapcore.DebugLevel:
		r.logger.Debug(ctx, e.Message, fields...)
	default:
		r.logger.Info(ctx, e.Message, fields...)
	}
}
