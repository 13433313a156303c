// Package workflow runs the family store demonstration: it ensures a database
// and container exist, seeds two family records, queries one partition,
// replaces and deletes a record, then removes the container.
//
// Every step and every store call runs inside a telemetry operation, and every
// log line comes from the Event catalog so it can be filtered by event.id.
//
//	runner := workflow.New(client, sink, logger, workflow.WithDatabaseID("db"))
//	runner.RunDemo(ctx)
//
// RunDemo never returns an error. The first failure stops the run, is tracked
// as an exception and logged as ExecuteError.
package workflow
