// Package logging provides structured logging for the family worker.
//
// Logger wraps zap with methods that take a context and add correlation
// fields from it: trace_id and span_id of the active span and the run.id of
// the workflow run.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Info(ctx, "Created Item", zap.Int("event.id", 3002))
//
// Output goes to stdout as JSON or console text, and optionally to an
// OpenTelemetry LoggerProvider through the otelzap bridge. Connection string
// secrets are masked by the redacting encoder before they reach stdout.
//
// Use TestLogger in tests:
//
//	tl := logging.NewTestLogger()
//	tl.AssertLogged(t, zapcore.InfoLevel, "Created Item")
//	tl.AssertField(t, "Created Item", "event.id", int64(3002))
package logging
