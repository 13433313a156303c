/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command familyworker runs the family store demonstration once against the
// configured document store and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/config"
	_ "github.com/suparena/familystore/datastore/ddb"
	_ "github.com/suparena/familystore/datastore/memory"
	_ "github.com/suparena/familystore/datastore/mongo"
	"github.com/suparena/familystore/logging"
	"github.com/suparena/familystore/telemetry"
	"github.com/suparena/familystore/workflow"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	envFile     = flag.String("env", ".env", "Dotenv file loaded before the environment is read")
)

func main() {
	flag.Parse()

	if *versionFlag {
		info := familystore.GetVersionInfo()
		fmt.Printf("familyworker version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		fmt.Printf("Drivers:    %s\n", strings.Join(familystore.Drivers(), ", "))
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "familyworker: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run wires configuration, telemetry, logging and the store, then runs the
// workflow. Errors are returned only for setup failures; workflow failures are
// reported through logs and telemetry.
func run(ctx context.Context) error {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	// Exporter failures leave no log provider; keep the run visible on stdout.
	lostOTEL := cfg.Logging.Output.OTEL && tel.LoggerProvider() == nil
	if lostOTEL {
		cfg.Logging.Output.Stdout = true
	}

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "Telemetry degraded, continuing without export", zap.Error(health.LastErr))
	}
	if lostOTEL {
		logger.Warn(ctx, "OTEL log output unavailable, writing logs to stdout")
	}

	client, err := familystore.Open(ctx, cfg.Store.Driver, cfg.Store.ConnectionString, cfg.Store.Options)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "Failed to close store client", zap.Error(err))
		}
	}()

	sink, err := telemetry.NewSink(tel)
	if err != nil {
		return fmt.Errorf("failed to create telemetry sink: %w", err)
	}

	runner := workflow.New(client, sink, logger.Named("worker"),
		workflow.WithDatabaseID(cfg.Workflow.DatabaseID),
		workflow.WithContainerID(cfg.Workflow.ContainerID),
		workflow.WithPartitionKeyPath(cfg.Workflow.PartitionKeyPath),
		workflow.WithQueryPageSize(cfg.Store.Options.PageSize),
	)
	runner.RunDemo(ctx)

	// The collector needs time to receive the final batch before exit.
	if err := tel.Drain(ctx); err != nil {
		logger.Warn(ctx, "Telemetry drain incomplete", zap.Error(err))
	}
	return nil
}
