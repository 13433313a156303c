/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"time"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/logging"
	"github.com/suparena/familystore/storagemodels"
	"github.com/suparena/familystore/telemetry"
)

// Config is the complete configuration of the family worker.
type Config struct {
	Store     StoreConfig      `koanf:"store"`
	Workflow  WorkflowConfig   `koanf:"workflow"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Logging   logging.Config   `koanf:"logging"`
}

// StoreConfig selects and configures the document store driver.
type StoreConfig struct {
	Driver           string                    `koanf:"driver"`
	ConnectionString string                    `koanf:"connection_string"`
	Options          familystore.DriverOptions `koanf:"options"`
}

// WorkflowConfig names the resources the workflow creates.
type WorkflowConfig struct {
	DatabaseID       string `koanf:"database_id"`
	ContainerID      string `koanf:"container_id"`
	PartitionKeyPath string `koanf:"partition_key_path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "dynamodb",
			Options: familystore.DriverOptions{
				Region:         "us-east-1",
				ConsistentRead: true,
			},
		},
		Workflow: WorkflowConfig{
			DatabaseID:       "db",
			ContainerID:      "items",
			PartitionKeyPath: "/LastName",
		},
		Telemetry: *telemetry.NewDefaultConfig(),
		Logging:   *logging.NewDefaultConfig(),
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Store.Driver == "" {
		return fmt.Errorf("store.driver is required")
	}
	if c.Store.Options.PageSize < 0 {
		return fmt.Errorf("store.options.page_size must not be negative, got %d", c.Store.Options.PageSize)
	}
	if c.Store.Options.RequestTimeout < 0 {
		return fmt.Errorf("store.options.request_timeout must not be negative")
	}
	if c.Store.Options.RequestTimeout > 0 && c.Store.Options.RequestTimeout < 10*time.Millisecond {
		return fmt.Errorf("store.options.request_timeout %v is too small", c.Store.Options.RequestTimeout)
	}

	if c.Workflow.DatabaseID == "" {
		return fmt.Errorf("workflow.database_id is required")
	}
	if c.Workflow.ContainerID == "" {
		return fmt.Errorf("workflow.container_id is required")
	}
	if _, err := storagemodels.PartitionKeyAttribute(c.Workflow.PartitionKeyPath); err != nil {
		return fmt.Errorf("workflow.partition_key_path: %w", err)
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Logging.Output.OTEL && !(c.Telemetry.Enabled && c.Telemetry.Logs.Enabled) {
		return fmt.Errorf("logging.output.otel requires telemetry.enabled and telemetry.logs.enabled")
	}
	return nil
}
