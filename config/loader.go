/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FAMILYSTORE_"
	// FileEnv names the variable holding the optional YAML file path.
	FileEnv = "FAMILYSTORE_CONFIG"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load builds the configuration from, lowest to highest precedence:
//  1. Default()
//  2. the YAML file named by FAMILYSTORE_CONFIG, if set
//  3. envFile (a .env file; skipped when it does not exist). Variables
//     already present in the environment are not overridden.
//  4. FAMILYSTORE_* environment variables
//
// Environment variables map to keys by dropping the prefix and lowering the
// rest. Underscores may stand for any nesting level as long as the name
// matches exactly one field; a double underscore always separates levels and
// is required for map entries such as logging.fields:
//
//	FAMILYSTORE_STORE_DRIVER                  -> store.driver
//	FAMILYSTORE_STORE_OPTIONS_PAGE_SIZE       -> store.options.page_size
//	FAMILYSTORE_TELEMETRY__SAMPLING__ADAPTIVE -> telemetry.sampling.adaptive
//	FAMILYSTORE_LOGGING__FIELDS__TEAM         -> logging.fields.team
//
// A prefixed variable that names no field is an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	mapper := newEnvMapper()
	if err := k.Load(env.Provider(EnvPrefix, ".", mapper.key), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if unknown := mapper.unknownVars(); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown configuration variables: %s", strings.Join(unknown, ", "))
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config file %s is not a regular file", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
