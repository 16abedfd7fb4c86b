// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package config

// LakestackConfig is the persisted CLI configuration at
// ~/.lakestack/lakestack.yaml. Flags override these values per run.
type LakestackConfig struct {
	// Runtime selects the container tooling.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Stack carries the defaults rendered into every environment.
	Stack StackDefaults `yaml:"stack"`

	// Logging controls CLI log output.
	Logging LoggingConfig `yaml:"logging"`
}

type RuntimeConfig struct {
	// Binary is the container engine executable, e.g. "docker" or "podman".
	Binary string `yaml:"binary"`

	// ComposeArgs are prepended to every compose invocation, e.g.
	// ["compose"] for the docker plugin or nil for podman-compose.
	ComposeArgs []string `yaml:"compose_args"`

	// StartupTimeoutSeconds bounds how long `up` waits for all services
	// to report healthy.
	StartupTimeoutSeconds int `yaml:"startup_timeout_seconds"`
}

type StackDefaults struct {
	// WorkDir is where compose environments are materialized.
	// Supports ~ expansion.
	WorkDir string `yaml:"work_dir"`

	// AccessKey and SecretKey override the object-store default pair.
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`

	// TrinoHeap overrides the query-engine JVM heap, e.g. "4G".
	TrinoHeap string `yaml:"trino_heap,omitempty"`

	// Warehouse overrides the bucket name backing the lake.
	Warehouse string `yaml:"warehouse,omitempty"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Dir enables file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir,omitempty"`

	// JSON switches stderr logs to JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() LakestackConfig {
	return LakestackConfig{
		Runtime: RuntimeConfig{
			Binary:                "docker",
			ComposeArgs:           []string{"compose"},
			StartupTimeoutSeconds: 300,
		},
		Stack: StackDefaults{
			WorkDir: "~/.lakestack/environments",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
