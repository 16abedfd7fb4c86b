// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global LakestackConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable. The first
// run creates ~/.lakestack/lakestack.yaml with defaults.
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find the user's home directory: %w", err)
	}
	configPath := filepath.Join(home, ".lakestack", "lakestack.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read the config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &Global); err != nil {
		return fmt.Errorf("failed to parse the config into the Global singleton: %w", err)
	}
	applyFallbacks(&Global)
	return nil
}

// applyFallbacks fills fields a hand-edited config may have blanked.
func applyFallbacks(cfg *LakestackConfig) {
	defaults := DefaultConfig()
	if cfg.Runtime.Binary == "" {
		cfg.Runtime.Binary = defaults.Runtime.Binary
		cfg.Runtime.ComposeArgs = defaults.Runtime.ComposeArgs
	}
	if cfg.Runtime.StartupTimeoutSeconds <= 0 {
		cfg.Runtime.StartupTimeoutSeconds = defaults.Runtime.StartupTimeoutSeconds
	}
	if cfg.Stack.WorkDir == "" {
		cfg.Stack.WorkDir = defaults.Stack.WorkDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandWorkDir resolves the configured work directory, expanding a
// leading ~ against the user's home.
func ExpandWorkDir(workDir string) (string, error) {
	if len(workDir) > 0 && workDir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not expand %q: %w", workDir, err)
		}
		return filepath.Join(home, workDir[1:]), nil
	}
	return workDir, nil
}
