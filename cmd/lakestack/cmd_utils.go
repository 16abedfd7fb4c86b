// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lakestack-io/lakestack/cmd/lakestack/config"
	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/compose"
	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/health"
	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/process"
	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/scaffold"
	"github.com/lakestack-io/lakestack/pkg/logging"
	"github.com/lakestack-io/lakestack/pkg/ux"
)

// appLogger is the process-wide diagnostics logger, set by initRuntime.
var appLogger *logging.Logger

// initRuntime loads the user config and builds the logger. Runs once
// via the root command's PersistentPreRun.
func initRuntime() {
	if err := config.Load(); err != nil {
		fatal(fmt.Errorf("load configuration: %w", err))
	}

	appLogger = logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Global.Logging.Level),
		LogDir:  config.Global.Logging.Dir,
		Service: "lakestack",
		JSON:    config.Global.Logging.JSON,
	})
}

// fatal prints the error and exits non-zero.
func fatal(err error) {
	ux.Error(err.Error())
	os.Exit(1)
}

// resolveWorkDir picks the compose environment directory: --dir flag
// first, then the configured default.
func resolveWorkDir() string {
	return resolveModeDir("compose")
}

// resolveModeDir resolves the environment root and appends the
// per-mode subdirectory, so compose and kustomize output never mix.
func resolveModeDir(sub string) string {
	dir := workDirFlag
	if dir == "" {
		dir = config.Global.Stack.WorkDir
	}
	expanded, err := config.ExpandWorkDir(dir)
	if err != nil {
		fatal(fmt.Errorf("resolve environment directory: %w", err))
	}
	return filepath.Join(expanded, sub)
}

// buildStackConfig assembles the scaffold config from user config plus
// the selected memory profile.
func buildStackConfig(profile string) *scaffold.StackConfig {
	stack := scaffold.DefaultConfig(scaffold.ModeCompose)

	if config.Global.Stack.AccessKey != "" {
		stack.Credentials.AccessKey = config.Global.Stack.AccessKey
	}
	if config.Global.Stack.SecretKey != "" {
		stack.Credentials.SecretKey = config.Global.Stack.SecretKey
	}
	if config.Global.Stack.TrinoHeap != "" {
		stack.Memory.TrinoHeap = config.Global.Stack.TrinoHeap
	}
	if config.Global.Stack.Warehouse != "" {
		stack.Warehouse = config.Global.Stack.Warehouse
	}

	if err := applyProfile(&stack, profile); err != nil {
		fatal(err)
	}
	return &stack
}

// applyProfile sizes the query engine for the host.
func applyProfile(stack *scaffold.StackConfig, profile string) error {
	switch profile {
	case "", "standard":
		// Defaults already sized for 16GB hosts.
	case "low":
		stack.Memory = scaffold.MemoryLimits{
			TrinoHeap:             "1G",
			QueryMaxMemory:        "512MB",
			QueryMaxMemoryPerNode: "256MB",
		}
	case "performance":
		stack.Memory = scaffold.MemoryLimits{
			TrinoHeap:             "8G",
			QueryMaxMemory:        "4GB",
			QueryMaxMemoryPerNode: "2GB",
		}
	default:
		return fmt.Errorf("unknown profile %q: expected 'low', 'standard', or 'performance'", profile)
	}
	return nil
}

// buildController wires the default controller for the resolved
// environment directory.
func buildController(stack *scaffold.StackConfig, workDir string) *DefaultEnvController {
	exec, err := compose.NewDefaultExecutor(compose.Config{
		Binary:      config.Global.Runtime.Binary,
		ComposeArgs: config.Global.Runtime.ComposeArgs,
		ProjectDir:  workDir,
	}, process.NewDefaultManager())
	if err != nil {
		fatal(fmt.Errorf("initialize compose executor: %w", err))
	}

	checker := health.NewDefaultChecker(exec, health.DefaultConfig())

	ctrl, err := NewDefaultEnvController(stack, workDir, exec, checker, appLogger)
	if err != nil {
		fatal(err)
	}
	return ctrl
}

// acquireLock takes the advisory process lock; mutating commands call
// this so concurrent invocations cannot interleave.
func acquireLock() *process.Lock {
	lock := process.NewLock(process.DefaultLockConfig())
	if err := lock.Acquire(); err != nil {
		fatal(err)
	}
	return lock
}

// parseRenderEnvs turns --envs name[=namespace] pairs into scaffold
// environments. Empty input yields the defaults for baseNS.
func parseRenderEnvs(pairs []string, baseNS string) ([]scaffold.Environment, error) {
	if len(pairs) == 0 {
		return scaffold.DefaultEnvironments(baseNS), nil
	}

	envs := make([]scaffold.Environment, 0, len(pairs))
	for _, pair := range pairs {
		name, ns, found := strings.Cut(pair, "=")
		if !found {
			ns = baseNS + "-" + name
		}
		if name == "" || ns == "" {
			return nil, fmt.Errorf("invalid environment %q: expected name[=namespace]", pair)
		}
		envs = append(envs, scaffold.Environment{Name: name, Namespace: ns})
	}
	return envs, nil
}
