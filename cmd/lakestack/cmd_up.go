// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakestack-io/lakestack/cmd/lakestack/config"
	"github.com/lakestack-io/lakestack/pkg/ux"
)

// runUp brings the whole environment up: clean, render, start, verify.
func runUp(cmd *cobra.Command, args []string) {
	lock := acquireLock()
	defer lock.Release()

	ux.Title("lakestack up")

	workDir := resolveWorkDir()
	stack := buildStackConfig(profileFlag)
	ctrl := buildController(stack, workDir)

	timeout := time.Duration(config.Global.Runtime.StartupTimeoutSeconds) * time.Second

	err := ctrl.Up(context.Background(), UpOptions{
		SkipVerify: skipVerify,
		Timeout:    timeout,
	})
	if err != nil {
		appLogger.Error("up failed", "state", string(ctrl.State()), "error", err)
		fatal(err)
	}

	ux.Success("environment ready")
}
