// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakestack-io/lakestack/pkg/ux"
)

// runStatus prints the lifecycle state and a per-service breakdown.
func runStatus(cmd *cobra.Command, args []string) {
	ctrl := buildController(buildStackConfig(""), resolveWorkDir())

	status, err := ctrl.Status(context.Background())
	if err != nil {
		fatal(err)
	}

	ux.Title(fmt.Sprintf("stack: %s", status.State))

	if status.State == StateAbsent {
		ux.Muted("no services running; start with: lakestack up")
		return
	}

	for _, svc := range status.Services {
		detail := svc.State
		if svc.Healthy != nil {
			if *svc.Healthy {
				detail += ", healthy"
			} else {
				detail += ", unhealthy"
			}
		}
		if svc.State == "exited" {
			detail += fmt.Sprintf(" (exit %d)", svc.ExitCode)
		}
		running := svc.State == "running" && (svc.Healthy == nil || *svc.Healthy)
		ux.ServiceStatus(svc.Name, running, detail)
	}
}
