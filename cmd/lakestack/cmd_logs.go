// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// runLogs streams service logs. Ctrl+C stops a follow cleanly.
func runLogs(cmd *cobra.Command, args []string) {
	ctrl := buildController(buildStackConfig(""), resolveWorkDir())

	ctx := context.Background()
	if logsFollow {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	if err := ctrl.Logs(ctx, args, logsFollow, logsTail); err != nil && ctx.Err() == nil {
		fatal(err)
	}
}
