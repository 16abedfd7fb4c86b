// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lakestack-io/lakestack/pkg/ux"
)

// runVerify checks each service once and reports the result.
func runVerify(cmd *cobra.Command, args []string) {
	ctrl := buildController(buildStackConfig(""), resolveWorkDir())

	ux.Title("verifying services")
	if err := ctrl.Verify(context.Background()); err != nil {
		fatal(err)
	}
	ux.Success("all services healthy")
}
