// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lakestack-io/lakestack/pkg/ux"
)

// runDown stops the stack, optionally removing its volumes.
func runDown(cmd *cobra.Command, args []string) {
	lock := acquireLock()
	defer lock.Release()

	workDir := resolveWorkDir()
	ctrl := buildController(buildStackConfig(""), workDir)

	if downVolumes {
		ux.Warning("removing named volumes: all lake data will be deleted")
	}

	if err := ctrl.Down(context.Background(), downVolumes); err != nil {
		fatal(err)
	}
}

// runDestroy tears down containers, volumes, and the environment
// directory. Prompts unless --yes.
func runDestroy(cmd *cobra.Command, args []string) {
	lock := acquireLock()
	defer lock.Release()

	workDir := resolveWorkDir()

	if !destroyYes {
		ux.Warning(fmt.Sprintf("this deletes all containers, volumes, and %s", workDir))
		fmt.Print("Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			ux.Info("aborted")
			return
		}
	}

	ctrl := buildController(buildStackConfig(""), workDir)
	if err := ctrl.Destroy(context.Background()); err != nil {
		fatal(err)
	}
}
