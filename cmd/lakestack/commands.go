// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/lakestack-io/lakestack/pkg/ux"
)

// --- Global Command Variables ---
var (
	workDirFlag string
	profileFlag string
	skipVerify  bool
	downVolumes bool
	destroyYes  bool
	logsFollow  bool
	logsTail    int
	renderNS    string
	renderEnvs  []string
	plainOutput bool

	rootCmd = &cobra.Command{
		Use:   "lakestack",
		Short: "Scaffold and operate a local MinIO + Nessie + Trino data lake",
		Long: `lakestack generates a reproducible data-lake environment (MinIO
object store, Nessie catalog, Trino query engine) as either a Docker
Compose working directory or a Kustomize base-and-overlays tree, and
drives the Compose lifecycle: clean, render, start, verify, report.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if plainOutput {
				ux.SetPlain(true)
			}
			initRuntime()
		},
	}

	// --- Lifecycle ---
	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Render the environment and start all services",
		Run:   runUp, // Defined in cmd_up.go
	}
	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Stop all services",
		Run:   runDown, // Defined in cmd_down.go
	}
	destroyCmd = &cobra.Command{
		Use:   "destroy",
		Short: "DANGER: stop services and delete all containers, volumes AND data",
		Run:   runDestroy, // Defined in cmd_down.go
	}

	// --- Inspection ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stack services",
		Run:   runStatus, // Defined in cmd_status.go
	}
	logsCmd = &cobra.Command{
		Use:   "logs [service...]",
		Short: "Show logs from the stack services",
		Run:   runLogs, // Defined in cmd_logs.go
	}
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Run one round of health checks against the running stack",
		Run:   runVerify, // Defined in cmd_verify.go
	}

	// --- Rendering ---
	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render environment artifacts without starting anything",
	}
	renderComposeCmd = &cobra.Command{
		Use:   "compose",
		Short: "Render the Docker Compose working directory",
		Run:   runRenderCompose, // Defined in cmd_render.go
	}
	renderKustomizeCmd = &cobra.Command{
		Use:   "kustomize",
		Short: "Render the Kustomize base + overlays tree with Argo CD applications",
		Run:   runRenderKustomize, // Defined in cmd_render.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false,
		"Disable styled terminal output")

	rootCmd.AddCommand(upCmd)
	upCmd.Flags().StringVar(&workDirFlag, "dir", "", "Environment directory (default from ~/.lakestack/lakestack.yaml)")
	upCmd.Flags().StringVar(&profileFlag, "profile", "standard", "Memory profile: 'low', 'standard', or 'performance'")
	upCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Skip the health verification phase")

	rootCmd.AddCommand(downCmd)
	downCmd.Flags().BoolVar(&downVolumes, "volumes", false, "Also remove named volumes (deletes data)")

	rootCmd.AddCommand(destroyCmd)
	destroyCmd.Flags().BoolVar(&destroyYes, "yes", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "Number of lines to show from the end of each log")

	rootCmd.AddCommand(verifyCmd)

	rootCmd.AddCommand(renderCmd)
	renderCmd.AddCommand(renderComposeCmd)
	renderComposeCmd.Flags().StringVar(&workDirFlag, "dir", "", "Target directory")
	renderComposeCmd.Flags().StringVar(&profileFlag, "profile", "standard", "Memory profile: 'low', 'standard', or 'performance'")
	renderCmd.AddCommand(renderKustomizeCmd)
	renderKustomizeCmd.Flags().StringVar(&workDirFlag, "dir", "", "Target directory")
	renderKustomizeCmd.Flags().StringVar(&renderNS, "namespace", "lakestack", "Base namespace for the overlays")
	renderKustomizeCmd.Flags().StringSliceVar(&renderEnvs, "envs", nil,
		"Overlay environments as name[=namespace] pairs (default: production,development)")
}
