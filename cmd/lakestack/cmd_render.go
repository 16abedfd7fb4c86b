// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/scaffold"
	"github.com/lakestack-io/lakestack/pkg/ux"
)

// runRenderCompose writes the compose environment to disk without
// touching the container engine.
func runRenderCompose(cmd *cobra.Command, args []string) {
	workDir := resolveWorkDir()
	stack := buildStackConfig(profileFlag)

	ux.Title("rendering compose environment")
	if err := render(stack, workDir); err != nil {
		fatal(err)
	}
	ux.Success(fmt.Sprintf("compose environment written to %s", workDir))
	ux.Muted("start it with: lakestack up")
}

// runRenderKustomize writes the base+overlay tree and Argo CD
// applications for cluster deployment.
func runRenderKustomize(cmd *cobra.Command, args []string) {
	workDir := resolveModeDir("kustomize")

	stack := scaffold.DefaultConfig(scaffold.ModeKustomize)
	envs, err := parseRenderEnvs(renderEnvs, renderNS)
	if err != nil {
		fatal(err)
	}
	stack.Environments = envs

	ux.Title("rendering kustomize tree")
	if err := render(&stack, workDir); err != nil {
		fatal(err)
	}
	ux.Success(fmt.Sprintf("kustomize tree written to %s", workDir))
	for _, env := range envs {
		ux.Muted(fmt.Sprintf("  overlay %q -> namespace %q", env.Name, env.Namespace))
	}
	ux.Muted("apply with: kubectl apply -k overlays/<env>")
}

// render plans the layout and materializes it under rootDir.
func render(stack *scaffold.StackConfig, rootDir string) error {
	plan, err := scaffold.Plan(stack)
	if err != nil {
		return fmt.Errorf("plan layout: %w", err)
	}
	if err := scaffold.Materialize(plan, rootDir, appLogger.Slog()); err != nil {
		return fmt.Errorf("materialize layout: %w", err)
	}
	return nil
}
