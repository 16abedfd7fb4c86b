// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"fmt"
	"path"
)

const (
	fileModeRegular = 0o644
	fileModeScript  = 0o755
)

// Plan renders every artifact for the configured mode and arranges them
// into a directory layout.
//
// # Description
//
//	Validates the config, renders all artifact content up front, and
//	returns the complete layout. Nothing is written to disk; the caller
//	hands the plan to Materialize. Because rendering is pure, calling
//	Plan twice with the same config yields byte-identical plans.
//
// # Inputs
//   - cfg: stack configuration. Validated here; callers do not need to
//     call Validate first.
//
// # Outputs
//   - *LayoutPlan: directories plus fully rendered artifacts.
//   - error: validation errors, render errors, or ErrPathCollision if
//     two artifacts map to the same relative path.
func Plan(cfg *StackConfig) (*LayoutPlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		plan *LayoutPlan
		err  error
	)
	switch cfg.Mode {
	case ModeCompose:
		plan, err = planCompose(cfg)
	case ModeKustomize:
		plan, err = planKustomize(cfg)
	default:
		return nil, fmt.Errorf("plan: unsupported mode %q: %w", cfg.Mode, ErrMissingRequiredField)
	}
	if err != nil {
		return nil, err
	}

	if err := checkCollisions(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func planCompose(cfg *StackConfig) (*LayoutPlan, error) {
	type entry struct {
		kind    ArtifactKind
		relPath string
		content ContentKind
		mode    uint32
	}
	entries := []entry{
		{KindComposeFile, "docker-compose.yml", ContentCompose, fileModeRegular},
		{KindTrinoJVMConfig, "trino/etc/jvm.config", ContentProperties, fileModeRegular},
		{KindTrinoConfig, "trino/etc/config.properties", ContentProperties, fileModeRegular},
		{KindTrinoNode, "trino/etc/node.properties", ContentProperties, fileModeRegular},
		{KindTrinoLog, "trino/etc/log.properties", ContentProperties, fileModeRegular},
		{KindTrinoCatalog, "trino/etc/catalog/lakehouse.properties", ContentProperties, fileModeRegular},
		{KindBucketSetupScript, "scripts/setup-buckets.sh", ContentScript, fileModeScript},
		{KindVerifyScript, "scripts/verify.sh", ContentScript, fileModeScript},
	}

	plan := &LayoutPlan{
		Dirs: []string{
			"trino",
			"trino/etc",
			"trino/etc/catalog",
			"scripts",
		},
	}
	for _, e := range entries {
		content, err := Render(e.kind, cfg)
		if err != nil {
			return nil, err
		}
		plan.Artifacts = append(plan.Artifacts, Artifact{
			RelPath: e.relPath,
			Content: content,
			Kind:    e.content,
			Mode:    e.mode,
		})
	}
	return plan, nil
}

func planKustomize(cfg *StackConfig) (*LayoutPlan, error) {
	type entry struct {
		kind    ArtifactKind
		relPath string
	}
	baseEntries := []entry{
		{KindBaseKustomization, "base/kustomization.yaml"},
		{KindMinIODeployment, "base/minio/deployment.yaml"},
		{KindMinIOService, "base/minio/service.yaml"},
		{KindMinIOPVC, "base/minio/pvc.yaml"},
		{KindNessieDeployment, "base/nessie/deployment.yaml"},
		{KindNessieService, "base/nessie/service.yaml"},
		{KindTrinoDeployment, "base/trino/deployment.yaml"},
		{KindTrinoService, "base/trino/service.yaml"},
		{KindTrinoConfigMap, "base/trino/configmap.yaml"},
	}
	overlayEntries := []entry{
		{KindOverlayKustomization, "kustomization.yaml"},
		{KindNamespaceManifest, "namespace.yaml"},
		{KindTrinoCatalogConfigMap, "trino-catalog-configmap.yaml"},
		{KindArgoApplication, "argocd-application.yaml"},
	}
	// Helper scripts assume port-forwarded services on localhost.
	scriptEntries := []struct {
		kind    ArtifactKind
		relPath string
	}{
		{KindBucketSetupScript, "scripts/setup-buckets.sh"},
		{KindVerifyScript, "scripts/verify.sh"},
	}

	plan := &LayoutPlan{
		Dirs: []string{
			"base",
			"base/minio",
			"base/nessie",
			"base/trino",
			"overlays",
			"scripts",
		},
	}
	for _, e := range baseEntries {
		content, err := Render(e.kind, cfg)
		if err != nil {
			return nil, err
		}
		plan.Artifacts = append(plan.Artifacts, Artifact{
			RelPath: e.relPath,
			Content: content,
			Kind:    ContentManifest,
			Mode:    fileModeRegular,
		})
	}
	for _, e := range scriptEntries {
		content, err := Render(e.kind, cfg)
		if err != nil {
			return nil, err
		}
		plan.Artifacts = append(plan.Artifacts, Artifact{
			RelPath: e.relPath,
			Content: content,
			Kind:    ContentScript,
			Mode:    fileModeScript,
		})
	}
	for _, env := range cfg.Environments {
		plan.Dirs = append(plan.Dirs, path.Join("overlays", env.Name))
		for _, e := range overlayEntries {
			content, err := RenderForEnv(e.kind, cfg, env)
			if err != nil {
				return nil, err
			}
			plan.Artifacts = append(plan.Artifacts, Artifact{
				RelPath: path.Join("overlays", env.Name, e.relPath),
				Content: content,
				Kind:    ContentManifest,
				Mode:    fileModeRegular,
			})
		}
	}
	return plan, nil
}

func checkCollisions(plan *LayoutPlan) error {
	seen := make(map[string]struct{}, len(plan.Artifacts))
	for _, a := range plan.Artifacts {
		clean := path.Clean(a.RelPath)
		if _, dup := seen[clean]; dup {
			return fmt.Errorf("artifact path %q: %w", clean, ErrPathCollision)
		}
		seen[clean] = struct{}{}
	}
	return nil
}
