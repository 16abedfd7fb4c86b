// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_ComposeLayout(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	plan, err := Plan(&cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"docker-compose.yml",
		"trino/etc/jvm.config",
		"trino/etc/config.properties",
		"trino/etc/node.properties",
		"trino/etc/log.properties",
		"trino/etc/catalog/lakehouse.properties",
		"scripts/setup-buckets.sh",
		"scripts/verify.sh",
	}, plan.Paths())

	for _, a := range plan.Artifacts {
		assert.NotEmpty(t, a.Content, "artifact %s rendered empty", a.RelPath)
	}
}

func TestPlan_ComposeScriptsExecutable(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	plan, err := Plan(&cfg)
	require.NoError(t, err)

	for _, a := range plan.Artifacts {
		if a.Kind == ContentScript {
			assert.Equal(t, uint32(0o755), a.Mode, "script %s", a.RelPath)
		} else {
			assert.Equal(t, uint32(0o644), a.Mode, "artifact %s", a.RelPath)
		}
	}
}

func TestPlan_KustomizeLayout(t *testing.T) {
	cfg := DefaultConfig(ModeKustomize)
	cfg.Environments = DefaultEnvironments("trino-production")
	plan, err := Plan(&cfg)
	require.NoError(t, err)

	paths := plan.Paths()
	assert.Contains(t, paths, "base/kustomization.yaml")
	assert.Contains(t, paths, "base/minio/deployment.yaml")
	assert.Contains(t, paths, "base/trino/configmap.yaml")
	assert.Contains(t, paths, "overlays/production/kustomization.yaml")
	assert.Contains(t, paths, "overlays/production/argocd-application.yaml")
	assert.Contains(t, paths, "overlays/development/trino-catalog-configmap.yaml")
	assert.Contains(t, paths, "scripts/setup-buckets.sh")
	assert.Contains(t, paths, "scripts/verify.sh")

	// 9 base manifests, 2 helper scripts, plus 4 files per overlay.
	assert.Len(t, paths, 11+4*len(cfg.Environments))
	assert.Contains(t, plan.Dirs, "overlays/production")
	assert.Contains(t, plan.Dirs, "overlays/development")
}

func TestPlan_ValidatesConfig(t *testing.T) {
	cfg := DefaultConfig(ModeKustomize)
	_, err := Plan(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

// Two plans of the same config must be byte-identical so re-rendering an
// unchanged environment is a no-op diff.
func TestPlan_Reproducible(t *testing.T) {
	for _, mode := range []Mode{ModeCompose, ModeKustomize} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := DefaultConfig(mode)
			if mode == ModeKustomize {
				cfg.Environments = DefaultEnvironments("trino-production")
			}
			first, err := Plan(&cfg)
			require.NoError(t, err)
			second, err := Plan(&cfg)
			require.NoError(t, err)

			assert.Equal(t, first.Dirs, second.Dirs)
			require.Equal(t, len(first.Artifacts), len(second.Artifacts))
			for i := range first.Artifacts {
				assert.Equal(t, first.Artifacts[i], second.Artifacts[i])
			}
		})
	}
}

func TestCheckCollisions(t *testing.T) {
	plan := &LayoutPlan{Artifacts: []Artifact{
		{RelPath: "a/b.yaml"},
		{RelPath: "a//b.yaml"},
	}}
	err := checkCollisions(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathCollision)
}

func TestRender_UnknownKind(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	_, err := Render(ArtifactKind("bogus"), &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownArtifact)

	_, err = RenderForEnv(KindComposeFile, &cfg, Environment{Name: "x", Namespace: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownArtifact)
}
