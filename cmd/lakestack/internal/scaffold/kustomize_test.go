// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgoApplication_TargetsOverlayNamespace(t *testing.T) {
	app := argoApplication(Environment{Name: "production", Namespace: "trino-production"})

	assert.Equal(t, "lakestack-production", app.Metadata.Name)
	assert.Equal(t, "argocd", app.Metadata.Namespace)
	assert.Equal(t, "trino-production", app.Spec.Destination.Namespace)
	assert.Equal(t, "overlays/production", app.Spec.Source.Path)
}

func TestArgoApplication_AutomatedSync(t *testing.T) {
	app := argoApplication(Environment{Name: "development", Namespace: "trino-dev"})

	assert.True(t, app.Spec.SyncPolicy.Automated.Prune)
	assert.True(t, app.Spec.SyncPolicy.Automated.SelfHeal)
	assert.Contains(t, app.Spec.SyncPolicy.SyncOptions, "CreateNamespace=true")
}

func TestBaseKustomization_ListsAllManifests(t *testing.T) {
	k := baseKustomization()
	assert.Empty(t, k.Namespace)
	assert.Len(t, k.Resources, 8)
	assert.Contains(t, k.Resources, "minio/pvc.yaml")
	assert.Contains(t, k.Resources, "trino/configmap.yaml")
}

func TestOverlayKustomization_PinsNamespace(t *testing.T) {
	k := overlayKustomization(Environment{Name: "production", Namespace: "trino-production"})
	assert.Equal(t, "trino-production", k.Namespace)
	assert.Contains(t, k.Resources, "../../base")
	assert.Contains(t, k.Resources, "namespace.yaml")
	assert.Contains(t, k.Resources, "trino-catalog-configmap.yaml")

	// The Application must stay out of the overlay build: the namespace
	// transformer would move it out of the argocd namespace and it would
	// sync a path containing itself.
	assert.NotContains(t, k.Resources, "argocd-application.yaml")
}

func TestBucketSetupScript(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	script := string(bucketSetupScript(&cfg))

	require.True(t, strings.HasPrefix(script, "#!/usr/bin/env bash"))
	assert.Contains(t, script, `BUCKET="warehouse"`)
	assert.Contains(t, script, "mc mb --ignore-existing")
	assert.Contains(t, script, "http://localhost:9000")
}

func TestVerifyScript_ProbesAllServices(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	script := string(verifyScript(&cfg))

	assert.Contains(t, script, "http://localhost:9000/minio/health/live")
	assert.Contains(t, script, "http://localhost:19120/api/v2/config")
	assert.Contains(t, script, "http://localhost:8080/v1/info")
}
