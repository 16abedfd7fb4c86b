// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import "fmt"

// =============================================================================
// Kustomization records
// =============================================================================

// Kustomization is the subset of the kustomize.config.k8s.io/v1beta1
// Kustomization schema this generator emits.
type Kustomization struct {
	APIVersion string   `json:"apiVersion"`
	Kind       string   `json:"kind"`
	Namespace  string   `json:"namespace,omitempty"`
	Resources  []string `json:"resources"`
}

func baseKustomization() *Kustomization {
	return &Kustomization{
		APIVersion: "kustomize.config.k8s.io/v1beta1",
		Kind:       "Kustomization",
		Resources: []string{
			"minio/deployment.yaml",
			"minio/service.yaml",
			"minio/pvc.yaml",
			"nessie/deployment.yaml",
			"nessie/service.yaml",
			"trino/deployment.yaml",
			"trino/service.yaml",
			"trino/configmap.yaml",
		},
	}
}

// overlayKustomization pins every rendered object to the overlay namespace
// and layers the namespace manifest plus the environment-specific catalog
// ConfigMap on top of the base.
//
// argocd-application.yaml lives in the same directory but is NOT a
// resource here: the namespace transformer would rewrite the Application
// into the overlay namespace, where Argo CD never looks, and the
// Application would sync a path containing itself. It is applied
// separately, once, against the argocd namespace.
func overlayKustomization(env Environment) *Kustomization {
	return &Kustomization{
		APIVersion: "kustomize.config.k8s.io/v1beta1",
		Kind:       "Kustomization",
		Namespace:  env.Namespace,
		Resources: []string{
			"../../base",
			"namespace.yaml",
			"trino-catalog-configmap.yaml",
		},
	}
}

// =============================================================================
// Argo CD Application
// =============================================================================

// ArgoApplication models the argoproj.io/v1alpha1 Application fields the
// generator fills in. A typed record keeps the output stable without pulling
// the full Argo CD API module in as a dependency.
type ArgoApplication struct {
	APIVersion string              `json:"apiVersion"`
	Kind       string              `json:"kind"`
	Metadata   ArgoObjectMeta      `json:"metadata"`
	Spec       ArgoApplicationSpec `json:"spec"`
}

type ArgoObjectMeta struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type ArgoApplicationSpec struct {
	Project     string          `json:"project"`
	Source      ArgoSource      `json:"source"`
	Destination ArgoDestination `json:"destination"`
	SyncPolicy  ArgoSyncPolicy  `json:"syncPolicy"`
}

type ArgoSource struct {
	RepoURL        string `json:"repoURL"`
	Path           string `json:"path"`
	TargetRevision string `json:"targetRevision"`
}

type ArgoDestination struct {
	Server    string `json:"server"`
	Namespace string `json:"namespace"`
}

type ArgoSyncPolicy struct {
	Automated   ArgoSyncAutomated `json:"automated"`
	SyncOptions []string          `json:"syncOptions"`
}

type ArgoSyncAutomated struct {
	Prune    bool `json:"prune"`
	SelfHeal bool `json:"selfHeal"`
}

// argoApplication renders one Application per overlay. The repo URL and
// revision are placeholders the operator replaces after committing the
// rendered tree; everything else is final.
func argoApplication(env Environment) *ArgoApplication {
	return &ArgoApplication{
		APIVersion: "argoproj.io/v1alpha1",
		Kind:       "Application",
		Metadata: ArgoObjectMeta{
			Name:      fmt.Sprintf("lakestack-%s", env.Name),
			Namespace: "argocd",
		},
		Spec: ArgoApplicationSpec{
			Project: "default",
			Source: ArgoSource{
				RepoURL:        "https://github.com/CHANGE-ME/lakestack-deploy.git",
				Path:           fmt.Sprintf("overlays/%s", env.Name),
				TargetRevision: "HEAD",
			},
			Destination: ArgoDestination{
				Server:    "https://kubernetes.default.svc",
				Namespace: env.Namespace,
			},
			SyncPolicy: ArgoSyncPolicy{
				Automated: ArgoSyncAutomated{
					Prune:    true,
					SelfHeal: true,
				},
				SyncOptions: []string{"CreateNamespace=true"},
			},
		},
	}
}

// =============================================================================
// Helper scripts
// =============================================================================

// bucketSetupScript provisions the warehouse bucket once the object store
// is reachable. It prefers the mc client inside the container and falls
// back to the raw S3 API via curl when mc is absent.
func bucketSetupScript(cfg *StackConfig) []byte {
	hostEndpoint := fmt.Sprintf("http://localhost:%d", MinIOPort)
	script := fmt.Sprintf(`#!/usr/bin/env bash
# Creates the warehouse bucket in the object store. Safe to re-run.
set -euo pipefail

ENDPOINT="${MINIO_ENDPOINT:-%s}"
ACCESS_KEY="${MINIO_ACCESS_KEY:-%s}"
SECRET_KEY="${MINIO_SECRET_KEY:-%s}"
BUCKET="%s"

if command -v mc >/dev/null 2>&1; then
    mc alias set lakestack "${ENDPOINT}" "${ACCESS_KEY}" "${SECRET_KEY}"
    mc mb --ignore-existing "lakestack/${BUCKET}"
    echo "bucket ${BUCKET} ready"
    exit 0
fi

echo "mc not found; attempting docker exec into the object store container" >&2
docker exec %s sh -c "mc alias set local http://localhost:%d '${ACCESS_KEY}' '${SECRET_KEY}' && mc mb --ignore-existing local/${BUCKET}" \
    || { echo "bucket provisioning failed" >&2; exit 1; }
echo "bucket ${BUCKET} ready"
`, hostEndpoint, cfg.Credentials.AccessKey, cfg.Credentials.SecretKey, cfg.Warehouse, ServiceMinIO, MinIOPort)
	return []byte(script)
}

// verifyScript probes all three services from the host so operators can
// re-check an environment without the CLI.
func verifyScript(cfg *StackConfig) []byte {
	script := fmt.Sprintf(`#!/usr/bin/env bash
# Probes object store, catalog, and query engine health endpoints.
set -uo pipefail

fail=0

check() {
    local name="$1" url="$2"
    if curl -fsS --max-time 5 "${url}" >/dev/null; then
        echo "ok      ${name}"
    else
        echo "FAILED  ${name} (${url})" >&2
        fail=1
    fi
}

check minio  "http://localhost:%d/minio/health/live"
check nessie "http://localhost:%d/api/v2/config"
check trino  "http://localhost:%d/v1/info"

if [ "${fail}" -ne 0 ]; then
    exit 1
fi
echo "all services healthy"
`, MinIOPort, NessiePort, TrinoPort)
	return []byte(script)
}
