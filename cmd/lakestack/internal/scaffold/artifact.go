// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

// ArtifactKind identifies one template in the catalog.
type ArtifactKind string

const (
	// Compose mode artifacts.
	KindComposeFile    ArtifactKind = "compose-file"
	KindTrinoJVMConfig ArtifactKind = "trino-jvm-config"
	KindTrinoConfig    ArtifactKind = "trino-config"
	KindTrinoNode      ArtifactKind = "trino-node"
	KindTrinoLog       ArtifactKind = "trino-log"
	KindTrinoCatalog   ArtifactKind = "trino-catalog"

	// Kustomize base artifacts.
	KindMinIODeployment   ArtifactKind = "minio-deployment"
	KindMinIOService      ArtifactKind = "minio-service"
	KindMinIOPVC          ArtifactKind = "minio-pvc"
	KindNessieDeployment  ArtifactKind = "nessie-deployment"
	KindNessieService     ArtifactKind = "nessie-service"
	KindTrinoDeployment   ArtifactKind = "trino-deployment"
	KindTrinoService      ArtifactKind = "trino-service"
	KindTrinoConfigMap    ArtifactKind = "trino-configmap"
	KindBaseKustomization ArtifactKind = "base-kustomization"

	// Kustomize per-environment artifacts.
	KindTrinoCatalogConfigMap ArtifactKind = "trino-catalog-configmap"
	KindOverlayKustomization  ArtifactKind = "overlay-kustomization"
	KindNamespaceManifest     ArtifactKind = "namespace-manifest"
	KindArgoApplication       ArtifactKind = "argocd-application"

	// Generated helper scripts (kustomize mode).
	KindBucketSetupScript ArtifactKind = "bucket-setup-script"
	KindVerifyScript      ArtifactKind = "verify-script"
)

// ContentKind classifies an artifact's format for reporting.
type ContentKind string

const (
	ContentManifest   ContentKind = "manifest"
	ContentCompose    ContentKind = "compose-service"
	ContentProperties ContentKind = "properties-file"
	ContentScript     ContentKind = "script"
)

// Artifact is one generated file: a relative path and its full content.
// Artifacts are immutable once created; the materializer consumes them
// exactly once.
type Artifact struct {
	// RelPath is the path relative to the plan root. Always uses forward
	// slashes and never escapes the root.
	RelPath string

	// Content is the complete file body.
	Content []byte

	// Kind classifies the content format.
	Kind ContentKind

	// Mode is the file permission to write with. Scripts get 0755,
	// everything else 0644.
	Mode uint32
}

// LayoutPlan is the ordered artifact set for one mode plus the directory
// tree that must exist before writing. Ordering is for readability of
// logs only; no artifact depends on another's prior existence.
type LayoutPlan struct {
	// Dirs lists relative directories in creation order (parents first).
	Dirs []string

	// Artifacts lists every file to write.
	Artifacts []Artifact
}

// Paths returns the relative path of every planned artifact, in order.
func (p *LayoutPlan) Paths() []string {
	out := make([]string, 0, len(p.Artifacts))
	for _, a := range p.Artifacts {
		out = append(out, a.RelPath)
	}
	return out
}
