// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import "fmt"

// Render produces the content of one environment-independent artifact.
//
// # Description
//
//	Pure dispatch from an ArtifactKind to its rendered bytes. Rendering
//	never touches the filesystem or the network, so the same config always
//	yields the same bytes. Kinds whose content depends on an overlay
//	environment must go through RenderForEnv instead.
//
// # Inputs
//   - kind: the artifact to render.
//   - cfg: validated stack configuration.
//
// # Outputs
//   - []byte: rendered file content.
//   - error: ErrUnknownArtifact for kinds this function does not handle,
//     or a marshal error from the underlying serializer.
func Render(kind ArtifactKind, cfg *StackConfig) ([]byte, error) {
	switch kind {
	case KindComposeFile:
		return renderComposeFile(cfg)
	case KindTrinoJVMConfig:
		return jvmConfig(cfg), nil
	case KindTrinoConfig:
		return serverConfig(cfg), nil
	case KindTrinoNode:
		return nodeConfig(cfg, baseNodeEnvironment), nil
	case KindTrinoLog:
		return logConfig(), nil
	case KindTrinoCatalog:
		return catalogProperties(cfg, cfg.Endpoints()), nil
	case KindMinIODeployment:
		return marshalManifest(minioDeployment(cfg))
	case KindMinIOService:
		return marshalManifest(minioService())
	case KindMinIOPVC:
		return marshalManifest(minioPVC())
	case KindNessieDeployment:
		return marshalManifest(nessieDeployment(cfg))
	case KindNessieService:
		return marshalManifest(nessieService())
	case KindTrinoDeployment:
		return marshalManifest(trinoDeployment(cfg))
	case KindTrinoService:
		return marshalManifest(trinoService())
	case KindTrinoConfigMap:
		return marshalManifest(trinoConfigMap(cfg))
	case KindBaseKustomization:
		return marshalManifest(baseKustomization())
	case KindBucketSetupScript:
		return bucketSetupScript(cfg), nil
	case KindVerifyScript:
		return verifyScript(cfg), nil
	default:
		return nil, fmt.Errorf("render %q: %w", kind, ErrUnknownArtifact)
	}
}

// RenderForEnv produces the content of one overlay-scoped artifact.
// Only the kinds whose content embeds the environment name or namespace
// live here; everything else is ErrUnknownArtifact.
func RenderForEnv(kind ArtifactKind, cfg *StackConfig, env Environment) ([]byte, error) {
	switch kind {
	case KindTrinoCatalogConfigMap:
		return marshalManifest(trinoCatalogConfigMap(cfg, env))
	case KindOverlayKustomization:
		return marshalManifest(overlayKustomization(env))
	case KindNamespaceManifest:
		return marshalManifest(namespaceManifest(env))
	case KindArgoApplication:
		return marshalManifest(argoApplication(env))
	default:
		return nil, fmt.Errorf("render %q for environment %q: %w", kind, env.Name, ErrUnknownArtifact)
	}
}
