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
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

func kustomizeConfig() StackConfig {
	cfg := DefaultConfig(ModeKustomize)
	cfg.Environments = DefaultEnvironments("trino-production")
	return cfg
}

func TestMinIODeployment_RoundTrip(t *testing.T) {
	cfg := kustomizeConfig()
	raw, err := marshalManifest(minioDeployment(&cfg))
	require.NoError(t, err)

	var dep appsv1.Deployment
	require.NoError(t, yaml.Unmarshal(raw, &dep))
	assert.Equal(t, "Deployment", dep.Kind)
	assert.Equal(t, ServiceMinIO, dep.Name)
	require.Len(t, dep.Spec.Template.Spec.Containers, 1)

	c := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, cfg.Images.MinIO, c.Image)
	assert.Contains(t, c.Args, "/data")
	require.NotNil(t, c.ReadinessProbe)
	assert.Equal(t, "/minio/health/ready", c.ReadinessProbe.HTTPGet.Path)
}

func TestServices_ExposeStackPorts(t *testing.T) {
	tests := []struct {
		name string
		svc  *corev1.Service
		port int32
	}{
		{"minio", minioService(), MinIOPort},
		{"nessie", nessieService(), NessiePort},
		{"trino", trinoService(), TrinoPort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.svc.Name)
			found := false
			for _, p := range tc.svc.Spec.Ports {
				if p.Port == tc.port {
					found = true
				}
			}
			assert.True(t, found, "service %s does not expose port %d", tc.name, tc.port)
		})
	}
}

func TestTrinoDeployment_MountsConfigMaps(t *testing.T) {
	cfg := kustomizeConfig()
	dep := trinoDeployment(&cfg)

	var mountNames []string
	for _, m := range dep.Spec.Template.Spec.Containers[0].VolumeMounts {
		mountNames = append(mountNames, m.Name)
	}
	assert.Contains(t, mountNames, "trino-config")
	assert.Contains(t, mountNames, "trino-catalog")

	var configMapRefs []string
	for _, v := range dep.Spec.Template.Spec.Volumes {
		require.NotNil(t, v.ConfigMap, "volume %s is not configmap-backed", v.Name)
		configMapRefs = append(configMapRefs, v.ConfigMap.Name)
	}
	assert.ElementsMatch(t, []string{"trino-config", "trino-catalog"}, configMapRefs)
}

func TestTrinoConfigMap_CarriesEtcFiles(t *testing.T) {
	cfg := kustomizeConfig()
	cm := trinoConfigMap(&cfg)

	for _, key := range []string{"jvm.config", "config.properties", "node.properties", "log.properties"} {
		assert.Contains(t, cm.Data, key)
	}
	assert.Contains(t, cm.Data["config.properties"], "coordinator=true")
}

func TestTrinoCatalogConfigMap_EmbedsOverlayNamespace(t *testing.T) {
	cfg := kustomizeConfig()
	cm := trinoCatalogConfigMap(&cfg, Environment{Name: "production", Namespace: "trino-production"})

	props := cm.Data["lakehouse.properties"]
	assert.Contains(t, props, "iceberg.nessie-catalog.uri=http://nessie.trino-production.svc.cluster.local:19120/api/v2")
	assert.Contains(t, props, "s3.endpoint=http://minio.trino-production.svc.cluster.local:9000")
	assert.Contains(t, props, "s3.path-style-access=true")
}

func TestNamespaceManifest(t *testing.T) {
	ns := namespaceManifest(Environment{Name: "production", Namespace: "trino-production"})
	assert.Equal(t, "Namespace", ns.Kind)
	assert.Equal(t, "trino-production", ns.Name)
}
