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

func parseProperties(t *testing.T, raw []byte) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
		key, value, found := strings.Cut(line, "=")
		require.True(t, found, "line %q is not key=value", line)
		out[key] = value
	}
	return out
}

func TestCatalogProperties_ComposeBinding(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	props := parseProperties(t, catalogProperties(&cfg, cfg.Endpoints()))

	assert.Equal(t, "iceberg", props["connector.name"])
	assert.Equal(t, "nessie", props["iceberg.catalog.type"])
	assert.Equal(t, "http://nessie:19120/api/v2", props["iceberg.nessie-catalog.uri"])
	assert.Equal(t, "s3://warehouse/", props["iceberg.nessie-catalog.default-warehouse-dir"])
	assert.Equal(t, "http://minio:9000", props["s3.endpoint"])
	assert.Equal(t, "true", props["s3.path-style-access"])
	assert.Equal(t, "minioadmin", props["s3.aws-access-key"])
	assert.Equal(t, "minioadmin", props["s3.aws-secret-key"])
}

func TestCatalogProperties_ClusterBinding(t *testing.T) {
	cfg := DefaultConfig(ModeKustomize)
	cfg.Environments = DefaultEnvironments("trino-production")
	props := parseProperties(t, catalogProperties(&cfg, cfg.EndpointsFor("trino-production")))

	assert.Equal(t, "http://nessie.trino-production.svc.cluster.local:19120/api/v2",
		props["iceberg.nessie-catalog.uri"])
	assert.Equal(t, "http://minio.trino-production.svc.cluster.local:9000",
		props["s3.endpoint"])
	assert.Equal(t, "true", props["s3.path-style-access"])
}

func TestServerConfig(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	props := parseProperties(t, serverConfig(&cfg))

	assert.Equal(t, "true", props["coordinator"])
	assert.Equal(t, "true", props["node-scheduler.include-coordinator"])
	assert.Equal(t, "8080", props["http-server.http.port"])
	assert.Equal(t, "1GB", props["query.max-memory"])
	assert.Equal(t, "512MB", props["query.max-memory-per-node"])
	assert.Equal(t, "http://localhost:8080", props["discovery.uri"])
}

func TestJVMConfig_UsesConfiguredHeap(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	cfg.Memory.TrinoHeap = "8G"
	lines := string(jvmConfig(&cfg))
	assert.Contains(t, lines, "-Xmx8G\n")
	assert.Contains(t, lines, "-server\n")
}

func TestNodeID_Deterministic(t *testing.T) {
	assert.Equal(t, nodeID("lakehouse"), nodeID("lakehouse"))
	assert.NotEqual(t, nodeID("lakehouse"), nodeID("other"))
}

func TestNodeConfig(t *testing.T) {
	cfg := DefaultConfig(ModeCompose)
	props := parseProperties(t, nodeConfig(&cfg, "lakehouse"))

	assert.Equal(t, "lakehouse", props["node.environment"])
	assert.Equal(t, nodeID("lakehouse"), props["node.id"])
	assert.Equal(t, "/data/trino", props["node.data-dir"])
}
