// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Property is one key=value line in a Java properties file.
type Property struct {
	Key   string
	Value string
}

// formatProperties is the single canonical properties-file formatter.
// Insertion order is preserved so renders are byte-reproducible; callers
// are expected to emit keys in a fixed order.
func formatProperties(props []Property) []byte {
	var buf bytes.Buffer
	for _, p := range props {
		fmt.Fprintf(&buf, "%s=%s\n", p.Key, p.Value)
	}
	return buf.Bytes()
}

// formatLines joins raw config lines (jvm.config style) with trailing
// newline.
func formatLines(lines []string) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// =============================================================================
// Trino configuration records
// =============================================================================

// nodeIDNamespace seeds the deterministic node.id derivation. Fixed so
// that re-rendering the same environment yields an identical file.
var nodeIDNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("lakestack.io"))

// nodeID derives a stable node identifier for one environment.
func nodeID(environment string) string {
	return uuid.NewSHA1(nodeIDNamespace, []byte(environment)).String()
}

// jvmConfig renders trino/etc/jvm.config. Not a properties file; each
// line is a JVM flag.
func jvmConfig(cfg *StackConfig) []byte {
	return formatLines([]string{
		"-server",
		"-Xmx" + cfg.Memory.TrinoHeap,
		"-XX:+UseG1GC",
		"-XX:G1HeapRegionSize=32M",
		"-XX:+ExplicitGCInvokesConcurrent",
		"-XX:+ExitOnOutOfMemoryError",
		"-XX:+HeapDumpOnOutOfMemoryError",
		"-XX:-OmitStackTraceInFastThrow",
		"-Djdk.attach.allowAttachSelf=true",
	})
}

// serverConfig renders trino/etc/config.properties for a single-node
// coordinator that schedules work on itself.
func serverConfig(cfg *StackConfig) []byte {
	return formatProperties([]Property{
		{"coordinator", "true"},
		{"node-scheduler.include-coordinator", "true"},
		{"http-server.http.port", fmt.Sprintf("%d", TrinoPort)},
		{"query.max-memory", cfg.Memory.QueryMaxMemory},
		{"query.max-memory-per-node", cfg.Memory.QueryMaxMemoryPerNode},
		{"discovery.uri", fmt.Sprintf("http://localhost:%d", TrinoPort)},
	})
}

// nodeConfig renders trino/etc/node.properties. The node.id is derived
// deterministically from the environment name.
func nodeConfig(cfg *StackConfig, environment string) []byte {
	return formatProperties([]Property{
		{"node.environment", environment},
		{"node.id", nodeID(environment)},
		{"node.data-dir", "/data/trino"},
	})
}

// logConfig renders trino/etc/log.properties.
func logConfig() []byte {
	return formatProperties([]Property{
		{"io.trino", "INFO"},
	})
}

// catalogProperties renders the Iceberg/Nessie connector config binding
// Trino to the catalog service and object store. Both URIs come from the
// same ServiceEndpoints so the two services are always resolved on the
// same network.
func catalogProperties(cfg *StackConfig, eps ServiceEndpoints) []byte {
	return formatProperties([]Property{
		{"connector.name", "iceberg"},
		{"iceberg.catalog.type", "nessie"},
		{"iceberg.nessie-catalog.uri", eps.Catalog},
		{"iceberg.nessie-catalog.ref", "main"},
		{"iceberg.nessie-catalog.default-warehouse-dir", cfg.WarehouseURI()},
		{"fs.native-s3.enabled", "true"},
		{"s3.endpoint", eps.ObjectStore},
		{"s3.region", cfg.Region},
		{"s3.path-style-access", "true"},
		{"s3.aws-access-key", cfg.Credentials.AccessKey},
		{"s3.aws-secret-key", cfg.Credentials.SecretKey},
	})
}
