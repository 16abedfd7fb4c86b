// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Typed Compose model
// =============================================================================

// The compose file is modeled as typed records and serialized once
// through yaml.v3 rather than interpolated as text. yaml.v3 emits map
// keys in sorted order, which keeps renders byte-reproducible.

// ComposeFile is the root of a Docker Compose document.
type ComposeFile struct {
	Services map[string]ComposeService `yaml:"services"`
	Volumes  map[string]*ComposeVolume `yaml:"volumes,omitempty"`
}

// ComposeService is one service entry.
type ComposeService struct {
	Image         string               `yaml:"image"`
	ContainerName string               `yaml:"container_name,omitempty"`
	Command       []string             `yaml:"command,omitempty"`
	Environment   map[string]string    `yaml:"environment,omitempty"`
	Ports         []string             `yaml:"ports,omitempty"`
	Volumes       []string             `yaml:"volumes,omitempty"`
	DependsOn     map[string]DependsOn `yaml:"depends_on,omitempty"`
	Healthcheck   *ComposeHealthcheck  `yaml:"healthcheck,omitempty"`
	Restart       string               `yaml:"restart,omitempty"`
}

// DependsOn expresses a startup dependency with a condition.
type DependsOn struct {
	Condition string `yaml:"condition"`
}

// ComposeHealthcheck mirrors the compose healthcheck block.
type ComposeHealthcheck struct {
	Test        []string `yaml:"test"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	StartPeriod string   `yaml:"start_period,omitempty"`
}

// Named volumes backing the stateful services.
const (
	VolumeMinIOData  = "minio-data"
	VolumeNessieData = "nessie-data"
)

// ComposeVolume is a named volume declaration; nil config is rendered as
// an empty mapping.
type ComposeVolume struct{}

// composeFile builds the three-service stack definition. The query
// engine declares health-gated dependencies on the other two services so
// compose sequences startup for us.
func composeFile(cfg *StackConfig) *ComposeFile {
	return &ComposeFile{
		Services: map[string]ComposeService{
			ServiceMinIO: {
				Image:         cfg.Images.MinIO,
				ContainerName: ServiceMinIO,
				Command:       []string{"server", "/data", "--console-address", fmt.Sprintf(":%d", MinIOConsolePort)},
				Environment: map[string]string{
					"MINIO_ROOT_USER":     cfg.Credentials.AccessKey,
					"MINIO_ROOT_PASSWORD": cfg.Credentials.SecretKey,
				},
				Ports: []string{
					fmt.Sprintf("%d:%d", MinIOPort, MinIOPort),
					fmt.Sprintf("%d:%d", MinIOConsolePort, MinIOConsolePort),
				},
				Volumes: []string{VolumeMinIOData + ":/data"},
				Healthcheck: &ComposeHealthcheck{
					Test:     []string{"CMD", "curl", "-f", fmt.Sprintf("http://localhost:%d/minio/health/live", MinIOPort)},
					Interval: "10s",
					Timeout:  "5s",
					Retries:  5,
				},
				Restart: "unless-stopped",
			},
			ServiceNessie: {
				Image:         cfg.Images.Nessie,
				ContainerName: ServiceNessie,
				Environment: map[string]string{
					"nessie.version.store.type":                        "ROCKSDB",
					"nessie.version.store.persist.rocks.database-path": "/nessie/data",
				},
				Ports:   []string{fmt.Sprintf("%d:%d", NessiePort, NessiePort)},
				Volumes: []string{VolumeNessieData + ":/nessie/data"},
				Healthcheck: &ComposeHealthcheck{
					Test:     []string{"CMD-SHELL", fmt.Sprintf("curl -f http://localhost:%d/q/health/live || exit 1", NessiePort)},
					Interval: "10s",
					Timeout:  "5s",
					Retries:  5,
				},
				Restart: "unless-stopped",
			},
			ServiceTrino: {
				Image:         cfg.Images.Trino,
				ContainerName: ServiceTrino,
				Ports:         []string{fmt.Sprintf("%d:%d", TrinoPort, TrinoPort)},
				Volumes:       []string{"./trino/etc:/etc/trino"},
				DependsOn: map[string]DependsOn{
					ServiceMinIO:  {Condition: "service_healthy"},
					ServiceNessie: {Condition: "service_healthy"},
				},
				Healthcheck: &ComposeHealthcheck{
					Test:        []string{"CMD", "trino", "--execute", "SELECT 1"},
					Interval:    "10s",
					Timeout:     "10s",
					Retries:     10,
					StartPeriod: "30s",
				},
				Restart: "unless-stopped",
			},
		},
		Volumes: map[string]*ComposeVolume{
			VolumeMinIOData:  nil,
			VolumeNessieData: nil,
		},
	}
}

// renderComposeFile serializes the compose model.
func renderComposeFile(cfg *StackConfig) ([]byte, error) {
	out, err := yaml.Marshal(composeFile(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal compose file: %w", err)
	}
	return out, nil
}
