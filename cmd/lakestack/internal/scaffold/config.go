// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrMissingRequiredField is returned when a field required for the
	// selected mode is absent (e.g. namespace in kustomize mode).
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidIdentifier is returned when an environment name or namespace
	// is not a valid DNS-1123 label.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnknownArtifact is returned when Render is asked for a kind that is
	// not in the template catalog.
	ErrUnknownArtifact = errors.New("unknown artifact kind")

	// ErrPathCollision is returned when two planned artifacts resolve to the
	// same relative path.
	ErrPathCollision = errors.New("artifact path collision")
)

// dns1123Label matches the identifier grammar accepted for namespaces,
// environment names, and compose service names.
var dns1123Label = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// =============================================================================
// Mode
// =============================================================================

// Mode selects the generation target.
type Mode string

const (
	// ModeCompose generates a Docker Compose working directory.
	ModeCompose Mode = "compose"

	// ModeKustomize generates a Kustomize base+overlay tree with an
	// Argo CD Application per overlay.
	ModeKustomize Mode = "kustomize"
)

// =============================================================================
// Configuration
// =============================================================================

// Credentials is the single source for the object-store access pair.
//
// Every template receives credentials from here; no template body carries
// its own copy of the literals, so rotating credentials touches exactly
// one value.
type Credentials struct {
	AccessKey string `yaml:"access_key" validate:"required"`
	SecretKey string `yaml:"secret_key" validate:"required"`
}

// MemoryLimits sizes the query engine and its query memory caps.
type MemoryLimits struct {
	// TrinoHeap is the coordinator JVM heap (-Xmx), e.g. "2G".
	TrinoHeap string `yaml:"trino_heap" validate:"required"`

	// QueryMaxMemory caps total distributed query memory, e.g. "1GB".
	QueryMaxMemory string `yaml:"query_max_memory" validate:"required"`

	// QueryMaxMemoryPerNode caps per-node query memory, e.g. "512MB".
	QueryMaxMemoryPerNode string `yaml:"query_max_memory_per_node" validate:"required"`
}

// Images pins the three service images.
type Images struct {
	MinIO  string `yaml:"minio" validate:"required"`
	Nessie string `yaml:"nessie" validate:"required"`
	Trino  string `yaml:"trino" validate:"required"`
}

// Environment names one kustomize overlay and the namespace it deploys to.
type Environment struct {
	Name      string `yaml:"name" validate:"required"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// StackConfig drives all artifact generation for one stack.
//
// A zero value is not usable; construct with DefaultConfig and override
// fields, then Validate before rendering.
type StackConfig struct {
	// Mode selects compose or kustomize generation.
	Mode Mode `yaml:"mode" validate:"required,oneof=compose kustomize"`

	// Environments lists the kustomize overlays to generate.
	// Required (non-empty) in kustomize mode, ignored in compose mode.
	Environments []Environment `yaml:"environments,omitempty"`

	// Credentials is the object-store access pair shared by every artifact.
	Credentials Credentials `yaml:"credentials"`

	// Memory sizes the query engine.
	Memory MemoryLimits `yaml:"memory"`

	// Images pins the service container images.
	Images Images `yaml:"images"`

	// Warehouse is the object-store bucket backing the data lake.
	Warehouse string `yaml:"warehouse" validate:"required"`

	// Region is the object-store region literal, e.g. "us-east-1".
	Region string `yaml:"region" validate:"required"`
}

// DefaultCredentials returns the fixed development default access pair.
func DefaultCredentials() Credentials {
	return Credentials{
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
}

// DefaultConfig returns a StackConfig for the given mode with every
// defaulted value filled in. Kustomize callers still need to set
// Environments before rendering.
func DefaultConfig(mode Mode) StackConfig {
	return StackConfig{
		Mode:        mode,
		Credentials: DefaultCredentials(),
		Memory: MemoryLimits{
			TrinoHeap:             "2G",
			QueryMaxMemory:        "1GB",
			QueryMaxMemoryPerNode: "512MB",
		},
		Images: Images{
			MinIO:  "minio/minio:RELEASE.2024-09-13T20-26-02Z",
			Nessie: "ghcr.io/projectnessie/nessie:0.99.0",
			Trino:  "trinodb/trino:455",
		},
		Warehouse: "warehouse",
		Region:    "us-east-1",
	}
}

// DefaultEnvironments returns the standard overlay pair. The production
// overlay deploys to the given namespace; development gets a "-dev"
// sibling namespace.
func DefaultEnvironments(namespace string) []Environment {
	return []Environment{
		{Name: "production", Namespace: namespace},
		{Name: "development", Namespace: namespace + "-dev"},
	}
}

// validate is shared; validator.Validate is safe for concurrent use and
// caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config for the selected mode.
//
// Returns an error wrapping ErrMissingRequiredField when a mode-required
// field is absent and ErrInvalidIdentifier when an environment name or
// namespace is not a DNS-1123 label.
func (c *StackConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) && len(verr) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, verr[0].Namespace())
		}
		return err
	}

	if c.Mode == ModeKustomize {
		if len(c.Environments) == 0 {
			return fmt.Errorf("%w: environments (kustomize mode)", ErrMissingRequiredField)
		}
		seen := make(map[string]bool, len(c.Environments))
		for _, env := range c.Environments {
			if !dns1123Label.MatchString(env.Name) {
				return fmt.Errorf("%w: environment name %q", ErrInvalidIdentifier, env.Name)
			}
			if !dns1123Label.MatchString(env.Namespace) {
				return fmt.Errorf("%w: namespace %q", ErrInvalidIdentifier, env.Namespace)
			}
			if seen[env.Name] {
				return fmt.Errorf("%w: duplicate environment %q", ErrInvalidIdentifier, env.Name)
			}
			seen[env.Name] = true
		}
	}

	return nil
}

// =============================================================================
// Service Endpoints
// =============================================================================

// Service ports, shared by both modes. The in-cluster and in-network
// ports are identical so that the connector config derives from one set.
const (
	MinIOPort        = 9000
	MinIOConsolePort = 9001
	NessiePort       = 19120
	TrinoPort        = 8080
)

// Service names double as compose container names and Kubernetes service
// names; cross-service discovery relies on them being stable.
const (
	ServiceMinIO  = "minio"
	ServiceNessie = "nessie"
	ServiceTrino  = "trino"
)

// ServiceEndpoints holds the mutually consistent service addresses for
// one network namespace. The catalog's backing-store URI and the query
// engine's catalog URI are always derived from the same instance.
type ServiceEndpoints struct {
	// ObjectStore is the S3 API endpoint, e.g. "http://minio:9000".
	ObjectStore string

	// Catalog is the Nessie REST API base, e.g. "http://nessie:19120/api/v2".
	Catalog string

	// QueryEngine is the Trino HTTP endpoint, e.g. "http://trino:8080".
	QueryEngine string
}

// Endpoints derives the compose-network service addresses: plain container
// DNS names on the shared compose network.
func (c *StackConfig) Endpoints() ServiceEndpoints {
	return ServiceEndpoints{
		ObjectStore: fmt.Sprintf("http://%s:%d", ServiceMinIO, MinIOPort),
		Catalog:     fmt.Sprintf("http://%s:%d/api/v2", ServiceNessie, NessiePort),
		QueryEngine: fmt.Sprintf("http://%s:%d", ServiceTrino, TrinoPort),
	}
}

// EndpointsFor derives the in-cluster service addresses for one overlay
// namespace, using fully qualified Kubernetes service DNS.
func (c *StackConfig) EndpointsFor(namespace string) ServiceEndpoints {
	return ServiceEndpoints{
		ObjectStore: fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", ServiceMinIO, namespace, MinIOPort),
		Catalog:     fmt.Sprintf("http://%s.%s.svc.cluster.local:%d/api/v2", ServiceNessie, namespace, NessiePort),
		QueryEngine: fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", ServiceTrino, namespace, TrinoPort),
	}
}

// WarehouseURI is the s3:// location Trino and Nessie agree on for table
// data.
func (c *StackConfig) WarehouseURI() string {
	return fmt.Sprintf("s3://%s/", c.Warehouse)
}
