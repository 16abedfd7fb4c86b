// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package health

import (
	"fmt"
	"time"

	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/scaffold"
)

// CheckType specifies the method used to check service health.
type CheckType string

const (
	// CheckHTTP checks health via HTTP GET request.
	// Expects a 2xx status code by default.
	CheckHTTP CheckType = "http"

	// CheckTCP checks health via TCP connection.
	// Only verifies the port is accepting connections.
	CheckTCP CheckType = "tcp"

	// CheckExec checks health by running a command inside the service
	// container. A zero exit code means healthy.
	CheckExec CheckType = "exec"
)

// State represents the binary health state of a service.
//
// # Description
//
// Represents the outcome of a health check. States are mutually
// exclusive and represent a point-in-time snapshot.
//
// # Limitations
//
//   - Binary states don't capture degraded performance
//   - State is point-in-time, may change immediately after check
type State string

const (
	// StateHealthy indicates the service is responding normally.
	StateHealthy State = "healthy"

	// StateUnhealthy indicates the service is not responding correctly.
	StateUnhealthy State = "unhealthy"

	// StateUnreachable indicates the service could not be contacted.
	StateUnreachable State = "unreachable"

	// StateSkipped indicates the service was not checked.
	StateSkipped State = "skipped"
)

// ServiceDefinition describes a service to health check.
//
// # Description
//
// Defines the parameters needed to perform a health check on one stack
// service, including the check type, endpoint, and criticality.
//
// # Inputs
//
// ServiceDefinition is typically created via DefaultServiceDefinitions()
// or manually constructed with required fields.
//
// # Outputs
//
// Used as input to Checker.CheckService() and WaitForServices().
//
// # Limitations
//
//   - URL is required for HTTP and TCP checks
//   - Service and Command are required for exec checks
//   - Only one check type per definition
type ServiceDefinition struct {
	// Name is the human-readable service name.
	Name string

	// URL is the health check endpoint for HTTP and TCP checks. For
	// exec checks it is an optional HTTP fallback used when the command
	// cannot be run.
	URL string

	// Service is the compose service name (required for exec checks).
	Service string

	// Command is the in-container command for exec checks.
	Command []string

	// CheckType specifies how to check health.
	CheckType CheckType

	// Critical marks the service as required for startup. If a critical
	// service fails, WaitForServices returns an error.
	Critical bool

	// Timeout overrides the default per-check timeout. Zero means use
	// the default.
	Timeout time.Duration

	// ExpectedStatus is the expected HTTP status code (default: 200).
	// Only used for HTTP checks.
	ExpectedStatus int
}

// WaitOptions configures WaitForServices behavior.
//
// # Description
//
// Controls timeout, polling intervals, and failure modes for waiting
// on services to become healthy. Uses exponential backoff to reduce
// load while the stack is starting.
//
// # Limitations
//
//   - Jitter is applied uniformly; no per-service jitter
//   - MaxInterval caps backoff; very slow services may time out
type WaitOptions struct {
	// Timeout is the overall timeout for waiting (default: 120s).
	Timeout time.Duration

	// InitialInterval is the first poll interval (default: 1s).
	InitialInterval time.Duration

	// MaxInterval is the maximum poll interval (default: 8s).
	// Backoff stops increasing after reaching this value.
	MaxInterval time.Duration

	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64

	// Jitter adds randomness to prevent synchronized polling
	// (default: 0.1). Range: [interval*(1-Jitter), interval*(1+Jitter)].
	Jitter float64

	// SkipOptional skips non-critical services if true.
	SkipOptional bool

	// FailFast returns immediately on first critical failure if true.
	FailFast bool
}

// DefaultWaitOptions returns defaults with exponential backoff:
// 120 second overall timeout, 1s -> 2s -> 4s -> 8s -> 8s... polling,
// and 10% jitter.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		Timeout:         120 * time.Second,
		InitialInterval: 1 * time.Second,
		MaxInterval:     8 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.1,
		SkipOptional:    false,
		FailFast:        false,
	}
}

// WaitResult contains the outcome of WaitForServices.
//
// # Description
//
// Provides detailed information about which services became healthy,
// which failed, and how long the wait took.
type WaitResult struct {
	// Success is true if all critical services became healthy.
	Success bool

	// Duration is how long the wait took.
	Duration time.Duration

	// Services contains the final status of each service.
	Services []Status

	// FailedCritical contains names of critical services that failed.
	FailedCritical []string

	// Skipped contains names of services that were skipped.
	Skipped []string

	// StartedAt is when the wait operation started.
	StartedAt time.Time

	// CompletedAt is when the wait operation completed.
	CompletedAt time.Time
}

// Status represents the health of a single service.
//
// # Description
//
// Contains the result of a health check including state, latency, and
// diagnostic information. A Status is a point-in-time snapshot; the
// state may change immediately after the check.
type Status struct {
	// Name is the service name.
	Name string

	// State is the health state (healthy, unhealthy, unreachable, skipped).
	State State

	// Message provides additional context (error message, etc.).
	Message string

	// Latency is how long the health check took.
	Latency time.Duration

	// LastChecked is when the check was performed.
	LastChecked time.Time

	// HTTPStatus is the HTTP status code (for HTTP checks).
	HTTPStatus int
}

// Config configures the DefaultChecker.
type Config struct {
	// DefaultTimeout is the per-check timeout (default: 5s).
	DefaultTimeout time.Duration

	// DefaultExpectedStatus is the expected HTTP status (default: 200).
	DefaultExpectedStatus int
}

// DefaultConfig returns checker defaults suitable for services
// published on localhost.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:        5 * time.Second,
		DefaultExpectedStatus: 200,
	}
}

// DefaultServiceDefinitions returns checks for the three stack services
// as published on localhost by the compose file.
//
// # Description
//
// MinIO and Nessie expose liveness endpoints and are checked over HTTP.
// Trino is checked by running a trivial query inside its container,
// which also exercises the coordinator's discovery loop; the REST info
// endpoint serves as a fallback when exec is unavailable.
//
// # Outputs
//
//   - []ServiceDefinition: All three services, all critical.
//
// # Assumptions
//
//   - Services are port-mapped to localhost per the compose file
func DefaultServiceDefinitions() []ServiceDefinition {
	return []ServiceDefinition{
		{
			Name:      "MinIO",
			URL:       fmt.Sprintf("http://localhost:%d/minio/health/live", scaffold.MinIOPort),
			CheckType: CheckHTTP,
			Critical:  true,
		},
		{
			Name:      "Nessie",
			URL:       fmt.Sprintf("http://localhost:%d/api/v2/config", scaffold.NessiePort),
			CheckType: CheckHTTP,
			Critical:  true,
		},
		{
			Name:      "Trino",
			URL:       fmt.Sprintf("http://localhost:%d/v1/info", scaffold.TrinoPort),
			Service:   scaffold.ServiceTrino,
			Command:   []string{"trino", "--execute", "SELECT 1"},
			CheckType: CheckExec,
			Critical:  true,
			// Query engines come up slowly; give the query more room.
			Timeout: 15 * time.Second,
		},
	}
}
