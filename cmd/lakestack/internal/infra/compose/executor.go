// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/process"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrComposeFileMissing is returned when the environment has no
	// rendered compose file. Run `lakestack render compose` first.
	ErrComposeFileMissing = errors.New("compose file not found")

	// ErrInvalidConfig is returned when Config is invalid.
	ErrInvalidConfig = errors.New("invalid compose configuration")

	// ErrContainerNotRunning is returned for exec on a stopped container.
	ErrContainerNotRunning = errors.New("container not running")
)

// =============================================================================
// Interface Definition
// =============================================================================

// Executor manages container-engine compose operations for the data
// lake stack.
//
// # Description
//
// This interface abstracts all interactions with the compose tooling
// (docker compose or podman-compose), enabling testable orchestration
// of the three stack services. The compose file itself is produced by
// the scaffold package; the executor only runs it.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Operations that
// modify container state (Up, Down) are serialized internally.
type Executor interface {
	// Up starts the stack detached. Services with health checks are
	// started but not awaited; use the health checker for readiness.
	Up(ctx context.Context, opts UpOptions) (*Result, error)

	// Down stops and removes the stack's containers. RemoveVolumes
	// additionally destroys named volumes, which cannot be undone.
	Down(ctx context.Context, opts DownOptions) (*Result, error)

	// Status reports per-service container state.
	Status(ctx context.Context) (*Status, error)

	// Logs writes service logs to w, optionally following.
	Logs(ctx context.Context, opts LogsOptions, w io.Writer) error

	// Exec runs a command inside a running service container.
	Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error)

	// RemoveDanglingVolumes deletes volumes no container references.
	// Used by destroy to leave the engine pristine.
	RemoveDanglingVolumes(ctx context.Context) (*CleanupResult, error)

	// SweepContainers force-removes containers created from the given
	// images, catching leftovers that no longer belong to the compose
	// project.
	SweepContainers(ctx context.Context, images []string) (*CleanupResult, error)
}

// =============================================================================
// Supporting Types
// =============================================================================

// Config provides configuration for compose operations.
type Config struct {
	// Binary is the container engine executable, e.g. "docker".
	Binary string

	// ComposeArgs are prepended before compose subcommands, e.g.
	// ["compose"] for the docker plugin, nil for podman-compose.
	ComposeArgs []string

	// ProjectDir is the materialized environment directory containing
	// docker-compose.yml.
	ProjectDir string

	// ProjectName is the compose project name. Default: "lakestack".
	ProjectName string

	// DefaultTimeout bounds each compose invocation. Default: 5 minutes.
	DefaultTimeout time.Duration
}

// UpOptions configures the Up operation.
type UpOptions struct {
	// Services limits which services to start. Empty means all.
	Services []string

	// ForceRecreate recreates containers even if config is unchanged.
	ForceRecreate bool

	// Timeout overrides the default operation timeout.
	Timeout time.Duration
}

// DownOptions configures the Down operation.
type DownOptions struct {
	// RemoveVolumes removes named volumes declared in the compose file.
	// WARNING: destructive and cannot be undone.
	RemoveVolumes bool

	// RemoveOrphans removes containers for services not defined.
	RemoveOrphans bool

	// Timeout overrides the default operation timeout.
	Timeout time.Duration
}

// LogsOptions configures the Logs operation.
type LogsOptions struct {
	// Services limits which services to show logs for.
	Services []string

	// Follow streams logs continuously.
	Follow bool

	// Tail limits output to the last N lines per container. Zero means
	// all logs.
	Tail int
}

// ExecOptions configures the Exec operation.
type ExecOptions struct {
	// Service is the compose service name. Required.
	Service string

	// Command is the command and arguments. Required, non-empty.
	Command []string
}

// Result contains the outcome of a compose operation.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Command  string
}

// Status contains the current state of compose services.
type Status struct {
	Services  []ServiceStatus
	Running   int
	Stopped   int
	Unhealthy int
}

// ServiceStatus contains the status of a single service.
type ServiceStatus struct {
	// Name is the compose service name.
	Name string

	// State is the container state (running, exited, ...).
	State string

	// Healthy reflects the health check. nil means none defined.
	Healthy *bool

	// ExitCode is meaningful only for exited containers.
	ExitCode int
}

// ExecResult contains the result of an Exec operation.
type ExecResult struct {
	ExitCode int
	Stdout   string
}

// CleanupResult reports what a cleanup operation deleted.
type CleanupResult struct {
	VolumesRemoved    []string
	ContainersRemoved []string
	Errors            []string
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultExecutor implements Executor by shelling out to the configured
// container engine through a process.Manager.
type DefaultExecutor struct {
	config Config
	proc   process.Manager
	mu     sync.Mutex
}

// NewDefaultExecutor creates an Executor for one materialized
// environment directory.
//
// # Inputs
//   - cfg: engine binary, project dir, timeouts.
//   - proc: process manager; inject a mock in tests.
//
// # Outputs
//   - *DefaultExecutor: ready to use.
//   - error: ErrInvalidConfig when required fields are missing.
//
// The compose file is not required to exist yet: engine-level cleanup
// (SweepContainers, RemoveDanglingVolumes) must work on a pristine
// environment. Compose operations check for the file per call and
// return ErrComposeFileMissing.
func NewDefaultExecutor(cfg Config, proc process.Manager) (*DefaultExecutor, error) {
	if proc == nil {
		return nil, fmt.Errorf("%w: process manager is required", ErrInvalidConfig)
	}
	if cfg.ProjectDir == "" {
		return nil, fmt.Errorf("%w: project directory is required", ErrInvalidConfig)
	}
	if cfg.Binary == "" {
		cfg.Binary = "docker"
		cfg.ComposeArgs = []string{"compose"}
	}
	if cfg.ProjectName == "" {
		cfg.ProjectName = "lakestack"
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}

	return &DefaultExecutor{config: cfg, proc: proc}, nil
}

// requireComposeFile guards compose subcommands, which are meaningless
// without a rendered environment.
func (e *DefaultExecutor) requireComposeFile() error {
	composeFile := filepath.Join(e.config.ProjectDir, "docker-compose.yml")
	if _, err := os.Stat(composeFile); err != nil {
		return fmt.Errorf("%w: %s", ErrComposeFileMissing, composeFile)
	}
	return nil
}

// Up starts the stack detached.
func (e *DefaultExecutor) Up(ctx context.Context, opts UpOptions) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireComposeFile(); err != nil {
		return nil, err
	}

	args := e.composeArgs("up", "-d")
	if opts.ForceRecreate {
		args = append(args, "--force-recreate")
	}
	args = append(args, opts.Services...)

	return e.run(ctx, args, e.timeout(opts.Timeout))
}

// Down stops and removes the stack.
func (e *DefaultExecutor) Down(ctx context.Context, opts DownOptions) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireComposeFile(); err != nil {
		return nil, err
	}

	args := e.composeArgs("down")
	if opts.RemoveVolumes {
		args = append(args, "--volumes")
	}
	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}

	return e.run(ctx, args, e.timeout(opts.Timeout))
}

// Status reports per-service container state, parsed from
// `compose ps --format json`.
func (e *DefaultExecutor) Status(ctx context.Context) (*Status, error) {
	if err := e.requireComposeFile(); err != nil {
		return nil, err
	}

	args := e.composeArgs("ps", "--all", "--format", "json")

	result, err := e.run(ctx, args, e.config.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	return parsePsOutput(result.Stdout)
}

// Logs writes service logs to w.
func (e *DefaultExecutor) Logs(ctx context.Context, opts LogsOptions, w io.Writer) error {
	if err := e.requireComposeFile(); err != nil {
		return err
	}

	args := e.composeArgs("logs")
	if opts.Follow {
		args = append(args, "--follow")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", strconv.Itoa(opts.Tail))
	}
	args = append(args, opts.Services...)

	return e.proc.RunStreaming(ctx, w, e.config.Binary, args...)
}

// Exec runs a command inside a running service container.
func (e *DefaultExecutor) Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	if opts.Service == "" {
		return nil, fmt.Errorf("%w: service is required", ErrInvalidConfig)
	}
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("%w: command is required", ErrInvalidConfig)
	}
	if err := e.requireComposeFile(); err != nil {
		return nil, err
	}

	args := e.composeArgs("exec", "-T", opts.Service)
	args = append(args, opts.Command...)

	ctx, cancel := context.WithTimeout(ctx, e.config.DefaultTimeout)
	defer cancel()

	out, err := e.proc.Run(ctx, e.config.Binary, args...)
	if err != nil {
		if isNotRunningError(err) {
			return nil, fmt.Errorf("%w: %s", ErrContainerNotRunning, opts.Service)
		}
		return nil, err
	}
	return &ExecResult{ExitCode: 0, Stdout: string(out)}, nil
}

// RemoveDanglingVolumes deletes unreferenced volumes, continuing past
// per-volume failures.
func (e *DefaultExecutor) RemoveDanglingVolumes(ctx context.Context) (*CleanupResult, error) {
	out, err := e.proc.Run(ctx, e.config.Binary, "volume", "ls", "--quiet", "--filter", "dangling=true")
	if err != nil {
		return nil, fmt.Errorf("list dangling volumes: %w", err)
	}

	result := &CleanupResult{}
	for _, name := range parseLines(string(out)) {
		if _, err := e.proc.Run(ctx, e.config.Binary, "volume", "rm", name); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		result.VolumesRemoved = append(result.VolumesRemoved, name)
	}
	return result, nil
}

// SweepContainers force-removes containers created from the given
// images. Catches containers that escaped compose project tracking
// (renamed projects, manual docker runs), continuing past per-container
// failures.
func (e *DefaultExecutor) SweepContainers(ctx context.Context, images []string) (*CleanupResult, error) {
	result := &CleanupResult{}
	for _, image := range images {
		out, err := e.proc.Run(ctx, e.config.Binary,
			"ps", "--all", "--quiet", "--filter", "ancestor="+image)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", image, err))
			continue
		}
		for _, id := range parseLines(string(out)) {
			if _, err := e.proc.Run(ctx, e.config.Binary, "rm", "--force", id); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
				continue
			}
			result.ContainersRemoved = append(result.ContainersRemoved, id)
		}
	}
	return result, nil
}

// =============================================================================
// Internal helpers
// =============================================================================

// composeArgs builds the common argument prefix: compose subcommand
// words, project file, and project name.
func (e *DefaultExecutor) composeArgs(subcommand string, extra ...string) []string {
	args := append([]string{}, e.config.ComposeArgs...)
	args = append(args,
		"-f", filepath.Join(e.config.ProjectDir, "docker-compose.yml"),
		"-p", e.config.ProjectName,
		subcommand,
	)
	return append(args, extra...)
}

func (e *DefaultExecutor) run(ctx context.Context, args []string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := e.proc.Run(ctx, e.config.Binary, args...)
	result := &Result{
		Success:  err == nil,
		Stdout:   string(out),
		Duration: time.Since(start),
		Command:  e.config.Binary + " " + strings.Join(args, " "),
	}
	if err != nil {
		result.Stderr = err.Error()
		return result, fmt.Errorf("%s: %w", result.Command, err)
	}
	return result, nil
}

func (e *DefaultExecutor) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return e.config.DefaultTimeout
}

// psEntry mirrors one line of `compose ps --format json` output.
type psEntry struct {
	Service  string `json:"Service"`
	State    string `json:"State"`
	Health   string `json:"Health"`
	ExitCode int    `json:"ExitCode"`
}

// parsePsOutput handles both output shapes compose has shipped: one
// JSON object per line (v2.21+) and a single JSON array.
func parsePsOutput(raw string) (*Status, error) {
	raw = strings.TrimSpace(raw)
	status := &Status{}
	if raw == "" {
		return status, nil
	}

	var entries []psEntry
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("parse compose ps output: %w", err)
		}
	} else {
		for _, line := range parseLines(raw) {
			var entry psEntry
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				return nil, fmt.Errorf("parse compose ps line %q: %w", line, err)
			}
			entries = append(entries, entry)
		}
	}

	for _, entry := range entries {
		svc := ServiceStatus{
			Name:     entry.Service,
			State:    entry.State,
			ExitCode: entry.ExitCode,
		}
		switch entry.Health {
		case "healthy":
			healthy := true
			svc.Healthy = &healthy
		case "unhealthy", "starting":
			healthy := false
			svc.Healthy = &healthy
		}
		status.Services = append(status.Services, svc)

		switch {
		case entry.State == "running" && entry.Health == "unhealthy":
			status.Running++
			status.Unhealthy++
		case entry.State == "running":
			status.Running++
		default:
			status.Stopped++
		}
	}
	return status, nil
}

func parseLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isNotRunningError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "is not running") ||
		strings.Contains(msg, "no container found") ||
		strings.Contains(msg, "no such container")
}

// =============================================================================
// Mock Implementation for Testing
// =============================================================================

// MockExecutor is a test double for Executor. Configure by setting
// function fields; a nil field panics when its method is called.
type MockExecutor struct {
	UpFunc                    func(ctx context.Context, opts UpOptions) (*Result, error)
	DownFunc                  func(ctx context.Context, opts DownOptions) (*Result, error)
	StatusFunc                func(ctx context.Context) (*Status, error)
	LogsFunc                  func(ctx context.Context, opts LogsOptions, w io.Writer) error
	ExecFunc                  func(ctx context.Context, opts ExecOptions) (*ExecResult, error)
	RemoveDanglingVolumesFunc func(ctx context.Context) (*CleanupResult, error)
	SweepContainersFunc       func(ctx context.Context, images []string) (*CleanupResult, error)

	// Calls records method names in invocation order.
	Calls []string

	mu sync.Mutex
}

func (m *MockExecutor) record(method string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, method)
	m.mu.Unlock()
}

func (m *MockExecutor) Up(ctx context.Context, opts UpOptions) (*Result, error) {
	m.record("Up")
	if m.UpFunc == nil {
		panic("MockExecutor.UpFunc not set")
	}
	return m.UpFunc(ctx, opts)
}

func (m *MockExecutor) Down(ctx context.Context, opts DownOptions) (*Result, error) {
	m.record("Down")
	if m.DownFunc == nil {
		panic("MockExecutor.DownFunc not set")
	}
	return m.DownFunc(ctx, opts)
}

func (m *MockExecutor) Status(ctx context.Context) (*Status, error) {
	m.record("Status")
	if m.StatusFunc == nil {
		panic("MockExecutor.StatusFunc not set")
	}
	return m.StatusFunc(ctx)
}

func (m *MockExecutor) Logs(ctx context.Context, opts LogsOptions, w io.Writer) error {
	m.record("Logs")
	if m.LogsFunc == nil {
		panic("MockExecutor.LogsFunc not set")
	}
	return m.LogsFunc(ctx, opts, w)
}

func (m *MockExecutor) Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	m.record("Exec")
	if m.ExecFunc == nil {
		panic("MockExecutor.ExecFunc not set")
	}
	return m.ExecFunc(ctx, opts)
}

func (m *MockExecutor) RemoveDanglingVolumes(ctx context.Context) (*CleanupResult, error) {
	m.record("RemoveDanglingVolumes")
	if m.RemoveDanglingVolumesFunc == nil {
		panic("MockExecutor.RemoveDanglingVolumesFunc not set")
	}
	return m.RemoveDanglingVolumesFunc(ctx)
}

func (m *MockExecutor) SweepContainers(ctx context.Context, images []string) (*CleanupResult, error) {
	m.record("SweepContainers")
	if m.SweepContainersFunc == nil {
		panic("MockExecutor.SweepContainersFunc not set")
	}
	return m.SweepContainersFunc(ctx, images)
}

// GetCalls returns a copy of the recorded call order.
func (m *MockExecutor) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance checks.
var (
	_ Executor = (*DefaultExecutor)(nil)
	_ Executor = (*MockExecutor)(nil)
)
