// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/compose"
	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/health"
	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/scaffold"
	"github.com/lakestack-io/lakestack/pkg/logging"
)

// =============================================================================
// LIFECYCLE STATES
// =============================================================================

// LifecycleState tracks where an environment is in its lifecycle.
// States advance Cleaning -> Materializing -> Starting -> Verifying ->
// Ready; any phase error moves to Failed.
type LifecycleState string

const (
	StateAbsent        LifecycleState = "absent"
	StateCleaning      LifecycleState = "cleaning"
	StateMaterializing LifecycleState = "materializing"
	StateStarting      LifecycleState = "starting"
	StateVerifying     LifecycleState = "verifying"
	StateReady         LifecycleState = "ready"
	StateFailed        LifecycleState = "failed"
)

// =============================================================================
// ERROR VARIABLES
// =============================================================================

var (
	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("nil dependency")

	// ErrStartFailed is returned when the container engine could not
	// bring the stack up.
	ErrStartFailed = errors.New("stack start failed")

	// ErrVerifyFailed is returned when critical services did not become
	// healthy within the timeout.
	ErrVerifyFailed = errors.New("stack verification failed")
)

// =============================================================================
// INTERFACES
// =============================================================================

// EnvController orchestrates the compose environment lifecycle.
//
// # Description
//
// Drives the full bring-up sequence (clean, materialize, start, verify,
// report) plus the individual operations the CLI exposes. All mutating
// operations are serialized internally; callers additionally hold the
// advisory process lock so concurrent CLI invocations do not interleave.
//
// # Examples
//
//	ctrl, err := NewDefaultEnvController(stack, workDir, exec, checker, logger)
//	if err != nil {
//	    return err
//	}
//	if err := ctrl.Up(ctx, UpOptions{}); err != nil {
//	    return err
//	}
type EnvController interface {
	// Up runs the full lifecycle: clean leftovers, materialize the
	// scaffold, start the stack, verify health, report endpoints.
	Up(ctx context.Context, opts UpOptions) error

	// Down stops the stack. An absent stack is success.
	Down(ctx context.Context, removeVolumes bool) error

	// Destroy stops the stack, removes volumes, sweeps leftover
	// containers and dangling volumes, and deletes the working
	// directory. Data-destructive and cannot be undone.
	Destroy(ctx context.Context) error

	// Status reports the current lifecycle state and per-service
	// container status.
	Status(ctx context.Context) (*EnvStatus, error)

	// Logs streams service logs to the controller's output.
	Logs(ctx context.Context, services []string, follow bool, tail int) error

	// Verify runs one round of health checks and reports per service.
	Verify(ctx context.Context) error
}

// UpOptions configures the Up lifecycle run.
type UpOptions struct {
	// SkipVerify skips the health verification phase.
	SkipVerify bool

	// Timeout bounds the verification phase. Zero uses the default
	// wait options.
	Timeout time.Duration
}

// EnvStatus reports the observed state of the environment.
type EnvStatus struct {
	// State is derived from container status: all running and no
	// unhealthy is Ready, anything running is Starting, otherwise
	// Absent.
	State LifecycleState

	// Services is the per-container breakdown. Empty when absent.
	Services []compose.ServiceStatus
}

// =============================================================================
// DEFAULT IMPLEMENTATION
// =============================================================================

// DefaultEnvController implements EnvController over a compose executor
// and a health checker.
type DefaultEnvController struct {
	// stack drives artifact generation.
	stack *scaffold.StackConfig

	// workDir is the materialized environment directory.
	workDir string

	// exec runs compose and engine commands.
	exec compose.Executor

	// health verifies service availability.
	health health.Checker

	// logger receives diagnostics; user-facing progress goes to output.
	logger *logging.Logger

	// output is where status messages are written. Default: os.Stdout.
	output io.Writer

	// state is the last lifecycle state this controller reached.
	state LifecycleState

	// settle is the fixed wait before the first health poll.
	settle time.Duration

	// mu serializes mutating operations (Up, Down, Destroy).
	mu sync.Mutex
}

// NewDefaultEnvController creates a controller with all dependencies.
//
// # Inputs
//
//   - stack: stack configuration in compose mode (required)
//   - workDir: target environment directory (required)
//   - exec: compose executor rooted at workDir (required)
//   - checker: health checker (required)
//   - logger: diagnostics logger; nil uses logging.Default()
//
// # Outputs
//
//   - *DefaultEnvController: ready-to-use controller
//   - error: ErrNilDependency if a required dependency is missing
func NewDefaultEnvController(
	stack *scaffold.StackConfig,
	workDir string,
	exec compose.Executor,
	checker health.Checker,
	logger *logging.Logger,
) (*DefaultEnvController, error) {
	if stack == nil {
		return nil, fmt.Errorf("%w: StackConfig", ErrNilDependency)
	}
	if workDir == "" {
		return nil, fmt.Errorf("%w: working directory", ErrNilDependency)
	}
	if exec == nil {
		return nil, fmt.Errorf("%w: compose.Executor", ErrNilDependency)
	}
	if checker == nil {
		return nil, fmt.Errorf("%w: health.Checker", ErrNilDependency)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &DefaultEnvController{
		stack:   stack,
		workDir: workDir,
		exec:    exec,
		health:  checker,
		logger:  logger,
		output:  os.Stdout,
		state:   StateAbsent,
		settle:  2 * time.Second,
	}, nil
}

// SetOutput redirects status messages. nil discards them.
func (c *DefaultEnvController) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	c.output = w
}

// State returns the last lifecycle state this controller reached.
func (c *DefaultEnvController) State() LifecycleState {
	return c.state
}

// Up runs the full lifecycle.
func (c *DefaultEnvController) Up(ctx context.Context, opts UpOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	startTime := time.Now()

	c.state = StateCleaning
	if err := c.clean(ctx); err != nil {
		c.state = StateFailed
		return err
	}

	c.state = StateMaterializing
	if err := c.materialize(); err != nil {
		c.state = StateFailed
		return err
	}

	c.state = StateStarting
	if err := c.start(ctx); err != nil {
		c.state = StateFailed
		return err
	}

	if !opts.SkipVerify {
		c.state = StateVerifying
		if err := c.verify(ctx, opts.Timeout); err != nil {
			c.state = StateFailed
			return err
		}
		c.setupBuckets(ctx)
	}

	c.state = StateReady
	c.report(startTime)
	return nil
}

// Down stops the stack. An absent stack is success.
func (c *DefaultEnvController) Down(ctx context.Context, removeVolumes bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.exec.Down(ctx, compose.DownOptions{
		RemoveVolumes: removeVolumes,
		RemoveOrphans: true,
	})
	if err != nil {
		if errors.Is(err, compose.ErrComposeFileMissing) {
			fmt.Fprintf(c.output, "Nothing to stop: no environment at %s\n", c.workDir)
			c.state = StateAbsent
			return nil
		}
		return fmt.Errorf("stop stack: %w", err)
	}

	c.state = StateAbsent
	fmt.Fprintf(c.output, "Stack stopped\n")
	return nil
}

// Destroy tears everything down including volumes and the working
// directory.
func (c *DefaultEnvController) Destroy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.exec.Down(ctx, compose.DownOptions{
		RemoveVolumes: true,
		RemoveOrphans: true,
	})
	if err != nil && !errors.Is(err, compose.ErrComposeFileMissing) {
		// Keep going: sweep catches what compose could not reach.
		c.logger.Warn("compose down failed during destroy", "error", err)
	}

	c.sweepEngine(ctx)

	if err := os.RemoveAll(c.workDir); err != nil {
		return fmt.Errorf("remove working directory %s: %w", c.workDir, err)
	}

	c.state = StateAbsent
	fmt.Fprintf(c.output, "Environment destroyed\n")
	return nil
}

// Status reports lifecycle state derived from container status.
func (c *DefaultEnvController) Status(ctx context.Context) (*EnvStatus, error) {
	status, err := c.exec.Status(ctx)
	if err != nil {
		if errors.Is(err, compose.ErrComposeFileMissing) {
			return &EnvStatus{State: StateAbsent}, nil
		}
		return nil, err
	}

	env := &EnvStatus{Services: status.Services}
	switch {
	case status.Running == 0:
		env.State = StateAbsent
	case status.Running >= 3 && status.Unhealthy == 0:
		env.State = StateReady
	default:
		env.State = StateStarting
	}
	return env, nil
}

// Logs streams service logs to the controller's output.
func (c *DefaultEnvController) Logs(ctx context.Context, services []string, follow bool, tail int) error {
	return c.exec.Logs(ctx, compose.LogsOptions{
		Services: services,
		Follow:   follow,
		Tail:     tail,
	}, c.output)
}

// Verify runs one round of health checks and reports per service.
func (c *DefaultEnvController) Verify(ctx context.Context) error {
	statuses, err := c.health.CheckAllServices(ctx, health.DefaultServiceDefinitions())
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	failed := 0
	for _, s := range statuses {
		marker := "ok"
		if s.State != health.StateHealthy {
			marker = string(s.State)
			failed++
		}
		fmt.Fprintf(c.output, "  %-8s %-12s %s\n", s.Name, marker, s.Message)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d services unhealthy", ErrVerifyFailed, failed, len(statuses))
	}
	return nil
}

// =============================================================================
// LIFECYCLE PHASES
// =============================================================================

// clean removes leftovers from previous runs. Every "nothing to
// remove" outcome is success.
func (c *DefaultEnvController) clean(ctx context.Context) error {
	fmt.Fprintf(c.output, "Cleaning up previous environment...\n")

	_, err := c.exec.Down(ctx, compose.DownOptions{
		RemoveVolumes: false,
		RemoveOrphans: true,
	})
	if err != nil && !errors.Is(err, compose.ErrComposeFileMissing) {
		return fmt.Errorf("clean previous stack: %w", err)
	}

	c.sweepEngine(ctx)
	return nil
}

// sweepEngine removes containers from our images and dangling volumes.
// Best-effort: failures are logged, not propagated.
func (c *DefaultEnvController) sweepEngine(ctx context.Context) {
	images := []string{c.stack.Images.MinIO, c.stack.Images.Nessie, c.stack.Images.Trino}
	if result, err := c.exec.SweepContainers(ctx, images); err != nil {
		c.logger.Warn("container sweep failed", "error", err)
	} else {
		if len(result.ContainersRemoved) > 0 {
			fmt.Fprintf(c.output, "  Removed %d leftover container(s)\n", len(result.ContainersRemoved))
		}
		for _, e := range result.Errors {
			c.logger.Warn("container sweep", "detail", e)
		}
	}

	if result, err := c.exec.RemoveDanglingVolumes(ctx); err != nil {
		c.logger.Warn("dangling volume sweep failed", "error", err)
	} else if len(result.VolumesRemoved) > 0 {
		fmt.Fprintf(c.output, "  Removed %d dangling volume(s)\n", len(result.VolumesRemoved))
	}
}

func (c *DefaultEnvController) materialize() error {
	fmt.Fprintf(c.output, "Rendering environment into %s...\n", c.workDir)

	plan, err := scaffold.Plan(c.stack)
	if err != nil {
		return fmt.Errorf("plan environment: %w", err)
	}
	if err := scaffold.Materialize(plan, c.workDir, c.logger.Slog()); err != nil {
		return fmt.Errorf("materialize environment: %w", err)
	}
	return nil
}

func (c *DefaultEnvController) start(ctx context.Context) error {
	fmt.Fprintf(c.output, "Starting services...\n")

	result, err := c.exec.Up(ctx, compose.UpOptions{})
	if err != nil {
		c.tailLogs(ctx, nil)
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	if result != nil && !result.Success {
		c.tailLogs(ctx, nil)
		return fmt.Errorf("%w: %s", ErrStartFailed, result.Stderr)
	}
	return nil
}

// verify waits for the stack to become healthy. A Trino-only failure
// is advisory: first-boot JVM warmup can legitimately outlast the
// timeout, so we tail its logs and proceed.
func (c *DefaultEnvController) verify(ctx context.Context, timeout time.Duration) error {
	fmt.Fprintf(c.output, "Waiting for services to become healthy...\n")

	// Short settle before the first poll; compose returns before
	// containers accept connections.
	if c.settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.settle):
		}
	}

	opts := health.DefaultWaitOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}

	result, err := c.health.WaitForServices(ctx, health.DefaultServiceDefinitions(), opts)
	if err != nil {
		if result != nil && c.onlyTrinoFailed(result) {
			fmt.Fprintf(c.output, "  Trino is still warming up; it may take another minute\n")
			c.tailLogs(ctx, []string{scaffold.ServiceTrino})
			return nil
		}
		c.tailLogs(ctx, nil)
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	fmt.Fprintf(c.output, "  All %d services healthy (took %v)\n",
		len(result.Services), result.Duration.Round(time.Millisecond))
	return nil
}

func (c *DefaultEnvController) onlyTrinoFailed(result *health.WaitResult) bool {
	return len(result.FailedCritical) == 1 && result.FailedCritical[0] == "Trino"
}

// setupBuckets provisions the warehouse bucket inside the MinIO
// container. Best-effort: a missing bucket only breaks the first write,
// and the generated setup script can be re-run by hand.
func (c *DefaultEnvController) setupBuckets(ctx context.Context) {
	alias := []string{
		"mc", "alias", "set", "local",
		fmt.Sprintf("http://localhost:%d", scaffold.MinIOPort),
		c.stack.Credentials.AccessKey, c.stack.Credentials.SecretKey,
	}
	if _, err := c.exec.Exec(ctx, compose.ExecOptions{Service: scaffold.ServiceMinIO, Command: alias}); err != nil {
		c.logger.Warn("bucket setup: mc alias failed", "error", err)
		fmt.Fprintf(c.output, "  Warning: could not provision bucket %q; run scripts/setup-buckets.sh\n", c.stack.Warehouse)
		return
	}

	mb := []string{"mc", "mb", "--ignore-existing", "local/" + c.stack.Warehouse}
	if _, err := c.exec.Exec(ctx, compose.ExecOptions{Service: scaffold.ServiceMinIO, Command: mb}); err != nil {
		c.logger.Warn("bucket setup: mc mb failed", "error", err)
		fmt.Fprintf(c.output, "  Warning: could not provision bucket %q; run scripts/setup-buckets.sh\n", c.stack.Warehouse)
		return
	}

	fmt.Fprintf(c.output, "  Bucket %q ready\n", c.stack.Warehouse)
}

// tailLogs dumps recent service logs for diagnosis. Best-effort.
func (c *DefaultEnvController) tailLogs(ctx context.Context, services []string) {
	err := c.exec.Logs(ctx, compose.LogsOptions{
		Services: services,
		Tail:     50,
	}, c.output)
	if err != nil {
		c.logger.Warn("log tail failed", "error", err)
	}
}

func (c *DefaultEnvController) report(startTime time.Time) {
	fmt.Fprintf(c.output, "\nStack is up (took %v)\n\n", time.Since(startTime).Round(time.Second))
	fmt.Fprintf(c.output, "  MinIO S3 API:   http://localhost:%d\n", scaffold.MinIOPort)
	fmt.Fprintf(c.output, "  MinIO console:  http://localhost:%d  (%s / %s)\n",
		scaffold.MinIOConsolePort, c.stack.Credentials.AccessKey, c.stack.Credentials.SecretKey)
	fmt.Fprintf(c.output, "  Nessie API:     http://localhost:%d/api/v2\n", scaffold.NessiePort)
	fmt.Fprintf(c.output, "  Trino:          http://localhost:%d\n\n", scaffold.TrinoPort)
	fmt.Fprintf(c.output, "Next steps:\n")
	fmt.Fprintf(c.output, "  lakestack status\n")
	fmt.Fprintf(c.output, "  lakestack logs trino -f\n")
	fmt.Fprintf(c.output, "  docker exec -it %s trino\n", scaffold.ServiceTrino)
}

// =============================================================================
// MOCK IMPLEMENTATION
// =============================================================================

// MockEnvController is a test double for EnvController. Unset function
// fields succeed with zero values.
type MockEnvController struct {
	UpFunc      func(ctx context.Context, opts UpOptions) error
	DownFunc    func(ctx context.Context, removeVolumes bool) error
	DestroyFunc func(ctx context.Context) error
	StatusFunc  func(ctx context.Context) (*EnvStatus, error)
	LogsFunc    func(ctx context.Context, services []string, follow bool, tail int) error
	VerifyFunc  func(ctx context.Context) error

	// Calls records method names in invocation order.
	Calls []string
	mu    sync.Mutex
}

func (m *MockEnvController) record(method string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, method)
	m.mu.Unlock()
}

func (m *MockEnvController) Up(ctx context.Context, opts UpOptions) error {
	m.record("Up")
	if m.UpFunc != nil {
		return m.UpFunc(ctx, opts)
	}
	return nil
}

func (m *MockEnvController) Down(ctx context.Context, removeVolumes bool) error {
	m.record("Down")
	if m.DownFunc != nil {
		return m.DownFunc(ctx, removeVolumes)
	}
	return nil
}

func (m *MockEnvController) Destroy(ctx context.Context) error {
	m.record("Destroy")
	if m.DestroyFunc != nil {
		return m.DestroyFunc(ctx)
	}
	return nil
}

func (m *MockEnvController) Status(ctx context.Context) (*EnvStatus, error) {
	m.record("Status")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &EnvStatus{State: StateAbsent}, nil
}

func (m *MockEnvController) Logs(ctx context.Context, services []string, follow bool, tail int) error {
	m.record("Logs")
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, services, follow, tail)
	}
	return nil
}

func (m *MockEnvController) Verify(ctx context.Context) error {
	m.record("Verify")
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx)
	}
	return nil
}

var (
	_ EnvController = (*DefaultEnvController)(nil)
	_ EnvController = (*MockEnvController)(nil)
)
