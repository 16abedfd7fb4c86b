// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package health

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/compose"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Checker verifies service availability (binary up/down).
//
// # Description
//
// This interface provides basic health checking for startup sequencing
// and status display. It supports HTTP, TCP, and in-container exec
// checks and handles concurrent checking with exponential backoff.
//
// # Inputs
//
// Implementations require:
//   - compose.Executor for exec checks
//   - HTTPClient for HTTP checks
//   - Config for timeout configuration
//
// # Examples
//
//	checker := NewDefaultChecker(executor, DefaultConfig())
//
//	// Single service check
//	status, err := checker.CheckService(ctx, serviceDef)
//	if status.State == StateHealthy {
//	    fmt.Println("Service is healthy")
//	}
//
//	// Wait for all services during startup
//	result, err := checker.WaitForServices(ctx, services, DefaultWaitOptions())
//	if !result.Success {
//	    for _, name := range result.FailedCritical {
//	        fmt.Printf("Critical service failed: %s\n", name)
//	    }
//	}
//
// # Limitations
//
//   - Binary health only (healthy/unhealthy); no degraded state
//   - Network-dependent; local checks may still fail
//
// # Assumptions
//
//   - Services will eventually start within the timeout
//   - Published ports are reachable from the checker host
type Checker interface {
	// WaitForServices blocks until all critical services are healthy or
	// the timeout elapses. Polls with exponential backoff. Non-critical
	// services are checked but their failure doesn't cause an error.
	WaitForServices(ctx context.Context, services []ServiceDefinition, opts WaitOptions) (*WaitResult, error)

	// CheckService performs a single health check without retries.
	CheckService(ctx context.Context, service ServiceDefinition) (*Status, error)

	// CheckAllServices checks multiple services concurrently,
	// preserving input order in the results.
	CheckAllServices(ctx context.Context, services []ServiceDefinition) ([]Status, error)
}

// HTTPClient abstracts HTTP operations for health checking.
// *http.Client satisfies this; tests supply a mock.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// ERROR VARIABLES
// =============================================================================

// ErrHealthCheckTimeout is returned when WaitForServices times out.
var ErrHealthCheckTimeout = errors.New("health check timeout")

// ErrCriticalServiceFailed is returned when a critical service fails
// with FailFast enabled.
var ErrCriticalServiceFailed = errors.New("critical service failed")

// =============================================================================
// STRUCTS
// =============================================================================

// DefaultChecker implements Checker with full functionality.
//
// # Description
//
// Production implementation supporting HTTP, TCP, and exec checks.
// Uses exponential backoff for WaitForServices and concurrent checking
// for CheckAllServices.
//
// # Thread Safety
//
// Safe for concurrent use.
type DefaultChecker struct {
	exec       compose.Executor
	httpClient HTTPClient
	config     Config
}

// NewDefaultChecker creates a health checker with a standard HTTP client.
//
// # Inputs
//
//   - exec: Compose executor for exec checks. May be nil if no
//     definitions use CheckExec.
//   - config: Configuration for timeouts and defaults.
//
// # Outputs
//
//   - *DefaultChecker: Configured health checker ready for use.
func NewDefaultChecker(exec compose.Executor, config Config) *DefaultChecker {
	return &DefaultChecker{
		exec:   exec,
		config: config,
		httpClient: &http.Client{
			Timeout: config.DefaultTimeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
	}
}

// NewDefaultCheckerWithHTTPClient creates a health checker with an
// injected HTTP client. Used primarily for testing.
func NewDefaultCheckerWithHTTPClient(exec compose.Executor, config Config, httpClient HTTPClient) *DefaultChecker {
	return &DefaultChecker{
		exec:       exec,
		config:     config,
		httpClient: httpClient,
	}
}

// =============================================================================
// DefaultChecker METHODS
// =============================================================================

// WaitForServices blocks until all critical services are healthy or timeout.
func (h *DefaultChecker) WaitForServices(ctx context.Context, services []ServiceDefinition, opts WaitOptions) (*WaitResult, error) {
	startTime := time.Now()
	result := &WaitResult{
		StartedAt: startTime,
		Services:  make([]Status, 0, len(services)),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	checkServices := h.filterServicesForWait(services, opts, result)
	healthyServices := make(map[string]bool)
	var latestStatuses []Status
	interval := opts.InitialInterval

	for {
		if h.isContextDone(timeoutCtx) {
			return h.buildTimeoutResult(result, latestStatuses, checkServices, healthyServices, startTime, ctx)
		}

		statuses, err := h.CheckAllServices(timeoutCtx, checkServices)
		if err != nil {
			h.sleepWithContext(timeoutCtx, h.applyJitter(interval, opts.Jitter))
			interval = h.nextInterval(interval, opts.MaxInterval, opts.Multiplier)
			continue
		}

		latestStatuses = statuses
		for _, status := range statuses {
			if status.State == StateHealthy {
				healthyServices[status.Name] = true
			}
		}

		if h.areAllCriticalHealthy(checkServices, healthyServices) {
			result.Duration = time.Since(startTime)
			result.CompletedAt = time.Now()
			result.Services = statuses
			result.Success = true
			return result, nil
		}

		if opts.FailFast {
			if failed := h.findFailedCritical(checkServices, healthyServices); failed != "" {
				return h.buildFailFastResult(result, statuses, failed, startTime)
			}
		}

		h.sleepWithContext(timeoutCtx, h.applyJitter(interval, opts.Jitter))
		interval = h.nextInterval(interval, opts.MaxInterval, opts.Multiplier)
	}
}

// CheckService performs a single health check on one service.
//
// # Description
//
// Performs a single check without retries. Delegates to type-specific
// check methods based on service.CheckType. The returned error is
// non-nil only when the check infrastructure itself failed; an
// unhealthy or unreachable service is reported through the Status.
func (h *DefaultChecker) CheckService(ctx context.Context, service ServiceDefinition) (*Status, error) {
	startTime := time.Now()
	status := &Status{
		Name:        service.Name,
		LastChecked: startTime,
	}

	timeout := h.config.DefaultTimeout
	if service.Timeout > 0 {
		timeout = service.Timeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch service.CheckType {
	case CheckHTTP:
		err = h.performHTTPCheck(checkCtx, service, status)
	case CheckTCP:
		err = h.performTCPCheck(checkCtx, service, status)
	case CheckExec:
		err = h.performExecCheck(checkCtx, service, status)
	default:
		status.State = StateUnhealthy
		status.Message = fmt.Sprintf("unknown check type: %s", service.CheckType)
		return status, fmt.Errorf("unknown check type: %s", service.CheckType)
	}

	status.Latency = time.Since(startTime)
	status.LastChecked = time.Now()

	return status, err
}

// CheckAllServices checks multiple services concurrently.
func (h *DefaultChecker) CheckAllServices(ctx context.Context, services []ServiceDefinition) ([]Status, error) {
	if len(services) == 0 {
		return []Status{}, nil
	}

	results := make([]Status, len(services))
	var wg sync.WaitGroup

	for i, svc := range services {
		wg.Add(1)
		go func(idx int, service ServiceDefinition) {
			defer wg.Done()
			status, _ := h.CheckService(ctx, service)
			if status != nil {
				results[idx] = *status
			} else {
				results[idx] = Status{
					Name:        service.Name,
					State:       StateUnreachable,
					Message:     "check failed",
					LastChecked: time.Now(),
				}
			}
		}(i, svc)
	}

	wg.Wait()
	return results, nil
}

// =============================================================================
// DefaultChecker PRIVATE HELPER METHODS
// =============================================================================

// filterServicesForWait returns only critical services if SkipOptional
// is set, recording skipped names on the result.
func (h *DefaultChecker) filterServicesForWait(services []ServiceDefinition, opts WaitOptions, result *WaitResult) []ServiceDefinition {
	if !opts.SkipOptional {
		return services
	}

	filtered := make([]ServiceDefinition, 0)
	for _, svc := range services {
		if svc.Critical {
			filtered = append(filtered, svc)
		} else {
			result.Skipped = append(result.Skipped, svc.Name)
		}
	}
	return filtered
}

func (h *DefaultChecker) isContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (h *DefaultChecker) buildTimeoutResult(result *WaitResult, statuses []Status, services []ServiceDefinition, healthy map[string]bool, startTime time.Time, ctx context.Context) (*WaitResult, error) {
	result.Duration = time.Since(startTime)
	result.CompletedAt = time.Now()
	result.Services = statuses
	result.Success = false

	for _, svc := range services {
		if svc.Critical && !healthy[svc.Name] {
			result.FailedCritical = append(result.FailedCritical, svc.Name)
		}
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("context cancelled: %w", ctx.Err())
	}
	return result, ErrHealthCheckTimeout
}

func (h *DefaultChecker) buildFailFastResult(result *WaitResult, statuses []Status, failedService string, startTime time.Time) (*WaitResult, error) {
	result.Duration = time.Since(startTime)
	result.CompletedAt = time.Now()
	result.Services = statuses
	result.FailedCritical = []string{failedService}
	result.Success = false

	var message string
	for _, status := range statuses {
		if status.Name == failedService {
			message = status.Message
			break
		}
	}
	return result, fmt.Errorf("%w: %s: %s", ErrCriticalServiceFailed, failedService, message)
}

func (h *DefaultChecker) areAllCriticalHealthy(services []ServiceDefinition, healthy map[string]bool) bool {
	for _, svc := range services {
		if svc.Critical && !healthy[svc.Name] {
			return false
		}
	}
	return true
}

func (h *DefaultChecker) findFailedCritical(services []ServiceDefinition, healthy map[string]bool) string {
	for _, svc := range services {
		if svc.Critical && !healthy[svc.Name] {
			return svc.Name
		}
	}
	return ""
}

// applyJitter multiplies interval by a factor in [1-jitter, 1+jitter].
func (h *DefaultChecker) applyJitter(interval time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return interval
	}
	factor := 1.0 + (rand.Float64()*2-1)*jitter
	return time.Duration(float64(interval) * factor)
}

// nextInterval multiplies the current interval by multiplier, capped at max.
func (h *DefaultChecker) nextInterval(current, max time.Duration, multiplier float64) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max {
		return max
	}
	return next
}

// sleepWithContext sleeps for duration or until context is done.
func (h *DefaultChecker) sleepWithContext(ctx context.Context, duration time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
}

// =============================================================================
// DefaultChecker CHECK TYPE METHODS
// =============================================================================

// performHTTPCheck sends HTTP GET to the service URL and checks the
// response status code.
func (h *DefaultChecker) performHTTPCheck(ctx context.Context, service ServiceDefinition, status *Status) error {
	if service.URL == "" {
		status.State = StateUnhealthy
		status.Message = "no URL configured for HTTP check"
		return fmt.Errorf("no URL configured for HTTP check")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service.URL, nil)
	if err != nil {
		status.State = StateUnreachable
		status.Message = fmt.Sprintf("failed to create request: %v", err)
		return err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		status.State = StateUnreachable
		status.Message = fmt.Sprintf("request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	status.HTTPStatus = resp.StatusCode

	expectedStatus := h.config.DefaultExpectedStatus
	if service.ExpectedStatus > 0 {
		expectedStatus = service.ExpectedStatus
	}

	if resp.StatusCode == expectedStatus {
		status.State = StateHealthy
		status.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	} else {
		status.State = StateUnhealthy
		status.Message = fmt.Sprintf("HTTP %d (expected %d)", resp.StatusCode, expectedStatus)
	}

	return nil
}

// performTCPCheck attempts a TCP connection to the service URL's
// host:port. Only verifies the port is open.
func (h *DefaultChecker) performTCPCheck(ctx context.Context, service ServiceDefinition, status *Status) error {
	if service.URL == "" {
		status.State = StateUnhealthy
		status.Message = "no URL configured for TCP check"
		return fmt.Errorf("no URL configured for TCP check")
	}

	host := strings.TrimPrefix(service.URL, "tcp://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		status.State = StateUnreachable
		status.Message = fmt.Sprintf("TCP connection failed: %v", err)
		return nil
	}
	defer conn.Close()

	status.State = StateHealthy
	status.Message = "TCP port open"
	return nil
}

// performExecCheck runs the service's command inside its container and
// treats a zero exit code as healthy. When exec is unavailable (no
// executor, or the container cannot run commands yet) and the
// definition carries a URL, falls back to an HTTP check so a working
// service is not reported down for infrastructure reasons.
func (h *DefaultChecker) performExecCheck(ctx context.Context, service ServiceDefinition, status *Status) error {
	if service.Service == "" || len(service.Command) == 0 {
		status.State = StateUnhealthy
		status.Message = "no command configured for exec check"
		return fmt.Errorf("no command configured for exec check")
	}

	if h.exec == nil {
		if service.URL != "" {
			return h.performHTTPCheck(ctx, service, status)
		}
		status.State = StateUnhealthy
		status.Message = "no executor configured for exec check"
		return fmt.Errorf("no executor configured for exec check")
	}

	res, err := h.exec.Exec(ctx, compose.ExecOptions{
		Service: service.Service,
		Command: service.Command,
	})
	if err != nil {
		if errors.Is(err, compose.ErrContainerNotRunning) {
			status.State = StateUnreachable
			status.Message = fmt.Sprintf("container not running: %s", service.Service)
			return nil
		}
		if service.URL != "" {
			return h.performHTTPCheck(ctx, service, status)
		}
		status.State = StateUnreachable
		status.Message = fmt.Sprintf("exec failed: %v", err)
		return nil
	}

	if res.ExitCode == 0 {
		status.State = StateHealthy
		status.Message = "command succeeded"
	} else {
		status.State = StateUnhealthy
		status.Message = fmt.Sprintf("command exited %d", res.ExitCode)
	}

	return nil
}

// =============================================================================
// MockChecker
// =============================================================================

// MockChecker is a mock implementation for testing.
//
// # Description
//
// Provides a configurable mock for unit testing code that depends on
// Checker. All methods can be configured via function fields; calls
// are recorded.
//
// # Examples
//
//	mock := &MockChecker{
//	    CheckServiceFunc: func(ctx context.Context, svc ServiceDefinition) (*Status, error) {
//	        return &Status{Name: svc.Name, State: StateHealthy}, nil
//	    },
//	}
type MockChecker struct {
	WaitForServicesFunc  func(ctx context.Context, services []ServiceDefinition, opts WaitOptions) (*WaitResult, error)
	CheckServiceFunc     func(ctx context.Context, service ServiceDefinition) (*Status, error)
	CheckAllServicesFunc func(ctx context.Context, services []ServiceDefinition) ([]Status, error)

	WaitForServicesCalls  []WaitForServicesCall
	CheckServiceCalls     []ServiceDefinition
	CheckAllServicesCalls [][]ServiceDefinition
	mu                    sync.Mutex
}

// WaitForServicesCall records a call to WaitForServices.
type WaitForServicesCall struct {
	Services []ServiceDefinition
	Options  WaitOptions
}

// WaitForServices records the call and delegates to WaitForServicesFunc
// if set; returns a successful result otherwise.
func (m *MockChecker) WaitForServices(ctx context.Context, services []ServiceDefinition, opts WaitOptions) (*WaitResult, error) {
	m.mu.Lock()
	m.WaitForServicesCalls = append(m.WaitForServicesCalls, WaitForServicesCall{Services: services, Options: opts})
	m.mu.Unlock()

	if m.WaitForServicesFunc != nil {
		return m.WaitForServicesFunc(ctx, services, opts)
	}
	return &WaitResult{Success: true, CompletedAt: time.Now()}, nil
}

// CheckService records the call and delegates to CheckServiceFunc if
// set; returns a healthy status otherwise.
func (m *MockChecker) CheckService(ctx context.Context, service ServiceDefinition) (*Status, error) {
	m.mu.Lock()
	m.CheckServiceCalls = append(m.CheckServiceCalls, service)
	m.mu.Unlock()

	if m.CheckServiceFunc != nil {
		return m.CheckServiceFunc(ctx, service)
	}
	return &Status{Name: service.Name, State: StateHealthy, LastChecked: time.Now()}, nil
}

// CheckAllServices records the call and delegates to
// CheckAllServicesFunc if set; returns all-healthy otherwise.
func (m *MockChecker) CheckAllServices(ctx context.Context, services []ServiceDefinition) ([]Status, error) {
	m.mu.Lock()
	m.CheckAllServicesCalls = append(m.CheckAllServicesCalls, services)
	m.mu.Unlock()

	if m.CheckAllServicesFunc != nil {
		return m.CheckAllServicesFunc(ctx, services)
	}
	statuses := make([]Status, len(services))
	for i, svc := range services {
		statuses[i] = Status{Name: svc.Name, State: StateHealthy, LastChecked: time.Now()}
	}
	return statuses, nil
}

// Compile-time interface checks.
var (
	_ Checker = (*DefaultChecker)(nil)
	_ Checker = (*MockChecker)(nil)
)
