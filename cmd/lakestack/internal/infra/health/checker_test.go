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
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakestack-io/lakestack/cmd/lakestack/internal/infra/compose"
)

// stubHTTPClient returns canned responses keyed by URL substring.
type stubHTTPClient struct {
	DoFunc   func(req *http.Request) (*http.Response, error)
	Requests []string
}

func (s *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	s.Requests = append(s.Requests, req.URL.String())
	return s.DoFunc(req)
}

func httpResponse(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestDefaultServiceDefinitions(t *testing.T) {
	defs := DefaultServiceDefinitions()
	require.Len(t, defs, 3)

	byName := make(map[string]ServiceDefinition)
	for _, d := range defs {
		assert.True(t, d.Critical, "%s should be critical", d.Name)
		byName[d.Name] = d
	}

	assert.Equal(t, CheckHTTP, byName["MinIO"].CheckType)
	assert.Contains(t, byName["MinIO"].URL, "localhost:9000/minio/health/live")

	assert.Equal(t, CheckHTTP, byName["Nessie"].CheckType)
	assert.Contains(t, byName["Nessie"].URL, "localhost:19120/api/v2/config")

	trino := byName["Trino"]
	assert.Equal(t, CheckExec, trino.CheckType)
	assert.Equal(t, "trino", trino.Service)
	assert.Equal(t, []string{"trino", "--execute", "SELECT 1"}, trino.Command)
	assert.Contains(t, trino.URL, "localhost:8080/v1/info")
}

func TestCheckServiceHTTP(t *testing.T) {
	tests := []struct {
		name      string
		doFunc    func(req *http.Request) (*http.Response, error)
		wantState State
	}{
		{
			name: "healthy on 200",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return httpResponse(200), nil
			},
			wantState: StateHealthy,
		},
		{
			name: "unhealthy on 503",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return httpResponse(503), nil
			},
			wantState: StateUnhealthy,
		},
		{
			name: "unreachable on connection error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			wantState: StateUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubHTTPClient{DoFunc: tt.doFunc}
			checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

			status, err := checker.CheckService(context.Background(), ServiceDefinition{
				Name:      "MinIO",
				URL:       "http://localhost:9000/minio/health/live",
				CheckType: CheckHTTP,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, status.State)
			assert.False(t, status.LastChecked.IsZero())
		})
	}
}

func TestCheckServiceHTTPExpectedStatus(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(204), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	status, err := checker.CheckService(context.Background(), ServiceDefinition{
		Name:           "svc",
		URL:            "http://localhost:9000/ready",
		CheckType:      CheckHTTP,
		ExpectedStatus: 204,
	})
	require.NoError(t, err)
	assert.Equal(t, StateHealthy, status.State)
	assert.Equal(t, 204, status.HTTPStatus)
}

func TestCheckServiceHTTPMissingURL(t *testing.T) {
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), &stubHTTPClient{})

	status, err := checker.CheckService(context.Background(), ServiceDefinition{
		Name:      "svc",
		CheckType: CheckHTTP,
	})
	require.Error(t, err)
	assert.Equal(t, StateUnhealthy, status.State)
}

func TestCheckServiceExec(t *testing.T) {
	t.Run("healthy on zero exit", func(t *testing.T) {
		exec := &compose.MockExecutor{
			ExecFunc: func(ctx context.Context, opts compose.ExecOptions) (*compose.ExecResult, error) {
				assert.Equal(t, "trino", opts.Service)
				assert.Equal(t, []string{"trino", "--execute", "SELECT 1"}, opts.Command)
				return &compose.ExecResult{ExitCode: 0, Stdout: "\"1\"\n"}, nil
			},
		}
		checker := NewDefaultCheckerWithHTTPClient(exec, DefaultConfig(), &stubHTTPClient{})

		status, err := checker.CheckService(context.Background(), ServiceDefinition{
			Name:      "Trino",
			Service:   "trino",
			Command:   []string{"trino", "--execute", "SELECT 1"},
			CheckType: CheckExec,
		})
		require.NoError(t, err)
		assert.Equal(t, StateHealthy, status.State)
	})

	t.Run("unreachable when container not running", func(t *testing.T) {
		exec := &compose.MockExecutor{
			ExecFunc: func(ctx context.Context, opts compose.ExecOptions) (*compose.ExecResult, error) {
				return nil, compose.ErrContainerNotRunning
			},
		}
		checker := NewDefaultCheckerWithHTTPClient(exec, DefaultConfig(), &stubHTTPClient{})

		status, err := checker.CheckService(context.Background(), ServiceDefinition{
			Name:      "Trino",
			Service:   "trino",
			Command:   []string{"trino", "--execute", "SELECT 1"},
			CheckType: CheckExec,
		})
		require.NoError(t, err)
		assert.Equal(t, StateUnreachable, status.State)
		assert.Contains(t, status.Message, "container not running")
	})

	t.Run("falls back to HTTP on exec failure", func(t *testing.T) {
		exec := &compose.MockExecutor{
			ExecFunc: func(ctx context.Context, opts compose.ExecOptions) (*compose.ExecResult, error) {
				return nil, errors.New("exec plumbing broke")
			},
		}
		client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
			return httpResponse(200), nil
		}}
		checker := NewDefaultCheckerWithHTTPClient(exec, DefaultConfig(), client)

		status, err := checker.CheckService(context.Background(), ServiceDefinition{
			Name:      "Trino",
			URL:       "http://localhost:8080/v1/info",
			Service:   "trino",
			Command:   []string{"trino", "--execute", "SELECT 1"},
			CheckType: CheckExec,
		})
		require.NoError(t, err)
		assert.Equal(t, StateHealthy, status.State)
		require.Len(t, client.Requests, 1)
		assert.Contains(t, client.Requests[0], "/v1/info")
	})

	t.Run("falls back to HTTP with nil executor", func(t *testing.T) {
		client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
			return httpResponse(200), nil
		}}
		checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

		status, err := checker.CheckService(context.Background(), ServiceDefinition{
			Name:      "Trino",
			URL:       "http://localhost:8080/v1/info",
			Service:   "trino",
			Command:   []string{"trino", "--execute", "SELECT 1"},
			CheckType: CheckExec,
		})
		require.NoError(t, err)
		assert.Equal(t, StateHealthy, status.State)
	})

	t.Run("unhealthy on nonzero exit", func(t *testing.T) {
		exec := &compose.MockExecutor{
			ExecFunc: func(ctx context.Context, opts compose.ExecOptions) (*compose.ExecResult, error) {
				return &compose.ExecResult{ExitCode: 1}, nil
			},
		}
		checker := NewDefaultCheckerWithHTTPClient(exec, DefaultConfig(), &stubHTTPClient{})

		status, err := checker.CheckService(context.Background(), ServiceDefinition{
			Name:      "Trino",
			Service:   "trino",
			Command:   []string{"trino", "--execute", "SELECT 1"},
			CheckType: CheckExec,
		})
		require.NoError(t, err)
		assert.Equal(t, StateUnhealthy, status.State)
	})
}

func TestCheckAllServicesPreservesOrder(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "config") {
			return httpResponse(500), nil
		}
		return httpResponse(200), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	services := []ServiceDefinition{
		{Name: "MinIO", URL: "http://localhost:9000/minio/health/live", CheckType: CheckHTTP},
		{Name: "Nessie", URL: "http://localhost:19120/api/v2/config", CheckType: CheckHTTP},
	}

	statuses, err := checker.CheckAllServices(context.Background(), services)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "MinIO", statuses[0].Name)
	assert.Equal(t, StateHealthy, statuses[0].State)
	assert.Equal(t, "Nessie", statuses[1].Name)
	assert.Equal(t, StateUnhealthy, statuses[1].State)
}

func TestWaitForServicesSuccess(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(200), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	opts := DefaultWaitOptions()
	opts.Timeout = 5 * time.Second

	result, err := checker.WaitForServices(context.Background(), []ServiceDefinition{
		{Name: "MinIO", URL: "http://localhost:9000/minio/health/live", CheckType: CheckHTTP, Critical: true},
	}, opts)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.FailedCritical)
	require.Len(t, result.Services, 1)
	assert.Equal(t, StateHealthy, result.Services[0].State)
}

func TestWaitForServicesTimeout(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(503), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	opts := DefaultWaitOptions()
	opts.Timeout = 150 * time.Millisecond
	opts.InitialInterval = 20 * time.Millisecond
	opts.MaxInterval = 40 * time.Millisecond

	result, err := checker.WaitForServices(context.Background(), []ServiceDefinition{
		{Name: "Nessie", URL: "http://localhost:19120/api/v2/config", CheckType: CheckHTTP, Critical: true},
	}, opts)
	require.ErrorIs(t, err, ErrHealthCheckTimeout)
	assert.False(t, result.Success)
	assert.Contains(t, result.FailedCritical, "Nessie")
}

func TestWaitForServicesFailFast(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(500), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	opts := DefaultWaitOptions()
	opts.Timeout = 5 * time.Second
	opts.FailFast = true

	start := time.Now()
	result, err := checker.WaitForServices(context.Background(), []ServiceDefinition{
		{Name: "MinIO", URL: "http://localhost:9000/minio/health/live", CheckType: CheckHTTP, Critical: true},
	}, opts)
	require.ErrorIs(t, err, ErrCriticalServiceFailed)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"MinIO"}, result.FailedCritical)
	assert.Less(t, time.Since(start), 2*time.Second, "fail fast should not wait out the timeout")
}

func TestWaitForServicesSkipOptional(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(200), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	opts := DefaultWaitOptions()
	opts.Timeout = 5 * time.Second
	opts.SkipOptional = true

	result, err := checker.WaitForServices(context.Background(), []ServiceDefinition{
		{Name: "MinIO", URL: "http://localhost:9000/minio/health/live", CheckType: CheckHTTP, Critical: true},
		{Name: "Extra", URL: "http://localhost:9999/health", CheckType: CheckHTTP, Critical: false},
	}, opts)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"Extra"}, result.Skipped)
	require.Len(t, result.Services, 1)
}

func TestWaitForServicesCancellation(t *testing.T) {
	client := &stubHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(503), nil
	}}
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), client)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	opts := DefaultWaitOptions()
	opts.Timeout = 30 * time.Second
	opts.InitialInterval = 10 * time.Millisecond

	start := time.Now()
	result, err := checker.WaitForServices(ctx, []ServiceDefinition{
		{Name: "MinIO", URL: "http://localhost:9000/minio/health/live", CheckType: CheckHTTP, Critical: true},
	}, opts)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation should stop waiting promptly")
}

func TestBackoffHelpers(t *testing.T) {
	checker := NewDefaultCheckerWithHTTPClient(nil, DefaultConfig(), &stubHTTPClient{})

	t.Run("next interval grows and caps", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, checker.nextInterval(1*time.Second, 8*time.Second, 2.0))
		assert.Equal(t, 8*time.Second, checker.nextInterval(8*time.Second, 8*time.Second, 2.0))
		assert.Equal(t, 8*time.Second, checker.nextInterval(6*time.Second, 8*time.Second, 2.0))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		base := 1 * time.Second
		for i := 0; i < 100; i++ {
			jittered := checker.applyJitter(base, 0.1)
			assert.GreaterOrEqual(t, jittered, 900*time.Millisecond)
			assert.LessOrEqual(t, jittered, 1100*time.Millisecond)
		}
	})

	t.Run("zero jitter is identity", func(t *testing.T) {
		assert.Equal(t, 3*time.Second, checker.applyJitter(3*time.Second, 0))
	})
}

func TestMockCheckerRecordsCalls(t *testing.T) {
	mock := &MockChecker{}
	ctx := context.Background()

	services := DefaultServiceDefinitions()
	opts := DefaultWaitOptions()

	result, err := mock.WaitForServices(ctx, services, opts)
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = mock.CheckService(ctx, services[0])
	require.NoError(t, err)

	statuses, err := mock.CheckAllServices(ctx, services)
	require.NoError(t, err)
	assert.Len(t, statuses, len(services))

	require.Len(t, mock.WaitForServicesCalls, 1)
	assert.Len(t, mock.WaitForServicesCalls[0].Services, 3)
	require.Len(t, mock.CheckServiceCalls, 1)
	assert.Equal(t, "MinIO", mock.CheckServiceCalls[0].Name)
	require.Len(t, mock.CheckAllServicesCalls, 1)
}
