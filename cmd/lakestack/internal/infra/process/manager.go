// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Manager handles external process operations.
//
// # Description
//
// All exec.Command calls in the stack management code go through this
// interface so tests can run without a container engine installed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
//
// # Context Handling
//
// All methods accept a context.Context; long-running processes must
// respect cancellation.
type Manager interface {
	// Run executes a command synchronously and returns its stdout.
	// Stderr is folded into the returned error on failure.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunStreaming executes a command and copies its combined output to
	// w as it is produced. Used for log following.
	RunStreaming(ctx context.Context, w io.Writer, name string, args ...string) error
}

// DefaultManager implements Manager using os/exec. This is the
// production implementation; use MockManager in tests.
type DefaultManager struct{}

// NewDefaultManager creates a ready-to-use DefaultManager.
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{}
}

// Run executes a command synchronously and returns its stdout.
func (m *DefaultManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// RunStreaming executes a command with stdout and stderr attached to w.
func (m *DefaultManager) RunStreaming(ctx context.Context, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	return cmd.Run()
}

// MockManager is a test double for Manager.
//
// Configure the mock by setting function fields before use. A nil
// function field panics when its method is called.
type MockManager struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunStreamingFunc is called when RunStreaming is invoked.
	RunStreamingFunc func(ctx context.Context, w io.Writer, name string, args ...string) error

	// Calls records all method invocations for verification.
	Calls []ManagerCall

	mu sync.Mutex
}

// ManagerCall records a single method invocation.
type ManagerCall struct {
	Method string
	Name   string
	Args   []string
}

// Run delegates to RunFunc and records the call.
func (m *MockManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ManagerCall{Method: "Run", Name: name, Args: args})
	m.mu.Unlock()
	if m.RunFunc == nil {
		panic("MockManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockManager) RunStreaming(ctx context.Context, w io.Writer, name string, args ...string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, ManagerCall{Method: "RunStreaming", Name: name, Args: args})
	m.mu.Unlock()
	if m.RunStreamingFunc == nil {
		panic("MockManager.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, w, name, args...)
}

// GetCalls returns a copy of all recorded calls.
func (m *MockManager) GetCalls() []ManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
