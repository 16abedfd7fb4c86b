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
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManager_Run(t *testing.T) {
	pm := NewDefaultManager()
	out, err := pm.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestDefaultManager_RunFailureIncludesStderr(t *testing.T) {
	pm := NewDefaultManager()
	_, err := pm.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDefaultManager_RunStreaming(t *testing.T) {
	pm := NewDefaultManager()
	var buf bytes.Buffer
	err := pm.RunStreaming(context.Background(), &buf, "echo", "streamed")
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", buf.String())
}

func TestMockManager_RecordsCalls(t *testing.T) {
	mock := &MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("ok"), nil
		},
		RunStreamingFunc: func(ctx context.Context, w io.Writer, name string, args ...string) error {
			return errors.New("stream failed")
		},
	}

	out, err := mock.Run(context.Background(), "docker", "compose", "ps")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	err = mock.RunStreaming(context.Background(), io.Discard, "docker", "compose", "logs")
	require.Error(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Run", calls[0].Method)
	assert.Equal(t, []string{"compose", "ps"}, calls[0].Args)
	assert.Equal(t, "RunStreaming", calls[1].Method)
}

func TestLock_AcquireRelease(t *testing.T) {
	lock := NewLock(LockConfig{LockDir: t.TempDir(), LockName: "test"})

	require.NoError(t, lock.Acquire())
	assert.True(t, lock.IsHeld())

	// Re-acquiring from the same instance is a no-op.
	require.NoError(t, lock.Acquire())

	require.NoError(t, lock.Release())
	assert.False(t, lock.IsHeld())

	// Releasing again is safe.
	require.NoError(t, lock.Release())
}

func TestLock_ExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	first := NewLock(LockConfig{LockDir: dir, LockName: "test"})
	second := NewLock(LockConfig{LockDir: dir, LockName: "test"})

	require.NoError(t, first.Acquire())
	defer first.Release()

	err := second.Acquire()
	require.Error(t, err)

	var held *ErrLockHeld
	require.ErrorAs(t, err, &held)
	assert.Greater(t, held.HolderPID, 0)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestLock_HolderPID(t *testing.T) {
	lock := NewLock(LockConfig{LockDir: t.TempDir(), LockName: "test"})
	assert.Zero(t, lock.HolderPID())

	require.NoError(t, lock.Acquire())
	defer lock.Release()
	assert.Greater(t, lock.HolderPID(), 0)
}
