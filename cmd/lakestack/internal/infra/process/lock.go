// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Locker defines the interface for CLI instance locking.
//
// # Description
//
// Locker prevents multiple CLI instances from mutating the same
// environment simultaneously, avoiding races like one instance tearing
// down containers another is still waiting on.
//
// # Thread Safety
//
// Implementations are for single-goroutine use. The lock provides
// inter-process synchronization, not intra-process.
type Locker interface {
	// Acquire attempts to get an exclusive lock.
	Acquire() error

	// Release releases the lock if held. Safe to call multiple times.
	Release() error

	// IsHeld returns true if this instance currently holds the lock.
	IsHeld() bool

	// HolderPID returns the PID of the lock holder, or 0 if unknown.
	HolderPID() int
}

// LockConfig configures lock file location.
type LockConfig struct {
	// LockDir is the directory for lock files. Default: system temp.
	LockDir string

	// LockName is the base name for lock files. Default: "lakestack".
	LockName string
}

// DefaultLockConfig uses the system temp directory and "lakestack".
func DefaultLockConfig() LockConfig {
	return LockConfig{
		LockDir:  os.TempDir(),
		LockName: "lakestack",
	}
}

// Lock implements Locker with flock(2) advisory locking.
//
// # How It Works
//
//  1. Creates a lock file at {LockDir}/{LockName}.lock
//  2. Attempts a non-blocking exclusive flock on it
//  3. Writes the PID to {LockDir}/{LockName}.pid for debugging
//  4. On release, removes the PID file and releases the flock
//
// # Limitations
//
//   - Advisory only; processes that don't check can ignore it
//   - NFS and some network filesystems don't support flock properly
//   - The OS releases the flock if the holder crashes without Release
type Lock struct {
	config   LockConfig
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewLock creates a lock for the given config. Does not acquire it.
func NewLock(config LockConfig) *Lock {
	if config.LockDir == "" {
		config.LockDir = os.TempDir()
	}
	if config.LockName == "" {
		config.LockName = "lakestack"
	}

	return &Lock{
		config:   config,
		lockPath: filepath.Join(config.LockDir, config.LockName+".lock"),
		pidPath:  filepath.Join(config.LockDir, config.LockName+".pid"),
	}
}

// Acquire attempts a non-blocking exclusive lock. If another process
// holds it, the error names the holder PID when known.
func (p *Lock) Acquire() error {
	if p.held {
		return nil
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", p.lockPath, err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()

		if err == syscall.EWOULDBLOCK {
			return &ErrLockHeld{HolderPID: p.readHolderPID(), LockPath: p.lockPath}
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	p.lockFile = f
	p.held = true

	// Best effort; the flock is already held.
	_ = p.writePID()

	return nil
}

// Release removes the PID file and releases the flock. Safe to call
// multiple times or if the lock was never acquired.
func (p *Lock) Release() error {
	if !p.held || p.lockFile == nil {
		return nil
	}

	os.Remove(p.pidPath)

	err := syscall.Flock(int(p.lockFile.Fd()), syscall.LOCK_UN)

	p.lockFile.Close()
	p.lockFile = nil
	p.held = false

	// The lock file itself is left behind for faster subsequent acquires.

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// IsHeld checks local state only; it does not re-verify the flock.
func (p *Lock) IsHeld() bool {
	return p.held
}

// HolderPID reads the PID file. May return a stale PID if the holder
// crashed without cleanup.
func (p *Lock) HolderPID() int {
	return p.readHolderPID()
}

func (p *Lock) writePID() error {
	content := fmt.Sprintf("%d\n", os.Getpid())
	return os.WriteFile(p.pidPath, []byte(content), 0644)
}

func (p *Lock) readHolderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// LockPath returns the path to the lock file.
func (p *Lock) LockPath() string {
	return p.lockPath
}

// PIDPath returns the path to the PID file.
func (p *Lock) PIDPath() string {
	return p.pidPath
}

// ErrLockHeld is returned when the lock is held by another process.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another lakestack instance is running (PID %d)", e.HolderPID)
	}
	return fmt.Sprintf("another lakestack instance is running (check: lsof %s)", e.LockPath)
}

// Compile-time interface satisfaction check
var _ Locker = (*Lock)(nil)
