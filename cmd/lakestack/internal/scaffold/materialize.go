// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ArtifactWriteError reports a failure while writing one planned artifact.
// Materialization stops at the first failure; the partially written tree
// is left in place for inspection.
type ArtifactWriteError struct {
	RelPath string
	Err     error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.RelPath, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error {
	return e.Err
}

// Materialize writes a plan under rootDir.
//
// # Description
//
//	DESTRUCTIVE: the root directory is removed and recreated before any
//	artifact is written, so the result is exactly the plan and nothing
//	else. Stale files from previous runs never survive. Every write is
//	verified with a stat before moving on.
//
// # Inputs
//   - plan: the layout to write. Must come from Plan.
//   - rootDir: target directory. Removed and recreated.
//   - logger: receives one entry per directory and artifact.
//
// # Outputs
//   - error: *ArtifactWriteError on the first failed write, or a plain
//     error for root-level failures.
//
// # Limitations
//   - Not atomic. A crash mid-run leaves a partial tree; re-running
//     Materialize resets it.
func Materialize(plan *LayoutPlan, rootDir string, logger *slog.Logger) error {
	if rootDir == "" {
		return fmt.Errorf("materialize: %w: root directory", ErrMissingRequiredField)
	}

	logger.Warn("resetting scaffold directory", "root", rootDir)
	if err := os.RemoveAll(rootDir); err != nil {
		return fmt.Errorf("reset root %s: %w", rootDir, err)
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return fmt.Errorf("create root %s: %w", rootDir, err)
	}

	for _, dir := range plan.Dirs {
		abs := filepath.Join(rootDir, filepath.FromSlash(dir))
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		logger.Debug("created directory", "dir", dir)
	}

	for _, a := range plan.Artifacts {
		abs := filepath.Join(rootDir, filepath.FromSlash(a.RelPath))
		if err := os.WriteFile(abs, a.Content, os.FileMode(a.Mode)); err != nil {
			return &ArtifactWriteError{RelPath: a.RelPath, Err: err}
		}
		info, err := os.Stat(abs)
		if err != nil {
			return &ArtifactWriteError{RelPath: a.RelPath, Err: err}
		}
		if info.Size() != int64(len(a.Content)) {
			return &ArtifactWriteError{
				RelPath: a.RelPath,
				Err:     fmt.Errorf("short write: %d of %d bytes", info.Size(), len(a.Content)),
			}
		}
		logger.Info("wrote artifact", "path", a.RelPath, "kind", a.Kind, "bytes", len(a.Content))
	}

	logger.Info("scaffold materialized",
		"root", rootDir,
		"dirs", len(plan.Dirs),
		"artifacts", len(plan.Artifacts))
	return nil
}
