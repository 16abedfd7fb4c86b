// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

// Package process provides process execution and inter-process locking
// for the lakestack CLI.
//
// Two abstractions live here:
//
//   - Manager: abstracts external process execution so container-engine
//     interactions can be mocked in tests
//   - Locker: flock-based advisory locking so two CLI invocations never
//     mutate the same environment concurrently
//
// # Manager
//
//	pm := process.NewDefaultManager()
//	out, err := pm.Run(ctx, "docker", "compose", "ps")
//
// For testing, use MockManager:
//
//	mock := &process.MockManager{
//	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
//	        return []byte("{}"), nil
//	    },
//	}
//
// # Locker
//
//	lock := process.NewLock(process.DefaultLockConfig())
//	if err := lock.Acquire(); err != nil {
//	    return err
//	}
//	defer lock.Release()
package process
