// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

/*
Package scaffold generates the configuration artifacts for a local
data-lake stack: an S3-compatible object store (MinIO), an Iceberg
catalog/version store (Nessie), and a SQL query engine (Trino).

The package is split into three stages, each side-effect free until the
last:

  - Template catalog: Render/RenderForEnv produce the byte content of a
    single artifact (compose file, Trino property file, Kubernetes
    manifest, Argo CD Application) from a StackConfig. Pure functions.
  - Layout planner: Plan computes the full (path, content) set for a mode
    plus the directories that must exist. Pure function.
  - Materializer: Materialize realizes a plan on disk with a destructive
    reset of the target directory and per-file write verification.

Every value that appears in more than one artifact (credentials, service
endpoints, memory sizes) is threaded through StackConfig so the artifacts
cannot drift apart. In particular the Trino catalog properties always
reference the same network namespace as the MinIO and Nessie definitions
generated for the same config.
*/
package scaffold
