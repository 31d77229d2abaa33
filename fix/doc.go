/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package fix defines the data model shared by the fix engine's components:
// the immutable Request that describes one bug-fix job, the append-only
// ProcessLog that records every generate-then-validate round, and the
// Outcome returned to the caller.
//
// The package contains pure type definitions with no heavy dependencies so
// that gate implementations (lint, review, CI) can produce results without
// importing each other.
package fix
