/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspace manages isolated local checkouts of the repository under
// repair. A Manager shallow-clones one branch into a fresh temporary
// directory and hands back a Workspace whose lifetime is tied to a single
// fix request.
//
// Workspaces are exclusively owned and always released: the engine pairs
// Acquire with a deferred Release so teardown happens on every exit path.
// Release forces writability on read-only git metadata before deletion so
// cleanup succeeds even where object files are created read-only.
//
// All file operations exposed to the generation tools are scoped to the
// workspace root and reject paths that would escape it.
package workspace
