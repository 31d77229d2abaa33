/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ghclient is the GitHub side of the fix engine: branch creation,
// atomic multi-file commits, CI polling, and pull requests, authenticated as
// a GitHub App installation.
//
// Commits go through the Git Data API — one blob per file, one tree, one
// commit, one ref update — so a multi-file fix lands atomically instead of
// as a commit per file. CommitAtomic additionally refuses any branch outside
// the fixbot/ namespace, making it structurally impossible for the engine to
// push to a trunk branch.
package ghclient
