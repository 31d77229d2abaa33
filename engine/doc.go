/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package engine runs the bounded fix loop for a single bug report.
//
// Each round generates candidate changes in a cloned workspace and pushes
// them through three ordered quality gates: lint, AI self-review, and CI.
// The ordering is a cost control. Lint is a local subprocess, review is one
// model call, and CI requires a commit plus a polling window, so cheaper
// gates run first and a failure skips everything after it.
//
// Gate failures are control flow, not errors: they become feedback text for
// the next round's prompt. Only infrastructure failures (clone, branch
// setup, commit, pull request creation) surface as errors, and even then
// the returned Outcome carries the process log accumulated so far.
//
// All commits land on a fixbot/ feature branch derived from the bug report.
// When any round staged changes, the engine always finishes with a commit
// and an open pull request, flagged as best-effort when validation never
// fully passed.
package engine
