/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package review implements the AI self-review quality gate.
//
// A single non-tool model call judges the staged fix against the bug report
// on three criteria: correctness, side-effect risk, and stylistic
// consistency with the surrounding code. The model responds with a JSON
// verdict.
//
// A response that cannot be parsed fails the gate: an unreadable verdict is
// not evidence the fix is sound. Only an API-level failure waves the gate
// through, so that model outages degrade to lint+CI coverage instead of
// blocking every fix.
package review
