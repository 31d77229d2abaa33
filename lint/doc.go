/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package lint detects and runs a repository's static analysis tooling as the
// first quality gate on a generated fix.
//
// Detection is a pure function over static configuration: an explicit
// .fixengine.yaml override wins, then a pyproject.toml carrying a [tool.ruff]
// section, then an ordered table of well-known linter config markers. The
// first match decides; repositories with no marker have no linter and pass
// by default.
//
// Running is fail-open on environment problems: a linter whose binary is not
// installed on the host is reported as passed-but-skipped rather than
// blocking every fix on that host. Only an actual non-zero exit (or a
// timeout) fails the gate.
package lint
