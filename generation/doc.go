/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package generation runs the tool-augmented model conversation that
// produces a candidate fix.
//
// The model is given exactly four tools — read_file, write_file,
// search_in_repo, and list_directory — all scoped to one workspace. Tool
// failures are reported back to the model as descriptive strings in the tool
// result, never as Go errors: a bad path or an exhausted read budget is
// something the model should route around, not something that aborts the
// round.
//
// A State is shared across all rounds of one fix request. It enforces the
// cumulative file-read budget and accumulates the staged file contents that
// later become the commit.
package generation
