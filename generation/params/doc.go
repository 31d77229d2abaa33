/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package params provides type-safe extraction of tool-call arguments.
//
// Tool inputs arrive as map[string]any decoded from model-produced JSON, so
// every access needs a presence check and a type assertion, and JSON numbers
// always decode as float64. The helpers here centralize that handling.
//
// Tool handlers report problems to the model as result maps rather than Go
// errors; Error builds those maps.
package params
