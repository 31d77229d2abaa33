/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fix

// GateOutcome records one quality gate's verdict within a round.
type GateOutcome struct {
	// Ran reports whether the gate executed at all. Gates downstream of a
	// failure are skipped and record Ran=false.
	Ran bool `json:"ran"`

	// Passed is only meaningful when Ran is true.
	Passed bool `json:"passed"`

	// Skipped marks gates that ran vacuously, such as a lint gate whose
	// binary is not installed.
	Skipped bool `json:"skipped,omitempty"`

	// Detail carries diagnostics: lint output, review feedback, or failing
	// check names.
	Detail string `json:"detail,omitempty"`
}

// RoundResult records one generate-then-validate round. Entries are
// immutable once appended to the ProcessLog.
type RoundResult struct {
	Round        int      `json:"round"`
	FilesChanged []string `json:"files_changed,omitempty"`

	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	Lint   GateOutcome `json:"lint"`
	Review GateOutcome `json:"review"`
	CI     GateOutcome `json:"ci"`

	// CIStatus is the poller's classification for the round's provisional
	// commit: passed, failed, no_ci, or timeout. Empty when CI never ran.
	CIStatus string `json:"ci_status,omitempty"`

	// Feedback is the text carried into the next round's prompt when this
	// round failed a gate.
	Feedback string `json:"feedback,omitempty"`

	// Err records a round-level failure (generation error, no changes
	// produced) that short-circuited the gate pipeline.
	Err string `json:"error,omitempty"`
}

// ProcessLog is the append-only audit trail for one fix request.
type ProcessLog struct {
	// FilesExplored lists every file the model read or wrote.
	FilesExplored []string `json:"files_explored,omitempty"`

	Rounds []RoundResult `json:"rounds,omitempty"`

	TotalInputTokens  int64 `json:"total_input_tokens"`
	TotalOutputTokens int64 `json:"total_output_tokens"`

	// Note carries summary caveats, such as "best effort, validation
	// incomplete" after round exhaustion.
	Note string `json:"note,omitempty"`
}

// Append records a completed round. Rounds are appended in execution order
// and never mutated afterwards.
func (p *ProcessLog) Append(r RoundResult) {
	p.Rounds = append(p.Rounds, r)
	p.TotalInputTokens += r.InputTokens
	p.TotalOutputTokens += r.OutputTokens
}

// LastRound returns the most recently appended round, or nil when no round
// has completed.
func (p *ProcessLog) LastRound() *RoundResult {
	if len(p.Rounds) == 0 {
		return nil
	}
	return &p.Rounds[len(p.Rounds)-1]
}
