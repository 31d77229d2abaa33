/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fix

import (
	"errors"
	"time"
)

// BugReport carries the bug context handed to the engine, including the
// upstream AI analysis fields when available.
type BugReport struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Severity         string `json:"severity,omitempty"`
	StepsToReproduce string `json:"steps_to_reproduce,omitempty"`
	RootCause        string `json:"root_cause,omitempty"`
	AffectedArea     string `json:"affected_area,omitempty"`
	SuggestedFix     string `json:"suggested_fix,omitempty"`
}

// Limits bounds one fix request. Zero values are replaced by defaults via
// WithDefaults before the engine starts.
type Limits struct {
	// MaxRounds caps the number of generate-then-validate rounds.
	MaxRounds int `json:"max_rounds"`

	// MaxFiles caps the cumulative number of files the model may read
	// through the read_file tool across the whole request.
	MaxFiles int `json:"max_files"`

	// MaxTokens caps the output tokens of a single generation round.
	MaxTokens int64 `json:"max_tokens"`

	// CITimeout bounds the total time spent polling CI per round.
	CITimeout time.Duration `json:"ci_timeout"`
}

// DefaultLimits mirrors the service defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxRounds: 3,
		MaxFiles:  15,
		MaxTokens: 4096,
		CITimeout: 5 * time.Minute,
	}
}

// WithDefaults returns a copy of l with zero fields replaced by defaults.
func (l Limits) WithDefaults() Limits {
	def := DefaultLimits()
	if l.MaxRounds <= 0 {
		l.MaxRounds = def.MaxRounds
	}
	if l.MaxFiles <= 0 {
		l.MaxFiles = def.MaxFiles
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = def.MaxTokens
	}
	if l.CITimeout <= 0 {
		l.CITimeout = def.CITimeout
	}
	return l
}

// Request describes one bug-fix job. It is immutable once handed to the
// engine; the engine never writes back into it.
type Request struct {
	// Owner and Repo name the GitHub repository to fix.
	Owner string `json:"owner"`
	Repo  string `json:"repo"`

	// BaseBranch is the branch the fix targets. The engine never commits
	// to it directly; all mutations land on a derived feature branch.
	BaseBranch string `json:"base_branch"`

	// Bug is the report being addressed.
	Bug BugReport `json:"bug"`

	// CandidatePaths is the relevance-scored seed file list supplied by an
	// upstream collaborator. The contents are embedded in the first round's
	// prompt so the model does not burn tool calls re-reading them.
	CandidatePaths []string `json:"candidate_paths,omitempty"`

	// Limits bounds the request.
	Limits Limits `json:"limits"`
}

// Validate reports whether the request names a repository and a bug.
func (r *Request) Validate() error {
	switch {
	case r == nil:
		return errors.New("request cannot be nil")
	case r.Owner == "":
		return errors.New("owner cannot be empty")
	case r.Repo == "":
		return errors.New("repo cannot be empty")
	case r.BaseBranch == "":
		return errors.New("base branch cannot be empty")
	case r.Bug.Title == "":
		return errors.New("bug title cannot be empty")
	}
	return nil
}

// Outcome is the terminal result of one fix request.
type Outcome struct {
	// Success reports whether the engine produced a committed fix and an
	// open pull request. A best-effort fix that exhausted its rounds is
	// still a success; ValidationPassed distinguishes the two.
	Success bool `json:"success"`

	// ValidationPassed reports whether the final round cleared every gate
	// (CI passed or no CI pipeline exists).
	ValidationPassed bool `json:"validation_passed"`

	// ChangedFiles maps relative paths to the committed content.
	ChangedFiles map[string]string `json:"changed_files,omitempty"`

	// Branch is the feature branch the fix was committed to.
	Branch string `json:"branch,omitempty"`

	// CommitSHA is the final deliverable commit.
	CommitSHA string `json:"commit_sha,omitempty"`

	// PRNumber and PRURL reference the opened pull request.
	PRNumber int    `json:"pr_number,omitempty"`
	PRURL    string `json:"pr_url,omitempty"`

	// RoundsTaken is the number of generation rounds executed.
	RoundsTaken int `json:"rounds_taken"`

	// Log is the audit trail surfaced in the pull request body.
	Log ProcessLog `json:"process_log"`

	// FailureReason explains which stage failed and why, when Success is
	// false.
	FailureReason string `json:"failure_reason,omitempty"`
}
