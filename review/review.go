/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"chainguard.dev/fixengine/fix"
	"chainguard.dev/fixengine/generation/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

const (
	defaultMaxTokens = 1024

	// maxPreviewLines bounds per-file content shown to the reviewer.
	maxPreviewLines = 200
)

// Verdict is the self-review gate result.
type Verdict struct {
	// Passed reports whether the fix cleared review.
	Passed bool

	// Skipped reports that review could not run (API failure) and the
	// gate was waved through.
	Skipped bool

	// Issues lists the problems found, used as feedback for the next
	// round.
	Issues []string

	// Summary is the reviewer's overall assessment.
	Summary string
}

// Reviewer judges staged fixes with a single model call.
type Reviewer struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	retryConfig retry.Config
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithModel overrides the default model.
func WithModel(model anthropic.Model) Option {
	return func(r *Reviewer) { r.model = model }
}

// WithRetryConfig overrides the retry behavior for transient API errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(r *Reviewer) { r.retryConfig = cfg }
}

// New constructs a Reviewer.
func New(client anthropic.Client, opts ...Option) *Reviewer {
	r := &Reviewer{
		client:      client,
		model:       anthropic.ModelClaudeSonnet4_20250514,
		maxTokens:   defaultMaxTokens,
		retryConfig: retry.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Review judges the staged changes against the bug report. It never returns
// an error: an unanswerable review skips the gate and an unreadable verdict
// fails it.
func (r *Reviewer) Review(ctx context.Context, bug fix.BugReport, changed map[string]string) *Verdict {
	log := clog.FromContext(ctx)

	prompt := buildPrompt(bug, changed)

	message, err := retry.Do(ctx, r.retryConfig, "self_review", isRetryableAPIError, func() (*anthropic.Message, error) {
		return r.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     r.model,
			MaxTokens: r.maxTokens,
			Messages: []anthropic.MessageParam{{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(prompt),
				},
			}},
		})
	})
	if err != nil {
		log.With("error", err).Warn("Self-review API call failed, skipping the gate")
		return &Verdict{
			Passed:  true,
			Skipped: true,
			Summary: fmt.Sprintf("Self-review skipped due to error: %v", err),
		}
	}

	var text string
	for _, content := range message.Content {
		if content.Type == "text" {
			text = content.Text
		}
	}

	verdict, err := parse[struct {
		Passed  bool     `json:"passed"`
		Issues  []string `json:"issues"`
		Summary string   `json:"summary"`
	}](text)
	if err != nil {
		log.With("response", text).With("error", err).Warn("Could not parse self-review response")
		return &Verdict{
			Passed:  false,
			Issues:  []string{"The review response could not be parsed. Re-check the fix for correctness, side effects, and style, and keep the changes minimal."},
			Summary: "Review response could not be parsed",
		}
	}

	return &Verdict{
		Passed:  verdict.Passed,
		Issues:  verdict.Issues,
		Summary: verdict.Summary,
	}
}

func buildPrompt(bug fix.BugReport, changed map[string]string) string {
	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	blocks := make([]string, 0, len(paths))
	for _, path := range paths {
		content := changed[path]
		lines := strings.Split(content, "\n")
		if len(lines) > maxPreviewLines {
			content = strings.Join(lines[:maxPreviewLines], "\n") + fmt.Sprintf("\n... (%d total lines)", len(lines))
		}
		blocks = append(blocks, fmt.Sprintf("--- %s ---\n%s", path, content))
	}

	return fmt.Sprintf(`Review this code fix for a bug report.

Bug: %s
Description: %s
Root cause: %s

Changed files:
%s

Review against these criteria:
1. Correctness: Does the fix address the reported bug?
2. Side effects: Could the change break anything in related code?
3. Code style: Does the fix match existing codebase conventions?

Respond with ONLY a JSON object:
{"passed": true/false, "issues": ["issue1", ...], "summary": "brief review summary"}
If the fix looks good, set passed=true and issues=[].`,
		bug.Title, bug.Description, bug.RootCause, strings.Join(blocks, "\n\n"))
}

func isRetryableAPIError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
