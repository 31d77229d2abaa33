/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"chainguard.dev/fixengine/fix"
)

// maxEmbedLines caps how much of a prefetched file is embedded in the
// round-1 prompt, matching the read_file tool's truncation point.
const maxEmbedLines = 500

const (
	feedbackLint   = "lint"
	feedbackReview = "review"
	feedbackCI     = "ci"
	feedbackError  = "error"
)

// feedback carries one failed gate's diagnostics into the next round.
type feedback struct {
	kind   string
	detail string
	issues []string
}

// fixPrompt builds the round-1 prompt. Prefetched candidate files are
// embedded directly so the model does not burn tool calls re-reading them;
// when none could be read, the candidate paths are listed as a starting
// point instead.
func (e *Engine) fixPrompt(bug bugContext, candidates []string, prefetched map[string]string) string {
	var files strings.Builder
	if len(prefetched) > 0 {
		files.WriteString("\n\nRelevant source files (already read for you):\n")
		for _, path := range sortedKeys(prefetched) {
			content := prefetched[path]
			if lines := strings.Split(content, "\n"); len(lines) > maxEmbedLines {
				content = strings.Join(lines[:maxEmbedLines], "\n") +
					fmt.Sprintf("\n\n... truncated (%d total lines)", len(lines))
			}
			fmt.Fprintf(&files, "\n--- %s ---\n%s\n", path, content)
		}
	} else if len(candidates) > 0 {
		files.WriteString("\n\nRelevant files identified (start by reading these):\n")
		for _, path := range candidates {
			fmt.Fprintf(&files, "  - %s\n", path)
		}
	}

	return fmt.Sprintf(`You are a senior software developer fixing a bug in a codebase.

Bug Report #%s
Title: %s
Description: %s
Severity: %s
Steps to Reproduce: %s

AI Analysis:
  Root Cause: %s
  Affected Area: %s
  Suggested Fix: %s
%s
Instructions:
1. The relevant source files are provided above -- study them.
2. Use read_file / search_in_repo ONLY if you need additional context
   (e.g. imports, related modules). Avoid unnecessary reads.
3. Plan ALL your changes, then write ALL affected files at once.
4. write_file requires BOTH 'path' and 'content' (the COMPLETE file).
5. Keep changes minimal and focused on the reported bug.
6. Preserve existing code style and conventions.

When done, return a brief summary of what you changed and why.`,
		bug.id, bug.title, bug.description, bug.severity, bug.steps,
		bug.rootCause, bug.affectedArea, bug.suggestedFix, files.String())
}

// feedbackPrompt renders the previous round's gate failure as the next
// round's prompt.
func feedbackPrompt(fb *feedback) string {
	if fb == nil {
		return "Please review your changes and ensure they are correct."
	}
	switch fb.kind {
	case feedbackLint:
		return fmt.Sprintf("The previous fix had lint errors. Please fix them.\n\n"+
			"Lint output:\n```\n%s\n```\n\n"+
			"Read the affected files, fix the lint issues, and write "+
			"the corrected files. Keep changes minimal.", fb.detail)
	case feedbackReview:
		var issues strings.Builder
		for _, issue := range fb.issues {
			fmt.Fprintf(&issues, "  - %s\n", issue)
		}
		return fmt.Sprintf("The AI self-review found issues with your fix:\n%s\n"+
			"Please address these issues. Read the affected files, "+
			"apply corrections, and write the updated files.", issues.String())
	case feedbackCI:
		return fmt.Sprintf("CI checks failed after your fix was committed:\n\n%s\n\n"+
			"Please read the affected files, diagnose the failures, "+
			"and write corrected versions.", fb.detail)
	case feedbackError:
		return fmt.Sprintf("Your previous attempt failed with an error:\n\n%s\n\n"+
			"Please try again. Read the relevant files and write your fix, "+
			"making sure every write_file call includes the COMPLETE file content.", fb.detail)
	default:
		return "Please review and improve your previous changes."
	}
}

// bugContext is the bug report with prompt-safe fallbacks applied.
type bugContext struct {
	id, title, description, severity, steps string
	rootCause, affectedArea, suggestedFix   string
}

func newBugContext(b fix.BugReport) bugContext {
	return bugContext{
		id:           orElse(b.ID, "unknown"),
		title:        orElse(b.Title, "Unknown bug"),
		description:  orElse(b.Description, "No description provided."),
		severity:     orElse(b.Severity, "unknown"),
		steps:        orElse(b.StepsToReproduce, "Not provided."),
		rootCause:    orElse(b.RootCause, "Not analyzed."),
		affectedArea: orElse(b.AffectedArea, "Not identified."),
		suggestedFix: orElse(b.SuggestedFix, "No suggestion."),
	}
}

func orElse(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
