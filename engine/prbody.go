/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"fmt"
	"strings"

	"chainguard.dev/fixengine/fix"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// maxDescriptionExcerpt caps the bug description quoted in the PR body.
const maxDescriptionExcerpt = 200

func prTitle(bug fix.BugReport) string {
	return fmt.Sprintf("fix: %s (#%s)", orElse(bug.Title, "bug fix"), bug.ID)
}

// prBody renders the pull request body: bug summary, analysis, the list of
// changed files, and a collapsible process log with a per-round gate table.
func prBody(req *fix.Request, out *fix.Outcome) string {
	bug := req.Bug
	desc := orElse(bug.Description, "No description provided")
	if len(desc) > maxDescriptionExcerpt {
		desc = desc[:maxDescriptionExcerpt] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Bug Fix: #%s\n\n", orElse(bug.ID, "unknown"))
	fmt.Fprintf(&b, "**Title:** %s\n", orElse(bug.Title, "Untitled"))
	fmt.Fprintf(&b, "**Description:** %s\n", desc)

	if bug.RootCause != "" {
		b.WriteString("\n### AI Analysis\n")
		fmt.Fprintf(&b, "- **Root Cause:** %s\n", bug.RootCause)
		fmt.Fprintf(&b, "- **Affected Area:** %s\n", orElse(bug.AffectedArea, "N/A"))
		fmt.Fprintf(&b, "- **Severity:** %s\n", orElse(bug.Severity, "N/A"))
		fmt.Fprintf(&b, "- **Suggested Fix:** %s\n", orElse(bug.SuggestedFix, "N/A"))
	}

	if len(out.ChangedFiles) > 0 {
		b.WriteString("\n### Changes Made\n")
		for _, path := range sortedKeys(out.ChangedFiles) {
			content := out.ChangedFiles[path]
			lines := strings.Count(content, "\n") + 1
			if content == "" {
				lines = 0
			}
			fmt.Fprintf(&b, "- `%s` (%d lines)\n", path, lines)
		}
	}

	if !out.ValidationPassed {
		plural := "s"
		if len(out.Log.Rounds) == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "\n> **Note:** validation did not fully pass after %d round%s. "+
			"Please review carefully.\n", len(out.Log.Rounds), plural)
	}

	b.WriteString("\n")
	b.WriteString(processLogSection(&out.Log))
	return b.String()
}

// processLogSection renders the audit trail as a collapsible details block
// so the PR body stays readable while keeping the full gate history.
func processLogSection(log *fix.ProcessLog) string {
	var b strings.Builder
	b.WriteString("<details>\n<summary>Code Fix Process Log</summary>\n\n")
	fmt.Fprintf(&b, "**Rounds:** %d\n", len(log.Rounds))
	fmt.Fprintf(&b, "**Files explored:** %d\n", len(log.FilesExplored))
	fmt.Fprintf(&b, "**Total tokens:** %d input + %d output = %d total\n\n",
		log.TotalInputTokens, log.TotalOutputTokens,
		log.TotalInputTokens+log.TotalOutputTokens)

	table := newGateTable(&b)
	for _, rnd := range log.Rounds {
		files := "none"
		if len(rnd.FilesChanged) > 0 {
			files = strings.Join(rnd.FilesChanged, ", ")
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", rnd.Round),
			files,
			gateCell(rnd.Lint),
			gateCell(rnd.Review),
			ciCell(rnd),
			fmt.Sprintf("%d / %d", rnd.InputTokens, rnd.OutputTokens),
		})
	}
	_ = table.Render()

	for _, rnd := range log.Rounds {
		if rnd.Err != "" {
			fmt.Fprintf(&b, "\nRound %d error: %s\n", rnd.Round, rnd.Err)
		}
	}
	if log.Note != "" {
		fmt.Fprintf(&b, "\n**Note:** %s\n", log.Note)
	}
	b.WriteString("\n</details>")
	return b.String()
}

func newGateTable(b *strings.Builder) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(b,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader([]string{"Round", "Files", "Lint", "Review", "CI", "Tokens (in/out)"}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

func gateCell(g fix.GateOutcome) string {
	switch {
	case !g.Ran:
		return "-"
	case g.Skipped:
		return "skipped"
	case g.Passed:
		return "pass"
	default:
		return "fail"
	}
}

func ciCell(rnd fix.RoundResult) string {
	if rnd.CIStatus == "" {
		return "-"
	}
	return rnd.CIStatus
}
