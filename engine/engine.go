/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/fixengine/fix"
	"chainguard.dev/fixengine/generation"
	"chainguard.dev/fixengine/ghclient"
	"chainguard.dev/fixengine/lint"
	"chainguard.dev/fixengine/progress"
	"chainguard.dev/fixengine/review"
	"chainguard.dev/fixengine/workspace"
	"github.com/chainguard-dev/clog"
)

// Generator produces candidate changes for one round, staging them into
// the shared State. maxTokens is the request's per-round output cap.
type Generator interface {
	Generate(ctx context.Context, ws *workspace.Workspace, state *generation.State, prompt string, maxTokens int64) (*generation.Result, error)
}

// Reviewer runs the AI self-review gate over the staged changes.
type Reviewer interface {
	Review(ctx context.Context, bug fix.BugReport, changed map[string]string) *review.Verdict
}

// Linter runs the detected project linter against a checkout.
type Linter interface {
	Check(ctx context.Context, dir string) *lint.Result
}

// Workspaces hands out cloned checkouts of the repository under fix and
// tears them down again.
type Workspaces interface {
	Acquire(ctx context.Context, owner, repo, ref string) (*workspace.Workspace, error)
	Release(ctx context.Context, ws *workspace.Workspace) error
}

// Host is the GitHub surface the engine needs: branch setup, atomic
// commits, CI polling, and pull requests.
type Host interface {
	HeadSHA(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, branch, baseSHA string) error
	DeleteBranch(ctx context.Context, owner, repo, branch string) error
	CommitAtomic(ctx context.Context, owner, repo, branch string, changes map[string]string, message string) (string, error)
	PollCI(ctx context.Context, owner, repo, ref string, timeout time.Duration) (*ghclient.CIResult, error)
	CreatePull(ctx context.Context, owner, repo, title, body, head, base string) (*ghclient.PullRequest, error)
}

var (
	_ Generator  = (*generation.Generator)(nil)
	_ Reviewer   = (*review.Reviewer)(nil)
	_ Linter     = lint.Runner{}
	_ Workspaces = (*workspace.Manager)(nil)
	_ Host       = (*ghclient.Client)(nil)
)

// Engine drives the bounded fix loop.
type Engine struct {
	generator  Generator
	reviewer   Reviewer
	linter     Linter
	workspaces Workspaces
	host       Host
	reporter   progress.Reporter
}

// Option configures an Engine.
type Option func(*Engine)

// WithReporter routes progress messages to r instead of discarding them.
func WithReporter(r progress.Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// New assembles an Engine from its collaborators.
func New(g Generator, r Reviewer, l Linter, w Workspaces, h Host, opts ...Option) *Engine {
	e := &Engine{
		generator:  g,
		reviewer:   r,
		linter:     l,
		workspaces: w,
		host:       h,
		reporter:   progress.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// bestEffortNote is recorded when a commit shipped without clearing every
// gate.
const bestEffortNote = "best effort, validation incomplete"

// Fix runs the full loop for one request. Gate failures never surface as
// errors; a non-nil error means an infrastructure step failed (branch
// setup, clone, commit, CI polling, or pull request creation), and the
// returned Outcome still carries the process log accumulated so far.
func (e *Engine) Fix(ctx context.Context, req *fix.Request) (*fix.Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := clog.FromContext(ctx)
	limits := req.Limits.WithDefaults()
	out := &fix.Outcome{}

	baseSHA, err := e.host.HeadSHA(ctx, req.Owner, req.Repo, req.BaseBranch)
	if err != nil {
		out.FailureReason = fmt.Sprintf("resolving base branch: %v", err)
		return out, fmt.Errorf("resolving head of %s: %w", req.BaseBranch, err)
	}

	branch := ghclient.BranchName(req.Bug.ID, req.Bug.Title)
	if err := e.host.CreateBranch(ctx, req.Owner, req.Repo, branch, baseSHA); err != nil {
		out.FailureReason = fmt.Sprintf("creating branch: %v", err)
		return out, fmt.Errorf("creating branch %s: %w", branch, err)
	}
	out.Branch = branch

	// Leave no empty feature branch behind when nothing was committed.
	defer func() {
		if out.CommitSHA != "" {
			return
		}
		if err := e.host.DeleteBranch(context.WithoutCancel(ctx), req.Owner, req.Repo, branch); err != nil {
			log.Warnf("Cleanup of branch %s failed: %v", branch, err)
		}
	}()

	progress.Notify(ctx, e.reporter, "Cloning repository...")
	// The feature branch tip still equals the base head, so the base
	// branch is the correct thing to check out.
	ws, err := e.workspaces.Acquire(ctx, req.Owner, req.Repo, req.BaseBranch)
	if err != nil {
		out.FailureReason = fmt.Sprintf("cloning repository: %v", err)
		return out, fmt.Errorf("acquiring workspace: %w", err)
	}
	defer func() {
		if err := e.workspaces.Release(context.WithoutCancel(ctx), ws); err != nil {
			log.Warnf("Workspace release failed: %v", err)
		}
	}()

	prefetched := e.prefetch(ctx, ws, req.CandidatePaths)
	state := generation.NewState(limits.MaxFiles)
	bug := newBugContext(req.Bug)

	var (
		fb                 *feedback
		committedThisRound bool
	)

	for round := 1; round <= limits.MaxRounds; round++ {
		committedThisRound = false
		out.RoundsTaken = round
		rr := fix.RoundResult{Round: round}

		prompt := feedbackPrompt(fb)
		if round == 1 {
			prompt = e.fixPrompt(bug, req.CandidatePaths, prefetched)
		}
		fb = nil

		progress.Notify(ctx, e.reporter,
			fmt.Sprintf("Generating fix (round %d/%d)...", round, limits.MaxRounds))
		res, err := e.generator.Generate(ctx, ws, state, prompt, limits.MaxTokens)
		if res != nil {
			rr.InputTokens = res.InputTokens
			rr.OutputTokens = res.OutputTokens
		}
		rr.FilesChanged = state.StagedPaths()
		if err != nil {
			log.Warnf("Round %d generation failed: %v", round, err)
			rr.Err = err.Error()
			fb = &feedback{kind: feedbackError, detail: err.Error()}
			rr.Feedback = feedbackPrompt(fb)
			out.Log.Append(rr)
			continue
		}
		progress.Notify(ctx, e.reporter, fmt.Sprintf(
			"Round %d complete. Tokens: %d in / %d out (total: %d in / %d out)",
			round, rr.InputTokens, rr.OutputTokens,
			out.Log.TotalInputTokens+rr.InputTokens,
			out.Log.TotalOutputTokens+rr.OutputTokens))

		changed := state.Staged()
		if len(changed) == 0 {
			log.Warnf("Round %d produced no file changes", round)
			rr.Err = "no file changes produced"
			rr.Feedback = feedbackPrompt(nil)
			out.Log.Append(rr)
			continue
		}

		// Gate 1: lint.
		progress.Notify(ctx, e.reporter, "Running lint check...")
		lintRes := e.linter.Check(ctx, ws.Root())
		rr.Lint = fix.GateOutcome{
			Ran:     true,
			Passed:  lintRes.Passed,
			Skipped: lintRes.Skipped || lintRes.Linter == "",
			Detail:  lintDetail(lintRes),
		}
		if !lintRes.Passed {
			progress.Notify(ctx, e.reporter,
				fmt.Sprintf("Lint failed (%s). Iterating...", lintRes.Linter))
			fb = &feedback{kind: feedbackLint, detail: lintRes.Output}
			rr.Feedback = feedbackPrompt(fb)
			out.Log.Append(rr)
			continue
		}

		// Gate 2: AI self-review.
		progress.Notify(ctx, e.reporter, "Running AI self-review...")
		verdict := e.reviewer.Review(ctx, req.Bug, changed)
		rr.Review = fix.GateOutcome{
			Ran:     true,
			Passed:  verdict.Passed,
			Skipped: verdict.Skipped,
			Detail:  reviewDetail(verdict),
		}
		if !verdict.Passed {
			progress.Notify(ctx, e.reporter, fmt.Sprintf(
				"Self-review found issues: %s. Iterating...",
				strings.Join(verdict.Issues, "; ")))
			fb = &feedback{kind: feedbackReview, issues: verdict.Issues}
			rr.Feedback = feedbackPrompt(fb)
			out.Log.Append(rr)
			continue
		}

		// Gate 3: commit, then poll CI.
		progress.Notify(ctx, e.reporter, "Committing changes and checking CI...")
		sha, err := e.host.CommitAtomic(ctx, req.Owner, req.Repo, branch, changed,
			fmt.Sprintf("fix: %s (round %d)", req.Bug.Title, round))
		if err != nil {
			rr.Err = err.Error()
			out.Log.Append(rr)
			e.finishLog(out, state)
			out.FailureReason = fmt.Sprintf("committing changes: %v", err)
			return out, fmt.Errorf("committing round %d: %w", round, err)
		}
		committedThisRound = true
		out.CommitSHA = sha
		out.ChangedFiles = changed

		progress.Notify(ctx, e.reporter, "Checking CI status...")
		ciRes, err := e.host.PollCI(ctx, req.Owner, req.Repo, sha, limits.CITimeout)
		if err != nil {
			rr.Err = err.Error()
			out.Log.Append(rr)
			e.finishLog(out, state)
			out.FailureReason = fmt.Sprintf("polling CI: %v", err)
			return out, fmt.Errorf("polling CI for %s: %w", sha, err)
		}
		rr.CIStatus = string(ciRes.Status)
		rr.CI = ciGate(ciRes)

		if ciRes.Status == ghclient.CIFailed {
			progress.Notify(ctx, e.reporter,
				fmt.Sprintf("CI failed: %s. Iterating...", ciRes.Details))
			fb = &feedback{kind: feedbackCI, detail: ciRes.Details}
			rr.Feedback = feedbackPrompt(fb)
			out.Log.Append(rr)
			continue
		}

		// Passed, no_ci, or timeout all end the loop; only the first two
		// count as validated.
		out.ValidationPassed = ciRes.Status == ghclient.CIPassed || ciRes.Status == ghclient.CINoCI
		if out.ValidationPassed {
			progress.Notify(ctx, e.reporter,
				fmt.Sprintf("CI status: %s. All quality gates passed!", ciRes.Status))
		} else {
			progress.Notify(ctx, e.reporter,
				fmt.Sprintf("CI status: %s. Finalizing...", ciRes.Status))
		}
		out.Log.Append(rr)
		break
	}

	// Rounds exhausted with staged changes but no commit from the CI gate:
	// ship the final staged state as a best-effort fix.
	if state.HasStaged() && !committedThisRound {
		sha, err := e.host.CommitAtomic(ctx, req.Owner, req.Repo, branch, state.Staged(),
			fmt.Sprintf("fix: %s (#%s)", req.Bug.Title, req.Bug.ID))
		if err != nil {
			e.finishLog(out, state)
			out.FailureReason = fmt.Sprintf("committing changes: %v", err)
			return out, fmt.Errorf("committing final state: %w", err)
		}
		out.CommitSHA = sha
		out.ChangedFiles = state.Staged()
		progress.Notify(ctx, e.reporter, fmt.Sprintf("Final commit: %.8s", sha))
	}

	e.finishLog(out, state)

	if out.CommitSHA == "" {
		out.FailureReason = noFixReason(out)
		log.Warnf("No fix produced for bug %s: %s", req.Bug.ID, out.FailureReason)
		return out, nil
	}
	if !out.ValidationPassed {
		out.Log.Note = bestEffortNote
	}

	progress.Notify(ctx, e.reporter, "Opening pull request...")
	pr, err := e.host.CreatePull(ctx, req.Owner, req.Repo,
		prTitle(req.Bug), prBody(req, out), branch, req.BaseBranch)
	if err != nil {
		out.FailureReason = fmt.Sprintf("creating pull request: %v", err)
		return out, fmt.Errorf("creating pull request: %w", err)
	}
	out.PRNumber = pr.Number
	out.PRURL = pr.URL
	out.Success = true
	progress.Notify(ctx, e.reporter, fmt.Sprintf("Pull request opened: %s", pr.URL))
	return out, nil
}

// prefetch reads the candidate files so they can be embedded in the
// round-1 prompt. Unreadable or escaping paths are skipped; this is an
// optimization, not a gate.
func (e *Engine) prefetch(ctx context.Context, ws *workspace.Workspace, paths []string) map[string]string {
	log := clog.FromContext(ctx)
	prefetched := make(map[string]string, len(paths))
	for _, path := range paths {
		content, err := ws.ReadFile(path)
		if err != nil {
			log.Debugf("Could not pre-read %s: %v", path, err)
			continue
		}
		prefetched[path] = content
	}
	if len(prefetched) > 0 {
		log.Infof("Pre-read %d candidate files to embed in prompt", len(prefetched))
	}
	return prefetched
}

func (e *Engine) finishLog(out *fix.Outcome, state *generation.State) {
	out.Log.FilesExplored = state.Explored()
}

func noFixReason(out *fix.Outcome) string {
	if last := out.Log.LastRound(); last != nil && last.Err != "" {
		return last.Err
	}
	return fmt.Sprintf("no validated changes produced after %d rounds", out.RoundsTaken)
}

func lintDetail(r *lint.Result) string {
	if r.Linter == "" {
		return "no linter detected"
	}
	if r.Output == "" {
		return r.Linter
	}
	return fmt.Sprintf("%s: %s", r.Linter, r.Output)
}

func reviewDetail(v *review.Verdict) string {
	if len(v.Issues) > 0 {
		return strings.Join(v.Issues, "; ")
	}
	return v.Summary
}

func ciGate(r *ghclient.CIResult) fix.GateOutcome {
	g := fix.GateOutcome{Ran: true, Detail: r.Details}
	switch r.Status {
	case ghclient.CIPassed:
		g.Passed = true
	case ghclient.CINoCI:
		g.Passed = true
		g.Skipped = true
	}
	return g
}
