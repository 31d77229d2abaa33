/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// CIStatus is the terminal state of a CI poll.
type CIStatus string

const (
	CIPassed  CIStatus = "passed"
	CIFailed  CIStatus = "failed"
	CINoCI    CIStatus = "no_ci"
	CITimeout CIStatus = "timeout"
)

// CIResult is the outcome of polling the Checks API for one ref.
type CIResult struct {
	Status  CIStatus
	Details string
}

// passingConclusions are check-run conclusions that do not fail the gate.
var passingConclusions = map[string]bool{
	"success": true,
	"neutral": true,
	"skipped": true,
}

// PollCI watches the check runs for ref until they all complete or timeout
// elapses. It waits an initial grace period before the first poll so that
// Actions have a chance to register runs after the push, and gives an empty
// first poll one extra interval before concluding the repository has no CI.
func (c *Client) PollCI(ctx context.Context, owner, repo, ref string, timeout time.Duration) (*CIResult, error) {
	log := clog.FromContext(ctx)

	if err := sleep(ctx, c.ciInitialDelay); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	firstPoll := true
	for time.Now().Before(deadline) {
		results, _, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("listing check runs for %s: %w", ref, err)
		}

		if results.GetTotal() == 0 {
			// Runs can register late; give an empty first poll a
			// second chance before deciding there is no CI.
			if firstPoll {
				firstPoll = false
				if err := sleep(ctx, c.ciPollInterval); err != nil {
					return nil, err
				}
				continue
			}
			return &CIResult{Status: CINoCI, Details: "No CI pipeline detected"}, nil
		}
		firstPoll = false

		complete := true
		var failures []string
		for _, run := range results.CheckRuns {
			if run.GetStatus() != "completed" {
				complete = false
				break
			}
			if !passingConclusions[run.GetConclusion()] {
				failures = append(failures, fmt.Sprintf("- %s: %s", run.GetName(), run.GetConclusion()))
			}
		}

		if complete {
			if len(failures) > 0 {
				return &CIResult{Status: CIFailed, Details: strings.Join(failures, "\n")}, nil
			}
			return &CIResult{
				Status:  CIPassed,
				Details: fmt.Sprintf("All %d checks passed", results.GetTotal()),
			}, nil
		}

		log.With("ref", ref).Debug("Check runs still in progress")
		if err := sleep(ctx, c.ciPollInterval); err != nil {
			return nil, err
		}
	}

	return &CIResult{
		Status:  CITimeout,
		Details: fmt.Sprintf("CI did not complete within %s", timeout),
	}, nil
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
