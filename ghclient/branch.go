/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// branchNamespace is the prefix every engine-created branch lives under.
// CommitAtomic refuses branches outside it.
const branchNamespace = "fixbot/"

const maxSlugLen = 30

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// BranchName derives the feature branch name for a bug:
// fixbot/bug-{id}-{slug}, with the title slugified and capped.
func BranchName(bugID, title string) string {
	slug := strings.ToLower(title)
	slug = nonAlnum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return fmt.Sprintf("%sbug-%s-%s", branchNamespace, bugID, slug)
}

// HeadSHA returns the commit SHA at the tip of branch.
func (c *Client) HeadSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("getting ref heads/%s: %w", branch, err)
	}
	return ref.Object.GetSHA(), nil
}

// CreateBranch creates branch pointing at baseSHA. It never moves an
// existing ref.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, baseSHA string) error {
	if _, _, err := c.gh.Git.CreateRef(ctx, owner, repo, github.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: baseSHA,
	}); err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}
	clog.FromContext(ctx).With("branch", branch).With("base", shortSHA(baseSHA)).Info("Created branch")
	return nil
}

// DeleteBranch removes a branch, ignoring already-gone errors.
func (c *Client) DeleteBranch(ctx context.Context, owner, repo, branch string) error {
	resp, err := c.gh.Git.DeleteRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		if resp != nil && (resp.StatusCode == 404 || resp.StatusCode == 422) {
			clog.FromContext(ctx).With("branch", branch).Debug("Branch already deleted")
			return nil
		}
		return fmt.Errorf("deleting branch %s: %w", branch, err)
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
