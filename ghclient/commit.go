/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// CommitError reports which step of the atomic commit failed.
type CommitError struct {
	Owner  string
	Repo   string
	Branch string
	Step   string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("committing to %s/%s@%s (%s): %v", e.Owner, e.Repo, e.Branch, e.Step, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// CommitAtomic lands all of changes (path → full content) on branch as one
// commit via the Git Data API and returns the new commit SHA. Exactly one
// commit is created no matter how many files changed.
//
// Only branches under the fixbot/ namespace are accepted; the trunk is
// unreachable from here by construction.
func (c *Client) CommitAtomic(ctx context.Context, owner, repo, branch string, changes map[string]string, message string) (string, error) {
	if !strings.HasPrefix(branch, branchNamespace) {
		return "", fmt.Errorf("refusing to commit to %q: commits are restricted to the %s branch namespace", branch, branchNamespace)
	}
	if len(changes) == 0 {
		return "", fmt.Errorf("no changes to commit")
	}

	fail := func(step string, err error) (string, error) {
		return "", &CommitError{Owner: owner, Repo: repo, Branch: branch, Step: step, Err: err}
	}

	paths := make([]string, 0, len(changes))
	for path := range changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]*github.TreeEntry, 0, len(paths))
	for _, path := range paths {
		blob, _, err := c.gh.Git.CreateBlob(ctx, owner, repo, github.Blob{
			Content:  github.Ptr(changes[path]),
			Encoding: github.Ptr("utf-8"),
		})
		if err != nil {
			return fail("creating blob for "+path, err)
		}
		entries = append(entries, &github.TreeEntry{
			Path: github.Ptr(path),
			Mode: github.Ptr("100644"),
			Type: github.Ptr("blob"),
			SHA:  blob.SHA,
		})
	}

	ref, _, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return fail("getting branch head", err)
	}
	headSHA := ref.Object.GetSHA()

	headCommit, _, err := c.gh.Git.GetCommit(ctx, owner, repo, headSHA)
	if err != nil {
		return fail("getting head commit", err)
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, owner, repo, headCommit.Tree.GetSHA(), entries)
	if err != nil {
		return fail("creating tree", err)
	}

	commit, _, err := c.gh.Git.CreateCommit(ctx, owner, repo, github.Commit{
		Message: github.Ptr(message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.Ptr(headSHA)}},
	}, nil)
	if err != nil {
		return fail("creating commit", err)
	}

	// No Force: a concurrent move of the branch must fail, not be clobbered.
	if _, _, err := c.gh.Git.UpdateRef(ctx, owner, repo, "heads/"+branch, github.UpdateRef{
		SHA: commit.GetSHA(),
	}); err != nil {
		return fail("updating ref", err)
	}

	clog.FromContext(ctx).With("commit", shortSHA(commit.GetSHA())).
		With("branch", branch).
		With("files", len(changes)).
		Info("Created atomic commit")
	return commit.GetSHA(), nil
}
