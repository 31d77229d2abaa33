/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// PullRequest is the subset of PR metadata the engine reports.
type PullRequest struct {
	Number int
	URL    string
	Title  string
}

// CreatePull opens a pull request from head into base.
func (c *Client) CreatePull(ctx context.Context, owner, repo, title, body, head, base string) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request %s -> %s: %w", head, base, err)
	}

	clog.FromContext(ctx).With("number", pr.GetNumber()).With("url", pr.GetHTMLURL()).Info("Opened pull request")
	return &PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Title:  pr.GetTitle(),
	}, nil
}

// UpdatePull rewrites the title and body of an existing pull request.
func (c *Client) UpdatePull(ctx context.Context, owner, repo string, number int, title, body string) error {
	if _, _, err := c.gh.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	}); err != nil {
		return fmt.Errorf("updating pull request #%d: %w", number, err)
	}
	return nil
}
