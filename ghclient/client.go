/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// Client wraps an installation-authenticated GitHub API client.
type Client struct {
	gh        *github.Client
	transport *ghinstallation.Transport

	// CI polling knobs, overridable for tests.
	ciInitialDelay time.Duration
	ciPollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCIInitialDelay sets the wait before the first CI poll.
func WithCIInitialDelay(d time.Duration) Option {
	return func(c *Client) { c.ciInitialDelay = d }
}

// WithCIPollInterval sets the wait between CI polls.
func WithCIPollInterval(d time.Duration) Option {
	return func(c *Client) { c.ciPollInterval = d }
}

// New builds a Client authenticated as a GitHub App installation using a
// private key file.
func New(appID, installationID int64, privateKeyPath string, opts ...Option) (*Client, error) {
	transport, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading app key: %w", err)
	}
	c := newClient(github.NewClient(&http.Client{Transport: transport}), opts...)
	c.transport = transport
	return c, nil
}

// NewFromKey is New with the private key material in hand.
func NewFromKey(appID, installationID int64, privateKey []byte, opts ...Option) (*Client, error) {
	transport, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing app key: %w", err)
	}
	c := newClient(github.NewClient(&http.Client{Transport: transport}), opts...)
	c.transport = transport
	return c, nil
}

// NewWithClient wraps an existing API client. Used by tests to point at a
// fake server.
func NewWithClient(gh *github.Client, opts ...Option) *Client {
	return newClient(gh, opts...)
}

func newClient(gh *github.Client, opts ...Option) *Client {
	c := &Client{
		gh:             gh,
		ciInitialDelay: 15 * time.Second,
		ciPollInterval: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenSource exposes the installation token for git clone auth. The
// returned source mints short-lived tokens on demand, so it stays valid for
// the lifetime of the app credentials.
func (c *Client) TokenSource() oauth2.TokenSource {
	return &installationTokenSource{transport: c.transport}
}

type installationTokenSource struct {
	transport *ghinstallation.Transport
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	if s.transport == nil {
		return nil, fmt.Errorf("no installation transport configured")
	}
	token, err := s.transport.Token(context.Background())
	if err != nil {
		return nil, fmt.Errorf("minting installation token: %w", err)
	}
	return &oauth2.Token{AccessToken: token}, nil
}
