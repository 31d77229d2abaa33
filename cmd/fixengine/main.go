/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs fix requests from JSON files against the fix engine.
//
// Each argument names a file containing one fix.Request. Requests run
// concurrently, bounded by FIXENGINE_CONCURRENCY, and the process exits
// non-zero if any request failed to produce a pull request.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"chainguard.dev/fixengine/engine"
	"chainguard.dev/fixengine/fix"
	"chainguard.dev/fixengine/generation"
	"chainguard.dev/fixengine/ghclient"
	"chainguard.dev/fixengine/lint"
	"chainguard.dev/fixengine/review"
	"chainguard.dev/fixengine/workspace"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
)

type config struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY,required"`
	Model           string `env:"FIXENGINE_MODEL"`

	GitHubAppID          int64  `env:"GITHUB_APP_ID,required"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID,required"`
	GitHubPrivateKey     string `env:"GITHUB_PRIVATE_KEY_PATH,required"`

	MaxRounds   int           `env:"FIXENGINE_MAX_ROUNDS,default=3"`
	MaxFiles    int           `env:"FIXENGINE_MAX_FILES,default=15"`
	MaxTokens   int64         `env:"FIXENGINE_MAX_TOKENS,default=4096"`
	CITimeout   time.Duration `env:"FIXENGINE_CI_TIMEOUT,default=5m"`
	Concurrency int           `env:"FIXENGINE_CONCURRENCY,default=2"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	files := os.Args[1:]
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s request.json [request.json ...]\n", os.Args[0])
		os.Exit(2)
	}

	gh, err := ghclient.New(cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKey)
	if err != nil {
		clog.FatalContextf(ctx, "creating GitHub client: %v", err)
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	var genOpts []generation.Option
	var revOpts []review.Option
	if cfg.Model != "" {
		genOpts = append(genOpts, generation.WithModel(anthropic.Model(cfg.Model)))
		revOpts = append(revOpts, review.WithModel(anthropic.Model(cfg.Model)))
	}
	genOpts = append(genOpts, generation.WithMaxTokens(cfg.MaxTokens))

	eng := engine.New(
		generation.New(client, genOpts...),
		review.New(client, revOpts...),
		lint.Runner{},
		workspace.NewManager(gh.TokenSource()),
		gh,
	)

	var (
		mu     sync.Mutex
		failed int
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.Concurrency)
	for _, path := range files {
		group.Go(func() error {
			log := clog.FromContext(gctx).With("request", path)
			req, err := loadRequest(path, &cfg)
			if err != nil {
				log.Errorf("Loading request: %v", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			log = log.With("bug", req.Bug.ID, "repo", req.Owner+"/"+req.Repo)

			out, err := eng.Fix(clog.WithLogger(gctx, log), req)
			switch {
			case err != nil:
				log.Errorf("Fix failed: %v", err)
			case !out.Success:
				log.Errorf("No fix produced: %s", out.FailureReason)
			default:
				log.Infof("Fix complete: %s (rounds=%d validated=%t tokens=%d/%d)",
					out.PRURL, out.RoundsTaken, out.ValidationPassed,
					out.Log.TotalInputTokens, out.Log.TotalOutputTokens)
			}
			if err != nil || !out.Success {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers never return errors; failures are counted instead so one bad
	// request does not cancel the rest.
	_ = group.Wait()

	clog.InfoContextf(ctx, "Completed %d/%d fix requests", len(files)-failed, len(files))
	if failed > 0 {
		os.Exit(1)
	}
}

// loadRequest parses one request file and fills unset limits from the
// process configuration.
func loadRequest(path string, cfg *config) (*fix.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req fix.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if req.Limits.MaxRounds == 0 {
		req.Limits.MaxRounds = cfg.MaxRounds
	}
	if req.Limits.MaxFiles == 0 {
		req.Limits.MaxFiles = cfg.MaxFiles
	}
	if req.Limits.MaxTokens == 0 {
		req.Limits.MaxTokens = cfg.MaxTokens
	}
	if req.Limits.CITimeout == 0 {
		req.Limits.CITimeout = cfg.CITimeout
	}
	return &req, nil
}
