/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/fixengine/generation/retry"
)

func testConfig() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func alwaysRetryable(err error) bool { return err != nil }

func TestDoSuccess(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	result, err := retry.Do(context.Background(), testConfig(), "generate", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected %q, got %q", "ok", result)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestDoSuccessAfterRetries(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	transient := errors.New("429 rate limited")

	result, err := retry.Do(context.Background(), testConfig(), "generate", alwaysRetryable, func() (string, error) {
		if attempts.Add(1) < 3 {
			return "", transient
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "recovered" {
		t.Fatalf("expected %q, got %q", "recovered", result)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoExhaustedRetries(t *testing.T) {
	t.Parallel()
	transient := errors.New("529 overloaded")

	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), testConfig(), "generate", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "", transient
	})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := attempts.Load(); got != 4 {
		t.Fatalf("expected 4 attempts (1 initial + 3 retries), got %d", got)
	}
	if !errors.Is(err, transient) {
		t.Fatalf("expected wrapped original error, got: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "generate failed after 3 retries") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestDoNonRetryable(t *testing.T) {
	t.Parallel()
	permanent := errors.New("invalid_request_error")

	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), testConfig(), "generate", func(error) bool { return false }, func() (string, error) {
		attempts.Add(1)
		return "", permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected original error, got: %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestDoContextCancelled(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BaseBackoff = time.Minute
	cfg.MaxJitter = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retry.Do(ctx, cfg, "generate", alwaysRetryable, func() (string, error) {
		return "", errors.New("503 unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := retry.Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := retry.Config{MaxRetries: -1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative retries")
	}
}
