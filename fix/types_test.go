/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fix

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLimitsWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Limits
		want Limits
	}{{
		name: "all zero",
		in:   Limits{},
		want: Limits{MaxRounds: 3, MaxFiles: 15, MaxTokens: 4096, CITimeout: 5 * time.Minute},
	}, {
		name: "partial override",
		in:   Limits{MaxRounds: 5, CITimeout: time.Minute},
		want: Limits{MaxRounds: 5, MaxFiles: 15, MaxTokens: 4096, CITimeout: time.Minute},
	}, {
		name: "negative treated as unset",
		in:   Limits{MaxFiles: -1},
		want: DefaultLimits(),
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.want, test.in.WithDefaults()); diff != "" {
				t.Errorf("WithDefaults() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{
		Owner:      "octo",
		Repo:       "sprocket",
		BaseBranch: "main",
		Bug:        BugReport{ID: "1", Title: "crash"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing owner", func(r *Request) { r.Owner = "" }},
		{"missing repo", func(r *Request) { r.Repo = "" }},
		{"missing base branch", func(r *Request) { r.BaseBranch = "" }},
		{"missing bug title", func(r *Request) { r.Bug.Title = "" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := valid
			test.mutate(&req)
			if err := req.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	var nilReq *Request
	if err := nilReq.Validate(); err == nil {
		t.Error("Validate() on nil request = nil, want error")
	}
}

func TestProcessLogAppend(t *testing.T) {
	var log ProcessLog
	if log.LastRound() != nil {
		t.Fatal("LastRound() on empty log should be nil")
	}

	log.Append(RoundResult{Round: 1, InputTokens: 100, OutputTokens: 40})
	log.Append(RoundResult{Round: 2, InputTokens: 200, OutputTokens: 60})

	if got, want := log.TotalInputTokens, int64(300); got != want {
		t.Errorf("TotalInputTokens = %d, want %d", got, want)
	}
	if got, want := log.TotalOutputTokens, int64(100); got != want {
		t.Errorf("TotalOutputTokens = %d, want %d", got, want)
	}
	if got := log.LastRound(); got == nil || got.Round != 2 {
		t.Errorf("LastRound() = %+v, want round 2", got)
	}
}
