/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastCIOptions() []Option {
	return []Option{
		WithCIInitialDelay(0),
		WithCIPollInterval(time.Millisecond),
	}
}

func checkRunsHandler(responses ...string) (http.HandlerFunc, *int) {
	calls := new(int)
	return func(w http.ResponseWriter, r *http.Request) {
		i := *calls
		if i >= len(responses) {
			i = len(responses) - 1
		}
		*calls++
		fmt.Fprint(w, responses[i])
	}, calls
}

func TestPollCIPassed(t *testing.T) {
	mux := http.NewServeMux()
	handler, _ := checkRunsHandler(
		`{"total_count": 2, "check_runs": [
			{"name": "build", "status": "completed", "conclusion": "success"},
			{"name": "docs", "status": "completed", "conclusion": "skipped"}
		]}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, fastCIOptions()...)

	res, err := c.PollCI(context.Background(), "o", "r", "sha1", time.Second)
	require.NoError(t, err)
	require.Equal(t, CIPassed, res.Status)
	require.Equal(t, "All 2 checks passed", res.Details)
}

func TestPollCIFailed(t *testing.T) {
	mux := http.NewServeMux()
	handler, _ := checkRunsHandler(
		`{"total_count": 2, "check_runs": [
			{"name": "build", "status": "completed", "conclusion": "failure"},
			{"name": "test", "status": "completed", "conclusion": "success"}
		]}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, fastCIOptions()...)

	res, err := c.PollCI(context.Background(), "o", "r", "sha1", time.Second)
	require.NoError(t, err)
	require.Equal(t, CIFailed, res.Status)
	require.Equal(t, "- build: failure", res.Details)
}

func TestPollCINoCI(t *testing.T) {
	mux := http.NewServeMux()
	handler, calls := checkRunsHandler(`{"total_count": 0, "check_runs": []}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, fastCIOptions()...)

	res, err := c.PollCI(context.Background(), "o", "r", "sha1", time.Second)
	require.NoError(t, err)
	require.Equal(t, CINoCI, res.Status)
	// An empty first poll gets one retry before the no_ci verdict.
	require.Equal(t, 2, *calls)
}

func TestPollCILateRegistration(t *testing.T) {
	// Zero runs on the first poll because Actions had not registered yet,
	// then the runs appear and complete.
	mux := http.NewServeMux()
	handler, _ := checkRunsHandler(
		`{"total_count": 0, "check_runs": []}`,
		`{"total_count": 1, "check_runs": [
			{"name": "build", "status": "completed", "conclusion": "success"}
		]}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, fastCIOptions()...)

	res, err := c.PollCI(context.Background(), "o", "r", "sha1", time.Second)
	require.NoError(t, err)
	require.Equal(t, CIPassed, res.Status)
}

func TestPollCIWaitsForCompletion(t *testing.T) {
	mux := http.NewServeMux()
	handler, calls := checkRunsHandler(
		`{"total_count": 1, "check_runs": [{"name": "build", "status": "in_progress"}]}`,
		`{"total_count": 1, "check_runs": [{"name": "build", "status": "in_progress"}]}`,
		`{"total_count": 1, "check_runs": [{"name": "build", "status": "completed", "conclusion": "success"}]}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, fastCIOptions()...)

	res, err := c.PollCI(context.Background(), "o", "r", "sha1", time.Second)
	require.NoError(t, err)
	require.Equal(t, CIPassed, res.Status)
	require.Equal(t, 3, *calls)
}

func TestPollCITimeout(t *testing.T) {
	mux := http.NewServeMux()
	handler, _ := checkRunsHandler(
		`{"total_count": 1, "check_runs": [{"name": "build", "status": "in_progress"}]}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, fastCIOptions()...)

	res, err := c.PollCI(context.Background(), "o", "r", "sha1", 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, CITimeout, res.Status)
	require.Contains(t, res.Details, "CI did not complete within")
}

func TestPollCIContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	handler, _ := checkRunsHandler(
		`{"total_count": 1, "check_runs": [{"name": "build", "status": "in_progress"}]}`)
	mux.HandleFunc("GET /repos/o/r/commits/sha1/check-runs", handler)
	c := newFakeClient(t, mux, WithCIInitialDelay(0), WithCIPollInterval(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.PollCI(ctx, "o", "r", "sha1", time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
