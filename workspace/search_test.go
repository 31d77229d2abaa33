/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()
	ws := Local(t.TempDir())

	files := map[string]string{
		"src/app.py":        "def handle_request(req):\n    return process(req)\n",
		"src/util.py":       "# helper\ndef process(data):\n    return data\n",
		"docs/notes.md":     "Process incoming requests carefully.\n",
		".git/config":       "process = never matched\n",
		"assets/logo.png":   "process hidden in binary\n",
		"src/.hidden/x.py":  "process = 1\n",
	}
	for path, content := range files {
		if err := ws.WriteFile(path, content); err != nil {
			t.Fatalf("WriteFile(%s): %v", path, err)
		}
	}

	t.Run("case insensitive across files", func(t *testing.T) {
		matches, err := ws.Search(ctx, "process", "*", 100)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		paths := make(map[string]int)
		for _, m := range matches {
			paths[m.Path]++
		}
		want := map[string]int{
			"src/app.py":    1,
			"src/util.py":   1,
			"docs/notes.md": 1,
		}
		if diff := cmp.Diff(want, paths); diff != "" {
			t.Fatalf("matched paths (-want +got):\n%s", diff)
		}
	})

	t.Run("glob filter", func(t *testing.T) {
		matches, err := ws.Search(ctx, "process", "*.py", 100)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		for _, m := range matches {
			if got := m.Path; got != "src/app.py" && got != "src/util.py" {
				t.Errorf("unexpected match in %s", got)
			}
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(matches))
		}
	})

	t.Run("match cap", func(t *testing.T) {
		matches, err := ws.Search(ctx, "e", "*", 2)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(matches))
		}
	})

	t.Run("line numbers and content", func(t *testing.T) {
		matches, err := ws.Search(ctx, "helper", "*", 10)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		want := []Match{{Path: "src/util.py", Line: 1, Content: "# helper"}}
		if diff := cmp.Diff(want, matches); diff != "" {
			t.Fatalf("matches (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid regex falls back to literal", func(t *testing.T) {
		matches, err := ws.Search(ctx, "process(req)", "*.py", 10)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		// "process(req)" is a valid regex matching "processreq", which
		// appears nowhere; a bracketed literal like "[" is not.
		if len(matches) != 0 {
			t.Fatalf("expected no matches, got %v", matches)
		}

		matches, err = ws.Search(ctx, "process(", "*.py", 10)
		if err != nil {
			t.Fatalf("Search literal: %v", err)
		}
		if len(matches) != 1 || matches[0].Path != "src/app.py" {
			t.Fatalf("expected literal match in src/app.py, got %v", matches)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		if _, err := ws.Search(ctx, "", "*", 10); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := ws.Search(cancelled, "process", "*", 100); err == nil {
			t.Fatalf("expected error for cancelled context")
		}
	})

	t.Run("expired deadline reports a timeout", func(t *testing.T) {
		expired, cancel := context.WithTimeout(context.Background(), -1)
		defer cancel()
		_, err := ws.Search(expired, "process", "*", 100)
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Fatalf("expected timeout error, got %v", err)
		}
	})
}
