/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"chainguard.dev/fixengine/workspace"
)

func newTestTools(t *testing.T, maxFiles int, files map[string]string) (map[string]Tool, *State, *workspace.Workspace) {
	t.Helper()
	ws := workspace.Local(t.TempDir())
	for path, content := range files {
		if err := ws.WriteFile(path, content); err != nil {
			t.Fatalf("WriteFile(%s): %v", path, err)
		}
	}
	state := NewState(maxFiles)
	return Tools(ws, state), state, ws
}

func TestToolNames(t *testing.T) {
	tools, _, _ := newTestTools(t, 5, nil)
	for _, name := range []string{"read_file", "write_file", "search_in_repo", "list_directory"} {
		tool, ok := tools[name]
		if !ok {
			t.Errorf("missing tool %q", name)
			continue
		}
		if got := tool.Definition.Name; got != name {
			t.Errorf("definition name %q, want %q", got, name)
		}
		if tool.Definition.InputSchema.Type != "object" {
			t.Errorf("%s: schema type %q, want object", name, tool.Definition.InputSchema.Type)
		}
	}
	if len(tools) != 4 {
		t.Errorf("expected exactly 4 tools, got %d", len(tools))
	}
}

func TestToolSchemas(t *testing.T) {
	tools, _, _ := newTestTools(t, 5, nil)

	for _, tc := range []struct {
		tool     string
		required []string
		optional []string
	}{
		{"read_file", []string{"path"}, nil},
		{"write_file", []string{"path", "content"}, nil},
		{"search_in_repo", []string{"query"}, []string{"file_glob"}},
		{"list_directory", nil, []string{"path"}},
	} {
		t.Run(tc.tool, func(t *testing.T) {
			schema := tools[tc.tool].Definition.InputSchema
			properties, ok := schema.Properties.(map[string]any)
			if !ok {
				t.Fatalf("schema properties have type %T, want map[string]any", schema.Properties)
			}
			required := map[string]bool{}
			for _, r := range schema.Required {
				required[r] = true
			}
			for _, name := range tc.required {
				if _, ok := properties[name]; !ok {
					t.Errorf("missing property %q", name)
				}
				if !required[name] {
					t.Errorf("property %q should be required", name)
				}
			}
			for _, name := range tc.optional {
				if _, ok := properties[name]; !ok {
					t.Errorf("missing property %q", name)
				}
				if required[name] {
					t.Errorf("property %q should be optional", name)
				}
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	ctx := context.Background()
	tools, state, _ := newTestTools(t, 2, map[string]string{
		"src/app.py": "line one\nline two\n",
	})
	read := tools["read_file"].Handler

	t.Run("success", func(t *testing.T) {
		res := read(ctx, map[string]any{"path": "src/app.py"})
		if got := res["content"]; got != "line one\nline two\n" {
			t.Fatalf("content: %v", got)
		}
		if got := state.FilesRead(); got != 1 {
			t.Fatalf("FilesRead: got %d, want 1", got)
		}
	})

	t.Run("not found does not consume budget", func(t *testing.T) {
		res := read(ctx, map[string]any{"path": "nope.py"})
		if _, ok := res["error"]; !ok {
			t.Fatalf("expected error result, got %v", res)
		}
		if got := state.FilesRead(); got != 1 {
			t.Fatalf("FilesRead: got %d, want 1", got)
		}
	})

	t.Run("missing path argument", func(t *testing.T) {
		res := read(ctx, map[string]any{})
		if _, ok := res["error"]; !ok {
			t.Fatalf("expected error result, got %v", res)
		}
	})

	t.Run("budget exhaustion sentinel", func(t *testing.T) {
		read(ctx, map[string]any{"path": "src/app.py"}) // second successful read
		res := read(ctx, map[string]any{"path": "src/app.py"})
		msg, ok := res["error"].(string)
		if !ok || !strings.Contains(msg, "file read limit (2) reached") {
			t.Fatalf("expected limit sentinel, got %v", res)
		}
		if got := state.FilesRead(); got != 2 {
			t.Fatalf("refused read consumed budget: %d", got)
		}
	})
}

func TestReadFileTruncation(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 600; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	tools, _, _ := newTestTools(t, 5, map[string]string{"big.py": sb.String()})

	res := tools["read_file"].Handler(context.Background(), map[string]any{"path": "big.py"})
	content, ok := res["content"].(string)
	if !ok {
		t.Fatalf("expected content, got %v", res)
	}
	if !strings.Contains(content, "line 500") {
		t.Error("expected content through line 500")
	}
	if strings.Contains(content, "line 501") {
		t.Error("expected truncation after line 500")
	}
	if !strings.Contains(content, "... truncated (601 total lines)") {
		t.Errorf("expected truncation note, got tail: %q", content[len(content)-60:])
	}
}

func TestWriteFile(t *testing.T) {
	ctx := context.Background()
	tools, state, ws := newTestTools(t, 5, nil)
	write := tools["write_file"].Handler

	res := write(ctx, map[string]any{"path": "src/new.py", "content": "x = 1\n"})
	if _, ok := res["error"]; ok {
		t.Fatalf("unexpected error: %v", res)
	}

	// Staged for the commit and mirrored to disk for lint.
	if got := state.Staged()["src/new.py"]; got != "x = 1\n" {
		t.Fatalf("staged content: %q", got)
	}
	if got, err := ws.ReadFile("src/new.py"); err != nil || got != "x = 1\n" {
		t.Fatalf("workspace content: %q, %v", got, err)
	}

	t.Run("missing content argument", func(t *testing.T) {
		res := write(ctx, map[string]any{"path": "src/new.py"})
		if _, ok := res["error"]; !ok {
			t.Fatalf("expected error result, got %v", res)
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		res := write(ctx, map[string]any{"path": "../escape.py", "content": "x"})
		if _, ok := res["error"]; !ok {
			t.Fatalf("expected error result, got %v", res)
		}
	})
}

func TestSearchInRepo(t *testing.T) {
	ctx := context.Background()
	tools, _, _ := newTestTools(t, 5, map[string]string{
		"src/app.py":  "def handle():\n    return compute()\n",
		"src/util.py": "def compute():\n    return 42\n",
	})
	search := tools["search_in_repo"].Handler

	t.Run("matches", func(t *testing.T) {
		res := search(ctx, map[string]any{"query": "compute"})
		out, ok := res["result"].(string)
		if !ok {
			t.Fatalf("expected result, got %v", res)
		}
		if !strings.Contains(out, "src/app.py:2:") || !strings.Contains(out, "src/util.py:1:") {
			t.Fatalf("unexpected output:\n%s", out)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		res := search(ctx, map[string]any{"query": "zzz_not_here"})
		if got := res["result"]; got != "No matches found." {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("glob", func(t *testing.T) {
		res := search(ctx, map[string]any{"query": "compute", "file_glob": "util.py"})
		out := res["result"].(string)
		if strings.Contains(out, "app.py") {
			t.Fatalf("glob not applied:\n%s", out)
		}
	})
}

func TestSearchOutputCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "needle padding padding padding padding padding %d\n", i)
	}
	tools, _, _ := newTestTools(t, 5, map[string]string{"big.txt": sb.String()})

	res := tools["search_in_repo"].Handler(context.Background(), map[string]any{"query": "needle"})
	out := res["result"].(string)
	if len(out) > maxSearchOutput+len("... (results truncated)\n") {
		t.Fatalf("output too large: %d bytes", len(out))
	}
	if !strings.Contains(out, "... (results truncated)") {
		t.Fatal("expected truncation marker")
	}
}

func TestListDirectory(t *testing.T) {
	ctx := context.Background()
	tools, _, _ := newTestTools(t, 5, map[string]string{
		"src/app.py": "x",
		"README.md":  "y",
	})
	list := tools["list_directory"].Handler

	t.Run("defaults to root", func(t *testing.T) {
		res := list(ctx, map[string]any{})
		entries, ok := res["entries"].([]string)
		if !ok {
			t.Fatalf("expected entries, got %v", res)
		}
		want := map[string]bool{"README.md": true, "src/": true}
		for _, e := range entries {
			if !want[e] {
				t.Errorf("unexpected entry %q", e)
			}
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %v", entries)
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		res := list(ctx, map[string]any{"path": "README.md"})
		if _, ok := res["error"]; !ok {
			t.Fatalf("expected error result, got %v", res)
		}
	})
}

func TestListDirectoryCap(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 150; i++ {
		files[fmt.Sprintf("f%03d.txt", i)] = "x"
	}
	tools, _, _ := newTestTools(t, 5, files)

	res := tools["list_directory"].Handler(context.Background(), map[string]any{"path": "."})
	entries := res["entries"].([]string)
	if len(entries) != maxDirEntries {
		t.Fatalf("expected %d entries, got %d", maxDirEntries, len(entries))
	}
}
