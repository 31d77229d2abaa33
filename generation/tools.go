/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/fixengine/generation/params"
	"chainguard.dev/fixengine/workspace"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

const (
	// maxReadLines bounds file content returned to the model.
	maxReadLines = 500

	// maxSearchOutput bounds the rendered search results.
	maxSearchOutput = 5000

	// maxSearchMatches bounds the walk before rendering.
	maxSearchMatches = 200

	// maxDirEntries bounds directory listings.
	maxDirEntries = 100
)

// Tool pairs an API tool definition with its handler. Handlers communicate
// failures to the model through the result map; they never return Go errors.
type Tool struct {
	Definition anthropic.ToolParam
	Handler    func(ctx context.Context, args map[string]any) map[string]any
}

type readFileParams struct {
	Path string `json:"path" jsonschema:"description=Relative file path from the repository root,required"`
}

type writeFileParams struct {
	Path    string `json:"path" jsonschema:"description=Relative file path from the repository root,required"`
	Content string `json:"content" jsonschema:"description=Complete file content. Not a diff: write the full file,required"`
}

type searchParams struct {
	Query    string `json:"query" jsonschema:"description=Text to search for. Case-insensitive,required"`
	FileGlob string `json:"file_glob" jsonschema:"description=Glob pattern filtering files by name. Defaults to all files"`
}

type listDirectoryParams struct {
	Path string `json:"path" jsonschema:"description=Relative directory path from the repository root. Defaults to the root"`
}

// Tools builds the four fixed tools, bound to one workspace and one State.
func Tools(ws *workspace.Workspace, state *State) map[string]Tool {
	return map[string]Tool{
		"read_file": {
			Definition: anthropic.ToolParam{
				Name:        "read_file",
				Description: anthropic.String("Read the complete content of a source file from the repository."),
				InputSchema: inputSchema(&readFileParams{}),
			},
			Handler: readFileHandler(ws, state),
		},
		"write_file": {
			Definition: anthropic.ToolParam{
				Name:        "write_file",
				Description: anthropic.String("Write or modify a file in the working copy. This stages the change for the final commit."),
				InputSchema: inputSchema(&writeFileParams{}),
			},
			Handler: writeFileHandler(ws, state),
		},
		"search_in_repo": {
			Definition: anthropic.ToolParam{
				Name:        "search_in_repo",
				Description: anthropic.String("Search for text across repository files."),
				InputSchema: inputSchema(&searchParams{}),
			},
			Handler: searchHandler(ws),
		},
		"list_directory": {
			Definition: anthropic.ToolParam{
				Name:        "list_directory",
				Description: anthropic.String("List files and directories at the given path in the repository."),
				InputSchema: inputSchema(&listDirectoryParams{}),
			},
			Handler: listDirectoryHandler(ws),
		},
	}
}

func readFileHandler(ws *workspace.Workspace, state *State) func(context.Context, map[string]any) map[string]any {
	return func(ctx context.Context, args map[string]any) map[string]any {
		path, err := params.Extract[string](args, "path")
		if err != nil {
			return params.Error("%s", err)
		}

		// The budget is checked before the read and only successful
		// reads consume it, so a refusal here costs nothing.
		if state.AtReadLimit() {
			return params.Error("file read limit (%d) reached; work with the files already read", state.MaxFiles())
		}

		content, err := ws.ReadFile(path)
		if err != nil {
			return params.Error("file not found: %s", path)
		}
		state.RecordRead(path)

		return map[string]any{"content": truncateLines(content, maxReadLines)}
	}
}

func writeFileHandler(ws *workspace.Workspace, state *State) func(context.Context, map[string]any) map[string]any {
	return func(ctx context.Context, args map[string]any) map[string]any {
		path, err := params.Extract[string](args, "path")
		if err != nil {
			return params.Error("%s", err)
		}
		content, err := params.Extract[string](args, "content")
		if err != nil {
			return params.Error("%s", err)
		}

		// Mirror to the workspace so lint runs against the staged
		// content, then record it for the commit.
		if err := ws.WriteFile(path, content); err != nil {
			return params.Error("writing %s: %v", path, err)
		}
		state.Stage(path, content)

		clog.FromContext(ctx).With("path", path).With("bytes", len(content)).Info("Staged file")
		return map[string]any{"result": fmt.Sprintf("wrote %d bytes to %s", len(content), path)}
	}
}

func searchHandler(ws *workspace.Workspace) func(context.Context, map[string]any) map[string]any {
	return func(ctx context.Context, args map[string]any) map[string]any {
		query, err := params.Extract[string](args, "query")
		if err != nil {
			return params.Error("%s", err)
		}
		glob, err := params.Optional(args, "file_glob", "*")
		if err != nil {
			return params.Error("%s", err)
		}

		matches, err := ws.Search(ctx, query, glob, maxSearchMatches)
		if err != nil {
			return params.Error("search failed: %v", err)
		}
		if len(matches) == 0 {
			return map[string]any{"result": "No matches found."}
		}

		var sb strings.Builder
		for _, m := range matches {
			line := fmt.Sprintf("%s:%d: %s\n", m.Path, m.Line, m.Content)
			if sb.Len()+len(line) > maxSearchOutput {
				sb.WriteString("... (results truncated)\n")
				break
			}
			sb.WriteString(line)
		}
		return map[string]any{"result": sb.String()}
	}
}

func listDirectoryHandler(ws *workspace.Workspace) func(context.Context, map[string]any) map[string]any {
	return func(ctx context.Context, args map[string]any) map[string]any {
		path, err := params.Optional(args, "path", ".")
		if err != nil {
			return params.Error("%s", err)
		}

		entries, err := ws.ListDirectory(path)
		if err != nil {
			return params.Error("not a directory: %s", path)
		}
		if len(entries) > maxDirEntries {
			entries = entries[:maxDirEntries]
		}
		if len(entries) == 0 {
			return map[string]any{"result": "(empty directory)"}
		}
		return map[string]any{"entries": entries}
	}
}

// truncateLines caps content at n lines, appending a note with the original
// length so the model knows the file continues.
func truncateLines(content string, n int) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= n {
		return content
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n\n... truncated (%d total lines)", len(lines))
}
