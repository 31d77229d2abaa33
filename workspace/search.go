/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// searchTimeout bounds one Search call over the whole tree walk.
const searchTimeout = 30 * time.Second

// Match is one search hit.
type Match struct {
	// Path is the file path relative to the workspace root
	Path string `json:"path"`

	// Line is the line number (1-based)
	Line int `json:"line"`

	// Content is the matching line content
	Content string `json:"content"`
}

// Search walks the workspace looking for lines matching query,
// case-insensitively. The query is compiled as a regular expression; when it
// does not compile, the literal string is matched instead so the model can
// search for code containing regex metacharacters. glob filters files by
// base name ("*" or "" matches everything). At most maxMatches hits are
// returned, and the whole walk is bounded by a 30s deadline on top of
// whatever deadline ctx already carries.
func (w *Workspace) Search(ctx context.Context, query, glob string, maxMatches int) ([]Match, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}
	if glob == "" {
		glob = "*"
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var matches []Match
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil // Skip entries we cannot access.
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(glob, d.Name()); !ok {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		fileMatches, err := searchFile(path, w.root, re, maxMatches-len(matches))
		if err != nil {
			return nil // Skip files we cannot read.
		}
		matches = append(matches, fileMatches...)
		if len(matches) >= maxMatches {
			return filepath.SkipAll
		}
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("search timed out after %s", searchTimeout)
	}
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func searchFile(path, root string, re *regexp.Regexp, limit int) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, Match{
				Path:    filepath.ToSlash(relPath),
				Line:    lineNum,
				Content: line,
			})
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, scanner.Err()
}

func isBinaryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	binaryExts := map[string]struct{}{
		".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
		".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {},
		".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {},
		".pdf": {}, ".woff": {}, ".woff2": {},
		".bin": {}, ".dat": {},
	}
	_, isBinary := binaryExts[ext]
	return isBinary
}
