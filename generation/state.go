/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"maps"
	"sort"
)

// State carries the cumulative tool-call bookkeeping for one fix request.
// It is shared across every generation round so the file-read budget and the
// staged changes span the whole conversation, not a single round.
//
// State is not safe for concurrent use; tool calls within a round are
// dispatched sequentially.
type State struct {
	maxFiles  int
	filesRead int
	staged    map[string]string
	explored  []string
	seen      map[string]bool
}

// NewState returns a State enforcing a cumulative budget of maxFiles
// successful reads.
func NewState(maxFiles int) *State {
	return &State{
		maxFiles: maxFiles,
		staged:   map[string]string{},
		seen:     map[string]bool{},
	}
}

// AtReadLimit reports whether the file-read budget is exhausted. Checked
// before a read; reads refused here never count against the budget.
func (s *State) AtReadLimit() bool {
	return s.filesRead >= s.maxFiles
}

// MaxFiles returns the read budget.
func (s *State) MaxFiles() int { return s.maxFiles }

// RecordRead counts one successful read and remembers the path for the
// process log. Re-reading a path still consumes budget; only the explored
// list is deduplicated.
func (s *State) RecordRead(path string) {
	s.filesRead++
	if !s.seen[path] {
		s.seen[path] = true
		s.explored = append(s.explored, path)
	}
}

// FilesRead returns the number of successful reads so far.
func (s *State) FilesRead() int { return s.filesRead }

// Stage records full replacement content for path. Later writes to the same
// path replace earlier ones.
func (s *State) Stage(path, content string) {
	s.staged[path] = content
}

// HasStaged reports whether any file has been written.
func (s *State) HasStaged() bool { return len(s.staged) > 0 }

// Staged returns a copy of the staged path→content map.
func (s *State) Staged() map[string]string {
	return maps.Clone(s.staged)
}

// StagedPaths returns the staged paths in sorted order.
func (s *State) StagedPaths() []string {
	paths := make([]string, 0, len(s.staged))
	for p := range s.staged {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Explored returns the distinct paths read so far, in first-read order.
func (s *State) Explored() []string {
	return append([]string(nil), s.explored...)
}
