/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const (
	cloneDirPrefix = "fixengine-clone-"
	cloneTimeout   = 120 * time.Second
)

// remoteURL resolves the clone URL for a repository. Tests override this to
// clone from local filesystem paths.
var remoteURL = func(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, repo)
}

// CloneError reports a failed clone. It is fatal to the fix request: no
// branch or pull request is created when the workspace cannot be acquired.
type CloneError struct {
	Owner string
	Repo  string
	Ref   string
	Err   error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("cloning %s/%s@%s: %v", e.Owner, e.Repo, e.Ref, e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

// Manager acquires workspaces for fix requests. The token source must allow
// cloning the targeted repositories.
type Manager struct {
	tokenSource oauth2.TokenSource
}

// NewManager constructs a Manager. A nil token source is allowed for public
// repositories and local-path remotes.
func NewManager(tokenSource oauth2.TokenSource) *Manager {
	return &Manager{tokenSource: tokenSource}
}

// Acquire shallow-clones ref into a fresh uniquely-named directory and
// returns the Workspace. The clone is bounded by a 120s deadline; on any
// failure the directory is removed and a *CloneError is returned.
func (m *Manager) Acquire(ctx context.Context, owner, repo, ref string) (*Workspace, error) {
	switch {
	case owner == "":
		return nil, errors.New("owner cannot be empty")
	case repo == "":
		return nil, errors.New("repo cannot be empty")
	case ref == "":
		return nil, errors.New("ref cannot be empty")
	}

	dir, err := os.MkdirTemp("", cloneDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	auth, err := m.auth()
	if err != nil {
		os.RemoveAll(dir)
		return nil, &CloneError{Owner: owner, Repo: repo, Ref: ref, Err: err}
	}

	remote := remoteURL(owner, repo)
	clog.FromContext(ctx).Infof("Cloning %s (ref %s) into %s", remote, ref, dir)

	ctx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	if _, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
		SingleBranch:  true,
		Depth:         1,
		Auth:          auth,
	}); err != nil {
		removeAll(ctx, dir)
		return nil, &CloneError{Owner: owner, Repo: repo, Ref: ref, Err: err}
	}

	return &Workspace{root: dir, owned: true}, nil
}

func (m *Manager) auth() (*githttp.BasicAuth, error) {
	if m.tokenSource == nil {
		return nil, nil
	}
	token, err := m.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: token.AccessToken,
	}, nil
}

// Release tears down a workspace acquired from this Manager. Exposed on the
// Manager so callers that only hold the acquiring side can still pair every
// Acquire with a Release.
func (m *Manager) Release(ctx context.Context, ws *Workspace) error {
	return ws.Release(ctx)
}

// Workspace is an isolated local checkout used for reading, searching, and
// staging writes during generation.
type Workspace struct {
	root  string
	owned bool
}

// Local wraps an existing directory as a Workspace without cloning. Release
// is a no-op for local workspaces; the caller keeps ownership of the
// directory. Used for tests and local runs against an existing checkout.
func Local(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Root returns the absolute path of the workspace directory.
func (w *Workspace) Root() string { return w.root }

// Release removes the workspace directory. It is safe to call exactly once
// per Acquire; subsequent calls are no-ops.
func (w *Workspace) Release(ctx context.Context) error {
	if !w.owned || w.root == "" {
		w.root = ""
		return nil
	}
	dir := w.root
	w.root = ""
	return removeAll(ctx, dir)
}

// removeAll deletes dir recursively. Git object files are created read-only,
// which makes a plain RemoveAll fail on some platforms; on failure every
// entry is force-chmodded writable and the removal retried.
func removeAll(ctx context.Context, dir string) error {
	if err := os.RemoveAll(dir); err == nil {
		return nil
	}

	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		mode := fs.FileMode(0o644)
		if d.IsDir() {
			mode = 0o755
		}
		os.Chmod(path, mode)
		return nil
	}); err != nil {
		clog.FromContext(ctx).Warnf("Walking %s during cleanup: %v", dir, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", dir, err)
	}
	return nil
}

// resolve joins path onto the workspace root, rejecting escapes.
func (w *Workspace) resolve(path string) (string, error) {
	full := filepath.Join(w.root, filepath.Clean(path))
	rel, err := filepath.Rel(w.root, full)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return full, nil
}

// ReadFile reads a file relative to the workspace root.
func (w *Workspace) ReadFile(path string) (string, error) {
	full, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes full replacement content to a file relative to the
// workspace root, creating parent directories as needed.
func (w *Workspace) WriteFile(path, content string) error {
	full, err := w.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0o644)
}

// ListDirectory lists the immediate entries of a directory relative to the
// workspace root. Directory names carry a trailing slash.
func (w *Workspace) ListDirectory(path string) ([]string, error) {
	full, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}
