/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"
)

const (
	// overrideFile lets a repository pin its lint command explicitly
	// instead of relying on marker detection.
	overrideFile = ".fixengine.yaml"

	runTimeout = 60 * time.Second

	// maxOutput bounds the combined stdout+stderr carried into feedback
	// prompts and process logs.
	maxOutput = 8 * 1024
)

// Spec names a linter and the command that runs it.
type Spec struct {
	// Name identifies the linter (e.g. "ruff", "eslint").
	Name string `yaml:"name"`

	// Command is the argv to execute in the repository root.
	Command []string `yaml:"command"`
}

// marker pairs a config file with the linter it implies. Order matters:
// detection returns the first marker present.
type marker struct {
	file string
	spec Spec
}

var markers = []marker{
	{"ruff.toml", Spec{Name: "ruff", Command: []string{"ruff", "check", "."}}},
	{".flake8", Spec{Name: "flake8", Command: []string{"flake8", "."}}},
	{".pylintrc", Spec{Name: "pylint", Command: []string{"pylint", "."}}},
	{".eslintrc.js", Spec{Name: "eslint", Command: []string{"npx", "eslint", "."}}},
	{".eslintrc.json", Spec{Name: "eslint", Command: []string{"npx", "eslint", "."}}},
	{".eslintrc.yml", Spec{Name: "eslint", Command: []string{"npx", "eslint", "."}}},
	{"eslint.config.js", Spec{Name: "eslint", Command: []string{"npx", "eslint", "."}}},
	{"eslint.config.mjs", Spec{Name: "eslint", Command: []string{"npx", "eslint", "."}}},
	{"Cargo.toml", Spec{Name: "cargo", Command: []string{"cargo", "clippy", "--", "-D", "warnings"}}},
	{"go.mod", Spec{Name: "go", Command: []string{"go", "vet", "./..."}}},
}

// Result reports one linter run.
type Result struct {
	// Linter is the name of the linter that ran; empty when the
	// repository has no linter configured.
	Linter string

	// Passed reports whether the gate passed. Skipped results always
	// pass.
	Passed bool

	// Skipped reports that the linter could not run (missing binary,
	// exec failure) and the gate was waved through.
	Skipped bool

	// Output is the combined stdout+stderr, capped.
	Output string
}

// Detect determines which linter the repository at dir uses. It returns nil
// when no linter configuration is present.
func Detect(dir string) *Spec {
	if spec := detectOverride(dir); spec != nil {
		return spec
	}

	// A pyproject.toml with ruff configuration outranks the marker
	// table: Python projects commonly carry other markers (such as a
	// stale .flake8) alongside it.
	if data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml")); err == nil {
		content := string(data)
		if strings.Contains(content, "[tool.ruff]") || strings.Contains(content, "[tool.ruff.") {
			return &Spec{Name: "ruff", Command: []string{"ruff", "check", "."}}
		}
	}

	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m.file)); err == nil {
			spec := m.spec
			return &spec
		}
	}
	return nil
}

func detectOverride(dir string) *Spec {
	data, err := os.ReadFile(filepath.Join(dir, overrideFile))
	if err != nil {
		return nil
	}
	var cfg struct {
		Lint Spec `yaml:"lint"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	if cfg.Lint.Name == "" || len(cfg.Lint.Command) == 0 {
		return nil
	}
	return &cfg.Lint
}

// Run executes spec's command in dir. A missing binary or a failure to start
// the process yields a skipped pass; a non-zero exit or timeout fails.
func Run(ctx context.Context, dir string, spec *Spec) *Result {
	log := clog.FromContext(ctx)

	if _, err := exec.LookPath(spec.Command[0]); err != nil {
		log.Infof("Linter binary %q not found, skipping", spec.Command[0])
		return &Result{
			Linter:  spec.Name,
			Passed:  true,
			Skipped: true,
			Output:  fmt.Sprintf("Linter %s not installed on host", spec.Name),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...) //nolint:gosec
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	output := string(out)
	if len(output) > maxOutput {
		output = output[:maxOutput] + "\n... (output truncated)"
	}

	switch {
	case err == nil:
		return &Result{Linter: spec.Name, Passed: true, Output: output}

	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Result{
			Linter: spec.Name,
			Output: fmt.Sprintf("%s timed out after %s", spec.Name, runTimeout),
		}

	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{Linter: spec.Name, Passed: false, Output: output}
		}
		// The process never ran; treat like a missing binary rather
		// than failing every round on a broken host.
		log.Warnf("Linter %s failed to run: %v", spec.Name, err)
		return &Result{
			Linter:  spec.Name,
			Passed:  true,
			Skipped: true,
			Output:  fmt.Sprintf("Failed to run %s: %v", spec.Name, err),
		}
	}
}

// Runner is the lint gate used by the fix engine.
type Runner struct{}

// Check detects and runs the repository's linter. A repository with no
// linter configured passes.
func (Runner) Check(ctx context.Context, dir string) *Result {
	spec := Detect(dir)
	if spec == nil {
		return &Result{Passed: true}
	}
	return Run(ctx, dir, spec)
}
