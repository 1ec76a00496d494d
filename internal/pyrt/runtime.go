// Package pyrt runs Python units in a child interpreter and reports their
// members.
//
// Every unit is imported in its own process, one at a time. Importing runs
// the unit's top-level code; keeping it out of the generator process means a
// unit that crashes, exits or pollutes interpreter state only loses its own
// report.
package pyrt

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kluctl/go-embed-python/python"
)

//go:embed introspect.py
var introspectScript []byte

const stderrTail = 2048

type commandFunc func(args ...string) (*exec.Cmd, error)

type scriptRuntime struct {
	command   commandFunc
	scriptDir string
	script    string
}

// NewSystem returns a Runtime backed by an installed interpreter.
func NewSystem(executable string) (Runtime, error) {
	if executable == "" {
		executable = "python3"
	}
	resolved, err := exec.LookPath(executable)
	if err != nil {
		return nil, fmt.Errorf("%w: interpreter %q not found: %v", ErrRuntime, executable, err)
	}
	return newScriptRuntime(func(args ...string) (*exec.Cmd, error) {
		return exec.Command(resolved, args...), nil
	})
}

// NewEmbedded returns a Runtime backed by the interpreter bundled into the
// binary. The interpreter is extracted into cacheDir on first use and reused
// by later runs; an empty cacheDir selects a per-user temp location.
func NewEmbedded(cacheDir string) (Runtime, error) {
	var (
		ep  *python.EmbeddedPython
		err error
	)
	if cacheDir == "" {
		ep, err = python.NewEmbeddedPython("tagsgen")
	} else {
		ep, err = python.NewEmbeddedPythonWithTmpDir(cacheDir, true)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: extracting embedded python: %v", ErrRuntime, err)
	}
	return newScriptRuntime(ep.PythonCmd)
}

func newScriptRuntime(command commandFunc) (*scriptRuntime, error) {
	dir, err := os.MkdirTemp("", "tagsgen-pyrt-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create script dir: %w", err)
	}
	script := filepath.Join(dir, "introspect.py")
	if err := os.WriteFile(script, introspectScript, 0644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write introspection script: %w", err)
	}
	return &scriptRuntime{command: command, scriptDir: dir, script: script}, nil
}

func (r *scriptRuntime) Describe(ctx context.Context) (*Info, error) {
	out, _, err := r.run(ctx, "describe")
	if err != nil {
		if errors.Is(err, ErrUnitCrashed) {
			return nil, fmt.Errorf("%w: %v", ErrRuntime, err)
		}
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("%w: decoding runtime description: %v", ErrRuntime, err)
	}
	return &info, nil
}

func (r *scriptRuntime) Inspect(ctx context.Context, target Target) (*Report, error) {
	args := []string{"inspect", "--module", target.Module}
	if target.Path != "" {
		args = append(args, "--path", target.Path)
	}
	out, stderr, err := r.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", target.Module, err)
	}
	var report Report
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("%w: decoding report for %s: %v: %s", ErrMalformedReport, target.Module, err, strings.TrimSpace(stderr))
	}
	report.Stderr = stderr
	return &report, nil
}

// run executes the introspection script. A non-zero exit is only an error
// when the script produced no report. A child that started and then left no
// report is a unit crash; only a child that could not start is a runtime
// failure.
func (r *scriptRuntime) run(ctx context.Context, args ...string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	cmd, err := r.command(append([]string{r.script}, args...)...)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrRuntime, err)
	}
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, "PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	tail := lastBytes(stderr.String(), stderrTail)
	if stdout.Len() == 0 {
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			return nil, tail, fmt.Errorf("%w: %v: %s", ErrUnitCrashed, runErr, strings.TrimSpace(tail))
		case runErr == nil:
			return nil, tail, fmt.Errorf("%w: exited without a report: %s", ErrUnitCrashed, strings.TrimSpace(tail))
		}
		return nil, tail, fmt.Errorf("%w: %v: %s", ErrRuntime, runErr, strings.TrimSpace(tail))
	}
	return stdout.Bytes(), tail, nil
}

func (r *scriptRuntime) Close() error {
	return os.RemoveAll(r.scriptDir)
}

func lastBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
