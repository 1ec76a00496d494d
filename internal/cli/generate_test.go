package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/tagsgen/internal/config"
	"github.com/mvp-joe/tagsgen/internal/inspect"
	"github.com/mvp-joe/tagsgen/internal/pipeline"
	"github.com/mvp-joe/tagsgen/internal/pyrt"
	"github.com/mvp-joe/tagsgen/internal/sanitize"
)

// Test Plan for generate:
// - With no arguments the runtime's stdlib is enumerated, ignored units are never loaded
// - A unit that fails to import is scanned as text and its declarations reach the file
// - The header names the runtime that produced the tags
// - Module-name arguments are inspected without enumerating the stdlib
// - A unit whose report cannot be decoded is scanned as text and the run goes on
// - A runtime failure or a cancelled run stops extraction, still writes what was
//   collected and returns the cause
// - An output path that cannot be created is an error
// - Flags override the loaded configuration and are validated

type stubRuntime struct {
	info    pyrt.Info
	reports map[string]*pyrt.Report
	errs    map[string]error
	loaded  []string
}

func (s *stubRuntime) Describe(ctx context.Context) (*pyrt.Info, error) {
	info := s.info
	return &info, nil
}

func (s *stubRuntime) Inspect(ctx context.Context, target pyrt.Target) (*pyrt.Report, error) {
	s.loaded = append(s.loaded, target.Module)
	if err := s.errs[target.Module]; err != nil {
		return nil, err
	}
	if r, ok := s.reports[target.Module]; ok {
		return r, nil
	}
	return &pyrt.Report{Module: target.Module, Origin: target.Path, Status: pyrt.StatusError, ErrorType: "ModuleNotFoundError"}, nil
}

func (s *stubRuntime) Close() error { return nil }

func newStubRuntime(stdlib string) *stubRuntime {
	return &stubRuntime{
		info: pyrt.Info{
			Implementation: "CPython",
			Version:        "3.12.1",
			Executable:     "/opt/python/bin/python3",
			Prefix:         "/opt/python",
			BasePrefix:     "/opt/python",
			ExecPrefix:     "/opt/python",
			Stdlib:         stdlib,
		},
		reports: map[string]*pyrt.Report{
			"widgets": {
				Module: "widgets",
				Status: pyrt.StatusOK,
				Members: []pyrt.Member{{
					Name:   "Widget",
					Kind:   pyrt.MemberClass,
					Module: "widgets",
					Members: []pyrt.Member{{
						Name:    "render",
						Kind:    pyrt.MemberFunction,
						Binding: pyrt.BindingInstance,
						Params: []sanitize.Param{
							{Name: "self", Kind: sanitize.PositionalOrKeywd},
							{Name: "scale", Kind: sanitize.PositionalOrKeywd, Default: &sanitize.Value{Type: "float", Repr: "1.0", Primitive: true}},
						},
					}},
				}},
			},
		},
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readTags(t *testing.T, path string) *inspect.Report {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	report, err := inspect.Read(f)
	require.NoError(t, err)
	return report
}

func formatted(report *inspect.Report) []string {
	var out []string
	for _, e := range report.Entries {
		out = append(out, inspect.Format(e.Record))
	}
	return out
}

func TestGenerate_Stdlib(t *testing.T) {
	t.Parallel()

	stdlib := t.TempDir()
	writeFiles(t, stdlib, map[string]string{
		"widgets.py":       "class Widget: ...\n",
		"legacy.py":        "class Foo:\n    pass\n\ndef bar():\n    print 'py2'\n",
		"antigravity.py":   "import webbrowser\n",
		"__main__.py":      "print('run')\n",
		"test/__init__.py": "",
		"test/test_x.py":   "",
	})
	rt := newStubRuntime(stdlib)

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "python.tags")

	summary, err := generate(context.Background(), cfg, rt, nil, discardLogger(), pipeline.NoOpProgressReporter{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"legacy", "widgets"}, rt.loaded)
	assert.Equal(t, 2, summary.Units)
	assert.Equal(t, 1, summary.Reflected)
	assert.Equal(t, 1, summary.FellBack)
	assert.Equal(t, cfg.Output.Path, summary.Output)

	report := readTags(t, cfg.Output.Path)
	assert.Empty(t, report.Skipped)
	assert.Contains(t, report.Header.Generator, "CPython 3.12.1")

	lines := formatted(report)
	require.Len(t, lines, 4)
	assert.Equal(t, "class:      Foo", lines[0])
	assert.Equal(t, "Widget", report.Entries[1].Record.Name)
	assert.Equal(t, "function:   bar()", lines[2])
	assert.Equal(t, "member:     Widget :: render(scale=1.0)", lines[3])
}

func TestGenerate_ModuleArguments(t *testing.T) {
	t.Parallel()

	rt := newStubRuntime("")
	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "widgets.tags")

	summary, err := generate(context.Background(), cfg, rt, []string{"widgets"}, discardLogger(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"widgets"}, rt.loaded)
	assert.Equal(t, 1, summary.Units)
	assert.Equal(t, 2, summary.Records)
}

func TestGenerate_GarbledReportFallsBack(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"selfref.py": "class Node:\n    def walk(self):\n        pass\n\nNode.Alias = Node\n",
	})
	rt := newStubRuntime("")
	rt.errs = map[string]error{
		"selfref": fmt.Errorf("%w: decoding report for selfref: unexpected end of JSON input", pyrt.ErrMalformedReport),
	}

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "python.tags")

	summary, err := generate(context.Background(), cfg, rt, []string{"widgets", filepath.Join(src, "selfref.py")}, discardLogger(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"widgets", "selfref"}, rt.loaded)
	assert.Equal(t, 1, summary.Reflected)
	assert.Equal(t, 1, summary.FellBack)

	lines := formatted(readTags(t, cfg.Output.Path))
	assert.Contains(t, lines, "class:      Node")
	assert.Contains(t, lines, "member:     Widget :: render(scale=1.0)")
}

func TestGenerate_RuntimeFailureKeepsCollected(t *testing.T) {
	t.Parallel()

	rt := newStubRuntime("")
	rt.errs = map[string]error{"broken": fmt.Errorf("inspecting broken: %w: interpreter gone", pyrt.ErrRuntime)}

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "python.tags")

	summary, err := generate(context.Background(), cfg, rt, []string{"widgets", "broken", "later"}, discardLogger(), pipeline.NoOpProgressReporter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pyrt.ErrRuntime)
	assert.Contains(t, err.Error(), "unit broken")
	assert.Equal(t, []string{"widgets", "broken"}, rt.loaded)
	require.NotNil(t, summary)
	assert.Equal(t, cfg.Output.Path, summary.Output)

	report := readTags(t, cfg.Output.Path)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "Widget", report.Entries[0].Record.Name)
}

func TestGenerate_CancelledRunKeepsHeader(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "python.tags")

	rt := newStubRuntime("")
	_, err := generate(ctx, cfg, rt, []string{"widgets"}, discardLogger(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rt.loaded)

	report := readTags(t, cfg.Output.Path)
	assert.Empty(t, report.Entries)
	assert.Contains(t, report.Header.Generator, "CPython 3.12.1")
}

func TestGenerate_StdlibUnknown(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "python.tags")

	_, err := generate(context.Background(), cfg, newStubRuntime(""), nil, discardLogger(), pipeline.NoOpProgressReporter{})
	assert.ErrorIs(t, err, pyrt.ErrRuntime)
}

func TestGenerate_OutputNotCreatable(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(t.TempDir(), "missing", "python.tags")

	_, err := generate(context.Background(), cfg, newStubRuntime(""), []string{"widgets"}, discardLogger(), pipeline.NoOpProgressReporter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write tag file")
}

func TestApplyGenerateFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr error
	}{
		{
			name: "no flags keep config",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name: "embedded with output and syntax fallback",
			args: []string{"--embedded", "-o", "out.tags", "--fallback", "syntax"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.RuntimeEmbedded, cfg.Runtime.Mode)
				assert.Equal(t, "out.tags", cfg.Output.Path)
				assert.Equal(t, config.FallbackSyntax, cfg.Extract.Fallback)
			},
		},
		{
			name: "python selects system mode",
			args: []string{"--python", "/usr/bin/python3.11"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.RuntimeSystem, cfg.Runtime.Mode)
				assert.Equal(t, "/usr/bin/python3.11", cfg.Runtime.Python)
			},
		},
		{
			name:    "unknown fallback",
			args:    []string{"--fallback", "regex"},
			wantErr: config.ErrInvalidFallback,
		},
		{
			name:    "empty output",
			args:    []string{"-o", ""},
			wantErr: config.ErrEmptyOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var f generateFlags
			cmd := &cobra.Command{Use: "generate"}
			addGenerateFlags(cmd, &f)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := config.Default()
			err := applyGenerateFlags(cmd, &f, cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "tagsgen "+Version)
	assert.Equal(t, "tagsgen "+Version+" (CPython 3.12.1)", generatorName("CPython 3.12.1"))
	assert.Equal(t, "tagsgen "+Version, generatorName(""))
}
