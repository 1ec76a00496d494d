// Package logging builds the process logger: slog with a tint handler on
// stderr, tagged with a per-run id.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options controls verbosity. Quiet wins over Verbose.
type Options struct {
	Verbose bool
	Quiet   bool
}

// Level returns the minimum level for opts.
func (o Options) Level() slog.Level {
	switch {
	case o.Quiet:
		return slog.LevelWarn
	case o.Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w. Color is used only when w is a terminal.
func New(w io.Writer, opts Options) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level(),
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}))
}

// WithRun attaches a fresh run id to logger and returns both.
func WithRun(logger *slog.Logger) (*slog.Logger, string) {
	id := uuid.NewString()
	return logger.With("run", id[:8]), id
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
