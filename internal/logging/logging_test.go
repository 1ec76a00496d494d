package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for logging:
// - Quiet keeps warnings, verbose adds debug, default is info
// - Non-terminal writers get plain text without color codes
// - WithRun tags every line with a short run id derived from a UUID

func TestOptions_Level(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelInfo, Options{}.Level())
	assert.Equal(t, slog.LevelDebug, Options{Verbose: true}.Level())
	assert.Equal(t, slog.LevelWarn, Options{Quiet: true}.Level())
	assert.Equal(t, slog.LevelWarn, Options{Quiet: true, Verbose: true}.Level())
}

func TestNew_PlainOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Options{})

	logger.Debug("hidden")
	logger.Info("unit loaded", "unit", "json")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "unit loaded")
	assert.Contains(t, out, "unit=json")
	assert.NotContains(t, out, "\x1b[")
}

func TestWithRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, id := WithRun(New(&buf, Options{}))

	_, err := uuid.Parse(id)
	require.NoError(t, err)

	logger.Info("started")
	assert.Contains(t, buf.String(), "run="+id[:8])
}
