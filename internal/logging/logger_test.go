package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/storyflow/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.LevelInfo, logging.WithWriter(&buf))

	logger.Debug("hidden")
	logger.Info("step failed", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"step failed\"")
	assert.Contains(t, out, "err=boom")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.LevelDebug, logging.WithWriter(&buf), logging.WithJSON())

	logger.Debug("node enter", "node_id", "start", "error", "none")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "node enter", line["msg"])
	assert.Equal(t, "start", line["node_id"])
	assert.Equal(t, "none", line["err"])
	assert.NotContains(t, line, "error")
}

func TestNewNop(t *testing.T) {
	assert.False(t, logging.NewNop().Enabled(t.Context(), slog.LevelError))
}
