package logging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestParseTimeFormat(t *testing.T) {
	assert.Equal(t, time.DateTime, parseTimeFormat("datetime"))
	assert.Equal(t, time.RFC3339, parseTimeFormat("RFC3339"))
	assert.Equal(t, "", parseTimeFormat("unix"))
	assert.Equal(t, "2006/01/02", parseTimeFormat("2006/01/02"))
	assert.Equal(t, time.DateTime, parseTimeFormat("whatever"))
}

func TestParseFields(t *testing.T) {
	fields := parseFields("service=orgsync, env = prod,broken")
	assert.Equal(t, map[string]any{"service": "orgsync", "env": "prod"}, fields)
	assert.Empty(t, parseFields(""))
}

func TestGetWriterDiscard(t *testing.T) {
	w := getWriter(&Config{Output: "discard", Format: "json"})
	assert.Equal(t, io.Discard, w)

	w = getWriter(&Config{Output: "discard", Format: "console"})
	_, ok := w.(zerolog.ConsoleWriter)
	assert.True(t, ok)
}

func TestContextFields(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)
	ctx = WithPhase(ctx, "users")
	ctx = WithTarget(ctx, "db")
	ctx = WithUser(ctx, "u1")

	FromContext(ctx).Info().Msg("hello")

	require.Equal(t, 1, tl.Count())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(tl.Lines()[0]), &entry))
	assert.Equal(t, "users", entry["phase"])
	assert.Equal(t, "db", entry["target"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "hello", entry["message"])
}

func TestWithFieldError(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)
	ctx = WithField(ctx, "error", errors.New("boom"))
	FromContext(ctx).Warn().Msg("failed")
	assert.True(t, tl.Contains(`"error":"boom"`))
}

func TestFromContextDefault(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Same(t, Default(), FromContext(nil))
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := CaptureLoggingForTest(t)
	Warn().Str("dept_id", "od-1").Msg("created")
	assert.True(t, tl.Contains("od-1"))
	assert.Equal(t, 1, tl.Count())
}
