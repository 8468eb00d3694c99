package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", "debug", true, true},
		{"info", "info", false, true},
		{"error", "error", false, false},
		{"invalid_defaults_to_info", "bogus", false, true},
		{"empty_defaults_to_info", "", false, true},
		{"disabled", "disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&buf, tt.level, nil)

			l.Debug().Msg("debug")
			assert.Equal(t, tt.wantDebug, buf.Len() > 0)

			buf.Reset()
			l.Info().Msg("info")
			assert.Equal(t, tt.wantInfo, buf.Len() > 0)
		})
	}
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", nil)

	l.Info().
		Str("layer", "roads").
		Strs("layers", []string{"a", "b"}).
		Bool("available", true).
		Int("segments", 4).
		Int64("weight", 1024).
		Dur("elapsed", time.Second).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "roads", entry["layer"])
	assert.Equal(t, []any{"a", "b"}, entry["layers"])
	assert.Equal(t, true, entry["available"])
	assert.Equal(t, float64(4), entry["segments"])
	assert.Equal(t, float64(1024), entry["weight"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "caller")
}

func TestLogEventMasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", nil)

	l.Info().Str("password", "hunter2").Str("host", "localhost").Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["password"])
	assert.Equal(t, "localhost", entry["host"])
}

func TestWithFieldsMasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", nil).WithFields(map[string]any{
		"component": "redis",
		"secret":    "s3cr3t",
	})

	l.Info().Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "redis", entry["component"])
	assert.Equal(t, DefaultMaskValue, entry["secret"])
}

func TestWithContext(t *testing.T) {
	var base, attached bytes.Buffer
	l := NewWithWriter(&base, "info", nil)

	t.Run("NonContextReturnsSelf", func(t *testing.T) {
		assert.Same(t, l, l.WithContext("not a context"))
	})

	t.Run("ContextWithoutLoggerReturnsSelf", func(t *testing.T) {
		assert.Same(t, l, l.WithContext(context.Background()))
	})

	t.Run("ContextLoggerIsUsed", func(t *testing.T) {
		zl := zerolog.New(&attached)
		ctx := zl.WithContext(context.Background())

		l.WithContext(ctx).Info().Msg(testMessage)
		assert.Contains(t, attached.String(), testMessage)
		assert.Zero(t, base.Len())
	})
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error().Str("k", "v").Msg(testMessage)
	})
}
