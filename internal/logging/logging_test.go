package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("JSON output outside development", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Component(New(Config{Level: "info", Environment: "production", Output: &buf}), "pipeline")

		logger.Info().Str("message_id", "m1").Msg("message replied")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "message replied", entry["message"])
		assert.Equal(t, "pipeline", entry["component"])
		assert.Equal(t, "replydesk", entry["service_name"])
		assert.Equal(t, "production", entry["environment"])
		assert.Equal(t, "m1", entry["message_id"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: "warn", Environment: "production", Output: &buf})

		logger.Info().Msg("hidden")
		assert.Zero(t, buf.Len())

		logger.Warn().Msg("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("console output in development", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Environment: "development", Output: &buf})
		logger.Info().Msg("hello")
		assert.Contains(t, buf.String(), "hello")
		assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}
