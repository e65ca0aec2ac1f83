package pusher

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Info().Msg("dropped")
		assert.Empty(t, buf.String())

		logger.Warn().Object("credential", testCredential).Msg("kept")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "kept", entry["message"])
		assert.Contains(t, entry, "time")
		assert.Equal(t, map[string]any{"key": testKey}, entry["credential"])
		assert.NotContains(t, buf.String(), testSecret)
	})

	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "console"}, &buf)
		require.NoError(t, err)
		logger.Debug().Msg("hello")
		assert.Contains(t, buf.String(), "hello")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger(LoggingConfig{Level: "loud"}, nil)
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := NewLogger(LoggingConfig{Format: "xml"}, nil)
		assert.Error(t, err)
	})
}
