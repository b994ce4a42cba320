package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})

	l.WithFields(map[string]interface{}{"actor_id": "a1"}).
		Error(errors.New("smtp down"), "email delivery failed", "notification_id", "n1")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "a1", line["actor_id"])
	assert.Equal(t, "n1", line["notification_id"])
	assert.Equal(t, "smtp down", line["error"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})

	l.Debug("noisy")
	assert.Empty(t, buf.String())
}
