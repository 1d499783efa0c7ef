package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"error":   LogLevelError,
		"WARN":    LogLevelWarn,
		"warning": LogLevelWarn,
		"info":    LogLevelInfo,
		"Debug":   LogLevelDebug,
	} {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}

func TestParseLogFormat(t *testing.T) {
	for in, want := range map[string]LogFormat{
		"":     LogFormatAuto,
		"auto": LogFormatAuto,
		"TEXT": LogFormatText,
		"json": LogFormatJSON,
	} {
		got, err := parseLogFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLogFormat("logfmt")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false, LogLevelInfo, LogFormatJSON)

	logger.Debug("hidden")
	logger.Info("volume set", "to_percent", 84.37)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "volume set", rec["msg"])
	assert.Equal(t, 84.37, rec["to_percent"])
}

func TestNewLogger_AutoWithoutTerminalIsPlainText(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false, LogLevelDebug, LogFormatAuto)
	logger.Debug("session state", "to", StateAwaitingConnection)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "to=awaiting_connection")
}

func TestNewLogger_AutoOnTerminalUsesTint(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, true, LogLevelWarn, LogFormatAuto)
	logger.Info("hidden")
	logger.Warn("could not show notification")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "could not show notification")
	assert.NotContains(t, out, "level=")
}
