package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"voice-agent/internal/models"
)

// ==========================
// Output
// ==========================

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	outcome := models.CommandOutcome{
		Success: true,
		Type:    models.IntentNavigate,
		Route:   "/dashboard",
		Message: "Opening dashboard",
	}

	require.NoError(t, writeOutput(&buf, formatJSON, outcome))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "/dashboard", got["route"])
	assert.NotContains(t, got, "missing")
}

func TestWriteOutput_YAMLUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	outcome := models.CommandOutcome{
		Success: false,
		Type:    models.IntentSubmitWorkEntry,
		Missing: []string{"machineId"},
	}

	require.NoError(t, writeOutput(&buf, formatYAML, outcome))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, []interface{}{"machineId"}, got["missing"])
	assert.NotContains(t, buf.String(), "Missing")
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("json"))
	assert.NoError(t, checkFormat("yaml"))
	assert.Error(t, checkFormat("xml"))
}

// ==========================
// Retry
// ==========================

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "test connection")

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	sentinel := errors.New("connection refused")
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		return sentinel
	}, 3, time.Millisecond, zap.NewNop(), "test connection")

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

// ==========================
// Commands
// ==========================

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "command", "search", "listen"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
