package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}})

	l := WithReservation("journal", "R1")
	l.Info().Msg("appended")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "journal", line["component"])
	assert.Equal(t, "R1", line["reservation_code"])
	assert.Equal(t, "appended", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}})

	l := WithComponent("cache")
	l.Debug().Msg("fetch started")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cache", line["component"])
	assert.NotContains(t, line, "reservation_code")
	assert.Equal(t, "debug", line["level"])
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}})

	Logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	Logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}})

	Logger.Info().Str("order_id", "10").Msg("confirmed")
	assert.Contains(t, buf.String(), "confirmed")
	assert.Contains(t, buf.String(), "order_id=")
}
