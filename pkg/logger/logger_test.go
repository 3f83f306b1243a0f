package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelLog, ParseLevel("LOG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelSuccess, ParseLevel("success"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestStatusJSONLevels(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatus(NewWithWriter(&buf, "log", "json"), "Craigslist")

	status.Log("Resolved 3 requests")
	status.Success("Scraping complete")
	status.Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	expected := []string{"LOG", "SUCCESS", "ERROR"}
	for i, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, expected[i], entry["level"])
		assert.Equal(t, "Craigslist", entry["source"])
	}
}

func TestStatusRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatus(NewWithWriter(&buf, "info", "text"), "Craigslist")

	status.Log("hidden")
	status.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "source=Craigslist")
}

func TestColorFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "color")
	l.Info("listing parsed", "url", "https://example.org")
	assert.Contains(t, buf.String(), "listing parsed")
}
