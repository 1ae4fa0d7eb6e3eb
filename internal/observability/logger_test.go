package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lcalzada-xor/threatcorr/internal/config"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "threatcorr"}, zapcore.AddSync(&buf))

	logger.Named("correlation").Debug("Correlation below threshold", zap.String("cve_id", "CVE-2024-1234"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "threatcorr.correlation", entry["logger"])
	assert.Equal(t, "CVE-2024-1234", entry["cve_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggerConfig{Level: "warn", Format: "console"}, zapcore.AddSync(&buf))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))

	logger.Debug("debug line")
	logger.Info("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threatcorr.log")
	var console bytes.Buffer
	logger := New(config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&console))

	logger.Info("written to file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, json.Valid([]byte(line)), "file output is JSON: %s", line)
	assert.Contains(t, line, "written to file")
}

func TestInitializeAndGetLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	fallback := GetLogger()
	require.NotNil(t, fallback)

	var buf bytes.Buffer
	first := Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	second := Initialize(config.LoggerConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&buf))

	assert.Same(t, first, second, "initialization happens once")
	assert.Same(t, first, GetLogger())
	assert.NotPanics(t, Sync)
}
