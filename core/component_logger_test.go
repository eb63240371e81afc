package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level, format string) (*ProductionLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewProductionLoggerWithWriter(LoggingConfig{Level: level, Format: format}, "test-service", &buf)
	return logger.(*ProductionLogger), &buf
}

// TestProductionLoggerImplementsComponentAwareLogger verifies that ProductionLogger
// implements the ComponentAwareLogger interface
func TestProductionLoggerImplementsComponentAwareLogger(t *testing.T) {
	logger := NewProductionLogger(LoggingConfig{Level: "info", Format: "json", Output: "stderr"}, "test-service")

	_, ok := logger.(ComponentAwareLogger)
	assert.True(t, ok, "ProductionLogger should implement ComponentAwareLogger interface")
}

// TestWithComponentPreservesConfiguration verifies that WithComponent keeps
// level, format and service name
func TestWithComponentPreservesConfiguration(t *testing.T) {
	parent, _ := newBufferedLogger("debug", "json")

	child, ok := parent.WithComponent("agent/MyAgent").(*ProductionLogger)
	require.True(t, ok)

	assert.NotSame(t, parent, child)
	assert.Equal(t, parent.level, child.level)
	assert.Equal(t, parent.serviceName, child.serviceName)
	assert.Equal(t, parent.format, child.format)
	assert.Equal(t, defaultComponent, parent.component)
	assert.Equal(t, "agent/MyAgent", child.component)
}

// TestLogOutputIncludesComponent verifies the JSON shape of a log line
func TestLogOutputIncludesComponent(t *testing.T) {
	logger, buf := newBufferedLogger("info", "json")

	logger.WithComponent("agent/MyAgent").Info("test message", map[string]interface{}{
		"key":   "value",
		"error": errors.New("boom"),
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output should be valid JSON")

	assert.Equal(t, "agent/MyAgent", entry["component"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "timestamp")
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
		{"bogus", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, buf := newBufferedLogger(tt.level, "json")

			logger.Debug("d", nil)
			logger.Info("i", nil)
			logger.Warn("w", nil)
			logger.Error("e", nil)

			var levels []string
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if line == "" {
					continue
				}
				var entry map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(line), &entry))
				levels = append(levels, entry["level"].(string))
			}
			assert.Equal(t, tt.expected, levels)
		})
	}
}

// TestTextFormat verifies that text format logs are human readable
func TestTextFormat(t *testing.T) {
	logger, buf := newBufferedLogger("info", "text")

	logger.WithComponent("agent/MyAgent").Info("test message", map[string]interface{}{"key": "value"})

	output := buf.String()
	assert.Contains(t, output, "test-service")
	assert.Contains(t, output, "agent/MyAgent", "text output should carry the component")
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "test message")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(output))), "text output should not be JSON")
}

func TestCreateComponentLogger(t *testing.T) {
	t.Run("with component-aware logger", func(t *testing.T) {
		base, _ := newBufferedLogger("info", "json")

		result := createComponentLogger(base, "agent/test-agent")

		pl, ok := result.(*ProductionLogger)
		require.True(t, ok)
		assert.Equal(t, "agent/test-agent", pl.component)
	})

	t.Run("with non-component-aware logger", func(t *testing.T) {
		base := &NoOpLogger{}

		result := createComponentLogger(base, "agent/test-agent")
		assert.Same(t, base, result)
	})
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")

	logger := NewProductionLogger(LoggingConfig{Level: "info", Format: "json", Output: path}, "test-service")
	pl, ok := logger.(*ProductionLogger)
	require.True(t, ok)
	require.NotNil(t, pl.file, "logger should keep the opened file")

	pl.WithComponent("agent/MyAgent").Info("written to file", nil)
	require.NoError(t, pl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"written to file"`)
	assert.Contains(t, string(data), `"component":"agent/MyAgent"`)

	assert.Error(t, pl.file.Close(), "file should already be closed")
}

func TestCloseWithoutFile(t *testing.T) {
	logger, _ := newBufferedLogger("info", "json")
	assert.NoError(t, logger.Close())

	var closer io.Closer = logger
	assert.NoError(t, closer.Close())
}

func TestOpenLogOutput(t *testing.T) {
	t.Run("standard streams", func(t *testing.T) {
		w, f, err := openLogOutput("")
		require.NoError(t, err)
		assert.Nil(t, f)
		assert.Same(t, os.Stderr, w)

		w, f, err = openLogOutput("stdout")
		require.NoError(t, err)
		assert.Nil(t, f)
		assert.Same(t, os.Stdout, w)
	})

	t.Run("unopenable path falls back to stderr", func(t *testing.T) {
		w, f, err := openLogOutput(filepath.Join(t.TempDir(), "missing", "agent.log"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Nil(t, f)
		assert.Same(t, os.Stderr, w)
	})
}
