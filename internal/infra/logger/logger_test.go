package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "INFO", want: zerolog.InfoLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.InfoLevel, false)

	logger.Info().Msg("track changed: uri=a")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "track changed: uri=a", entry[zerolog.MessageFieldName])
	assert.NotContains(t, entry, zerolog.CallerFieldName)
}

func TestNew_ConsoleDebugHasCaller(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	logger := New(&buf, zerolog.DebugLevel, true)

	logger.Debug().Msg("cache hit")

	assert.Contains(t, buf.String(), "cache hit")
	assert.Contains(t, buf.String(), "logger_test.go")
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nowtify.log")
	closeFn, err := Init(Config{Output: path, Level: "info"})
	require.NoError(t, err)
	defer closeFn()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestInit_BadFile(t *testing.T) {
	_, err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
