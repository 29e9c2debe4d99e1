package logging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{input: "", want: zapcore.InfoLevel},
		{input: "debug", want: zapcore.DebugLevel},
		{input: "info", want: zapcore.InfoLevel},
		{input: "warn", want: zapcore.WarnLevel},
		{input: "error", want: zapcore.ErrorLevel},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	logger, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptyd.log")

	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.With(zap.String("session_id", "sess_01")).Info("Session created", zap.Int("pid", 42))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ptyd", entry["logger"])
	assert.Equal(t, "Session created", entry["message"])
	assert.Equal(t, "sess_01", entry["session_id"])
	assert.Equal(t, float64(42), entry["pid"])
}

func TestLevelHandler(t *testing.T) {
	logger, err := New(Config{Level: "warn", OutputPaths: []string{filepath.Join(t.TempDir(), "out.log")}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	w := httptest.NewRecorder()
	logger.LevelHandler().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"warn"}`, w.Body.String())

	w = httptest.NewRecorder()
	logger.LevelHandler().ServeHTTP(w, httptest.NewRequest("PUT", "/", strings.NewReader(`{"level":"debug"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	w = httptest.NewRecorder()
	logger.LevelHandler().ServeHTTP(w, httptest.NewRequest("PUT", "/", strings.NewReader(`{"level":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Info("dropped")
		logger.Named("terminal").Error("dropped")
	})
}
