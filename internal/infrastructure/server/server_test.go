//go:build !windows

package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/logging"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := NewServer(cfg, WithLogger(logging.NewNop()), WithPrometheus(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Terminal.Cols = 0

	_, err := NewServer(cfg, WithLogger(logging.NewNop()), WithPrometheus(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestRoutesAreMounted(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/", http.StatusOK},
		{"GET", "/health", http.StatusOK},
		{"GET", "/sessions", http.StatusOK},
		{"GET", "/sessions/sess_missing", http.StatusNotFound},
		{"GET", "/services", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}
}

func TestTerminalConfigUsesEnvironmentDefaults(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Terminal.Cols = 100
		cfg.Terminal.Rows = 30
		cfg.Terminal.MaxSessions = 1
	})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/sessions", strings.NewReader(`{"shell":"cat"}`)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, float64(100), info["cols"])
	assert.Equal(t, float64(30), info["rows"])

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/sessions", strings.NewReader(`{"shell":"cat"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code, "session limit")
}

func TestServeAndShutdownDeliversExitEvents(t *testing.T) {
	srv := newTestServer(t, nil)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(l) }()

	wsURL := "ws://" + l.Addr().String() + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The connected frame is sent once the client is registered with the hub.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, hello, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(hello), `"connected"`)

	info, err := srv.Sessions().Create(context.Background(), terminal.CreateOptions{Shell: "cat"})
	require.NoError(t, err)

	go func() { _ = srv.Shutdown(context.Background()) }()

	// The exit event for the live session arrives before the hub closes.
	sawExit := false
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame["type"] == "pty-exit" && frame["id"] == info.ID {
			sawExit = true
		}
	}
	assert.True(t, sawExit)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}


func TestServicesAreRegisteredAndTraced(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/services/execute", strings.NewReader(`{"tool_id":"system.info"}`))
	req.Header.Set("X-Trace-ID", "trc_caller")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "trc_caller", w.Header().Get("X-Trace-ID"))

	var result struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, float64(0), result.Data["active_sessions"])

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/services", nil))
	var listed struct {
		Services []map[string]interface{} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Services, 2)
}

func TestLogLevelEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("PUT", "/log/level", strings.NewReader(`{"level":"debug"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/log/level", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"debug"}`, w.Body.String())
}

func TestSessionExitIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	srv, err := NewServer(cfg,
		WithLogger(&logging.Logger{Logger: zap.New(core)}),
		WithPrometheus(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	info, err := srv.Sessions().Create(context.Background(), terminal.CreateOptions{Shell: "/bin/sh", Args: []string{"-c", "exit 4"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, entry := range logs.FilterMessage("Session ended").All() {
			fields := entry.ContextMap()
			if fields["session_id"] == info.ID {
				return fields["reason"] == "exited" && fields["exit_code"] == int64(4)
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}
