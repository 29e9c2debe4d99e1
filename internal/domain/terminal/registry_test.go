//go:build !windows

package terminal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
)

const eventually = 5 * time.Second

// recorder collects every event the registry emits.
type recorder struct {
	mu     sync.Mutex
	output map[string]*strings.Builder
	exits  map[string][]Event
}

func newRecorder() *recorder {
	return &recorder{
		output: make(map[string]*strings.Builder),
		exits:  make(map[string][]Event),
	}
}

func (r *recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case EventOutput:
		sb, ok := r.output[ev.ID]
		if !ok {
			sb = &strings.Builder{}
			r.output[ev.ID] = sb
		}
		sb.WriteString(ev.Data)
	case EventExit:
		r.exits[ev.ID] = append(r.exits[ev.ID], ev)
	}
}

func (r *recorder) outputOf(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sb, ok := r.output[id]; ok {
		return sb.String()
	}
	return ""
}

func (r *recorder) exitsOf(id string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.exits[id]...)
}

func newTestRegistry(t *testing.T, cfg Config) (*Registry, *recorder) {
	t.Helper()

	rec := newRecorder()
	reg := NewRegistry(cfg, rec)
	t.Cleanup(reg.Close)
	return reg, rec
}

func createShell(t *testing.T, reg *Registry, args ...string) *SessionInfo {
	t.Helper()

	info, err := reg.Create(context.Background(), CreateOptions{Shell: "/bin/sh", Args: args})
	require.NoError(t, err)
	return info
}

func TestCreateReturnsDistinctIDs(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})

	const n = 16
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
			if assert.NoError(t, err) {
				ids <- info.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for sessionID := range ids {
		assert.False(t, seen[sessionID], "duplicate id %s", sessionID)
		seen[sessionID] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, reg.Count())
}

func TestCreateAppliesDefaults(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})

	info, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(info.ID, "sess_"))
	assert.Equal(t, DefaultCols, info.Cols)
	assert.Equal(t, DefaultRows, info.Rows)
	assert.Equal(t, "running", info.State)
	assert.NotZero(t, info.PID)
}

func TestCreateSpawnFailure(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})

	tests := []struct {
		name string
		opts CreateOptions
		kind Kind
	}{
		{
			name: "missing shell",
			opts: CreateOptions{Shell: "/nonexistent/shell"},
			kind: KindSpawnFailure,
		},
		{
			name: "missing working directory",
			opts: CreateOptions{Shell: "cat", WorkingDir: "/nonexistent/dir"},
			kind: KindSpawnFailure,
		},
		{
			name: "working directory is a file",
			opts: CreateOptions{Shell: "cat", WorkingDir: "/etc/hosts"},
			kind: KindSpawnFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := reg.Create(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, info)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.True(t, errors.Is(err, ErrSpawnFailure))
			assert.Equal(t, 0, reg.Count(), "failed create must not leave a session behind")
		})
	}
}

func TestCreateCanceledContext(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Create(ctx, CreateOptions{Shell: "cat"})
	assert.ErrorIs(t, err, ErrSpawnFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateWorkingDirectory(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})
	dir := t.TempDir()

	info, err := reg.Create(context.Background(), CreateOptions{
		Shell:      "/bin/sh",
		Args:       []string{"-c", "pwd; printf 'var=%s\\n' \"$PTYD_TEST\""},
		WorkingDir: dir,
		Env:        map[string]string{"PTYD_TEST": "forty-two"},
	})
	require.NoError(t, err)
	assert.Equal(t, dir, info.WorkingDir)

	require.Eventually(t, func() bool {
		return len(rec.exitsOf(info.ID)) == 1
	}, eventually, 10*time.Millisecond)

	out := rec.outputOf(info.ID)
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "var=forty-two")
}

func TestMaxSessions(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{MaxSessions: 2})

	for i := 0; i < 2; i++ {
		_, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
		require.NoError(t, err)
	}

	_, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
	assert.ErrorIs(t, err, ErrSpawnFailure)
	assert.Equal(t, 2, reg.Count())
}

func TestCreateAfterClose(t *testing.T) {
	reg := NewRegistry(Config{}, nil)
	reg.Close()

	_, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
	assert.ErrorIs(t, err, ErrSpawnFailure)

	// Close is idempotent
	reg.Close()
}

func TestUnknownIDIsNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})

	assert.ErrorIs(t, reg.Write("sess_missing", []byte("x")), ErrNotFound)
	assert.ErrorIs(t, reg.Resize("sess_missing", 80, 24), ErrNotFound)
	assert.ErrorIs(t, reg.Kill("sess_missing"), ErrNotFound)

	_, err := reg.Get("sess_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteEchoRoundTrip(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})

	info, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
	require.NoError(t, err)

	require.NoError(t, reg.Write(info.ID, []byte("hello-pty\n")))
	require.NoError(t, reg.Write(info.ID, []byte("naïve ☃\n")))

	require.Eventually(t, func() bool {
		out := rec.outputOf(info.ID)
		return strings.Contains(out, "hello-pty") && strings.Contains(out, "naïve ☃")
	}, eventually, 10*time.Millisecond)

	assert.NotContains(t, rec.outputOf(info.ID), "�")
}

func TestKillThenEverythingIsNotFound(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})
	info := createShell(t, reg)

	require.NoError(t, reg.Kill(info.ID))

	assert.ErrorIs(t, reg.Write(info.ID, []byte("ls\n")), ErrNotFound)
	assert.ErrorIs(t, reg.Resize(info.ID, 100, 40), ErrNotFound)
	assert.ErrorIs(t, reg.Kill(info.ID), ErrNotFound)
	assert.Equal(t, 0, reg.Count())

	require.Eventually(t, func() bool {
		return len(rec.exitsOf(info.ID)) == 1
	}, eventually, 10*time.Millisecond)

	ev := rec.exitsOf(info.ID)[0]
	assert.Equal(t, EventExit, ev.Type)
	assert.Equal(t, ExitReasonKilled, ev.Reason)
	assert.Equal(t, -1, ev.ExitCode)
}

func TestKillTerminatesProcessGroup(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})
	info := createShell(t, reg, "-c", "sleep 300 & echo started; wait")

	require.Eventually(t, func() bool {
		return strings.Contains(rec.outputOf(info.ID), "started")
	}, eventually, 10*time.Millisecond)

	require.NoError(t, reg.Kill(info.ID))

	// The background sleep holds the slave side open, so the stream only ends
	// once the whole group is gone.
	require.Eventually(t, func() bool {
		return len(rec.exitsOf(info.ID)) == 1
	}, eventually, 10*time.Millisecond)
	assert.Equal(t, ExitReasonKilled, rec.exitsOf(info.ID)[0].Reason)
}

func TestNaturalExitRemovesSession(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})
	info := createShell(t, reg, "-c", "printf done; exit 3")

	require.Eventually(t, func() bool {
		return len(rec.exitsOf(info.ID)) == 1
	}, eventually, 10*time.Millisecond)

	ev := rec.exitsOf(info.ID)[0]
	assert.Equal(t, ExitReasonEOF, ev.Reason)
	assert.Equal(t, 3, ev.ExitCode)
	assert.Empty(t, ev.Error)
	assert.Contains(t, rec.outputOf(info.ID), "done")

	assert.Equal(t, 0, reg.Count())
	assert.ErrorIs(t, reg.Write(info.ID, []byte("x")), ErrNotFound)
	assert.ErrorIs(t, reg.Kill(info.ID), ErrNotFound)
}

func TestExitAndKillRaceEmitsOneExit(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})

	const n = 20
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		info := createShell(t, reg, "-c", "exit 0")
		ids = append(ids, info.ID)

		err := reg.Kill(info.ID)
		if err != nil {
			// The shell won the race and was already retired.
			assert.ErrorIs(t, err, ErrNotFound)
		}
	}

	require.Eventually(t, func() bool {
		for _, sessionID := range ids {
			if len(rec.exitsOf(sessionID)) == 0 {
				return false
			}
		}
		return true
	}, eventually, 10*time.Millisecond)

	// Give any duplicate a chance to show up.
	time.Sleep(100 * time.Millisecond)
	for _, sessionID := range ids {
		assert.Len(t, rec.exitsOf(sessionID), 1, "session %s", sessionID)
	}
	assert.Equal(t, 0, reg.Count())
}

func TestResizePropagatesToChild(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})
	info := createShell(t, reg)

	require.NoError(t, reg.Resize(info.ID, 101, 37))

	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, uint16(101), got.Cols)
	assert.Equal(t, uint16(37), got.Rows)

	require.NoError(t, reg.Write(info.ID, []byte("stty size\n")))
	require.Eventually(t, func() bool {
		return strings.Contains(rec.outputOf(info.ID), "37 101")
	}, eventually, 10*time.Millisecond)
}

func TestSessionWindowSize(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})
	info := createShell(t, reg)

	require.NoError(t, reg.Resize(info.ID, 132, 43))

	reg.mu.Lock()
	sess := reg.sessions[info.ID]
	reg.mu.Unlock()
	require.NotNil(t, sess)

	size, err := sess.WindowSize()
	require.NoError(t, err)
	assert.Equal(t, Geometry{Cols: 132, Rows: 43}, size)
}

func TestResizeRejectsZero(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})
	info := createShell(t, reg)

	tests := []struct {
		cols, rows uint16
	}{
		{0, 24},
		{80, 0},
		{0, 0},
	}
	for _, tt := range tests {
		err := reg.Resize(info.ID, tt.cols, tt.rows)
		assert.ErrorIs(t, err, ErrInvalidGeometry, "%dx%d", tt.cols, tt.rows)
	}

	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultCols, got.Cols, "rejected resize must not change geometry")
}

func TestListIsOrderedByCreation(t *testing.T) {
	reg, _ := newTestRegistry(t, Config{})

	var want []string
	for i := 0; i < 3; i++ {
		info, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
		require.NoError(t, err)
		want = append(want, info.ID)
	}

	var got []string
	for _, info := range reg.List() {
		got = append(got, info.ID)
	}
	assert.Equal(t, want, got)
}

func TestCloseEmitsExitForEverySession(t *testing.T) {
	rec := newRecorder()
	reg := NewRegistry(Config{}, rec)

	created := make(map[string]bool)
	for i := 0; i < 3; i++ {
		info, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
		require.NoError(t, err)
		created[info.ID] = true
	}

	reg.Close()

	for sessionID := range created {
		assert.Len(t, rec.exitsOf(sessionID), 1, "session %s", sessionID)
	}
}

func TestRegistryMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	rec := newRecorder()
	reg := NewRegistry(Config{}, rec).WithMetrics(metrics)
	t.Cleanup(reg.Close)

	info, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
	require.NoError(t, err)
	require.NoError(t, reg.Write(info.ID, []byte("abc\n")))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.BytesIn))

	require.NoError(t, reg.Kill(info.ID))
	require.Eventually(t, func() bool {
		return len(rec.exitsOf(info.ID)) == 1
	}, eventually, 10*time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionExits.WithLabelValues(string(ExitReasonKilled))))
}

func TestResolveShell(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		envShell   string
		explicit   string
		want       string
	}{
		{name: "explicit wins", configured: "/bin/zsh", envShell: "/bin/bash", explicit: "/bin/dash", want: "/bin/dash"},
		{name: "configured default", configured: "/bin/zsh", envShell: "/bin/bash", want: "/bin/zsh"},
		{name: "environment", envShell: "/bin/bash", want: "/bin/bash"},
		{name: "fallback", want: FallbackShell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHELL", tt.envShell)
			reg := &Registry{cfg: Config{DefaultShell: tt.configured}}

			assert.Equal(t, tt.want, reg.resolveShell(tt.explicit))
		})
	}
}

// chunkReader returns one prepared chunk per Read, then err.

func TestStalledWriteDoesNotBlockRegistry(t *testing.T) {
	reg, rec := newTestRegistry(t, Config{})

	// In raw mode the line discipline stops discarding overflow, so a large
	// write blocks once the child's input queue is full.
	stuck := createShell(t, reg, "-c", "stty raw -echo; echo ready; exec sleep 30")
	other, err := reg.Create(context.Background(), CreateOptions{Shell: "cat"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(rec.outputOf(stuck.ID), "ready")
	}, eventually, 10*time.Millisecond)

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- reg.Write(stuck.ID, bytes.Repeat([]byte("x"), 1<<20))
	}()

	select {
	case err := <-writeErr:
		t.Fatalf("write to a child that does not read returned early: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, 2, reg.Count())
		assert.Len(t, reg.List(), 2)
		assert.NoError(t, reg.Write(other.ID, []byte("still-alive\n")))
		assert.NoError(t, reg.Resize(stuck.ID, 100, 30))
		assert.NoError(t, reg.Kill(stuck.ID))
	}()

	select {
	case <-done:
	case <-time.After(eventually):
		t.Fatal("registry calls blocked behind a stalled write")
	}

	select {
	case err := <-writeErr:
		assert.Error(t, err)
	case <-time.After(eventually):
		t.Fatal("pending write not released by Kill")
	}

	require.Eventually(t, func() bool {
		return len(rec.exitsOf(stuck.ID)) == 1
	}, eventually, 10*time.Millisecond)
	assert.Equal(t, ExitReasonKilled, rec.exitsOf(stuck.ID)[0].Reason)

	require.Eventually(t, func() bool {
		return strings.Contains(rec.outputOf(other.ID), "still-alive")
	}, eventually, 10*time.Millisecond)
}
