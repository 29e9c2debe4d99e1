package terminal

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
)

// Session is one PTY master, the child process attached to its slave side
// and the single writer feeding the child's input.
type Session struct {
	id         string
	shell      string
	workingDir string
	startedAt  time.Time

	cmd  *exec.Cmd
	ptmx *os.File // read side owned by the Reader Loop

	writeMu sync.Mutex    // serializes writers; may be held across a blocked write
	writer  *bufio.Writer // Protected by writeMu

	mu       sync.Mutex
	geometry Geometry // Protected by mu

	state atomic.Int32

	done     chan struct{} // closed once the child has been reaped
	exitCode int           // valid after done is closed
}

type spawnSpec struct {
	shell      string
	args       []string
	workingDir string
	env        []string
	geometry   Geometry
}

// startSession opens a PTY of the requested size and starts the child on its
// slave side. Nothing is left running when it returns an error.
func startSession(sessionID string, spec spawnSpec) (*Session, error) {
	cmd := exec.Command(spec.shell, spec.args...)
	cmd.Dir = spec.workingDir
	cmd.Env = spec.env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: spec.geometry.Cols,
		Rows: spec.geometry.Rows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	s := &Session{
		id:         sessionID,
		shell:      spec.shell,
		workingDir: spec.workingDir,
		startedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		writer:     bufio.NewWriter(ptmx),
		geometry:   spec.geometry,
		done:       make(chan struct{}),
	}
	s.state.Store(int32(StateRunning))

	go s.wait()

	return s, nil
}

// wait reaps the child and records its exit code.
func (s *Session) wait() {
	_ = s.cmd.Wait()

	// -1 when the child was terminated by a signal
	s.exitCode = -1
	if ps := s.cmd.ProcessState; ps != nil {
		s.exitCode = ps.ExitCode()
	}
	close(s.done)
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Geometry returns the last size accepted by the OS.
func (s *Session) Geometry() Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	g := s.Geometry()
	pid := 0
	if s.cmd.Process != nil {
		pid = s.cmd.Process.Pid
	}
	return SessionInfo{
		ID:         s.id,
		Shell:      s.shell,
		WorkingDir: s.workingDir,
		Cols:       g.Cols,
		Rows:       g.Rows,
		PID:        pid,
		State:      s.State().String(),
		StartedAt:  s.startedAt,
	}
}

// transition moves a running session into a terminal state. Only the first
// caller succeeds.
func (s *Session) transition(to State) bool {
	return s.state.CompareAndSwap(int32(StateRunning), int32(to))
}

// write sends p to the child and flushes it through to the PTY. It blocks
// while the child is not draining its input; killing the child makes the
// pending write fail.
func (s *Session) write(p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State().Terminal() {
		return newError(KindAlreadyTerminated, "write", s.id, nil)
	}
	if _, err := s.writer.Write(p); err != nil {
		return newError(KindIOFailure, "write", s.id, err)
	}
	if err := s.writer.Flush(); err != nil {
		return newError(KindIOFailure, "flush", s.id, err)
	}
	return nil
}

// resize propagates g to the PTY and records it once the OS accepted it.
func (s *Session) resize(g Geometry) error {
	if err := ValidateGeometry(g.Cols, g.Rows); err != nil {
		return newError(KindInvalidGeometry, "resize", s.id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State().Terminal() {
		return newError(KindAlreadyTerminated, "resize", s.id, nil)
	}
	if err := applyGeometry(s.ptmx, g); err != nil {
		return newError(KindIOFailure, "resize", s.id, err)
	}
	s.geometry = g
	return nil
}

// kill marks the session Killed and terminates the child's process group.
// It takes no lock, so it never waits behind a blocked write; the write
// fails once the slave side is gone. The Reader Loop notices the hangup on
// its own.
func (s *Session) kill() error {
	if !s.transition(StateKilled) {
		return newError(KindAlreadyTerminated, "kill", s.id, nil)
	}
	return s.signalKill()
}

// teardown kills the child if it outlived its terminal, closes the master
// and reaps the child. A write still in flight fails on the closed master.
func (s *Session) teardown() {
	_ = s.signalKill()
	_ = s.ptmx.Close()
	<-s.done
}

// signalKill kills the child's process group unless the child was already
// reaped, in which case its pid may belong to someone else.
func (s *Session) signalKill() error {
	select {
	case <-s.done:
		return nil
	default:
		return killProcessGroup(s.cmd)
	}
}

// buildEnv returns the parent environment with TERM and the caller's
// variables applied, in a stable order.
func buildEnv(term string, extra map[string]string) []string {
	env := os.Environ()
	if term != "" {
		env = append(env, "TERM="+term)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}
	return env
}
