package terminal

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/shared/id"
)

// FallbackShell is used when neither the caller, the configuration nor
// $SHELL names one.
const FallbackShell = "/bin/sh"

// Config tunes a Registry. Zero fields take the DefaultConfig values.
type Config struct {
	DefaultShell    string // overrides $SHELL
	Term            string // TERM exported to children
	DefaultCols     uint16
	DefaultRows     uint16
	ReadBufferSize  int // bytes per PTY read
	EventBufferSize int // events queued between Reader Loops and the sink
	MaxSessions     int // 0 means unlimited
}

// DefaultConfig returns the configuration used for omitted fields.
func DefaultConfig() Config {
	return Config{
		Term:            "xterm-256color",
		DefaultCols:     DefaultCols,
		DefaultRows:     DefaultRows,
		ReadBufferSize:  4096,
		EventBufferSize: 1024,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Term == "" {
		c.Term = def.Term
	}
	if c.DefaultCols == 0 {
		c.DefaultCols = def.DefaultCols
	}
	if c.DefaultRows == 0 {
		c.DefaultRows = def.DefaultRows
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = def.EventBufferSize
	}
	return c
}

// Registry is the directory of live sessions. One mutex serializes every
// lookup and mutation of the map; it is never held across PTY I/O.
type Registry struct {
	cfg     Config
	ids     *id.Generator
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	sessions map[string]*Session // Protected by mu
	pending  int                 // spawns in flight, protected by mu
	closed   bool                // Protected by mu

	events       chan Event
	readers      sync.WaitGroup
	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// NewRegistry creates a registry whose events are delivered to sink. A nil
// sink discards events.
func NewRegistry(cfg Config, sink Sink) *Registry {
	if sink == nil {
		sink = discardSink{}
	}
	cfg = cfg.withDefaults()

	r := &Registry{
		cfg:          cfg,
		ids:          id.Default(),
		logger:       zap.NewNop(),
		sessions:     make(map[string]*Session),
		events:       make(chan Event, cfg.EventBufferSize),
		dispatchDone: make(chan struct{}),
	}

	go dispatch(r.events, sink, r.dispatchDone)

	return r
}

// WithLogger sets the logger. Call before the first Create.
func (r *Registry) WithLogger(logger *zap.Logger) *Registry {
	if logger != nil {
		r.logger = logger.Named("terminal")
	}
	return r
}

// WithMetrics adds metrics tracking to the registry. Call before the first
// Create.
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Create spawns a shell on a new PTY and registers it. The session is
// addressable before its Reader Loop starts and before Create returns, so the
// returned id is immediately valid for Write, Resize and Kill.
func (r *Registry) Create(ctx context.Context, opts CreateOptions) (*SessionInfo, error) {
	timer := monitoring.NewTimer(r.metrics, "create")

	info, err := r.create(ctx, opts)
	if err != nil {
		timer.Stop("error")
		if r.metrics != nil {
			r.metrics.IncSpawnFailures()
		}
		r.logger.Warn("Failed to create session", zap.Error(err))
		return nil, err
	}

	timer.Stop("ok")
	return info, nil
}

func (r *Registry) create(ctx context.Context, opts CreateOptions) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindSpawnFailure, "create", "", err)
	}

	geometry := Geometry{Cols: opts.Cols, Rows: opts.Rows}
	if geometry.Cols == 0 {
		geometry.Cols = r.cfg.DefaultCols
	}
	if geometry.Rows == 0 {
		geometry.Rows = r.cfg.DefaultRows
	}
	if err := ValidateGeometry(geometry.Cols, geometry.Rows); err != nil {
		return nil, newError(KindInvalidGeometry, "create", "", err)
	}

	if opts.WorkingDir != "" {
		fi, err := os.Stat(opts.WorkingDir)
		if err != nil {
			return nil, newError(KindSpawnFailure, "create", "", fmt.Errorf("working directory: %w", err))
		}
		if !fi.IsDir() {
			return nil, newError(KindSpawnFailure, "create", "", fmt.Errorf("working directory %s is not a directory", opts.WorkingDir))
		}
	}

	if err := r.reserve(); err != nil {
		return nil, err
	}

	sessionID := r.ids.GenerateWithPrefix(id.SessionPrefix)
	sess, err := startSession(sessionID, spawnSpec{
		shell:      r.resolveShell(opts.Shell),
		args:       opts.Args,
		workingDir: opts.WorkingDir,
		env:        buildEnv(r.cfg.Term, opts.Env),
		geometry:   geometry,
	})
	if err != nil {
		r.unreserve()
		return nil, newError(KindSpawnFailure, "create", "", err)
	}

	r.mu.Lock()
	r.pending--
	if r.closed {
		r.mu.Unlock()
		_ = sess.kill()
		sess.teardown()
		return nil, newError(KindSpawnFailure, "create", "", fmt.Errorf("registry closed"))
	}
	r.sessions[sessionID] = sess
	r.readers.Add(1)
	active := len(r.sessions)
	r.mu.Unlock()

	go r.readLoop(sess)

	info := sess.Info()
	if r.metrics != nil {
		r.metrics.IncSessionsCreated()
		r.metrics.SetSessionsActive(active)
	}
	r.logger.Info("Session created",
		zap.String("session_id", sessionID),
		zap.String("shell", info.Shell),
		zap.String("working_dir", info.WorkingDir),
		zap.Int("pid", info.PID),
		zap.Uint16("cols", geometry.Cols),
		zap.Uint16("rows", geometry.Rows),
	)

	return &info, nil
}

// reserve claims a slot for a spawn in flight, enforcing MaxSessions.
func (r *Registry) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return newError(KindSpawnFailure, "create", "", fmt.Errorf("registry closed"))
	}
	if r.cfg.MaxSessions > 0 && len(r.sessions)+r.pending >= r.cfg.MaxSessions {
		return newError(KindSpawnFailure, "create", "", fmt.Errorf("session limit %d reached", r.cfg.MaxSessions))
	}
	r.pending++
	return nil
}

func (r *Registry) unreserve() {
	r.mu.Lock()
	r.pending--
	r.mu.Unlock()
}

// resolveShell picks the explicit shell, else the configured default, else
// $SHELL, else FallbackShell.
func (r *Registry) resolveShell(shell string) string {
	if shell != "" {
		return shell
	}
	if r.cfg.DefaultShell != "" {
		return r.cfg.DefaultShell
	}
	if env := os.Getenv("SHELL"); env != "" {
		return env
	}
	return FallbackShell
}

// Write sends data to the session's PTY and flushes it. The Registry lock
// is released before the write, so a child that stops reading its input
// blocks only writers of that session.
func (r *Registry) Write(sessionID string, data []byte) error {
	timer := monitoring.NewTimer(r.metrics, "write")

	sess, ok := r.lookup(sessionID)
	if !ok {
		timer.Stop(string(KindNotFound))
		return newError(KindNotFound, "write", sessionID, nil)
	}

	if err := sess.write(data); err != nil {
		timer.Stop(string(KindOf(err)))
		r.logger.Warn("Failed to write to session", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	timer.Stop("ok")
	if r.metrics != nil {
		r.metrics.AddBytesIn(len(data))
	}
	return nil
}

// Resize changes the session's terminal size.
func (r *Registry) Resize(sessionID string, cols, rows uint16) error {
	timer := monitoring.NewTimer(r.metrics, "resize")

	sess, ok := r.lookup(sessionID)
	if !ok {
		timer.Stop(string(KindNotFound))
		return newError(KindNotFound, "resize", sessionID, nil)
	}

	if err := sess.resize(Geometry{Cols: cols, Rows: rows}); err != nil {
		timer.Stop(string(KindOf(err)))
		r.logger.Warn("Failed to resize session",
			zap.String("session_id", sessionID),
			zap.Uint16("cols", cols),
			zap.Uint16("rows", rows),
			zap.Error(err),
		)
		return err
	}

	timer.Stop("ok")
	return nil
}

// Kill removes the session and terminates its process. A second Kill on the
// same id reports NotFound.
func (r *Registry) Kill(sessionID string) error {
	timer := monitoring.NewTimer(r.metrics, "kill")

	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		timer.Stop(string(KindNotFound))
		return newError(KindNotFound, "kill", sessionID, nil)
	}
	delete(r.sessions, sessionID)
	err := sess.kill()
	active := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetSessionsActive(active)
	}
	if err != nil {
		// The session is gone either way; report the signal failure only.
		r.logger.Warn("Failed to signal session", zap.String("session_id", sessionID), zap.Error(err))
	}

	timer.Stop("ok")
	r.logger.Info("Session killed", zap.String("session_id", sessionID))
	return nil
}

func (r *Registry) lookup(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// Get returns a snapshot of one session.
func (r *Registry) Get(sessionID string) (*SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, newError(KindNotFound, "get", sessionID, nil)
	}
	info := sess.Info()
	return &info, nil
}

// List returns snapshots of all live sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, sess.Info())
	}
	r.mu.Unlock()

	// ULIDs sort by creation time
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close kills every session, waits for their Reader Loops to deliver their
// exit events and stops the dispatcher. Create fails afterwards.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		for sessionID, sess := range r.sessions {
			delete(r.sessions, sessionID)
			if err := sess.kill(); err != nil {
				r.logger.Warn("Failed to signal session", zap.String("session_id", sessionID), zap.Error(err))
			}
		}
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.SetSessionsActive(0)
		}

		r.readers.Wait()
		close(r.events)
		<-r.dispatchDone
	})
}
