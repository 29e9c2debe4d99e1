package terminal

import "time"

// State is the lifecycle state of a Session.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateExited
	StateKilled
	StateErrored
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateExited || s == StateKilled || s == StateErrored
}

// Geometry is a terminal size in character cells.
type Geometry struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// CreateOptions describes a session to spawn. Zero values select defaults.
type CreateOptions struct {
	Shell      string
	Args       []string // passed to the shell, e.g. {"-l"}
	WorkingDir string
	Cols       uint16
	Rows       uint16
	Env        map[string]string
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Cols       uint16    `json:"cols"`
	Rows       uint16    `json:"rows"`
	PID        int       `json:"pid"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
}

// EventType distinguishes the kind of event produced by a Reader Loop.
type EventType string

const (
	EventOutput EventType = "pty-output"
	EventExit   EventType = "pty-exit"
)

// ExitReason says why a session's stream ended.
type ExitReason string

const (
	ExitReasonEOF    ExitReason = "exited"
	ExitReasonKilled ExitReason = "killed"
	ExitReasonError  ExitReason = "error"
)

// Event is a single notification pushed to the Sink.
// Data is set on output events; Reason, ExitCode and Error on exit events.
type Event struct {
	Type     EventType  `json:"type"`
	ID       string     `json:"id"`
	Data     string     `json:"data,omitempty"`
	Reason   ExitReason `json:"reason,omitempty"`
	ExitCode int        `json:"exit_code"`
	Error    string     `json:"error,omitempty"`
}
