package terminal

import (
	"errors"
	"fmt"
)

// Kind classifies terminal errors so callers can branch without parsing text.
type Kind string

const (
	KindSpawnFailure      Kind = "spawn_failure"
	KindNotFound          Kind = "not_found"
	KindIOFailure         Kind = "io_failure"
	KindAlreadyTerminated Kind = "already_terminated"
	KindInvalidGeometry   Kind = "invalid_geometry"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrSpawnFailure      = errors.New("terminal: spawn failed")
	ErrNotFound          = errors.New("terminal: session not found")
	ErrIOFailure         = errors.New("terminal: i/o failure")
	ErrAlreadyTerminated = errors.New("terminal: session already terminated")
	ErrInvalidGeometry   = errors.New("terminal: invalid geometry")
)

var sentinels = map[Kind]error{
	KindSpawnFailure:      ErrSpawnFailure,
	KindNotFound:          ErrNotFound,
	KindIOFailure:         ErrIOFailure,
	KindAlreadyTerminated: ErrAlreadyTerminated,
	KindInvalidGeometry:   ErrInvalidGeometry,
}

// Error is returned by every control-path operation.
type Error struct {
	Kind Kind
	Op   string // create, write, resize, kill, get
	ID   string // empty for create failures
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("terminal %s", e.Op)
	if e.ID != "" {
		msg += " " + e.ID
	}
	msg += ": " + string(e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the Kind carried by err, or "" if err is not a terminal error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

func newError(kind Kind, op, id string, cause error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: cause}
}
