package terminal

import (
	"io"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
)

// readLoop drains the session's PTY until end of stream, then retires the
// session and reports exactly one exit event.
func (r *Registry) readLoop(sess *Session) {
	defer r.readers.Done()

	readErr := pump(sess.id, sess.ptmx, r.cfg.ReadBufferSize, r.events, r.metrics)
	r.finish(sess, readErr)
}

// finish records the terminal state, removes the session if Kill has not
// already done so, reaps the child and emits the exit event.
func (r *Registry) finish(sess *Session, readErr error) {
	target, reason := StateExited, ExitReasonEOF
	if !isEndOfStream(readErr) {
		target, reason = StateErrored, ExitReasonError
	}

	r.mu.Lock()
	if !sess.transition(target) {
		// Kill won the race and already removed the session.
		reason = ExitReasonKilled
	}
	if cur, ok := r.sessions[sess.id]; ok && cur == sess {
		delete(r.sessions, sess.id)
	}
	active := len(r.sessions)
	r.mu.Unlock()

	sess.teardown()

	ev := Event{
		Type:     EventExit,
		ID:       sess.id,
		Reason:   reason,
		ExitCode: sess.exitCode,
	}
	if reason == ExitReasonError {
		ev.Error = readErr.Error()
	}
	r.events <- ev

	if r.metrics != nil {
		r.metrics.SetSessionsActive(active)
		r.metrics.RecordSessionExit(string(reason))
	}
}

// pump reads src in chunks of bufSize, decodes them and sends output events
// for id until the first read error, which it returns.
func pump(sessionID string, src io.Reader, bufSize int, out chan<- Event, metrics *monitoring.Metrics) error {
	dec := NewStreamDecoder()
	buf := make([]byte, bufSize)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if metrics != nil {
				metrics.AddBytesOut(n)
			}
			if text := dec.Decode(buf[:n]); text != "" {
				out <- Event{Type: EventOutput, ID: sessionID, Data: text}
			}
		}
		if err != nil {
			if text := dec.Flush(); text != "" {
				out <- Event{Type: EventOutput, ID: sessionID, Data: text}
			}
			return err
		}
	}
}
