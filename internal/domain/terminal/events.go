package terminal

import "go.uber.org/zap"

// Sink receives events from every session of a Registry. Emit is called from
// a single dispatcher goroutine, in the order each session produced them.
type Sink interface {
	Emit(Event)
}

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

// Emit forwards ev to every sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// LogSink writes exit events at info level and output sizes at debug level.
type LogSink struct {
	Logger *zap.Logger
}

// Emit logs ev.
func (l LogSink) Emit(ev Event) {
	switch ev.Type {
	case EventOutput:
		l.Logger.Debug("Session output",
			zap.String("session_id", ev.ID),
			zap.Int("bytes", len(ev.Data)),
		)
	case EventExit:
		fields := []zap.Field{
			zap.String("session_id", ev.ID),
			zap.String("reason", string(ev.Reason)),
			zap.Int("exit_code", ev.ExitCode),
		}
		if ev.Error != "" {
			fields = append(fields, zap.String("error", ev.Error))
		}
		l.Logger.Info("Session ended", fields...)
	}
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

// dispatch drains the event channel into the sink until the channel closes.
func dispatch(events <-chan Event, sink Sink, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		sink.Emit(ev)
	}
}
