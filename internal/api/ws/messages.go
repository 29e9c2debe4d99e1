package ws

import (
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
)

// Frame types sent by the server.
const (
	TypeOutput    = string(terminal.EventOutput)
	TypeExit      = string(terminal.EventExit)
	TypeResult    = "result"
	TypePong      = "pong"
	TypeError     = "error"
	TypeConnected = "connected"
)

// Message types accepted from clients.
const (
	TypeInvoke      = "invoke"
	TypePing        = "ping"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// ClientMessage is any frame a client may send.
type ClientMessage struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	Tool      string                 `json:"tool,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// OutputFrame carries decoded PTY output.
type OutputFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data string `json:"data"`
}

// ExitFrame reports the end of a session.
type ExitFrame struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Reason   string `json:"reason"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// ResultFrame answers an invoke.
type ResultFrame struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	Success   bool                   `json:"success"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Kind      string                 `json:"kind,omitempty"`
}

// ControlFrame is used for pong, error and connected frames.
type ControlFrame struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// frameFor converts a registry event into its wire frame.
func frameFor(ev terminal.Event) interface{} {
	if ev.Type == terminal.EventExit {
		return ExitFrame{
			Type:     TypeExit,
			ID:       ev.ID,
			Reason:   string(ev.Reason),
			ExitCode: ev.ExitCode,
			Error:    ev.Error,
		}
	}
	return OutputFrame{Type: TypeOutput, ID: ev.ID, Data: ev.Data}
}
