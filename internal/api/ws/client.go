package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	termprovider "github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/service"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Invoker executes a tool on behalf of a client.
type Invoker interface {
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// Client is one websocket connection.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	invoker Invoker
	logger  *zap.Logger

	subMu         sync.RWMutex
	subscribeAll  bool
	subscriptions map[string]struct{}
}

func newClient(conn *websocket.Conn, hub *Hub, invoker Invoker, sendBuffer int) *Client {
	id := uuid.NewString()
	return &Client{
		id:            id,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		hub:           hub,
		invoker:       invoker,
		logger:        hub.logger.With(zap.String("client_id", id)),
		subscribeAll:  true,
		subscriptions: make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// readPump handles client frames until the connection fails. Invocations run
// in arrival order so input to a session is never reordered.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}
		c.recordIn(msg.Type)

		switch msg.Type {
		case TypeInvoke:
			c.handleInvoke(ctx, msg)
		case TypePing:
			c.hub.sendTo(c, ControlFrame{Type: TypePong}, TypePong)
		case TypeSubscribe:
			c.subscribe(msg.SessionID)
		case TypeUnsubscribe:
			c.unsubscribe(msg.SessionID)
		default:
			c.sendError("unknown message type: " + msg.Type)
		}
	}
}

func (c *Client) handleInvoke(ctx context.Context, msg ClientMessage) {
	if msg.Tool == "" {
		c.reply(ResultFrame{Type: TypeResult, RequestID: msg.RequestID, Error: "tool is required", Kind: "invalid_argument"})
		return
	}

	result, err := c.invoker.Execute(ctx, msg.Tool, msg.Params, &types.Context{
		ClientID:  c.id,
		RequestID: msg.RequestID,
	})
	if err != nil {
		c.reply(ResultFrame{
			Type:      TypeResult,
			RequestID: msg.RequestID,
			Error:     err.Error(),
			Kind:      errorKind(err),
		})
		return
	}

	frame := ResultFrame{
		Type:      TypeResult,
		RequestID: msg.RequestID,
		Success:   result.Success,
		Data:      result.Data,
	}
	if result.Error != nil {
		frame.Error = *result.Error
	}
	c.reply(frame)
}

func (c *Client) reply(frame ResultFrame) {
	if !c.hub.sendTo(c, frame, TypeResult) {
		c.logger.Debug("Dropped result for departed client", zap.String("request_id", frame.RequestID))
	}
}

func (c *Client) sendError(msg string) {
	c.hub.sendTo(c, ControlFrame{Type: TypeError, Message: msg}, TypeError)
}

// writePump drains the send queue and keeps the connection alive. It exits
// when the hub closes the queue or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribe narrows delivery to the given session; an empty id restores
// delivery of every session.
func (c *Client) subscribe(sessionID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if sessionID == "" {
		c.subscribeAll = true
		c.subscriptions = make(map[string]struct{})
		return
	}
	c.subscribeAll = false
	c.subscriptions[sessionID] = struct{}{}
}

// unsubscribe drops one session from the subscription set. Dropping the
// last one restores delivery of every session; while every session is
// delivered it has no effect.
func (c *Client) unsubscribe(sessionID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subscribeAll {
		return
	}
	delete(c.subscriptions, sessionID)
	if len(c.subscriptions) == 0 {
		c.subscribeAll = true
	}
}

func (c *Client) wantsSession(sessionID string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if c.subscribeAll {
		return true
	}
	_, ok := c.subscriptions[sessionID]
	return ok
}

func (c *Client) recordIn(msgType string) {
	if c.hub.metrics != nil {
		c.hub.metrics.RecordWSMessage("in", msgType)
	}
}

func errorKind(err error) string {
	if kind := terminal.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, termprovider.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, service.ErrUnknownTool):
		return "unknown_tool"
	default:
		return "internal"
	}
}
