package ws

import (
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
)

// Hub fans registry events out to every connected client. It implements
// terminal.Sink; Emit never blocks on a client.
type Hub struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.RWMutex
	clients map[string]*Client // Protected by mu
	closed  bool               // Protected by mu
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("stream"),
		metrics: metrics,
		clients: make(map[string]*Client),
	}
}

// Emit encodes ev once and queues it for every client subscribed to its
// session. A client whose queue is full is disconnected.
func (h *Hub) Emit(ev terminal.Event) {
	frame, err := sonic.Marshal(frameFor(ev))
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("session_id", ev.ID), zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, c := range h.clients {
		if !c.wantsSession(ev.ID) {
			continue
		}
		select {
		case c.send <- frame:
			h.recordOut(string(ev.Type))
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow client", zap.String("client_id", c.id))
		if h.metrics != nil {
			h.metrics.IncWSDropped()
		}
		h.unregister(c)
	}
}

// sendTo queues one frame for a single client. It reports false when the
// client is gone or its queue is full.
func (h *Hub) sendTo(c *Client, v interface{}, msgType string) bool {
	frame, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.String("client_id", c.id), zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	select {
	case c.send <- frame:
		h.recordOut(msgType)
		return true
	default:
		return false
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Info("Client connected", zap.String("client_id", c.id), zap.Int("clients", count))
	return true
}

// unregister removes c and closes its queue, which stops its writer.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Info("Client disconnected", zap.String("client_id", c.id), zap.Int("clients", count))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) recordOut(msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", msgType)
	}
}
