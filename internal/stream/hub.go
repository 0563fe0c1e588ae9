// Package stream exposes the websocket surface for live candle
// subscriptions and owns the lifecycle of each connection.
package stream

import (
	"net/http"
	"sync"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/live"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/metrics"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub upgrades streaming connections and tracks live sessions.
type Hub struct {
	publisher *live.Publisher
	logger    logger.Interface
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub creates a streaming hub.
func NewHub(publisher *live.Publisher, m *metrics.Metrics, log logger.Interface) *Hub {
	return &Hub{
		publisher: publisher,
		logger:    log,
		metrics:   m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
}

// HandleWS upgrades the request and runs the session pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logger.NewField("remote", r.RemoteAddr))
		return
	}

	session := newSession(uuid.NewString(), conn, h.publisher, h.logger, h.remove)

	h.mu.Lock()
	h.sessions[session.id] = session
	h.mu.Unlock()
	h.metrics.ActiveConnections.Inc()

	h.logger.Debug("session connected",
		logger.NewField("session", session.id),
		logger.NewField("remote", r.RemoteAddr),
	)

	go session.writePump()
	session.readPump(r.Context())
}

// Close tears down every live session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.teardown()
	}
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()

	if ok {
		h.metrics.ActiveConnections.Dec()
	}
}
