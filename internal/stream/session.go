package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/live"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/errors"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is the keepalive window; a connection silent for longer is
	// treated as half-open and torn down.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024

	// sendBuffer is the per-session outbound queue. A session that cannot
	// drain it fast enough is dropped rather than allowed to stall the
	// publisher.
	sendBuffer = 256
)

// Session is one streaming connection. It implements live.Subscriber; the
// publisher pushes candle updates into the send queue and the write pump
// drains it onto the wire.
type Session struct {
	id        string
	conn      *websocket.Conn
	publisher *live.Publisher
	logger    logger.Interface

	send chan ServerMessage
	done chan struct{}

	// keys this session holds, so disconnect cleanup is proportional to
	// its own subscriptions. closed flips under mu before teardown
	// releases the fan-out slots, so a racing subscribe cannot slip a key
	// past the cleanup.
	mu     sync.Mutex
	keys   map[live.Key]struct{}
	closed bool

	closeOnce    sync.Once
	onDisconnect func(*Session)
}

func newSession(id string, conn *websocket.Conn, publisher *live.Publisher, log logger.Interface, onDisconnect func(*Session)) *Session {
	return &Session{
		id:           id,
		conn:         conn,
		publisher:    publisher,
		logger:       log,
		send:         make(chan ServerMessage, sendBuffer),
		done:         make(chan struct{}),
		keys:         make(map[live.Key]struct{}),
		onDisconnect: onDisconnect,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Deliver enqueues a candle update. It never blocks: a full queue fails
// the delivery, which makes the publisher drop this subscriber.
func (s *Session) Deliver(c candleDomain.Candle) error {
	select {
	case s.send <- NewCandleMessage(c):
		return nil
	case <-s.done:
		return errors.NewErrorDetails("session closed", string(errors.TransportError), "")
	default:
		return errors.NewErrorDetails("send queue full", string(errors.TransportError), "")
	}
}

// readPump consumes inbound messages until the connection drops, then runs
// disconnect cleanup exactly once.
func (s *Session) readPump(ctx context.Context) {
	defer s.teardown()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed input is reported, not fatal.
			s.enqueue(NewErrorMessage("malformed message"))
			continue
		}

		switch msg.Type {
		case TypeSubscribe:
			s.handleSubscribe(ctx, msg)
		case TypeUnsubscribe:
			s.handleUnsubscribe(msg)
		case TypePing:
			s.enqueue(ServerMessage{Type: TypePong})
		default:
			s.enqueue(NewErrorMessage("unknown message type"))
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) handleSubscribe(ctx context.Context, msg ClientMessage) {
	key := live.Key{Symbol: msg.Symbol, Exchange: msg.Exchange, Timeframe: msg.Timeframe}.Normalize()

	// Subscribe-and-record is atomic with respect to teardown: a session
	// already torn down must not re-enter any fan-out set.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snapshot, err := s.publisher.Subscribe(ctx, key, s)
	if err != nil {
		s.mu.Unlock()
		s.enqueue(NewErrorMessage(err.Error()))
		return
	}
	s.keys[key] = struct{}{}
	s.mu.Unlock()

	// Prime the subscriber so it renders before the next tick.
	if snapshot != nil {
		s.enqueue(NewCandleMessage(*snapshot))
	}
}

func (s *Session) handleUnsubscribe(msg ClientMessage) {
	key := live.Key{Symbol: msg.Symbol, Exchange: msg.Exchange, Timeframe: msg.Timeframe}.Normalize()

	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()

	s.publisher.Unsubscribe(key, s.id)
}

// enqueue drops the message when the queue is full; the write pump's
// failure paths handle the rest.
func (s *Session) enqueue(msg ServerMessage) {
	select {
	case s.send <- msg:
	case <-s.done:
	default:
	}
}

// teardown releases every fan-out slot this session holds and closes the
// connection. Safe to call from any pump; runs once.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		keys := make([]live.Key, 0, len(s.keys))
		for key := range s.keys {
			keys = append(keys, key)
		}
		s.keys = make(map[live.Key]struct{})
		s.mu.Unlock()

		for _, key := range keys {
			s.publisher.Unsubscribe(key, s.id)
		}

		close(s.done)
		s.conn.Close()

		if s.onDisconnect != nil {
			s.onDisconnect(s)
		}

		s.logger.Debug("session disconnected", logger.NewField("session", s.id))
	})
}
