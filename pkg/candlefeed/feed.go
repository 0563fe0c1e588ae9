package candlefeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// State is the connection state of a Feed.
type State string

// Connection states, in lifecycle order.
const (
	StateConnecting   State = "CONNECTING"
	StateOpen         State = "OPEN"
	StateReconnecting State = "RECONNECTING"
	StateFailed       State = "FAILED"
)

// Reconnect policy.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 10 * time.Second
	DefaultMaxAttempts    = 5
)

// Keepalive policy, mirroring the server's pong window: a connection
// silent for longer than the pong wait is half-open and torn down, which
// is what lets the reconnect loop engage when the peer dies without RST.
const (
	DefaultPongWait     = 60 * time.Second
	DefaultPingInterval = (DefaultPongWait * 9) / 10
)

// ErrDisconnected is returned by Run once every reconnect attempt has
// been exhausted. The store keeps its last known buffer.
var ErrDisconnected = errors.New("candlefeed: disconnected, retries exhausted")

// Conn is the subset of a websocket connection the feed reads and
// writes.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens a streaming connection.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct{}

// Dial opens a websocket connection to the given URL.
func (WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "candlefeed: dial")
	}
	return conn, nil
}

// clientMessage mirrors the streaming API's client-to-server frame.
type clientMessage struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
}

// serverMessage mirrors the streaming API's server-to-client frame.
type serverMessage struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol,omitempty"`
	Exchange  string          `json:"exchange,omitempty"`
	Timeframe string          `json:"timeframe,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type candlePayload struct {
	Timestamp       string  `json:"timestamp"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
	VolumeFinancial float64 `json:"volumeFinancial"`
	TickCount       int64   `json:"tickCount"`
	IsClosed        bool    `json:"isClosed"`
}

// Config describes one subscription.
type Config struct {
	URL       string
	Symbol    string
	Exchange  string
	Timeframe string

	// History, when set, is the one-shot historical load run before
	// the first connection attempt. Its failure is recoverable: the
	// store keeps whatever it already holds.
	History func(ctx context.Context) ([]Candle, error)

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int

	PingInterval time.Duration
	PongWait     time.Duration
}

// Feed drives a Store from the streaming API, reconnecting with
// exponential backoff on transport loss.
type Feed struct {
	config Config
	store  *Store
	dialer Dialer
	logger logger.Interface

	mu       sync.RWMutex
	state    State
	onChange func(State)
}

// NewFeed returns a feed for the given subscription, applying policy
// defaults for any zero backoff settings.
func NewFeed(config Config, store *Store, dialer Dialer, log logger.Interface) *Feed {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.PongWait <= 0 {
		config.PongWait = DefaultPongWait
	}
	if config.PingInterval <= 0 {
		config.PingInterval = (config.PongWait * 9) / 10
	}
	return &Feed{
		config: config,
		store:  store,
		dialer: dialer,
		logger: log,
		state:  StateConnecting,
	}
}

// State returns the current connection state.
func (f *Feed) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// OnStateChange registers a callback invoked on every state
// transition. Register before Run.
func (f *Feed) OnStateChange(fn func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// Run loads history, then connects and pumps live updates into the
// store until ctx is cancelled or the reconnect budget is exhausted.
// It returns ErrDisconnected in the latter case.
func (f *Feed) Run(ctx context.Context) error {
	f.loadHistory(ctx)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.config.InitialBackoff
	bo.MaxInterval = f.config.MaxBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := f.connect(ctx)
		if err != nil {
			attempts++
			if attempts >= f.config.MaxAttempts {
				f.setState(StateFailed)
				return ErrDisconnected
			}
			f.setState(StateReconnecting)
			if err := sleep(ctx, bo.NextBackOff()); err != nil {
				return err
			}
			continue
		}

		f.setState(StateOpen)
		attempts = 0
		bo.Reset()

		err = f.pump(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("stream connection lost", logger.Field{
			Key:   "error",
			Value: err,
		})
		f.setState(StateReconnecting)
		attempts++
		if attempts >= f.config.MaxAttempts {
			f.setState(StateFailed)
			return ErrDisconnected
		}
		if err := sleep(ctx, bo.NextBackOff()); err != nil {
			return err
		}
	}
}

// loadHistory runs the one-shot historical load, queueing any live
// updates that race with it. A failed load keeps the previous buffer.
func (f *Feed) loadHistory(ctx context.Context) {
	if f.config.History == nil {
		return
	}

	f.store.BeginHistoricalLoad()
	candles, err := f.config.History(ctx)
	if err != nil {
		f.logger.Warn("historical load failed, keeping previous buffer", logger.Field{
			Key:   "error",
			Value: err,
		})
		f.store.AbortHistoricalLoad()
		return
	}
	f.store.CompleteHistoricalLoad(candles)
}

// connect dials and re-subscribes. The server answers a subscribe with
// a snapshot candle, which flows through the store like any live
// update, so short gaps self-heal without re-running the historical
// load.
func (f *Feed) connect(ctx context.Context) (Conn, error) {
	conn, err := f.dialer.Dial(ctx, f.config.URL)
	if err != nil {
		return nil, err
	}

	sub := clientMessage{
		Type:      "subscribe",
		Symbol:    f.config.Symbol,
		Exchange:  f.config.Exchange,
		Timeframe: f.config.Timeframe,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "candlefeed: subscribe")
	}
	return conn, nil
}

func (f *Feed) pump(ctx context.Context, conn Conn) error {
	stopPing := make(chan struct{})
	defer close(stopPing)
	go f.keepalive(conn, stopPing)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Any frame, pong included, extends the deadline. A peer that
		// dies without RST stops answering pings and the read times out.
		if err := conn.SetReadDeadline(time.Now().Add(f.config.PongWait)); err != nil {
			return errors.Wrap(err, "candlefeed: set read deadline")
		}

		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return errors.Wrap(err, "candlefeed: read")
		}

		switch msg.Type {
		case "candle":
			f.handleCandle(msg)
		case "error":
			f.logger.Warn("stream error message", logger.Field{
				Key:   "message",
				Value: msg.Message,
			})
		case "pong":
		}
	}
}

// keepalive sends protocol pings until stop closes or a write fails; the
// matching pongs keep the read deadline moving.
func (f *Feed) keepalive(conn Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(clientMessage{Type: "ping"}); err != nil {
				return
			}
		}
	}
}

func (f *Feed) handleCandle(msg serverMessage) {
	var payload candlePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		f.logger.Warn("malformed candle payload", logger.Field{
			Key:   "error",
			Value: err,
		})
		return
	}

	bucketStart, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		f.logger.Warn("malformed candle timestamp", logger.Field{
			Key:   "timestamp",
			Value: payload.Timestamp,
		})
		return
	}

	f.store.Apply(Candle{
		BucketStart:     bucketStart,
		Open:            payload.Open,
		High:            payload.High,
		Low:             payload.Low,
		Close:           payload.Close,
		Volume:          payload.Volume,
		VolumeFinancial: payload.VolumeFinancial,
		TickCount:       payload.TickCount,
		Closed:          payload.IsClosed,
	})
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	changed := f.state != s
	f.state = s
	fn := f.onChange
	f.mu.Unlock()

	if changed && fn != nil {
		fn(s)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
