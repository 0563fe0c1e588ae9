// Package live aggregates the tick feed into open candles and fans updates
// out to streaming subscribers.
package live

import (
	"context"
	"strings"
	"sync"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/redis/snapshot"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/metrics"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/errors"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// DefaultIdleTTL is how long aggregation state for a key without
// subscribers survives before it is evicted.
const DefaultIdleTTL = 10 * time.Minute

// Key identifies one live candle stream.
type Key struct {
	Symbol    string
	Exchange  string
	Timeframe string
}

// Normalize upper-cases the symbol and exchange.
func (k Key) Normalize() Key {
	k.Symbol = strings.ToUpper(strings.TrimSpace(k.Symbol))
	k.Exchange = strings.ToUpper(strings.TrimSpace(k.Exchange))
	return k
}

// Subscriber receives candle updates for one key. Deliver must not block
// indefinitely; a failed delivery drops the subscriber from the key.
type Subscriber interface {
	ID() string
	Deliver(c candleDomain.Candle) error
}

// state is the aggregation state for one key. Each key locks
// independently so a slow symbol never stalls the rest of the feed.
type state struct {
	mu        sync.Mutex
	tf        timeframe.Timeframe
	open      *candleDomain.Candle
	subs      map[string]Subscriber
	lastTouch time.Time
}

// Publisher maintains one open candle per subscribed key, closes it when a
// tick crosses the bucket boundary and broadcasts every mutation. Closed
// candles are immutable: a tick older than the open bucket is dropped and
// counted, never applied.
type Publisher struct {
	clock   timeframe.Clock
	cache   snapshot.Cache
	metrics *metrics.Metrics
	logger  logger.Interface

	mu     sync.RWMutex
	states map[Key]*state

	idleTTL time.Duration
	now     func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithIdleTTL overrides how long unsubscribed aggregation state survives.
func WithIdleTTL(ttl time.Duration) Option {
	return func(p *Publisher) {
		if ttl > 0 {
			p.idleTTL = ttl
		}
	}
}

// NewPublisher creates a live candle publisher.
func NewPublisher(clock timeframe.Clock, cache snapshot.Cache, m *metrics.Metrics, log logger.Interface, opts ...Option) *Publisher {
	p := &Publisher{
		clock:   clock,
		cache:   cache,
		metrics: m,
		logger:  log,
		states:  make(map[Key]*state),
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers the subscriber on the key and returns the current
// candle for priming: the open candle when one exists, otherwise the last
// closed candle from the snapshot cache, otherwise nil.
func (p *Publisher) Subscribe(ctx context.Context, key Key, sub Subscriber) (*candleDomain.Candle, error) {
	key = key.Normalize()
	if key.Symbol == "" {
		return nil, errors.NewErrorDetails("symbol is required", string(errors.InvalidArgument), "symbol")
	}
	tf, err := timeframe.Parse(key.Timeframe)
	if err != nil {
		return nil, errors.NewErrorDetails("unsupported timeframe", string(errors.InvalidArgument), "timeframe")
	}

	st := p.getOrCreate(key, tf)

	st.mu.Lock()
	_, resubscribed := st.subs[sub.ID()]
	st.subs[sub.ID()] = sub
	st.lastTouch = p.now()
	var prime *candleDomain.Candle
	if st.open != nil {
		c := *st.open
		prime = &c
	}
	st.mu.Unlock()

	// A repeat subscribe replaces the slot; the gauge counts slots, and
	// teardown only decrements each once.
	if !resubscribed {
		p.metrics.ActiveSubscriptions.Inc()
	}

	if prime != nil {
		return prime, nil
	}

	cached, err := p.cache.Latest(ctx, key.Symbol, key.Exchange, key.Timeframe)
	if err != nil {
		// Priming is best-effort; the subscription itself stands.
		p.logger.Warn("snapshot cache read failed", logger.NewField("symbol", key.Symbol))
		return nil, nil
	}
	return cached, nil
}

// Unsubscribe removes the subscriber from the key. Aggregation state stays
// behind for the idle TTL so a quick resubscribe keeps its open candle.
func (p *Publisher) Unsubscribe(key Key, subID string) {
	key = key.Normalize()

	p.mu.RLock()
	st := p.states[key]
	p.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	if _, ok := st.subs[subID]; ok {
		delete(st.subs, subID)
		p.metrics.ActiveSubscriptions.Dec()
	}
	st.lastTouch = p.now()
	st.mu.Unlock()
}

// OnTick routes a tick into every matching key's open candle.
func (p *Publisher) OnTick(ctx context.Context, t *tickDomain.Tick) {
	p.metrics.TicksTotal.Inc()

	symbol := strings.ToUpper(t.Symbol)
	exchange := strings.ToUpper(t.Exchange)

	for key, st := range p.matching(symbol, exchange) {
		p.applyTick(ctx, key, st, t)
	}
}

// OnMinuteCandle merges a closed 1-minute candle into every matching key.
// It is the feed path for deployments where the broker carries materialized
// minute candles instead of raw ticks; wiring both feeds for the same key
// would double-count volume.
func (p *Publisher) OnMinuteCandle(ctx context.Context, m candleDomain.Candle) {
	symbol := strings.ToUpper(m.Symbol)
	exchange := strings.ToUpper(m.Exchange)

	for key, st := range p.matching(symbol, exchange) {
		p.applyMinute(ctx, key, st, m)
	}
}

// Run sweeps idle aggregation state until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.EvictIdle()
		}
	}
}

// EvictIdle drops aggregation state that has had no subscribers for the
// idle TTL. The open candle is discarded; its closed predecessors are
// already in the snapshot cache and the store.
func (p *Publisher) EvictIdle() {
	cutoff := p.now().Add(-p.idleTTL)

	p.mu.Lock()
	defer p.mu.Unlock()

	for key, st := range p.states {
		st.mu.Lock()
		idle := len(st.subs) == 0 && st.lastTouch.Before(cutoff)
		st.mu.Unlock()
		if idle {
			delete(p.states, key)
		}
	}
}

func (p *Publisher) getOrCreate(key Key, tf timeframe.Timeframe) *state {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.states[key]
	if st == nil {
		st = &state{
			tf:        tf,
			subs:      make(map[string]Subscriber),
			lastTouch: p.now(),
		}
		p.states[key] = st
	}
	return st
}

func (p *Publisher) matching(symbol, exchange string) map[Key]*state {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[Key]*state)
	for key, st := range p.states {
		if key.Symbol == symbol && key.Exchange == exchange {
			out[key] = st
		}
	}
	return out
}

func (p *Publisher) applyTick(ctx context.Context, key Key, st *state, t *tickDomain.Tick) {
	bucket := p.clock.BucketStart(t.Timestamp, st.tf)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastTouch = p.now()

	switch {
	case st.open == nil || bucket.After(st.open.BucketStart):
		if st.open != nil {
			p.closeOpenLocked(ctx, key, st)
		}
		st.open = &candleDomain.Candle{
			Symbol:          key.Symbol,
			Exchange:        key.Exchange,
			Timeframe:       st.tf,
			BucketStart:     bucket,
			Open:            t.Price,
			High:            t.Price,
			Low:             t.Price,
			Close:           t.Price,
			Volume:          t.Volume,
			FinancialVolume: t.FinancialVolume,
			TickCount:       1,
		}
		p.broadcastLocked(st, *st.open)

	case bucket.Equal(st.open.BucketStart):
		if t.Price > st.open.High {
			st.open.High = t.Price
		}
		if t.Price < st.open.Low {
			st.open.Low = t.Price
		}
		st.open.Close = t.Price
		st.open.Volume += t.Volume
		st.open.FinancialVolume += t.FinancialVolume
		st.open.TickCount++
		p.broadcastLocked(st, *st.open)

	default:
		// Tick for an already-closed bucket. Closed candles are immutable.
		p.metrics.LateTicks.Inc()
		p.logger.Debug("late tick dropped",
			logger.NewField("symbol", key.Symbol),
			logger.NewField("timeframe", key.Timeframe),
		)
	}
}

func (p *Publisher) applyMinute(ctx context.Context, key Key, st *state, m candleDomain.Candle) {
	bucket := p.clock.BucketStart(m.BucketStart, st.tf)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastTouch = p.now()

	switch {
	case st.open == nil || bucket.After(st.open.BucketStart):
		if st.open != nil {
			p.closeOpenLocked(ctx, key, st)
		}
		st.open = &candleDomain.Candle{
			Symbol:          key.Symbol,
			Exchange:        key.Exchange,
			Timeframe:       st.tf,
			BucketStart:     bucket,
			Open:            m.Open,
			High:            m.High,
			Low:             m.Low,
			Close:           m.Close,
			Volume:          m.Volume,
			FinancialVolume: m.FinancialVolume,
			TickCount:       m.TickCount,
		}
		p.broadcastLocked(st, *st.open)

	case bucket.Equal(st.open.BucketStart):
		if m.High > st.open.High {
			st.open.High = m.High
		}
		if m.Low < st.open.Low {
			st.open.Low = m.Low
		}
		st.open.Close = m.Close
		st.open.Volume += m.Volume
		st.open.FinancialVolume += m.FinancialVolume
		st.open.TickCount += m.TickCount
		p.broadcastLocked(st, *st.open)

	default:
		p.metrics.LateTicks.Inc()
	}
}

// closeOpenLocked seals the open candle, broadcasts it and snapshots it to
// the cache. Callers hold st.mu.
func (p *Publisher) closeOpenLocked(ctx context.Context, key Key, st *state) {
	closed := *st.open
	closed.Closed = true
	st.open = nil

	p.metrics.CandlesClosed.WithLabelValues(key.Timeframe).Inc()
	p.broadcastLocked(st, closed)

	if err := p.cache.StoreClosed(ctx, closed); err != nil {
		p.logger.Warn("snapshot cache write failed",
			logger.NewField("symbol", key.Symbol),
			logger.NewField("timeframe", key.Timeframe),
		)
	}
}

// broadcastLocked delivers the candle to every subscriber on the key. A
// failed delivery drops only that subscriber. Callers hold st.mu.
func (p *Publisher) broadcastLocked(st *state, c candleDomain.Candle) {
	for id, sub := range st.subs {
		if err := sub.Deliver(c); err != nil {
			delete(st.subs, id)
			p.metrics.ActiveSubscriptions.Dec()
			p.metrics.SendFailures.Inc()
			p.logger.Warn("subscriber delivery failed, dropping",
				logger.NewField("subscriber", id),
				logger.NewField("symbol", c.Symbol),
			)
			continue
		}
		p.metrics.BroadcastsTotal.Inc()
	}
}
