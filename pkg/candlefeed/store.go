// Package candlefeed is a client-side companion to the market data
// streaming API. Store merges a one-shot historical load with live
// candle updates into a render-ready buffer; Feed keeps that buffer
// fed over a websocket connection with reconnect and backoff.
package candlefeed

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity bounds the buffer when no capacity is configured.
const DefaultCapacity = 500

// Candle is the client-side view of one OHLCV bucket.
type Candle struct {
	BucketStart     time.Time
	Open            float64
	High            float64
	Low             float64
	Close           float64
	Volume          float64
	VolumeFinancial float64
	TickCount       int64
	Closed          bool
}

// Store holds an ordered, bounded buffer of candles for a single
// symbol/timeframe. It is safe for concurrent use: live updates and a
// historical load may arrive on different goroutines, and updates that
// land while a load is in flight are queued and replayed once the load
// settles.
type Store struct {
	mu       sync.Mutex
	capacity int
	candles  []Candle
	loading  bool
	pending  []Candle
}

// NewStore returns a store bounded to the given capacity. A
// non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		candles:  make([]Candle, 0, capacity),
	}
}

// Apply merges one live update into the buffer. An update for a bucket
// already present replaces that entry in place, so replaying the same
// update is a no-op. A new bucket is appended, evicting the oldest
// entry when the buffer is full. While a historical load is in flight
// the update is queued instead.
func (s *Store) Apply(c Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		s.pending = append(s.pending, c)
		return
	}
	s.applyLocked(c)
}

// BeginHistoricalLoad marks the start of a historical load. Live
// updates arriving until Complete or Abort are queued, not dropped.
func (s *Store) BeginHistoricalLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
}

// CompleteHistoricalLoad replaces the buffer with the loaded candles
// and replays every update queued during the load. Applying the load
// first and the queued updates after yields the same result as any
// interleaving, since updates replace whole buckets.
func (s *Store) CompleteHistoricalLoad(candles []Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candles = s.candles[:0]
	for _, c := range candles {
		s.applyLocked(c)
	}
	s.drainPendingLocked()
}

// AbortHistoricalLoad keeps the previous buffer after a failed load and
// replays the updates queued while it was in flight. A failed refresh
// must never regress the store to empty.
func (s *Store) AbortHistoricalLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainPendingLocked()
}

// Candles returns a copy of the buffer, ordered by bucket start.
func (s *Store) Candles() []Candle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Len reports the number of buffered candles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candles)
}

func (s *Store) drainPendingLocked() {
	s.loading = false
	for _, c := range s.pending {
		s.applyLocked(c)
	}
	s.pending = nil
}

func (s *Store) applyLocked(c Candle) {
	n := len(s.candles)

	// Normal operation updates or extends the tail.
	if n > 0 && s.candles[n-1].BucketStart.Equal(c.BucketStart) {
		s.candles[n-1] = c
		return
	}
	if n == 0 || c.BucketStart.After(s.candles[n-1].BucketStart) {
		s.candles = append(s.candles, c)
		s.evictLocked()
		return
	}

	// Out-of-order bucket: replace in place if present, otherwise
	// insert and re-sort.
	for i := range s.candles {
		if s.candles[i].BucketStart.Equal(c.BucketStart) {
			s.candles[i] = c
			return
		}
	}
	s.candles = append(s.candles, c)
	sort.Slice(s.candles, func(i, j int) bool {
		return s.candles[i].BucketStart.Before(s.candles[j].BucketStart)
	})
	s.evictLocked()
}

func (s *Store) evictLocked() {
	if len(s.candles) > s.capacity {
		s.candles = s.candles[len(s.candles)-s.capacity:]
	}
}
