package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/redis"
)

//go:generate mockgen -source=cache.go -destination=mock/cache_mock.go -package=snapshot_mock

// Cache keeps the most recently closed candle per (symbol, exchange,
// timeframe) so a fresh subscriber can be primed without a store round trip.
// Entries expire on their own; a miss is not an error.
type Cache interface {
	StoreClosed(ctx context.Context, c candleDomain.Candle) error
	Latest(ctx context.Context, symbol, exchange, tf string) (*candleDomain.Candle, error)
}

type cache struct {
	client redis.Client
	ttl    time.Duration
}

// NewCache creates a snapshot cache with the given entry TTL.
func NewCache(client redis.Client, ttl time.Duration) Cache {
	return &cache{
		client: client,
		ttl:    ttl,
	}
}

func snapshotKey(symbol, exchange, tf string) string {
	return fmt.Sprintf("candle:%s:%s:%s",
		strings.ToUpper(symbol), strings.ToUpper(exchange), tf)
}

// StoreClosed overwrites the cached snapshot for the candle's key.
func (c *cache) StoreClosed(ctx context.Context, candle candleDomain.Candle) error {
	payload, err := json.Marshal(candle)
	if err != nil {
		return fmt.Errorf("failed to marshal candle snapshot: %w", err)
	}

	key := snapshotKey(candle.Symbol, candle.Exchange, candle.Timeframe.Name)
	if err := c.client.Set(ctx, key, payload, c.ttl); err != nil {
		return fmt.Errorf("failed to store candle snapshot: %w", err)
	}

	return nil
}

// Latest returns the cached snapshot, or nil when none is cached.
func (c *cache) Latest(ctx context.Context, symbol, exchange, tf string) (*candleDomain.Candle, error) {
	raw, err := c.client.Get(ctx, snapshotKey(symbol, exchange, tf))
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candle snapshot: %w", err)
	}

	var candle candleDomain.Candle
	if err := json.Unmarshal([]byte(raw), &candle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candle snapshot: %w", err)
	}

	return &candle, nil
}
