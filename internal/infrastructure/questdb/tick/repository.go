package tick

import (
	"context"
	"fmt"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/questdb"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
	"github.com/jackc/pgx/v5"
)

// Repository represents the repository for raw tick data.
type Repository struct {
	client questdb.QuestDBClient // Using interface instead of concrete type
}

// NewRepository creates a new tick repository.
func NewRepository(client questdb.QuestDBClient) *Repository {
	return &Repository{
		client: client,
	}
}

// Store stores a tick data point.
func (r *Repository) Store(ctx context.Context, t *tickDomain.Tick) error {
	query := `INSERT INTO ticks (timestamp, symbol, exchange, price, volume, financial_volume, trade_id, buyer_is_maker)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	err := r.client.Exec(ctx, query,
		t.Timestamp, t.Symbol, t.Exchange, t.Price, t.Volume, t.FinancialVolume, t.TradeID, t.BuyerIsMaker)

	if err != nil {
		return fmt.Errorf("failed to store tick: %w", err)
	}

	return nil
}

// StoreBatch stores a batch of tick data points.
func (r *Repository) StoreBatch(ctx context.Context, ticks []*tickDomain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	// Use CopyFrom for better performance with large batches
	_, err := r.client.CopyFrom(
		ctx,
		pgx.Identifier{"ticks"},
		[]string{"timestamp", "symbol", "exchange", "price", "volume", "financial_volume", "trade_id", "buyer_is_maker"},
		pgx.CopyFromSlice(len(ticks), func(i int) ([]any, error) {
			t := ticks[i]
			return []any{
				t.Timestamp,
				t.Symbol,
				t.Exchange,
				t.Price,
				t.Volume,
				t.FinancialVolume,
				t.TradeID,
				t.BuyerIsMaker,
			}, nil
		}),
	)

	if err != nil {
		return fmt.Errorf("failed to copy ticks: %w", err)
	}

	return nil
}

// GetLatestBySymbol retrieves the latest tick data point by symbol.
func (r *Repository) GetLatestBySymbol(ctx context.Context, symbol string) (*tickDomain.Tick, error) {
	query := `SELECT timestamp, symbol, exchange, price, volume, financial_volume, trade_id, buyer_is_maker
			  FROM ticks
			  WHERE symbol = $1
			  ORDER BY timestamp DESC
			  LIMIT 1`

	t := &tickDomain.Tick{}
	err := r.client.QueryRow(ctx, query, symbol).Scan(
		&t.Timestamp, &t.Symbol, &t.Exchange, &t.Price, &t.Volume, &t.FinancialVolume, &t.TradeID, &t.BuyerIsMaker)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest tick: %w", err)
	}

	return t, nil
}

// AggregateMinute groups raw ticks into 1-minute candles over [from, to)
// using the store's native bucketing, aligned to the exchange calendar of
// the given timezone. It is the fallback path for ranges where no
// materialized 1-minute candle exists yet.
func (r *Repository) AggregateMinute(ctx context.Context, filter AggregateFilter) (candleDomain.List, error) {
	query := `SELECT timestamp, first(price) AS open, max(price) AS high, min(price) AS low, last(price) AS close,
			  sum(volume) AS volume, sum(financial_volume) AS financial_volume, count() AS tick_count
			  FROM ticks WHERE symbol = $1`
	args := []interface{}{filter.Symbol}
	argIndex := 2

	if filter.Exchange != "" {
		query += fmt.Sprintf(" AND exchange = $%d", argIndex)
		args = append(args, filter.Exchange)
		argIndex++
	}

	query += fmt.Sprintf(" AND timestamp >= $%d AND timestamp < $%d", argIndex, argIndex+1)
	args = append(args, filter.From, filter.To)
	argIndex += 2

	// SAMPLE BY takes the timezone as a literal, not a bind parameter.
	query += fmt.Sprintf(" SAMPLE BY 1m ALIGN TO CALENDAR TIME ZONE '%s' ORDER BY timestamp ASC", filter.Timezone)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.client.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ticks: %w", err)
	}
	defer rows.Close()

	var candles candleDomain.List
	for rows.Next() {
		c := candleDomain.Candle{
			Symbol:    filter.Symbol,
			Exchange:  filter.Exchange,
			Timeframe: timeframe.M1,
		}
		err := rows.Scan(&c.BucketStart, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.FinancialVolume, &c.TickCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregated candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return candles, nil
}

// AggregateFilter describes one tick aggregation window.
type AggregateFilter struct {
	Symbol   string
	Exchange string
	From     time.Time
	To       time.Time
	Limit    int
	Timezone string
}
