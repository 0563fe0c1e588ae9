package candle

import (
	"context"
	"fmt"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/questdb"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// Repository represents the repository for materialized 1-minute candles.
// The relation is written by an external materializer; this repository only
// reads it.
type Repository struct {
	client questdb.QuestDBClient // Using interface instead of concrete type
}

// NewRepository creates a new candle repository.
func NewRepository(client questdb.QuestDBClient) *Repository {
	return &Repository{
		client: client,
	}
}

// GetRange retrieves materialized 1-minute candles by filter, ascending by
// bucket start. With Descending set the newest rows are returned first;
// callers wanting "most recent N" reverse afterwards.
func (r *Repository) GetRange(ctx context.Context, filter Filter) (candleDomain.List, error) {
	query := `SELECT bucket_start, symbol, exchange, open, high, low, close, volume, financial_volume, tick_count
			  FROM candles_1m WHERE symbol = $1`
	args := []interface{}{filter.Symbol}
	argIndex := 2

	if filter.Exchange != "" {
		query += fmt.Sprintf(" AND exchange = $%d", argIndex)
		args = append(args, filter.Exchange)
		argIndex++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND bucket_start >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND bucket_start < $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	if filter.Descending {
		query += " ORDER BY bucket_start DESC"
	} else {
		query += " ORDER BY bucket_start ASC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.client.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles candleDomain.List
	for rows.Next() {
		c := candleDomain.Candle{Timeframe: timeframe.M1}
		err := rows.Scan(&c.BucketStart, &c.Symbol, &c.Exchange, &c.Open, &c.High,
			&c.Low, &c.Close, &c.Volume, &c.FinancialVolume, &c.TickCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return candles, nil
}

// Filter represents the filter criteria for 1-minute candle reads.
type Filter struct {
	Symbol     string
	Exchange   string
	From       *time.Time
	To         *time.Time
	Limit      int
	Descending bool
}
