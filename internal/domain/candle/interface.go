package candle

import (
	"context"
	"time"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=candle_mock

// MaxQueryLimit is the hard ceiling on the number of candles a single
// query may request.
const MaxQueryLimit = 10000

// DefaultQueryLimit applies when the caller does not specify a limit.
const DefaultQueryLimit = 200

// QueryRequest describes one historical candle query.
type QueryRequest struct {
	Symbol    string
	Exchange  string
	Timeframe timeframe.Timeframe
	From      *time.Time
	To        *time.Time
	Limit     int
}

// Usecase answers historical candle queries.
type Usecase interface {
	// Query returns candles ascending by bucket start. It is all-or-nothing:
	// a failed aggregation never yields partial rows.
	Query(ctx context.Context, req QueryRequest) (List, error)
}
