package candle

import (
	"context"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
)

// CandleRepository is the interface for the materialized 1-minute candle repository.
//
//go:generate mockgen -source=interface.go -destination=mock/repository_mock.go -package=mock
type CandleRepository interface {
	GetRange(ctx context.Context, filter Filter) (candleDomain.List, error)
}
