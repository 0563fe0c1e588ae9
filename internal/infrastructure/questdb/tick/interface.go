package tick

import (
	"context"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
)

// TickRepository is the interface for the tick repository.
//
//go:generate mockgen -source=interface.go -destination=mock/repository_mock.go -package=mock
type TickRepository interface {
	Store(ctx context.Context, t *tickDomain.Tick) error
	StoreBatch(ctx context.Context, ticks []*tickDomain.Tick) error
	GetLatestBySymbol(ctx context.Context, symbol string) (*tickDomain.Tick, error)
	AggregateMinute(ctx context.Context, filter AggregateFilter) (candleDomain.List, error)
}
