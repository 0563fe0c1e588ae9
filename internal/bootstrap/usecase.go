package bootstrap

import (
	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	candleUc "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/usecase/candle"
)

// Usecase is the usecase for the market data service.
type Usecase struct {
	CandleUsecase candleDomain.Usecase
}

// registerUsecase registers the usecase.
func (b *Bootstrap) registerUsecase() {
	b.Usecase.CandleUsecase = candleUc.NewUsecase(
		b.Repository.CandleRepository,
		b.Repository.TickRepository,
		b.Clock,
		b.Logger,
	)
}
