package bootstrap

import (
	candleInfra "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/candle"
	tickInfra "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/tick"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/redis/snapshot"
)

// Repository is the repository for the market data service.
type Repository struct {
	TickRepository   tickInfra.TickRepository
	CandleRepository candleInfra.CandleRepository
	SnapshotCache    snapshot.Cache
}

// registerRepository registers the repository.
func (b *Bootstrap) registerRepository() {
	b.Repository.TickRepository = tickInfra.NewRepository(b.QuestDB)
	b.Repository.CandleRepository = candleInfra.NewRepository(b.QuestDB)
	b.Repository.SnapshotCache = snapshot.NewCache(b.Redis, b.snapshotTTL)
}
