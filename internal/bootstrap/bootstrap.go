// Package bootstrap wires the service's repositories, usecases and
// streaming components together.
package bootstrap

import (
	"time"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/metrics"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/questdb"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/redis"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// Bootstrap is the bootstrap for the market data service.
type Bootstrap struct {
	Usecase    Usecase
	Repository Repository
	Stream     Stream
	Logger     logger.Interface
	Metrics    *metrics.Metrics
	Clock      timeframe.Clock

	QuestDB questdb.QuestDBClient
	Redis   redis.Client

	snapshotTTL time.Duration
	idleTTL     time.Duration
}

// BootstrapConfig is the config for the bootstrap.
type BootstrapConfig struct {
	QuestDB     questdb.QuestDBClient
	Redis       redis.Client
	Logger      logger.Interface
	Metrics     *metrics.Metrics
	Clock       timeframe.Clock
	SnapshotTTL time.Duration
	IdleTTL     time.Duration
}

// Init initializes the bootstrap.
func (b *Bootstrap) Init(config BootstrapConfig) Bootstrap {
	b.QuestDB = config.QuestDB
	b.Redis = config.Redis
	b.Logger = config.Logger
	b.Metrics = config.Metrics
	b.Clock = config.Clock
	b.snapshotTTL = config.SnapshotTTL
	b.idleTTL = config.IdleTTL

	b.registerRepository()
	b.registerUsecase()
	b.registerStream()

	return *b
}
