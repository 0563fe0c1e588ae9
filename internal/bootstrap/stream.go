package bootstrap

import (
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/api"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/live"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/stream"
)

// Stream is the live streaming surface for the market data service.
type Stream struct {
	Publisher *live.Publisher
	Hub       *stream.Hub
	API       *api.Handler
}

// registerStream registers the live publisher, websocket hub and HTTP API.
func (b *Bootstrap) registerStream() {
	b.Stream.Publisher = live.NewPublisher(
		b.Clock,
		b.Repository.SnapshotCache,
		b.Metrics,
		b.Logger,
		live.WithIdleTTL(b.idleTTL),
	)
	b.Stream.Hub = stream.NewHub(b.Stream.Publisher, b.Metrics, b.Logger)
	b.Stream.API = api.NewHandler(b.Usecase.CandleUsecase, b.Metrics, b.Logger)
}
