// Package server assembles the market data service: storage clients,
// bootstrap wiring, feed consumers and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/bootstrap"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/consumer"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/metrics"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/config"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/questdb"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/redis"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the assembled market data service.
type Server struct {
	Config    config.Config
	Logger    logger.Interface
	Bootstrap bootstrap.Bootstrap

	TickConsumer   *consumer.TickConsumer
	CandleConsumer *consumer.CandleConsumer

	HTTP *http.Server

	questDB questdb.QuestDBClient
	redis   redis.Client
}

// Init assembles the service from configuration.
func Init(ctx context.Context, cfg config.Config) (*Server, error) {
	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Exchange.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange timezone %q: %w", cfg.Exchange.Timezone, err)
	}

	questDB, err := questdb.NewClient(ctx, cfg.QuestDB)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(log, &cfg.Redis)
	if err := redisClient.Connect(ctx); err != nil {
		return nil, err
	}

	b := bootstrap.Bootstrap{}
	b.Init(bootstrap.BootstrapConfig{
		QuestDB:     questDB,
		Redis:       redisClient,
		Logger:      log,
		Metrics:     metrics.NewMetrics(),
		Clock:       timeframe.NewClock(loc),
		SnapshotTTL: cfg.Stream.SnapshotTTL,
		IdleTTL:     cfg.Stream.IdleTTL,
	})

	s := &Server{
		Config:    cfg,
		Logger:    log,
		Bootstrap: b,
		questDB:   questDB,
		redis:     redisClient,
	}

	s.registerConsumers()
	s.registerHTTP()

	return s, nil
}

// Run starts the feed consumers, the publisher's eviction sweep and the
// HTTP server. It blocks until the HTTP server stops.
func (s *Server) Run(ctx context.Context) error {
	go s.Bootstrap.Stream.Publisher.Run(ctx)

	if s.CandleConsumer != nil {
		go s.CandleConsumer.Start(ctx)
		go s.CandleConsumer.Subscribe(ctx)
	} else {
		go s.TickConsumer.Start(ctx)
		go s.TickConsumer.Subscribe(ctx)
	}

	s.Logger.Info("http server listening", logger.Field{
		Key:   "addr",
		Value: s.HTTP.Addr,
	})

	if err := s.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains connections and closes every client.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.HTTP.Shutdown(ctx); err != nil {
		s.Logger.Error(err, logger.Field{Key: "action", Value: "http_shutdown"})
	}

	s.Bootstrap.Stream.Hub.Close()

	if s.CandleConsumer != nil {
		if err := s.CandleConsumer.Stop(); err != nil {
			s.Logger.Error(err, logger.Field{Key: "action", Value: "candle_consumer_stop"})
		}
	}
	if s.TickConsumer != nil {
		if err := s.TickConsumer.Stop(); err != nil {
			s.Logger.Error(err, logger.Field{Key: "action", Value: "tick_consumer_stop"})
		}
	}

	if err := s.redis.Disconnect(ctx); err != nil {
		s.Logger.Error(err, logger.Field{Key: "action", Value: "redis_disconnect"})
	}
	s.questDB.Close()
}

// registerConsumers wires the configured feed. The candle topic, when
// enabled, replaces raw ticks as the live feed.
func (s *Server) registerConsumers() {
	if s.Config.CandleKafka.Enabled {
		s.CandleConsumer = consumer.NewCandleConsumer(
			s.Config.CandleKafka,
			s.Logger,
			s.Bootstrap.Stream.Publisher,
		)
		return
	}

	s.TickConsumer = consumer.NewTickConsumer(
		s.Config.TickKafka,
		s.Logger,
		s.Bootstrap.Stream.Publisher,
		s.Bootstrap.Repository.TickRepository,
	)
}

func (s *Server) registerHTTP() {
	mux := http.NewServeMux()
	s.Bootstrap.Stream.API.Register(mux)
	mux.HandleFunc("/ws", s.Bootstrap.Stream.Hub.HandleWS)
	mux.Handle("/metrics", promhttp.Handler())

	s.HTTP = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Config.App.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
