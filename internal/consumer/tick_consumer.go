// Package consumer reads the market-data feed from Kafka and drives the
// live publisher and tick persistence.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	v1 "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/feed/v1"
	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
	tickInfra "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/tick"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/live"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/config"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// TickConsumer is the consumer for the raw tick topic. Every tick is routed
// to the live publisher immediately and buffered for batch persistence.
type TickConsumer struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface

	publisher      *live.Publisher
	tickRepository tickInfra.TickRepository
	msgChan        chan kafka.Message

	batchSize     int
	flushInterval time.Duration
	pending       []*tickDomain.Tick
}

// NewTickConsumer creates a new TickConsumer.
func NewTickConsumer(cfg config.TickKafkaConfig, log logger.Interface, publisher *live.Publisher, tickRepository tickInfra.TickRepository) *TickConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &TickConsumer{
		kafkaReader:    kafkaReader,
		logger:         log,
		publisher:      publisher,
		tickRepository: tickRepository,
		msgChan:        make(chan kafka.Message),
		batchSize:      cfg.BatchSize,
		flushInterval:  cfg.FlushInterval,
	}
}

// Start starts the TickConsumer read loop.
func (c *TickConsumer) Start(ctx context.Context) {
	c.logger.Info("starting tick consumer", logger.Field{
		Key:   "action",
		Value: "tick_consumer_start",
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context done", logger.Field{
				Key:   "action",
				Value: "tick_consumer_stop",
			})
			close(c.msgChan)
			return
		default:
			msg, err := c.kafkaReader.ReadMessage(ctx)
			if err != nil {
				c.logger.Error(err, logger.Field{
					Key:   "action",
					Value: "read_message",
				})
				continue
			}

			c.msgChan <- msg
		}
	}
}

// Stop stops the TickConsumer.
func (c *TickConsumer) Stop() error {
	c.logger.Info("stopping tick consumer", logger.Field{
		Key:   "action",
		Value: "tick_consumer_stop",
	})
	return c.kafkaReader.Close()
}

// Subscribe consumes the message channel until Start closes it. Ticks go to
// the publisher synchronously; persistence is batched and flushed on size
// or on the flush interval.
func (c *TickConsumer) Subscribe(ctx context.Context) {
	c.logger.Info("subscribing to tick consumer", logger.Field{
		Key:   "action",
		Value: "tick_consumer_subscribe",
	})

	flush := time.NewTicker(c.flushInterval)
	defer func() {
		flush.Stop()
		c.flushPending(ctx)
	}()

	for {
		select {
		case msg, ok := <-c.msgChan:
			if !ok {
				return
			}
			c.handleMessage(ctx, msg)

			if err := c.kafkaReader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error(err, logger.Field{
					Key:   "action",
					Value: "commit_message",
				})
			}
		case <-flush.C:
			c.flushPending(ctx)
		}
	}
}

func (c *TickConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var event v1.TickEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error(err, logger.Field{
			Key:   "action",
			Value: "unmarshal_tick",
		})
		return
	}

	tick := event.ToTick()
	c.publisher.OnTick(ctx, tick)

	c.pending = append(c.pending, tick)
	if len(c.pending) >= c.batchSize {
		c.flushPending(ctx)
	}
}

func (c *TickConsumer) flushPending(ctx context.Context) {
	if len(c.pending) == 0 {
		return
	}

	if err := c.tickRepository.StoreBatch(ctx, c.pending); err != nil {
		c.logger.Error(err, logger.Field{
			Key:   "action",
			Value: "store_tick_batch",
		})
		// Keep the batch; the next flush retries it.
		return
	}

	c.pending = c.pending[:0]
}
