package consumer

import (
	"context"
	"encoding/json"

	v1 "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/feed/v1"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/live"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/config"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// CandleConsumer is the consumer for the materialized 1-minute candle
// topic. It is the alternative live feed for deployments where the broker
// carries closed minute candles instead of raw ticks.
type CandleConsumer struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface

	publisher *live.Publisher
	msgChan   chan kafka.Message
}

// NewCandleConsumer creates a new CandleConsumer.
func NewCandleConsumer(cfg config.CandleKafkaConfig, log logger.Interface, publisher *live.Publisher) *CandleConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &CandleConsumer{
		kafkaReader: kafkaReader,
		logger:      log,
		publisher:   publisher,
		msgChan:     make(chan kafka.Message),
	}
}

// Start starts the CandleConsumer read loop.
func (c *CandleConsumer) Start(ctx context.Context) {
	c.logger.Info("starting candle consumer", logger.Field{
		Key:   "action",
		Value: "candle_consumer_start",
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context done", logger.Field{
				Key:   "action",
				Value: "candle_consumer_stop",
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

// Stop stops the CandleConsumer.
func (c *CandleConsumer) Stop() error {
	c.logger.Info("stopping candle consumer", logger.Field{
		Key:   "action",
		Value: "candle_consumer_stop",
	})
	return c.kafkaReader.Close()
}

// Subscribe consumes the message channel until Start closes it.
func (c *CandleConsumer) Subscribe(ctx context.Context) {
	c.logger.Info("subscribing to candle consumer", logger.Field{
		Key:   "action",
		Value: "candle_consumer_subscribe",
	})

	for msg := range c.msgChan {
		var event v1.CandleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error(err, logger.Field{
				Key:   "action",
				Value: "unmarshal_candle",
			})
			continue
		}

		c.publisher.OnMinuteCandle(ctx, event.ToCandle())

		if err := c.kafkaReader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error(err, logger.Field{
				Key:   "action",
				Value: "commit_message",
			})
		}
	}
}
