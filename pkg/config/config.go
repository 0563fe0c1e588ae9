package config

import (
	"fmt"
	"time"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/questdb"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/redis"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	App         AppConfig         `envPrefix:"APP_"`
	QuestDB     questdb.Config    `envPrefix:"QUESTDB_"`
	Redis       redis.Config      `envPrefix:"REDIS_"`
	TickKafka   TickKafkaConfig   `envPrefix:"TICK_KAFKA_"`
	CandleKafka CandleKafkaConfig `envPrefix:"CANDLE_KAFKA_"`
	Exchange    ExchangeConfig    `envPrefix:"EXCHANGE_"`
	Stream      StreamConfig      `envPrefix:"STREAM_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"market-data-service"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// TickKafkaConfig represents the raw tick topic configuration.
type TickKafkaConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic         string   `env:"TOPIC" envDefault:"ticks"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"market-data-service"`
	MaxRetries    int      `env:"MAX_RETRIES" envDefault:"3"`

	// Raw ticks are persisted in batches of this size, or on the flush
	// interval, whichever comes first.
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"500"`
	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"1s"`
}

// CandleKafkaConfig represents the optional materialized 1-minute candle
// topic. When enabled it replaces raw ticks as the live feed.
type CandleKafkaConfig struct {
	Enabled       bool     `env:"ENABLED" envDefault:"false"`
	Brokers       []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic         string   `env:"TOPIC" envDefault:"candles-1m"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"market-data-service"`
}

// ExchangeConfig pins the calendar candle buckets align to.
type ExchangeConfig struct {
	Timezone string `env:"TIMEZONE" envDefault:"America/Sao_Paulo"`
}

// StreamConfig tunes the live streaming surface.
type StreamConfig struct {
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"5m"`
	IdleTTL     time.Duration `env:"IDLE_TTL" envDefault:"10m"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
