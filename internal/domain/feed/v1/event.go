// Package v1 holds the wire events consumed from the market-data feed.
package v1

import (
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// TickEvent is one trade on the raw tick topic. Timestamps are epoch
// milliseconds.
type TickEvent struct {
	Symbol          string  `json:"symbol"`
	Exchange        string  `json:"exchange"`
	Timestamp       int64   `json:"timestamp"`
	Price           float64 `json:"price"`
	Volume          float64 `json:"volume"`
	FinancialVolume float64 `json:"financialVolume"`
	TradeID         int64   `json:"tradeId"`
	BuyerIsMaker    bool    `json:"buyerIsMaker"`
}

// ToTick converts the event into the domain tick.
func (e *TickEvent) ToTick() *tickDomain.Tick {
	return &tickDomain.Tick{
		Symbol:          e.Symbol,
		Exchange:        e.Exchange,
		Timestamp:       time.UnixMilli(e.Timestamp).UTC(),
		Price:           e.Price,
		Volume:          e.Volume,
		FinancialVolume: e.FinancialVolume,
		TradeID:         e.TradeID,
		BuyerIsMaker:    e.BuyerIsMaker,
	}
}

// CandleEvent is one closed 1-minute candle on the materialized candle
// topic. BucketStart is epoch milliseconds.
type CandleEvent struct {
	Symbol          string  `json:"symbol"`
	Exchange        string  `json:"exchange"`
	BucketStart     int64   `json:"bucketStart"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
	FinancialVolume float64 `json:"financialVolume"`
	TickCount       int64   `json:"tickCount"`
}

// ToCandle converts the event into a closed 1-minute domain candle.
func (e *CandleEvent) ToCandle() candleDomain.Candle {
	return candleDomain.Candle{
		Symbol:          e.Symbol,
		Exchange:        e.Exchange,
		Timeframe:       timeframe.M1,
		BucketStart:     time.UnixMilli(e.BucketStart).UTC(),
		Open:            e.Open,
		High:            e.High,
		Low:             e.Low,
		Close:           e.Close,
		Volume:          e.Volume,
		FinancialVolume: e.FinancialVolume,
		TickCount:       e.TickCount,
		Closed:          true,
	}
}
