package stream

import (
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
)

// Client-to-server message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// Server-to-client message types.
const (
	TypeCandle = "candle"
	TypePong   = "pong"
	TypeError  = "error"
)

// ClientMessage is any inbound message on a streaming connection.
type ClientMessage struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
}

// CandlePayload is the wire form of one candle update.
type CandlePayload struct {
	Timestamp       string  `json:"timestamp"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
	VolumeFinancial float64 `json:"volumeFinancial"`
	TickCount       int64   `json:"tickCount"`
	IsClosed        bool    `json:"isClosed"`
}

// ServerMessage is any outbound message on a streaming connection.
type ServerMessage struct {
	Type      string         `json:"type"`
	Symbol    string         `json:"symbol,omitempty"`
	Exchange  string         `json:"exchange,omitempty"`
	Timeframe string         `json:"timeframe,omitempty"`
	Data      *CandlePayload `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// NewCandleMessage builds the outbound update for a candle.
func NewCandleMessage(c candleDomain.Candle) ServerMessage {
	return ServerMessage{
		Type:      TypeCandle,
		Symbol:    c.Symbol,
		Exchange:  c.Exchange,
		Timeframe: c.Timeframe.Name,
		Data: &CandlePayload{
			Timestamp:       c.BucketStart.Format(time.RFC3339),
			Open:            c.Open,
			High:            c.High,
			Low:             c.Low,
			Close:           c.Close,
			Volume:          c.Volume,
			VolumeFinancial: c.FinancialVolume,
			TickCount:       c.TickCount,
			IsClosed:        c.Closed,
		},
	}
}

// NewErrorMessage builds a typed error that leaves the connection open.
func NewErrorMessage(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}
