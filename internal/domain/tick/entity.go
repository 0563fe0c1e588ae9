package tick

import "time"

// Tick represents a single trade event for a symbol on an exchange.
// Ticks are immutable once stored and append-only, ordered by timestamp
// per (symbol, exchange).
type Tick struct {
	Symbol          string
	Exchange        string
	Timestamp       time.Time
	Price           float64
	Volume          float64
	FinancialVolume float64
	TradeID         int64
	BuyerIsMaker    bool
}
