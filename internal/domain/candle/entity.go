package candle

import (
	"time"

	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// Candle represents one OHLCV bucket for a symbol on an exchange.
// BucketStart is aligned to the timeframe boundary in the exchange's local
// calendar. While the bucket is open the candle may still mutate; once
// Closed is set it is immutable history.
type Candle struct {
	Symbol          string
	Exchange        string
	Timeframe       timeframe.Timeframe
	BucketStart     time.Time
	Open            float64
	High            float64
	Low             float64
	Close           float64
	Volume          float64
	FinancialVolume float64
	TickCount       int64
	Closed          bool
}

// List is a list of candles.
type List []Candle
