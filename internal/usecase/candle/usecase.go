package candle

import (
	"context"
	"strings"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	candleRepo "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/candle"
	tickRepo "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/tick"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/errors"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// DefaultQueryTimeout bounds a single store round trip.
const DefaultQueryTimeout = 10 * time.Second

// Usecase answers historical candle queries. 1-minute requests read the
// materialized relation and fall back to aggregating raw ticks when the
// window has no materialized rows yet. Coarser timeframes are always built
// by grouping 1-minute candles on the exchange-local bucket boundaries, so
// a daylight-saving shift never misaligns a day or week bucket.
type Usecase struct {
	candleRepository candleRepo.CandleRepository
	tickRepository   tickRepo.TickRepository
	clock            timeframe.Clock
	logger           logger.Interface
	queryTimeout     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewUsecase creates a new candle query usecase.
func NewUsecase(
	candleRepository candleRepo.CandleRepository,
	tickRepository tickRepo.TickRepository,
	clock timeframe.Clock,
	log logger.Interface,
) *Usecase {
	return &Usecase{
		candleRepository: candleRepository,
		tickRepository:   tickRepository,
		clock:            clock,
		logger:           log,
		queryTimeout:     DefaultQueryTimeout,
		now:              time.Now,
	}
}

// Query returns candles for the request, ascending by bucket start.
func (u *Usecase) Query(ctx context.Context, req candleDomain.QueryRequest) (candleDomain.List, error) {
	req, err := u.validate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, u.queryTimeout)
	defer cancel()

	minutes, err := u.loadMinutes(ctx, req)
	if err != nil {
		u.logger.Error(errors.TracerFromError(err),
			logger.NewField("symbol", req.Symbol),
			logger.NewField("timeframe", req.Timeframe.Name),
		)
		return nil, errors.NewErrorDetails(
			"candle store query failed",
			string(errors.DataUnavailable),
			"",
		)
	}

	if len(minutes) == 0 {
		return candleDomain.List{}, nil
	}

	candles := minutes
	if req.Timeframe != timeframe.M1 {
		candles = u.bucket(minutes, req.Timeframe)
	} else {
		now := u.now()
		for i := range candles {
			candles[i].Closed = !u.clock.BucketEnd(candles[i].BucketStart, req.Timeframe).After(now)
		}
	}

	if len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}

	return candles, nil
}

func (u *Usecase) validate(req candleDomain.QueryRequest) (candleDomain.QueryRequest, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return req, errors.NewErrorDetails(
			"symbol is required",
			string(errors.InvalidArgument),
			"symbol",
		)
	}
	req.Exchange = strings.ToUpper(strings.TrimSpace(req.Exchange))

	if !timeframe.IsValid(req.Timeframe.Name) {
		return req, errors.NewErrorDetails(
			"unsupported timeframe",
			string(errors.InvalidArgument),
			"timeframe",
		)
	}

	if req.Limit == 0 {
		req.Limit = candleDomain.DefaultQueryLimit
	}
	if req.Limit < 0 || req.Limit > candleDomain.MaxQueryLimit {
		return req, errors.NewErrorDetails(
			"limit must be between 1 and 10000",
			string(errors.InvalidArgument),
			"limit",
		)
	}

	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return req, errors.NewErrorDetails(
			"from must not be after to",
			string(errors.InvalidArgument),
			"from",
		)
	}

	return req, nil
}

// loadMinutes returns the 1-minute candles covering the request window,
// ascending. Without an explicit lower bound the window is the most recent
// Limit buckets of the requested timeframe.
func (u *Usecase) loadMinutes(ctx context.Context, req candleDomain.QueryRequest) (candleDomain.List, error) {
	minuteLimit := req.Limit * req.Timeframe.Minutes()

	filter := candleRepo.Filter{
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		To:       req.To,
		Limit:    minuteLimit,
	}

	if req.From != nil {
		from := u.clock.BucketStart(*req.From, req.Timeframe)
		filter.From = &from
	} else {
		// No lower bound: read newest-first, then restore ascending order.
		filter.Descending = true
	}

	minutes, err := u.candleRepository.GetRange(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.Descending {
		reverse(minutes)
	}

	if len(minutes) > 0 {
		return minutes, nil
	}

	return u.aggregateTicks(ctx, req, minuteLimit)
}

// aggregateTicks is the fallback for windows with no materialized rows:
// the store buckets raw ticks into 1-minute candles, calendar-aligned to
// the exchange timezone.
func (u *Usecase) aggregateTicks(ctx context.Context, req candleDomain.QueryRequest, minuteLimit int) (candleDomain.List, error) {
	to := u.now()
	if req.To != nil {
		to = *req.To
	}

	var from time.Time
	if req.From != nil {
		from = u.clock.BucketStart(*req.From, req.Timeframe)
	} else {
		from = u.windowStart(to, req.Timeframe, req.Limit)
	}

	return u.tickRepository.AggregateMinute(ctx, tickRepo.AggregateFilter{
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		From:     from,
		To:       to,
		Limit:    minuteLimit,
		Timezone: u.clock.Location().String(),
	})
}

// windowStart returns the bucket start n buckets before to. Day and week
// steps use calendar arithmetic so the window survives daylight-saving
// transitions.
func (u *Usecase) windowStart(to time.Time, tf timeframe.Timeframe, n int) time.Time {
	end := u.clock.BucketStart(to, tf)
	switch tf {
	case timeframe.D1:
		return end.AddDate(0, 0, -n)
	case timeframe.W1:
		return end.AddDate(0, 0, -7*n)
	default:
		return end.Add(-time.Duration(n) * tf.Interval)
	}
}

// bucket groups ascending 1-minute candles into the coarser timeframe.
// A bucket is closed once the clock has moved past its end.
func (u *Usecase) bucket(minutes candleDomain.List, tf timeframe.Timeframe) candleDomain.List {
	var out candleDomain.List
	now := u.now()

	for _, m := range minutes {
		start := u.clock.BucketStart(m.BucketStart, tf)

		if len(out) == 0 || !out[len(out)-1].BucketStart.Equal(start) {
			out = append(out, candleDomain.Candle{
				Symbol:          m.Symbol,
				Exchange:        m.Exchange,
				Timeframe:       tf,
				BucketStart:     start,
				Open:            m.Open,
				High:            m.High,
				Low:             m.Low,
				Close:           m.Close,
				Volume:          m.Volume,
				FinancialVolume: m.FinancialVolume,
				TickCount:       m.TickCount,
			})
			continue
		}

		last := &out[len(out)-1]
		if m.High > last.High {
			last.High = m.High
		}
		if m.Low < last.Low {
			last.Low = m.Low
		}
		last.Close = m.Close
		last.Volume += m.Volume
		last.FinancialVolume += m.FinancialVolume
		last.TickCount += m.TickCount
	}

	for i := range out {
		out[i].Closed = !u.clock.BucketEnd(out[i].BucketStart, tf).After(now)
	}

	return out
}

func reverse(candles candleDomain.List) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
