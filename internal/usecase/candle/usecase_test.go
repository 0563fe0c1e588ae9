package candle

import (
	"context"
	"math/rand"
	"testing"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
	candleRepo "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/candle"
	candleRepoMock "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/candle/mock"
	tickRepo "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/tick"
	tickRepoMock "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/questdb/tick/mock"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/errors"
	logger_mock "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger/mock"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgErrors "github.com/pkg/errors"
	"go.uber.org/mock/gomock"
)

var testLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Monday 2024-03-04, mid-session.
var testNow = time.Date(2024, 3, 4, 10, 7, 0, 0, testLocation)

func minuteCandle(start time.Time, o, h, l, c, v float64, ticks int64) candleDomain.Candle {
	return candleDomain.Candle{
		Symbol:          "PETR4",
		Exchange:        "B3",
		Timeframe:       timeframe.M1,
		BucketStart:     start,
		Open:            o,
		High:            h,
		Low:             l,
		Close:           c,
		Volume:          v,
		FinancialVolume: v * c,
		TickCount:       ticks,
	}
}

func newTestUsecase(t *testing.T, ctrl *gomock.Controller) (*Usecase, *candleRepoMock.MockCandleRepository, *tickRepoMock.MockTickRepository) {
	t.Helper()

	candleMock := candleRepoMock.NewMockCandleRepository(ctrl)
	tickMock := tickRepoMock.NewMockTickRepository(ctrl)
	log := logger_mock.NewMockInterface(ctrl)
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	uc := NewUsecase(candleMock, tickMock, timeframe.NewClock(testLocation), log)
	uc.now = func() time.Time { return testNow }
	return uc, candleMock, tickMock
}

func TestUsecase_Query_Validation(t *testing.T) {
	from := time.Date(2024, 3, 4, 10, 0, 0, 0, testLocation)
	to := from.Add(-time.Hour)

	testCases := []struct {
		name  string
		req   candleDomain.QueryRequest
		field string
	}{
		{
			name:  "empty symbol",
			req:   candleDomain.QueryRequest{Symbol: "  ", Timeframe: timeframe.M1},
			field: "symbol",
		},
		{
			name:  "unsupported timeframe",
			req:   candleDomain.QueryRequest{Symbol: "PETR4", Timeframe: timeframe.Timeframe{Name: "3m"}},
			field: "timeframe",
		},
		{
			name:  "limit above ceiling",
			req:   candleDomain.QueryRequest{Symbol: "PETR4", Timeframe: timeframe.M1, Limit: candleDomain.MaxQueryLimit + 1},
			field: "limit",
		},
		{
			name:  "negative limit",
			req:   candleDomain.QueryRequest{Symbol: "PETR4", Timeframe: timeframe.M1, Limit: -1},
			field: "limit",
		},
		{
			name:  "from after to",
			req:   candleDomain.QueryRequest{Symbol: "PETR4", Timeframe: timeframe.M1, From: &from, To: &to},
			field: "from",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			uc, _, _ := newTestUsecase(t, ctrl)

			candles, err := uc.Query(context.Background(), tc.req)
			assert.Nil(t, candles)
			assert.True(t, errors.ErrorCodeEquals(err, errors.InvalidArgument))

			var details *errors.ErrorDetails
			assert.ErrorAs(t, err, &details)
			assert.Equal(t, tc.field, details.Field)
		})
	}
}

func TestUsecase_Query_MinuteFromMaterialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, _ := newTestUsecase(t, ctrl)

	from := time.Date(2024, 3, 4, 10, 0, 0, 0, testLocation)
	to := from.Add(5 * time.Minute)
	rows := candleDomain.List{
		minuteCandle(from, 10.10, 10.50, 10.05, 10.40, 300, 3),
		minuteCandle(from.Add(time.Minute), 10.40, 10.60, 10.35, 10.55, 200, 2),
	}

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter candleRepo.Filter) (candleDomain.List, error) {
			assert.Equal(t, "PETR4", filter.Symbol)
			assert.Equal(t, "B3", filter.Exchange)
			assert.False(t, filter.Descending)
			assert.True(t, filter.From.Equal(from))
			return rows, nil
		})

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "petr4",
		Exchange:  "b3",
		Timeframe: timeframe.M1,
		From:      &from,
		To:        &to,
		Limit:     100,
	})

	assert.NoError(t, err)
	assert.Len(t, candles, 2)
	assert.True(t, candles[0].Closed)
	assert.True(t, candles[1].Closed)
	assert.True(t, candles[0].BucketStart.Before(candles[1].BucketStart))
}

func TestUsecase_Query_MinuteFallsBackToTicks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, tickMock := newTestUsecase(t, ctrl)

	from := time.Date(2024, 3, 4, 10, 0, 0, 0, testLocation)
	to := from.Add(2 * time.Minute)

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		Return(candleDomain.List{}, nil)

	tickMock.EXPECT().
		AggregateMinute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter tickRepo.AggregateFilter) (candleDomain.List, error) {
			assert.Equal(t, "PETR4", filter.Symbol)
			assert.Equal(t, "America/Sao_Paulo", filter.Timezone)
			assert.True(t, filter.From.Equal(from))
			assert.True(t, filter.To.Equal(to))
			return candleDomain.List{
				minuteCandle(from, 100, 102, 100, 102, 300, 2),
			}, nil
		})

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "PETR4",
		Timeframe: timeframe.M1,
		From:      &from,
		To:        &to,
	})

	assert.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 102.0, candles[0].Close)
}

func TestUsecase_Query_BucketsCoarserTimeframe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, _ := newTestUsecase(t, ctrl)

	from := time.Date(2024, 3, 4, 10, 0, 0, 0, testLocation)
	to := from.Add(10 * time.Minute)
	rows := candleDomain.List{
		minuteCandle(from, 10.10, 10.50, 10.05, 10.40, 300, 3),
		minuteCandle(from.Add(time.Minute), 10.40, 10.60, 10.35, 10.55, 200, 2),
		minuteCandle(from.Add(4*time.Minute), 10.55, 10.70, 10.50, 10.65, 100, 1),
		minuteCandle(from.Add(5*time.Minute), 10.65, 10.80, 10.60, 10.75, 400, 4),
	}

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter candleRepo.Filter) (candleDomain.List, error) {
			// 5m buckets expand to a 1-minute read window.
			assert.Equal(t, 10*timeframe.M5.Minutes(), filter.Limit)
			return rows, nil
		})

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "PETR4",
		Exchange:  "B3",
		Timeframe: timeframe.M5,
		From:      &from,
		To:        &to,
		Limit:     10,
	})

	assert.NoError(t, err)
	assert.Len(t, candles, 2)

	first := candles[0]
	assert.Equal(t, timeframe.M5, first.Timeframe)
	assert.True(t, first.BucketStart.Equal(from))
	assert.Equal(t, 10.10, first.Open)
	assert.Equal(t, 10.70, first.High)
	assert.Equal(t, 10.05, first.Low)
	assert.Equal(t, 10.65, first.Close)
	assert.Equal(t, 600.0, first.Volume)
	assert.Equal(t, int64(6), first.TickCount)
	assert.True(t, first.Closed)

	second := candles[1]
	assert.True(t, second.BucketStart.Equal(from.Add(5*time.Minute)))
	assert.Equal(t, 10.65, second.Open)
	assert.Equal(t, int64(4), second.TickCount)
	// Bucket [10:05, 10:10) is still forming at 10:07.
	assert.False(t, second.Closed)
}

func TestUsecase_Query_DefaultsToMostRecentBuckets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, _ := newTestUsecase(t, ctrl)

	newest := time.Date(2024, 3, 4, 10, 6, 0, 0, testLocation)
	rows := candleDomain.List{
		minuteCandle(newest, 10.55, 10.70, 10.50, 10.65, 100, 1),
		minuteCandle(newest.Add(-time.Minute), 10.40, 10.60, 10.35, 10.55, 200, 2),
		minuteCandle(newest.Add(-2*time.Minute), 10.10, 10.50, 10.05, 10.40, 300, 3),
	}

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter candleRepo.Filter) (candleDomain.List, error) {
			assert.True(t, filter.Descending)
			assert.Nil(t, filter.From)
			assert.Equal(t, 2, filter.Limit)
			return rows[:2], nil
		})

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "PETR4",
		Timeframe: timeframe.M1,
		Limit:     2,
	})

	assert.NoError(t, err)
	assert.Len(t, candles, 2)
	assert.True(t, candles[0].BucketStart.Before(candles[1].BucketStart))
	assert.True(t, candles[1].BucketStart.Equal(newest))
}

func TestUsecase_Query_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, _ := newTestUsecase(t, ctrl)

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		Return(nil, pkgErrors.New("connection refused"))

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "PETR4",
		Timeframe: timeframe.M1,
		Limit:     10,
	})

	assert.Nil(t, candles)
	assert.True(t, errors.ErrorCodeEquals(err, errors.DataUnavailable))
}

func TestUsecase_Query_EmptyWindowIsNotAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, tickMock := newTestUsecase(t, ctrl)

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		Return(candleDomain.List{}, nil)
	tickMock.EXPECT().
		AggregateMinute(gomock.Any(), gomock.Any()).
		Return(candleDomain.List{}, nil)

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "ZZZZ99",
		Timeframe: timeframe.M1,
	})

	assert.NoError(t, err)
	assert.NotNil(t, candles)
	assert.Len(t, candles, 0)
}

// randomTicks walks a deterministic intraday price path, a few trades per
// minute, so aggregation properties can be checked over a realistic mix of
// up and down moves.
func randomTicks(start time.Time, window time.Duration) []tickDomain.Tick {
	rng := rand.New(rand.NewSource(42))
	price := 10.0

	var ticks []tickDomain.Tick
	for ts := start; ts.Before(start.Add(window)); ts = ts.Add(13 * time.Second) {
		price += (rng.Float64() - 0.5) * 0.2
		volume := float64(rng.Intn(90) + 10)
		ticks = append(ticks, tickDomain.Tick{
			Symbol:          "PETR4",
			Exchange:        "B3",
			Timestamp:       ts,
			Price:           price,
			Volume:          volume,
			FinancialVolume: price * volume,
		})
	}
	return ticks
}

// aggregateDirect folds ticks straight into candles of the given timeframe,
// independent of the query path under test.
func aggregateDirect(ticks []tickDomain.Tick, clock timeframe.Clock, tf timeframe.Timeframe) candleDomain.List {
	var out candleDomain.List
	for _, t := range ticks {
		start := clock.BucketStart(t.Timestamp, tf)
		if len(out) == 0 || !out[len(out)-1].BucketStart.Equal(start) {
			out = append(out, candleDomain.Candle{
				Symbol:          t.Symbol,
				Exchange:        t.Exchange,
				Timeframe:       tf,
				BucketStart:     start,
				Open:            t.Price,
				High:            t.Price,
				Low:             t.Price,
				Close:           t.Price,
				Volume:          t.Volume,
				FinancialVolume: t.FinancialVolume,
				TickCount:       1,
			})
			continue
		}

		last := &out[len(out)-1]
		if t.Price > last.High {
			last.High = t.Price
		}
		if t.Price < last.Low {
			last.Low = t.Price
		}
		last.Close = t.Price
		last.Volume += t.Volume
		last.FinancialVolume += t.FinancialVolume
		last.TickCount++
	}
	return out
}

func TestUsecase_Query_BucketingMatchesDirectTickAggregation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, _ := newTestUsecase(t, ctrl)
	clock := timeframe.NewClock(testLocation)

	from := time.Date(2024, 3, 4, 9, 0, 0, 0, testLocation)
	to := from.Add(30 * time.Minute)
	ticks := randomTicks(from, 30*time.Minute)

	minutes := aggregateDirect(ticks, clock, timeframe.M1)
	want := aggregateDirect(ticks, clock, timeframe.M5)

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		Return(minutes, nil)

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "PETR4",
		Exchange:  "B3",
		Timeframe: timeframe.M5,
		From:      &from,
		To:        &to,
		Limit:     100,
	})

	assert.NoError(t, err)
	require.Len(t, candles, len(want))

	// Grouping 1-minute candles must land on the same OHLCV as folding the
	// raw ticks over the same window. Prices are exact; volumes are sums
	// accumulated in a different order, so they get a tolerance.
	for i := range want {
		assert.True(t, candles[i].BucketStart.Equal(want[i].BucketStart))
		assert.Equal(t, want[i].Open, candles[i].Open)
		assert.Equal(t, want[i].High, candles[i].High)
		assert.Equal(t, want[i].Low, candles[i].Low)
		assert.Equal(t, want[i].Close, candles[i].Close)
		assert.InDelta(t, want[i].Volume, candles[i].Volume, 1e-9)
		assert.InDelta(t, want[i].FinancialVolume, candles[i].FinancialVolume, 1e-9)
		assert.Equal(t, want[i].TickCount, candles[i].TickCount)
	}
}

func TestUsecase_Query_CandleBoundsHoldForAllTimeframes(t *testing.T) {
	clock := timeframe.NewClock(testLocation)
	from := time.Date(2024, 3, 4, 6, 0, 0, 0, testLocation)
	to := from.Add(3 * time.Hour)
	ticks := randomTicks(from, 3*time.Hour)
	minutes := aggregateDirect(ticks, clock, timeframe.M1)

	for _, tf := range []timeframe.Timeframe{timeframe.M1, timeframe.M5, timeframe.M15, timeframe.M60} {
		t.Run(tf.Name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			uc, candleMock, _ := newTestUsecase(t, ctrl)
			rows := make(candleDomain.List, len(minutes))
			copy(rows, minutes)

			candleMock.EXPECT().
				GetRange(gomock.Any(), gomock.Any()).
				Return(rows, nil)

			candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
				Symbol:    "PETR4",
				Exchange:  "B3",
				Timeframe: tf,
				From:      &from,
				To:        &to,
				Limit:     candleDomain.MaxQueryLimit,
			})

			assert.NoError(t, err)
			require.NotEmpty(t, candles)

			for i, c := range candles {
				assert.GreaterOrEqual(t, c.High, c.Open)
				assert.GreaterOrEqual(t, c.High, c.Close)
				assert.LessOrEqual(t, c.Low, c.Open)
				assert.LessOrEqual(t, c.Low, c.Close)
				if i > 0 {
					assert.True(t, candles[i-1].BucketStart.Before(c.BucketStart))
				}
			}
		})
	}
}

func TestUsecase_Query_TrimsToLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, candleMock, _ := newTestUsecase(t, ctrl)

	from := time.Date(2024, 3, 4, 10, 0, 0, 0, testLocation)
	to := from.Add(4 * time.Minute)
	rows := candleDomain.List{
		minuteCandle(from, 10.10, 10.50, 10.05, 10.40, 300, 3),
		minuteCandle(from.Add(time.Minute), 10.40, 10.60, 10.35, 10.55, 200, 2),
		minuteCandle(from.Add(2*time.Minute), 10.55, 10.70, 10.50, 10.65, 100, 1),
	}

	candleMock.EXPECT().
		GetRange(gomock.Any(), gomock.Any()).
		Return(rows, nil)

	candles, err := uc.Query(context.Background(), candleDomain.QueryRequest{
		Symbol:    "PETR4",
		Timeframe: timeframe.M1,
		From:      &from,
		To:        &to,
		Limit:     2,
	})

	assert.NoError(t, err)
	assert.Len(t, candles, 2)
	// Most recent buckets win when the window produces more than limit.
	assert.True(t, candles[0].BucketStart.Equal(from.Add(time.Minute)))
}
