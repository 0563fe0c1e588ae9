package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_BucketStart(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	clock := NewClock(sp)

	testCases := []struct {
		name      string
		timeframe Timeframe
		input     time.Time
		expected  time.Time
	}{
		{
			name:      "1m floors seconds",
			timeframe: M1,
			input:     time.Date(2025, 3, 10, 10, 0, 42, 998, sp),
			expected:  time.Date(2025, 3, 10, 10, 0, 0, 0, sp),
		},
		{
			name:      "5m floors minute to multiple of five",
			timeframe: M5,
			input:     time.Date(2025, 3, 10, 10, 7, 30, 0, sp),
			expected:  time.Date(2025, 3, 10, 10, 5, 0, 0, sp),
		},
		{
			name:      "15m floors minute to multiple of fifteen",
			timeframe: M15,
			input:     time.Date(2025, 3, 10, 10, 44, 59, 0, sp),
			expected:  time.Date(2025, 3, 10, 10, 30, 0, 0, sp),
		},
		{
			name:      "60m floors to the hour",
			timeframe: M60,
			input:     time.Date(2025, 3, 10, 10, 59, 59, 0, sp),
			expected:  time.Date(2025, 3, 10, 10, 0, 0, 0, sp),
		},
		{
			name:      "1d floors to local midnight",
			timeframe: D1,
			input:     time.Date(2025, 3, 10, 23, 59, 0, 0, sp),
			expected:  time.Date(2025, 3, 10, 0, 0, 0, 0, sp),
		},
		{
			name:      "1d on a UTC instant resolves to local calendar day",
			timeframe: D1,
			// 01:00 UTC is still the previous local day in Sao Paulo (UTC-3)
			input:    time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 3, 10, 0, 0, 0, 0, sp),
		},
		{
			name:      "1w floors to local Monday",
			timeframe: W1,
			input:     time.Date(2025, 3, 13, 15, 30, 0, 0, sp), // Thursday
			expected:  time.Date(2025, 3, 10, 0, 0, 0, 0, sp),   // Monday
		},
		{
			name:      "1w on a Sunday floors to the previous Monday",
			timeframe: W1,
			input:     time.Date(2025, 3, 16, 9, 0, 0, 0, sp),
			expected:  time.Date(2025, 3, 10, 0, 0, 0, 0, sp),
		},
		{
			name:      "1w on a Monday is itself",
			timeframe: W1,
			input:     time.Date(2025, 3, 10, 0, 0, 0, 0, sp),
			expected:  time.Date(2025, 3, 10, 0, 0, 0, 0, sp),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := clock.BucketStart(tc.input, tc.timeframe)
			assert.True(t, got.Equal(tc.expected), "got %v, want %v", got, tc.expected)
		})
	}
}

func TestClock_BucketStartIdempotent(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clock := NewClock(ny)

	instants := []time.Time{
		time.Date(2025, 3, 9, 6, 59, 59, 0, time.UTC),  // just before US DST spring forward
		time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC),   // just after
		time.Date(2025, 11, 2, 5, 30, 0, 0, time.UTC),  // fall back window
		time.Date(2025, 6, 15, 12, 34, 56, 0, time.UTC),
	}

	for _, tf := range All {
		for _, instant := range instants {
			first := clock.BucketStart(instant, tf)
			second := clock.BucketStart(first, tf)
			assert.True(t, second.Equal(first),
				"timeframe %s at %v: BucketStart not idempotent (%v != %v)", tf.Name, instant, second, first)
		}
	}
}

func TestClock_BucketStartMonotonic(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clock := NewClock(ny)

	// Walk across the spring-forward DST transition in 10-minute steps.
	start := time.Date(2025, 3, 9, 4, 0, 0, 0, time.UTC)
	for _, tf := range All {
		prev := clock.BucketStart(start, tf)
		for step := 1; step <= 60; step++ {
			instant := start.Add(time.Duration(step) * 10 * time.Minute)
			bucket := clock.BucketStart(instant, tf)
			assert.False(t, bucket.Before(prev),
				"timeframe %s: bucket start went backwards at %v", tf.Name, instant)
			prev = bucket
		}
	}
}

func TestClock_BucketStartAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clock := NewClock(ny)

	// 2025-03-09 02:00 local does not exist; local clocks jump to 03:00.
	// A tick at 03:07 local must bucket to 03:05, not to a UTC-derived offset.
	instant := time.Date(2025, 3, 9, 3, 7, 0, 0, ny)
	got := clock.BucketStart(instant, M5)
	assert.Equal(t, 3, got.In(ny).Hour())
	assert.Equal(t, 5, got.In(ny).Minute())

	// The local day boundary holds on the short day as well.
	dayStart := clock.BucketStart(instant, D1)
	assert.Equal(t, 0, dayStart.In(ny).Hour())
	assert.Equal(t, 9, dayStart.In(ny).Day())
}

func TestClock_SameBucket(t *testing.T) {
	clock := NewClock(time.UTC)

	a := time.Date(2025, 3, 10, 10, 0, 5, 0, time.UTC)
	b := time.Date(2025, 3, 10, 10, 0, 40, 0, time.UTC)
	c := time.Date(2025, 3, 10, 10, 1, 10, 0, time.UTC)

	assert.True(t, clock.SameBucket(a, b, M1))
	assert.False(t, clock.SameBucket(b, c, M1))
	assert.True(t, clock.SameBucket(a, c, M5))
}

func TestClock_Format(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	clock := NewClock(sp)

	// 18:30 UTC = 15:30 in Sao Paulo (UTC-3)
	instant := time.Date(2025, 7, 1, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "15:30", clock.FormatClock(instant))
	assert.Equal(t, "01 Jul 2025 15:30:00", clock.FormatLong(instant))
}

func TestParse(t *testing.T) {
	for _, name := range Names() {
		tf, err := Parse(name)
		assert.NoError(t, err)
		assert.Equal(t, name, tf.Name)
	}

	_, err := Parse("3m")
	assert.Error(t, err)
	assert.False(t, IsValid("3m"))
	assert.True(t, IsValid("1w"))
}
