package timeframe

import "time"

// Clock computes bucket boundaries in a fixed exchange-local timezone.
// BucketStart is pure and idempotent: BucketStart(BucketStart(t, tf), tf)
// equals BucketStart(t, tf) for every supported timeframe.
type Clock struct {
	loc *time.Location
}

// NewClock creates a clock anchored to the given exchange timezone.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc}
}

// Location returns the clock's timezone.
func (c Clock) Location() *time.Location {
	return c.loc
}

// BucketStart returns the start of the bucket enclosing t for the given
// timeframe. Sub-day buckets floor the local minute (or hour) component to a
// multiple of the timeframe's unit count and zero the smaller fields, so
// daylight-saving transitions never shift boundaries relative to the local
// session structure. Day buckets floor to local midnight, week buckets to
// the local start of the ISO week (Monday).
func (c Clock) BucketStart(t time.Time, tf Timeframe) time.Time {
	lt := t.In(c.loc)

	switch tf.unit {
	case unitMinute:
		minute := lt.Minute() - lt.Minute()%tf.count
		return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), minute, 0, 0, c.loc)
	case unitHour:
		hour := lt.Hour() - lt.Hour()%tf.count
		return time.Date(lt.Year(), lt.Month(), lt.Day(), hour, 0, 0, 0, c.loc)
	case unitDay:
		return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	case unitWeek:
		days := (int(lt.Weekday()) + 6) % 7 // Monday = 0
		monday := lt.AddDate(0, 0, -days)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, c.loc)
	default:
		return lt.Truncate(tf.Interval)
	}
}

// BucketEnd returns the exclusive end of the bucket enclosing t.
// Day and week buckets end at the next local midnight / Monday, which may
// not be exactly Interval away across a daylight-saving transition.
func (c Clock) BucketEnd(t time.Time, tf Timeframe) time.Time {
	start := c.BucketStart(t, tf)
	switch tf.unit {
	case unitDay:
		return start.AddDate(0, 0, 1)
	case unitWeek:
		return start.AddDate(0, 0, 7)
	default:
		return start.Add(tf.Interval)
	}
}

// SameBucket reports whether a and b fall into the same bucket.
func (c Clock) SameBucket(a, b time.Time, tf Timeframe) bool {
	return c.BucketStart(a, tf).Equal(c.BucketStart(b, tf))
}
