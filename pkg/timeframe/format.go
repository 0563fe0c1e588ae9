package timeframe

import "time"

// Presentation formatters for the consumption boundary. Bucketing logic
// never goes through these; keeping display and aggregation separate avoids
// off-by-one-bucket disagreements about the local offset.

// FormatClock renders an instant as exchange-local HH:mm.
func (c Clock) FormatClock(t time.Time) string {
	return t.In(c.loc).Format("15:04")
}

// FormatLong renders an instant as a long-form exchange-local date-time.
func (c Clock) FormatLong(t time.Time) string {
	return t.In(c.loc).Format("02 Jan 2006 15:04:05")
}
