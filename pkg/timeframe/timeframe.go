// Package timeframe maps absolute instants to candle buckets in an
// exchange's local calendar. Bucket boundaries follow the local trading
// session, so sub-day alignment is done on local wall-clock components
// rather than on the UTC instant.
package timeframe

import (
	"encoding/json"
	"fmt"
	"time"
)

type unit int

const (
	unitMinute unit = iota
	unitHour
	unitDay
	unitWeek
)

// Timeframe represents a candle interval.
type Timeframe struct {
	Name     string
	Interval time.Duration

	unit  unit
	count int
}

// Supported timeframes.
var (
	M1  = Timeframe{Name: "1m", Interval: time.Minute, unit: unitMinute, count: 1}
	M5  = Timeframe{Name: "5m", Interval: 5 * time.Minute, unit: unitMinute, count: 5}
	M15 = Timeframe{Name: "15m", Interval: 15 * time.Minute, unit: unitMinute, count: 15}
	M60 = Timeframe{Name: "60m", Interval: time.Hour, unit: unitHour, count: 1}
	D1  = Timeframe{Name: "1d", Interval: 24 * time.Hour, unit: unitDay, count: 1}
	W1  = Timeframe{Name: "1w", Interval: 7 * 24 * time.Hour, unit: unitWeek, count: 1}
)

// All lists every supported timeframe.
var All = []Timeframe{M1, M5, M15, M60, D1, W1}

var registry = make(map[string]Timeframe)

func init() {
	for _, tf := range All {
		registry[tf.Name] = tf
	}
}

// Parse returns a timeframe by name.
func Parse(name string) (Timeframe, error) {
	tf, exists := registry[name]
	if !exists {
		return Timeframe{}, fmt.Errorf("unsupported timeframe: %s", name)
	}
	return tf, nil
}

// IsValid checks if a timeframe name is supported.
func IsValid(name string) bool {
	_, exists := registry[name]
	return exists
}

// Names returns all supported timeframe names.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, tf := range All {
		names = append(names, tf.Name)
	}
	return names
}

// Minutes returns the number of 1-minute buckets per bucket of this timeframe.
func (tf Timeframe) Minutes() int {
	return int(tf.Interval / time.Minute)
}

// MarshalJSON encodes the timeframe as its name.
func (tf Timeframe) MarshalJSON() ([]byte, error) {
	return json.Marshal(tf.Name)
}

// UnmarshalJSON resolves the timeframe from its name.
func (tf *Timeframe) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := Parse(name)
	if err != nil {
		return err
	}
	*tf = parsed
	return nil
}
