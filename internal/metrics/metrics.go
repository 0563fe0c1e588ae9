// Package metrics holds the Prometheus instrumentation for the market-data
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the candle pipeline.
type Metrics struct {
	TicksTotal    prometheus.Counter
	LateTicks     prometheus.Counter
	CandlesClosed *prometheus.CounterVec // labels: timeframe

	BroadcastsTotal prometheus.Counter
	SendFailures    prometheus.Counter

	ActiveConnections   prometheus.Gauge
	ActiveSubscriptions prometheus.Gauge

	QueryDuration prometheus.Histogram
}

// NewMetrics registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketdata_ticks_total",
			Help: "Total ticks consumed from the feed",
		}),
		LateTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketdata_late_ticks_total",
			Help: "Ticks dropped because their bucket had already closed",
		}),
		CandlesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdata_candles_closed_total",
			Help: "Candles closed per timeframe",
		}, []string{"timeframe"}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketdata_broadcasts_total",
			Help: "Candle updates delivered to subscribers",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketdata_send_failures_total",
			Help: "Subscriber deliveries that failed and dropped the subscriber",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketdata_active_connections",
			Help: "Open streaming connections",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketdata_active_subscriptions",
			Help: "Live candle subscriptions across all connections",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketdata_query_duration_seconds",
			Help:    "Historical candle query latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.LateTicks,
		m.CandlesClosed,
		m.BroadcastsTotal,
		m.SendFailures,
		m.ActiveConnections,
		m.ActiveSubscriptions,
		m.QueryDuration,
	)

	return m
}
