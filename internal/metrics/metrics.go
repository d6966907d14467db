// Package metrics exposes Prometheus counters and gauges for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whalewatch_trades_total", Help: "Count of exchange trades ingested"},
		[]string{"symbol"},
	)
	WhaleAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whalewatch_whale_alerts_total", Help: "Whale alerts emitted"},
		[]string{"symbol", "side"},
	)
	ExecutionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whalewatch_execution_events_total", Help: "Labeled institutional execution events emitted"},
		[]string{"symbol", "label"},
	)
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whalewatch_notifications_total", Help: "Operator notifications dispatched"},
		[]string{"event"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "whalewatch_ws_clients", Help: "Connected WebSocket clients"},
	)
	FeedReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "whalewatch_feed_reconnects_total", Help: "Exchange feed reconnect attempts"},
	)
)

func init() {
	prometheus.MustRegister(
		TradesTotal,
		WhaleAlertsTotal,
		ExecutionEventsTotal,
		NotificationsTotal,
		WSClients,
		FeedReconnectsTotal,
	)
}
