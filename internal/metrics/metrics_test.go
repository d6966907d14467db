package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCountersRegistered(t *testing.T) {
	TradesTotal.WithLabelValues("BTCUSDT").Inc()
	WhaleAlertsTotal.WithLabelValues("BTCUSDT", "BUY").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	want := map[string]bool{
		"whalewatch_trades_total":       false,
		"whalewatch_whale_alerts_total": false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s metric not found", name)
		}
	}
}
