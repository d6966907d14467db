package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStream struct {
	stats   domain.Statistics
	book    *domain.OrderBookSnapshot
	bull    domain.SentimentMetrics
	hype    *domain.HypeRealityMetrics
	chart   []domain.ChartBucket
	gotMins int
	gotIntv time.Duration
}

func (f *fakeStream) Statistics(volume24h *float64) domain.Statistics {
	if volume24h != nil {
		f.stats.TotalVolume24h = *volume24h
	}
	return f.stats
}

func (f *fakeStream) LatestOrderBook() *domain.OrderBookSnapshot { return f.book }

func (f *fakeStream) BullBear() domain.SentimentMetrics { return f.bull }

func (f *fakeStream) HypeReality(ctx context.Context) *domain.HypeRealityMetrics { return f.hype }

func (f *fakeStream) BuildChart(minutes int, interval time.Duration) []domain.ChartBucket {
	f.gotMins = minutes
	f.gotIntv = interval
	return f.chart
}

type fakeTickers struct {
	snap     *domain.TickerSnapshot
	err      error
	fallback []domain.ChartBucket
}

func (f *fakeTickers) Get(ctx context.Context) (*domain.TickerSnapshot, error) {
	return f.snap, f.err
}

func (f *fakeTickers) Volume24h(ctx context.Context) *float64 {
	if f.snap == nil {
		return nil
	}
	return &f.snap.QuoteVolume
}

func (f *fakeTickers) FallbackChart(ctx context.Context, minutes int) ([]domain.ChartBucket, error) {
	return f.fallback, nil
}

type fakeWhaleFeed struct {
	alerts []domain.WhaleAlert
	got    int
}

func (f *fakeWhaleFeed) LatestWhales(count int) []domain.WhaleAlert {
	f.got = count
	if count < len(f.alerts) {
		return f.alerts[len(f.alerts)-count:]
	}
	return f.alerts
}

type fakeEventStore struct {
	events   []domain.ExecutionEvent
	gotLimit int
	err      error
}

func (f *fakeEventStore) Insert(ctx context.Context, event domain.ExecutionEvent) error { return nil }

func (f *fakeEventStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionEvent, error) {
	f.gotLimit = limit
	return f.events, f.err
}

func (f *fakeEventStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.ExecutionEvent, error) {
	return nil, nil
}

func (f *fakeEventStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestGetTicker(t *testing.T) {
	h := NewMarketHandler(&fakeStream{}, &fakeTickers{snap: &domain.TickerSnapshot{
		LastPrice:          100_000,
		PriceChangePercent: 2.5,
		QuoteVolume:        1e9,
	}}, testLogger())

	rec := httptest.NewRecorder()
	h.GetTicker(rec, httptest.NewRequest(http.MethodGet, "/api/bitcoin", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	data := body["data"].(map[string]any)
	if data["price"] != 100_000.0 {
		t.Errorf("price = %v, want 100000", data["price"])
	}
}

func TestGetTickerUpstreamDown(t *testing.T) {
	h := NewMarketHandler(&fakeStream{}, &fakeTickers{err: errors.New("down")}, testLogger())

	rec := httptest.NewRecorder()
	h.GetTicker(rec, httptest.NewRequest(http.MethodGet, "/api/bitcoin", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if body := decodeBody(t, rec); body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestGetChartClampsAndFallsBack(t *testing.T) {
	stream := &fakeStream{} // nil chart forces fallback
	tickers := &fakeTickers{fallback: []domain.ChartBucket{{Close: 100}}}
	h := NewMarketHandler(stream, tickers, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chart-data?minutes=5000&interval_seconds=1", nil)
	h.GetChart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stream.gotMins != 1440 {
		t.Errorf("minutes = %d, want clamped 1440", stream.gotMins)
	}
	if stream.gotIntv != 5*time.Second {
		t.Errorf("interval = %v, want clamped 5s", stream.gotIntv)
	}

	body := decodeBody(t, rec)
	if body["period_minutes"] != 1440.0 {
		t.Errorf("period_minutes = %v, want 1440", body["period_minutes"])
	}
	data := body["data"].([]any)
	if len(data) != 1 {
		t.Errorf("fallback data length = %d, want 1", len(data))
	}
}

func TestGetOrderBookBeforeFirstSnapshot(t *testing.T) {
	h := NewMarketHandler(&fakeStream{}, &fakeTickers{}, testLogger())

	rec := httptest.NewRecorder()
	h.GetOrderBook(rec, httptest.NewRequest(http.MethodGet, "/api/order-book", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGetMetricsOmitsHypeWhenUnavailable(t *testing.T) {
	h := NewMarketHandler(&fakeStream{bull: domain.SentimentMetrics{BullPower: 0.4}}, &fakeTickers{}, testLogger())

	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	body := decodeBody(t, rec)
	if _, ok := body["bull_bear_metrics"]; !ok {
		t.Error("bull_bear_metrics missing")
	}
	if _, ok := body["hype_reality_metrics"]; ok {
		t.Error("hype_reality_metrics present, want omitted when nil")
	}
}

func TestListWhaleTradesClampsLimit(t *testing.T) {
	feed := &fakeWhaleFeed{alerts: []domain.WhaleAlert{{TradeID: 1}, {TradeID: 2}}}
	h := NewWhaleHandler(feed, nil, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/whale-trades?limit=500", nil)
	h.ListWhaleTrades(rec, req)

	if feed.got != 50 {
		t.Errorf("limit passed to feed = %d, want clamped 50", feed.got)
	}
	body := decodeBody(t, rec)
	if body["count"] != 2.0 {
		t.Errorf("count = %v, want 2", body["count"])
	}
}

func TestListExecutionsClampsLimit(t *testing.T) {
	store := &fakeEventStore{events: []domain.ExecutionEvent{{Score: 80}}}
	h := NewExecutionHandler(store, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/executions?limit=9999", nil)
	h.ListExecutions(rec, req)

	if store.gotLimit != 50 {
		t.Errorf("limit passed to store = %d, want clamped 50", store.gotLimit)
	}
	body := decodeBody(t, rec)
	if body["count"] != 1.0 {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestListExecutionsStoreError(t *testing.T) {
	h := NewExecutionHandler(&fakeEventStore{err: errors.New("down")}, testLogger())

	rec := httptest.NewRecorder()
	h.ListExecutions(rec, httptest.NewRequest(http.MethodGet, "/api/executions", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestListWhaleTradesEmptyIsArray(t *testing.T) {
	h := NewWhaleHandler(&fakeWhaleFeed{}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ListWhaleTrades(rec, httptest.NewRequest(http.MethodGet, "/api/whale-trades", nil))

	var body struct {
		Data []domain.WhaleAlert `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data == nil {
		t.Error("data = null, want []")
	}
}
