// Package service coordinates the live trade pipeline: ring buffers, the
// execution classifier, whale alerting, persistence, and event fan-out.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/whalewatch/engine/internal/analytics"
	"github.com/whalewatch/engine/internal/domain"
	"github.com/whalewatch/engine/internal/metrics"
	"github.com/whalewatch/engine/internal/notify"
)

// Pub/sub channels carrying engine events to WebSocket clients.
const (
	ChannelWhaleAlert  = "whale_alert"
	ChannelExecution   = "institutional_execution"
	ChannelOrderBook   = "order_book"
	ChannelBullBear    = "bull_bear"
	ChannelHypeReality = "hype_reality"
)

// StreamWhaleAlerts is the durable Redis stream mirroring every published
// whale alert, for replay by offline consumers.
const StreamWhaleAlerts = "stream:whale_alerts"

// orderBookEmitInterval throttles depth broadcasts regardless of the
// upstream update rate.
const orderBookEmitInterval = time.Second

// instEvent tracks the 10s window volume behind one labeled execution, used
// to fold institutional activity into chart whale volume.
type instEvent struct {
	Timestamp time.Time
	Volume    float64
}

// StreamConfig sizes the in-memory state of the stream service.
type StreamConfig struct {
	Symbol         string
	TradeRingSize  int
	EventRingSize  int
	LookbackTrades int
}

// StreamService owns the recent-trade ring and drives every per-trade
// consumer: the execution detector, the whale engine, persistence, metrics,
// notifications, and the signal bus. All mutable state is guarded by one
// mutex; handlers are called from the single feed goroutine but snapshots
// are read by HTTP handlers concurrently.
type StreamService struct {
	cfg        StreamConfig
	detector   *analytics.ExecutionDetector
	whales     *analytics.WhaleEngine
	bus        domain.SignalBus
	whaleStore domain.WhaleTradeStore
	eventStore domain.ExecutionEventStore
	dispatcher *notify.AlertDispatcher
	tickers    *TickerService
	logger     *slog.Logger

	mu           sync.Mutex
	trades       []domain.Trade
	instEvents   []instEvent
	latestBook   *domain.OrderBookSnapshot
	lastBookEmit time.Time
	totalVolume  float64

	now func() time.Time
}

// NewStreamService creates a stream service. The stores and dispatcher may
// be nil; persistence and notifications are then skipped.
func NewStreamService(
	cfg StreamConfig,
	detector *analytics.ExecutionDetector,
	whales *analytics.WhaleEngine,
	bus domain.SignalBus,
	whaleStore domain.WhaleTradeStore,
	eventStore domain.ExecutionEventStore,
	dispatcher *notify.AlertDispatcher,
	logger *slog.Logger,
) *StreamService {
	if cfg.TradeRingSize <= 0 {
		cfg.TradeRingSize = 6000
	}
	if cfg.EventRingSize <= 0 {
		cfg.EventRingSize = 300
	}
	if cfg.LookbackTrades <= 0 {
		cfg.LookbackTrades = 50
	}
	return &StreamService{
		cfg:        cfg,
		detector:   detector,
		whales:     whales,
		bus:        bus,
		whaleStore: whaleStore,
		eventStore: eventStore,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "stream_service")),
		now:        time.Now,
	}
}

// SetTickerService attaches the ticker service used by the hype/reality
// computation. Called once during wiring, before the feed starts.
func (s *StreamService) SetTickerService(tickers *TickerService) {
	s.tickers = tickers
}

// HandleTrade processes one live trade end to end: ring append, classifier
// ingest and evaluation, whale classification, persistence, and fan-out.
func (s *StreamService) HandleTrade(ctx context.Context, trade domain.Trade) {
	metrics.TradesTotal.WithLabelValues(s.cfg.Symbol).Inc()

	s.mu.Lock()
	s.trades = append(s.trades, trade)
	if len(s.trades) > s.cfg.TradeRingSize {
		s.trades = s.trades[len(s.trades)-s.cfg.TradeRingSize:]
	}
	s.totalVolume += trade.Value
	snapshot := make([]domain.Trade, len(s.trades))
	copy(snapshot, s.trades)
	s.mu.Unlock()

	if s.detector != nil {
		if err := s.detector.IngestTrade(trade.Price, trade.Quantity, trade.IsBuyerMaker, trade.Timestamp.UnixMilli()); err != nil {
			s.logger.WarnContext(ctx, "detector rejected trade",
				slog.Int64("trade_id", trade.TradeID),
				slog.String("error", err.Error()))
		} else if event := s.detector.MaybeEvaluate(); event != nil {
			s.handleExecutionEvent(ctx, *event, trade, snapshot)
		}
	}

	if s.whales.IsWhale(trade.Value) {
		s.handleWhaleTrade(ctx, trade, snapshot)
	}
}

// handleExecutionEvent records, persists, and broadcasts a labeled
// institutional pattern, plus the synthetic whale alert the dashboard shows
// for it.
func (s *StreamService) handleExecutionEvent(ctx context.Context, event domain.ExecutionEvent, trade domain.Trade, trades []domain.Trade) {
	metrics.ExecutionEventsTotal.WithLabelValues(s.cfg.Symbol, string(event.Label)).Inc()

	s.mu.Lock()
	s.instEvents = append(s.instEvents, instEvent{
		Timestamp: event.Timestamp,
		Volume:    event.Features.Notional10s,
	})
	if len(s.instEvents) > s.cfg.EventRingSize {
		s.instEvents = s.instEvents[len(s.instEvents)-s.cfg.EventRingSize:]
	}
	s.mu.Unlock()

	sentiment := s.whales.BullBearPower(trades, false)
	alert := domain.WhaleAlert{
		Type:            "whale_alert",
		TradeID:         event.Timestamp.UnixMilli(),
		Timestamp:       event.Timestamp,
		Price:           trade.Price,
		Quantity:        trade.Quantity,
		Value:           event.Features.Notional10s,
		IsBuy:           event.Side == domain.SideBuy,
		WhaleScore:      float64(event.Score) / 100.0,
		Sentiment:       sentiment.BullPower,
		SimilarPatterns: []domain.SimilarPattern{},
		Label:           string(event.Label),
	}
	s.whales.Record(alert)

	if s.eventStore != nil {
		if err := s.eventStore.Insert(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "persist execution event failed", slog.String("error", err.Error()))
		}
	}
	if s.whaleStore != nil {
		if err := s.whaleStore.Insert(ctx, alert); err != nil {
			s.logger.ErrorContext(ctx, "persist execution alert failed", slog.String("error", err.Error()))
		}
	}

	s.publish(ctx, ChannelWhaleAlert, alert)
	s.publish(ctx, ChannelExecution, event)

	if s.dispatcher != nil {
		if err := s.dispatcher.ExecutionEvent(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "execution notification failed", slog.String("error", err.Error()))
		} else {
			metrics.NotificationsTotal.WithLabelValues(ChannelExecution).Inc()
		}
	}

	s.logger.InfoContext(ctx, "institutional execution detected",
		slog.String("label", string(event.Label)),
		slog.String("side", string(event.Side)),
		slog.Int("score", event.Score))
}

// handleWhaleTrade classifies a threshold-crossing trade into a whale alert
// and fans it out.
func (s *StreamService) handleWhaleTrade(ctx context.Context, trade domain.Trade, trades []domain.Trade) {
	side := "SELL"
	if trade.IsBuy {
		side = "BUY"
	}
	metrics.WhaleAlertsTotal.WithLabelValues(s.cfg.Symbol, side).Inc()

	sentiment := s.whales.BullBearPower(trades, true)
	patterns := s.whales.SimilarPatterns(trade.Value, trade.IsBuy, trades[:len(trades)-1], s.cfg.LookbackTrades)
	if patterns == nil {
		patterns = []domain.SimilarPattern{}
	}

	alert := domain.WhaleAlert{
		Type:            "whale_alert",
		TradeID:         trade.TradeID,
		Timestamp:       trade.Timestamp,
		Price:           trade.Price,
		Quantity:        trade.Quantity,
		Value:           trade.Value,
		IsBuy:           trade.IsBuy,
		WhaleScore:      s.whales.Score(trade.Value),
		Sentiment:       sentiment.BullPower,
		SimilarPatterns: patterns,
	}
	s.whales.Record(alert)

	if s.whaleStore != nil {
		if err := s.whaleStore.Insert(ctx, alert); err != nil {
			s.logger.ErrorContext(ctx, "persist whale alert failed", slog.String("error", err.Error()))
		}
	}

	s.publish(ctx, ChannelWhaleAlert, alert)

	if s.dispatcher != nil {
		if err := s.dispatcher.WhaleAlert(ctx, alert); err != nil {
			s.logger.WarnContext(ctx, "whale notification failed", slog.String("error", err.Error()))
		} else {
			metrics.NotificationsTotal.WithLabelValues(ChannelWhaleAlert).Inc()
		}
	}

	s.logger.InfoContext(ctx, "whale trade detected",
		slog.Int64("trade_id", trade.TradeID),
		slog.String("side", side),
		slog.Float64("value", trade.Value))
}

// HandleDepth stores the latest order book snapshot and rebroadcasts it at
// most once per second.
func (s *StreamService) HandleDepth(ctx context.Context, snap domain.OrderBookSnapshot) {
	s.mu.Lock()
	s.latestBook = &snap
	now := s.now()
	emit := now.Sub(s.lastBookEmit) >= orderBookEmitInterval
	if emit {
		s.lastBookEmit = now
	}
	s.mu.Unlock()

	if emit {
		s.publish(ctx, ChannelOrderBook, map[string]any{
			"type": ChannelOrderBook,
			"data": snap,
		})
	}
}

// publish marshals a payload onto a bus channel, logging failures instead of
// interrupting the trade pipeline. Whale alerts are additionally appended to
// the durable alert stream.
func (s *StreamService) publish(ctx context.Context, channel string, payload any) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
	}
	if channel == ChannelWhaleAlert {
		if err := s.bus.StreamAppend(ctx, StreamWhaleAlerts, data); err != nil {
			s.logger.WarnContext(ctx, "stream append failed",
				slog.String("stream", StreamWhaleAlerts),
				slog.String("error", err.Error()))
		}
	}
}

// RecentTrades returns a copy of the trade ring, oldest first.
func (s *StreamService) RecentTrades() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// LatestWhales returns the most recent whale alerts in chronological order.
func (s *StreamService) LatestWhales(count int) []domain.WhaleAlert {
	return s.whales.Latest(count)
}

// LatestOrderBook returns the most recent depth snapshot, or nil before the
// first depth frame arrives.
func (s *StreamService) LatestOrderBook() *domain.OrderBookSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestBook == nil {
		return nil
	}
	book := *s.latestBook
	return &book
}

// BullBear summarizes buy/sell imbalance over the whole trade ring.
func (s *StreamService) BullBear() domain.SentimentMetrics {
	return s.whales.BullBearPower(s.RecentTrades(), false)
}

// Statistics aggregates the trade ring into the dashboard statistics view.
// volume24h comes from the exchange ticker when available; the ring total is
// the fallback.
func (s *StreamService) Statistics(volume24h *float64) domain.Statistics {
	trades := s.RecentTrades()

	s.mu.Lock()
	sinceStart := s.totalVolume
	s.mu.Unlock()

	var total float64
	whaleCount := 0
	for _, t := range trades {
		total += t.Value
		if s.whales.IsWhale(t.Value) {
			whaleCount++
		}
	}

	vol24 := total
	if volume24h != nil {
		vol24 = *volume24h
	}

	avg := 0.0
	if len(trades) > 0 {
		avg = total / float64(len(trades))
	}

	return domain.Statistics{
		TotalTrades:           len(trades),
		TotalVolume24h:        vol24,
		TotalVolumeSinceStart: sinceStart,
		TotalWhaleTrades:      whaleCount,
		AverageTradeValue:     avg,
		Timestamp:             s.now().UTC(),
	}
}

// instEventsSnapshot copies the institutional event ring for chart building.
func (s *StreamService) instEventsSnapshot() []instEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]instEvent, len(s.instEvents))
	copy(out, s.instEvents)
	return out
}
