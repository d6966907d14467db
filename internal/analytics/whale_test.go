package analytics

import (
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

func TestWhaleScoreBands(t *testing.T) {
	e := NewWhaleEngine(0, 0)
	ceiling := DefaultWhaleThreshold * scoreCeilingMultiple

	if s := e.Score(DefaultWhaleThreshold - 1); s != 0 {
		t.Fatalf("below-threshold trade scored %v, want 0", s)
	}
	if s := e.Score(DefaultWhaleThreshold); s != 0.1 {
		t.Fatalf("threshold trade scored %v, want 0.1", s)
	}
	if s := e.Score(ceiling); s != 1.0 {
		t.Fatalf("ceiling trade scored %v, want 1.0", s)
	}
	if s := e.Score(ceiling * 10); s != 1.0 {
		t.Fatalf("above-ceiling trade scored %v, want 1.0", s)
	}

	// Monotone over the whale range.
	prev := 0.0
	for v := DefaultWhaleThreshold; v <= ceiling; v += 100_000 {
		s := e.Score(v)
		if s < prev {
			t.Fatalf("score decreased at %v: %v < %v", v, s, prev)
		}
		prev = s
	}
}

func TestWhaleEngineCustomThreshold(t *testing.T) {
	e := NewWhaleEngine(100_000, 0)
	if !e.IsWhale(100_000) {
		t.Error("trade at custom threshold not classified as whale")
	}
	if e.IsWhale(99_999) {
		t.Error("trade below custom threshold classified as whale")
	}
	if s := e.Score(1_000_000); s != 1.0 {
		t.Errorf("score at 10x custom threshold = %v, want 1.0", s)
	}
}

func TestSimilarPatternsRanksByCloseness(t *testing.T) {
	e := NewWhaleEngine(0, 0)
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := []domain.Trade{
		{TradeID: 1, Timestamp: ts, Price: 100, Value: 600_000, IsBuy: true},
		{TradeID: 2, Timestamp: ts.Add(time.Second), Price: 100, Value: 590_000, IsBuy: true},
		{TradeID: 3, Timestamp: ts.Add(2 * time.Second), Price: 100, Value: 5_000_000, IsBuy: true},
		{TradeID: 4, Timestamp: ts.Add(3 * time.Second), Price: 100, Value: 600_000, IsBuy: false}, // wrong side
		{TradeID: 5, Timestamp: ts.Add(4 * time.Second), Price: 100, Value: 100_000, IsBuy: true},  // not a whale
	}

	got := e.SimilarPatterns(600_000, true, recent, defaultLookback)
	if len(got) != 3 {
		t.Fatalf("want 3 matches, got %d", len(got))
	}
	if got[0].Value != 600_000 || got[1].Value != 590_000 {
		t.Fatalf("closest values should rank first, got %v then %v", got[0].Value, got[1].Value)
	}
	if got[2].Value != 5_000_000 {
		t.Fatalf("distant value should rank last, got %v", got[2].Value)
	}
	if got[0].Similarity != 1.0 {
		t.Fatalf("exact match similarity = %v, want 1.0", got[0].Similarity)
	}
	if got[1].Similarity <= got[2].Similarity {
		t.Fatalf("similarity ordering broken: %v <= %v", got[1].Similarity, got[2].Similarity)
	}
}

func TestBullBearPower(t *testing.T) {
	e := NewWhaleEngine(0, 0)

	m := e.BullBearPower(nil, true)
	if m.NetBuyVolume != 0 || m.NetSellVolume != 0 || m.BullPower != 0 || m.Momentum != 0 {
		t.Fatalf("empty input should produce zeros, got %+v", m)
	}

	trades := []domain.Trade{
		{Value: 600_000, IsBuy: true},
		{Value: 700_000, IsBuy: true},
		{Value: 100_000, IsBuy: false}, // below threshold, ignored in whale mode
	}
	m = e.BullBearPower(trades, true)
	if m.BullPower != 1.0 {
		t.Fatalf("all-buy whale flow bull power = %v, want 1.0", m.BullPower)
	}
	if m.NetBuyVolume != 1_300_000 || m.NetSellVolume != 0 {
		t.Fatalf("whale volumes wrong: %+v", m)
	}

	// Mixed flow without the whale filter.
	trades = []domain.Trade{
		{Value: 300_000, IsBuy: true},
		{Value: 100_000, IsBuy: false},
	}
	m = e.BullBearPower(trades, false)
	if m.BullPower != 0.5 {
		t.Fatalf("bull power = %v, want 0.5", m.BullPower)
	}
	if m.Momentum <= 0 || m.Momentum > 1 {
		t.Fatalf("momentum out of range: %v", m.Momentum)
	}
}

func TestWhaleEngineHistoryCap(t *testing.T) {
	e := NewWhaleEngine(0, 0)
	for i := 0; i < defaultAlertHistory+50; i++ {
		e.Record(domain.WhaleAlert{TradeID: int64(i)})
	}
	all := e.Latest(defaultAlertHistory + 100)
	if len(all) != defaultAlertHistory {
		t.Fatalf("history length = %d, want %d", len(all), defaultAlertHistory)
	}
	if all[0].TradeID != 50 {
		t.Fatalf("oldest surviving alert = %d, want 50", all[0].TradeID)
	}
	if all[len(all)-1].TradeID != int64(defaultAlertHistory+49) {
		t.Fatalf("newest alert = %d, want %d", all[len(all)-1].TradeID, defaultAlertHistory+49)
	}

	recent := e.Latest(10)
	if len(recent) != 10 || recent[0].TradeID != int64(defaultAlertHistory+40) {
		t.Fatalf("Latest(10) window wrong: len=%d first=%d", len(recent), recent[0].TradeID)
	}
}
