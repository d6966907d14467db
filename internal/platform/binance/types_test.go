package binance

import (
	"testing"
)

func TestTradeToDomain(t *testing.T) {
	msg := &tradeMessage{
		EventType:    "trade",
		Symbol:       "BTCUSDT",
		TradeID:      42,
		Price:        "65000.50",
		Quantity:     "2",
		TradeTime:    1_700_000_000_123,
		IsBuyerMaker: true,
	}

	trade := TradeToDomain(msg)
	if trade.TradeID != 42 {
		t.Errorf("trade id = %d", trade.TradeID)
	}
	if trade.Value != 131001.0 {
		t.Errorf("value = %v, want 131001", trade.Value)
	}
	if trade.IsBuy {
		t.Error("buyer-maker trade must be a sell aggressor")
	}
	if trade.Timestamp.UnixMilli() != 1_700_000_000_123 {
		t.Errorf("timestamp = %v", trade.Timestamp)
	}
}

func TestDepthToDomain(t *testing.T) {
	msg := &depthMessage{
		LastUpdateID: 9001,
		Bids:         [][]string{{"64999.5", "1.5"}, {"64999.0", "2"}},
		Asks:         [][]string{{"65000.5", "0.7"}, {"bad"}},
	}

	snap := DepthToDomain(msg)
	if snap.LastUpdateID != 9001 {
		t.Errorf("last update id = %d", snap.LastUpdateID)
	}
	if len(snap.Bids) != 2 || snap.Bids[0].Price != 64999.5 || snap.Bids[1].Quantity != 2 {
		t.Errorf("bids = %+v", snap.Bids)
	}
	// Short rows are dropped rather than producing zero levels.
	if len(snap.Asks) != 1 || snap.Asks[0].Quantity != 0.7 {
		t.Errorf("asks = %+v", snap.Asks)
	}
}
