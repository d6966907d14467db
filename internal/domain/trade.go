package domain

import (
	"math"
	"time"
)

// Side is the aggressor side of a trade: BUY when the taker crossed the
// spread upward (the maker was the seller), SELL otherwise.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeObservation is a single validated trade as consumed by the analytics
// engine. It is immutable once created via NewTradeObservation.
type TradeObservation struct {
	Timestamp   float64 // seconds since epoch, monotonic non-decreasing per ingest order
	Price       float64
	Quantity    float64
	Side        Side
	Notional    float64 // Price * Quantity, USD
	Signed      float64 // +Notional for BUY, -Notional for SELL
	LogNotional float64 // ln(Notional)
	Bucket      int     // discretized magnitude bucket: floor(log10(Notional)/0.25)
}

// NewTradeObservation derives all trade features from the raw fill. The caller
// must have validated price > 0 and quantity > 0.
func NewTradeObservation(price, quantity float64, isBuyerMaker bool, tsMillis int64) TradeObservation {
	notional := price * quantity
	side := SideBuy
	signed := notional
	if isBuyerMaker {
		side = SideSell
		signed = -notional
	}
	return TradeObservation{
		Timestamp:   float64(tsMillis) / 1000.0,
		Price:       price,
		Quantity:    quantity,
		Side:        side,
		Notional:    notional,
		Signed:      signed,
		LogNotional: math.Log(notional),
		Bucket:      int(math.Floor(math.Log10(notional) / 0.25)),
	}
}

// Trade is the parsed form of a raw exchange fill, kept in the recent-trade
// ring and handed to the whale/sentiment queries.
type Trade struct {
	TradeID      int64
	Timestamp    time.Time
	Price        float64
	Quantity     float64
	Value        float64 // notional, USD
	IsBuy        bool
	IsBuyerMaker bool
}

// SimilarPattern is one prior whale trade matched against a new whale trade
// by notional proximity.
type SimilarPattern struct {
	TradeID    int64   `json:"trade_id"`
	Timestamp  string  `json:"timestamp"`
	Price      float64 `json:"price"`
	Value      float64 `json:"value"`
	IsBuy      bool    `json:"is_buy"`
	Similarity float64 `json:"similarity_score"`
}

// WhaleAlert is a classified whale event, appended to the bounded alert
// history and broadcast to subscribed clients.
type WhaleAlert struct {
	Type            string           `json:"type"` // always "whale_alert"
	AlertID         string           `json:"alert_id,omitempty"`
	TradeID         int64            `json:"trade_id"`
	Timestamp       time.Time        `json:"timestamp"`
	Price           float64          `json:"price"`
	Quantity        float64          `json:"quantity"`
	Value           float64          `json:"trade_value"`
	IsBuy           bool             `json:"is_buy"`
	WhaleScore      float64          `json:"whale_score"`
	Sentiment       float64          `json:"bull_bear_sentiment"`
	SimilarPatterns []SimilarPattern `json:"similar_patterns"`
	Label           string           `json:"label,omitempty"`
}
