package domain

import "time"

// ExecutionLabel classifies an institutional execution pattern.
type ExecutionLabel string

const (
	// LabelStrong is emitted when the composite score has held above the
	// strong threshold for three consecutive evaluations.
	LabelStrong ExecutionLabel = "STRONG"
	// LabelLikely is emitted when the composite score has held above the
	// likely threshold for five consecutive evaluations.
	LabelLikely ExecutionLabel = "LIKELY"
	// LabelLargeTradeOnly marks an outsized single print with no slicing,
	// absorption, aggression, or impact signature. It does not depend on
	// streaks.
	LabelLargeTradeOnly ExecutionLabel = "LARGE_TRADE_ONLY"
)

// FeatureSnapshot carries the raw feature values behind an execution event.
type FeatureSnapshot struct {
	SizeScore     float64 `json:"size_score"`
	SlicingScore  float64 `json:"slicing_score"`
	Absorption    float64 `json:"absorption_score"`
	Aggression    float64 `json:"aggression_score"`
	ImpactAnomaly float64 `json:"impact_anomaly_score"`
	FlowRatio10s  float64 `json:"flow_ratio_10s"`
	FlowRatio60s  float64 `json:"flow_ratio_60s"`
	Range10s      float64 `json:"range_10s"`
	Notional10s   float64 `json:"vol_10s"`
}

// ExecutionEvent is emitted by the execution classifier when a labeled
// institutional pattern is detected.
type ExecutionEvent struct {
	Type       string          `json:"type"` // always "institutional_execution"
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Label      ExecutionLabel  `json:"label"`
	Score      int             `json:"score"` // 0-100
	Confidence float64         `json:"confidence"`
	Features   FeatureSnapshot `json:"features"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SentimentMetrics summarizes buy/sell volume imbalance over recent trades.
type SentimentMetrics struct {
	NetBuyVolume  float64 `json:"net_buy_volume"`
	NetSellVolume float64 `json:"net_sell_volume"`
	BullPower     float64 `json:"bull_power"` // -1 (all sells) .. 1 (all buys)
	Momentum      float64 `json:"momentum"`   // 0 .. 1 trend strength
}

// HypeRealityMetrics compares price-driven hype against whale flow.
type HypeRealityMetrics struct {
	SocialHypeScore    float64 `json:"social_hype_score"`
	WhaleActivityScore float64 `json:"whale_activity_score"`
	PriceChangePercent float64 `json:"price_change_percent"`
	WhaleValue         float64 `json:"whale_value"`
	Insight            string  `json:"insight"`
}

// ChartBucket is one OHLC interval served by the chart endpoint.
type ChartBucket struct {
	Timestamp   time.Time `json:"timestamp"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	WhaleVolume float64   `json:"whale_volume"`
}

// BookLevel is a single price+quantity entry in the order book.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBookSnapshot is the most recent depth state received from the feed.
type OrderBookSnapshot struct {
	LastUpdateID int64       `json:"last_update_id"`
	Bids         []BookLevel `json:"bids"`
	Asks         []BookLevel `json:"asks"`
	Timestamp    time.Time   `json:"timestamp"`
}

// TickerSnapshot is the cached Binance 24h ticker.
type TickerSnapshot struct {
	LastPrice          float64   `json:"price"`
	PriceChangePercent float64   `json:"price_change_percent"`
	QuoteVolume        float64   `json:"quote_volume"`
	BaseVolume         float64   `json:"base_volume"`
	FetchedAt          time.Time `json:"fetched_at"`
}

// Statistics is the aggregate view served by /api/statistics.
type Statistics struct {
	TotalTrades           int       `json:"total_trades"`
	TotalVolume24h        float64   `json:"total_volume_24h"`
	TotalVolumeSinceStart float64   `json:"total_volume_since_start"`
	TotalWhaleTrades      int       `json:"total_whale_trades"`
	AverageTradeValue     float64   `json:"average_trade_value"`
	Timestamp             time.Time `json:"timestamp"`
}
