package analytics

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

// Composite score weights. They sum to 1.0.
const (
	weightSize       = 0.20
	weightSlicing    = 0.25
	weightAbsorption = 0.25
	weightAggression = 0.20
	weightImpact     = 0.10
)

// Guard thresholds.
const (
	minTradesShort    = 20    // fewer trades than this in 10s: too thin to score
	maxRangeFraction  = 0.01  // 10s range above 1% of last price: too volatile
	singleTradeShare  = 0.80  // one trade above this share of 10s notional
	singleTradeSliceT = 0.2   // ...with slicing below this is a lone print
)

// DetectorConfig configures the execution classifier for one symbol.
type DetectorConfig struct {
	Symbol string
	// LowLiquidity raises the strong/likely thresholds for thin markets.
	LowLiquidity bool
}

// thresholds returns the (strong, likely) label thresholds on the 0-100 scale.
func (c DetectorConfig) thresholds() (strong, likely int) {
	if c.LowLiquidity {
		return 80, 65
	}
	return 75, 60
}

// ExecutionDetector ingests trades for a single symbol and, on a throttled
// cadence, classifies the current window state as an institutional execution
// pattern. One instance exists per tracked symbol for the process lifetime;
// all calls must be serialized by the owner.
type ExecutionDetector struct {
	cfg DetectorConfig
	agg *WindowedAggregator

	lastEval     float64 // seconds; evaluation is limited to 1 Hz
	lastBucketID int64   // 10s bucket id of the last baseline append

	strongStreak int
	likelyStreak int

	now    func() time.Time
	logger *slog.Logger
}

// NewExecutionDetector creates a detector for the given symbol.
func NewExecutionDetector(cfg DetectorConfig, logger *slog.Logger) *ExecutionDetector {
	return &ExecutionDetector{
		cfg:          cfg,
		agg:          NewWindowedAggregator(),
		lastBucketID: -1,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "execution_detector"), slog.String("symbol", cfg.Symbol)),
	}
}

// IngestTrade feeds one raw fill into the windows. Trades must arrive in
// non-decreasing timestamp order; the feed guarantees this for a single
// symbol stream. Non-positive price or quantity is rejected.
func (d *ExecutionDetector) IngestTrade(price, quantity float64, isBuyerMaker bool, tsMillis int64) error {
	if price <= 0 || quantity <= 0 {
		return fmt.Errorf("detector %s: %w", d.cfg.Symbol, domain.ErrInvalidTrade)
	}
	o := domain.NewTradeObservation(price, quantity, isBuyerMaker, tsMillis)
	d.agg.Ingest(o)
	d.agg.Evict(o.Timestamp)
	return nil
}

// MaybeEvaluate runs a scoring pass if at least one second has elapsed since
// the previous evaluation; otherwise it is a no-op returning nil. A nil
// return with no error means "no labeled pattern right now".
func (d *ExecutionDetector) MaybeEvaluate() *domain.ExecutionEvent {
	return d.evaluateAt(float64(d.now().UnixMilli()) / 1000.0)
}

func (d *ExecutionDetector) evaluateAt(now float64) *domain.ExecutionEvent {
	if now-d.lastEval < 1.0 {
		return nil
	}
	d.lastEval = now

	d.agg.Evict(now)

	notional10 := d.agg.Short.SumNotional
	curImpact := impactPerNotional(d.agg)

	// Baseline appends are throttled to one per distinct 10s bucket so a
	// burst of evaluations cannot flood the ring.
	if bucketID := int64(math.Floor(now / 10)); bucketID != d.lastBucketID {
		d.lastBucketID = bucketID
		d.agg.RecordBaseline(now, notional10, curImpact)
	}

	baselineVol, baselineImpact := d.agg.BaselineMedians(notional10, curImpact)
	burst := volumeBurst(notional10, baselineVol)

	size := sizeScore(d.agg)
	slicing := slicingScore(d.agg)
	absorption := absorptionScore(d.agg, burst)
	aggression := aggressionScore(d.agg)
	impactAnomaly := impactAnomalyScore(burst, curImpact, baselineImpact)

	rng, lastPrice := d.agg.PriceRangeShort()

	// Guard conditions: any hit clears both streaks and emits nothing.
	if d.agg.Short.Count < minTradesShort ||
		(lastPrice > 0 && rng > maxRangeFraction*lastPrice) ||
		(notional10 > 0 && d.agg.MaxNotionalShort() > singleTradeShare*notional10 && slicing < singleTradeSliceT) {
		d.strongStreak = 0
		d.likelyStreak = 0
		return nil
	}

	composite := clamp01(weightSize*size + weightSlicing*slicing +
		weightAbsorption*absorption + weightAggression*aggression + weightImpact*impactAnomaly)
	score := int(math.Round(composite * 100))

	strongT, likelyT := d.cfg.thresholds()
	switch {
	case score >= strongT:
		d.strongStreak++
		d.likelyStreak++
	case score >= likelyT:
		d.strongStreak = 0
		d.likelyStreak++
	default:
		d.strongStreak = 0
		d.likelyStreak = 0
	}

	var label domain.ExecutionLabel
	switch {
	case score >= strongT && d.strongStreak >= 3:
		label = domain.LabelStrong
	case score >= likelyT && d.likelyStreak >= 5:
		label = domain.LabelLikely
	case size >= 0.9 && slicing < 0.2 && absorption < 0.2 && aggression < 0.2 && impactAnomaly < 0.2:
		// An outsized lone print qualifies regardless of streaks.
		label = domain.LabelLargeTradeOnly
	default:
		return nil
	}

	streak := d.strongStreak
	if d.likelyStreak > streak {
		streak = d.likelyStreak
	}
	confidence := clamp01(0.5*composite + 0.5*clamp01(float64(streak)/5))

	side := domain.SideSell
	if d.agg.Long.SumSigned > 0 {
		side = domain.SideBuy
	}

	event := &domain.ExecutionEvent{
		Type:       "institutional_execution",
		Symbol:     d.cfg.Symbol,
		Side:       side,
		Label:      label,
		Score:      score,
		Confidence: confidence,
		Features: domain.FeatureSnapshot{
			SizeScore:     size,
			SlicingScore:  slicing,
			Absorption:    absorption,
			Aggression:    aggression,
			ImpactAnomaly: impactAnomaly,
			FlowRatio10s:  flowRatio(d.agg.Short.SumSigned, d.agg.Short.SumNotional),
			FlowRatio60s:  flowRatio(d.agg.Long.SumSigned, d.agg.Long.SumNotional),
			Range10s:      rng,
			Notional10s:   notional10,
		},
		Timestamp: time.UnixMilli(int64(now * 1000)).UTC(),
	}

	d.logger.Debug("execution pattern labeled",
		slog.String("label", string(label)),
		slog.Int("score", score),
		slog.Float64("confidence", confidence),
		slog.String("side", string(side)),
	)
	return event
}
