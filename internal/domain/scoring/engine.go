package scoring

import (
	"github.com/sawpanic/cryptoinsight/internal/domain/indicators"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

// Engine scores one asset from an already resolved price series.
// It performs no I/O and keeps no state between calls.
type Engine struct {
	estimator indicators.Estimator
	weights   Weights
}

// NewEngine creates an engine. A nil estimator uses a clock-seeded
// indicators.StandIn, the same default as indicators.NewEstimator("").
func NewEngine(est indicators.Estimator, w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		est = indicators.NewStandIn(nil)
	}
	return &Engine{estimator: est, weights: w}, nil
}

// Weights returns the blend weights in use.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Evaluate derives the indicator set, both verdicts and the combined score.
// The asset value is copied into the result and never modified.
func (e *Engine) Evaluate(asset market.Asset, prices []float64, sent market.Sentiment) market.Enriched {
	set := indicators.Compute(prices, e.estimator)
	tech := signal.Classify(set)
	fund := e.weights.Score(asset, tech, sent)

	return market.Enriched{
		Asset:             asset,
		Indicators:        set,
		TechnicalSignal:   tech,
		FundamentalScore:  fund.FundamentalScore,
		FundamentalSignal: fund.FundamentalSignal,
		CombinedScore:     fund.CombinedScore,
		Periods:           len(prices),
	}
}
