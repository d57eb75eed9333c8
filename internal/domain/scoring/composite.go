package scoring

import (
	"fmt"
	"math"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

// Weights of the combined score components. They must sum to 1.
type Weights struct {
	Technical   float64 `json:"technical" yaml:"technical"`
	Fundamental float64 `json:"fundamental" yaml:"fundamental"`
	Sentiment   float64 `json:"sentiment" yaml:"sentiment"`
}

// DefaultWeights is the 40/40/20 split.
func DefaultWeights() Weights {
	return Weights{Technical: 0.4, Fundamental: 0.4, Sentiment: 0.2}
}

// Sum of all component weights
func (w Weights) Sum() float64 {
	return w.Technical + w.Fundamental + w.Sentiment
}

// Validate rejects negative weights and weights that do not sum to 1.
func (w Weights) Validate() error {
	if w.Technical < 0 || w.Fundamental < 0 || w.Sentiment < 0 {
		return fmt.Errorf("weights must be non-negative: %+v", w)
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.3f, expected 1.000", w.Sum())
	}
	return nil
}

// Fundamental is the scorer output for one asset.
type Fundamental struct {
	FundamentalScore  float64       `json:"fundamentalScore"`
	FundamentalSignal signal.Signal `json:"fundamentalSignal"`
	CombinedScore     float64       `json:"combinedScore"`
}

// TechScore maps a technical verdict onto its fixed component score.
func TechScore(s signal.Signal) float64 {
	switch s {
	case signal.StrongBuy:
		return 90
	case signal.Buy:
		return 70
	case signal.Hold:
		return 50
	case signal.Sell:
		return 30
	case signal.StrongSell:
		return 10
	}
	return 50
}

// SentimentScore is contrarian: fear inflates the component.
func SentimentScore(s market.Sentiment) float64 {
	return 100 - float64(s.Clamped().Value)
}

// Combine blends the three bounded components. No clamp is needed because
// each input is already within [0,100] and the weights are convex.
func (w Weights) Combine(tech, fundamental, sentiment float64) float64 {
	return w.Technical*tech + w.Fundamental*fundamental + w.Sentiment*sentiment
}

// Score runs the fundamental scorer and the combined blend with default weights.
func Score(asset market.Asset, tech signal.Technical, sent market.Sentiment) Fundamental {
	return DefaultWeights().Score(asset, tech, sent)
}

// Score runs the fundamental scorer and blends with w.
func (w Weights) Score(asset market.Asset, tech signal.Technical, sent market.Sentiment) Fundamental {
	fs := FundamentalScore(asset)
	return Fundamental{
		FundamentalScore:  fs,
		FundamentalSignal: FundamentalSignal(fs),
		CombinedScore:     w.Combine(TechScore(tech.Signal), fs, SentimentScore(sent)),
	}
}
