package scoring

import (
	"math"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

// Fundamental baseline and adjustment thresholds
const (
	fundamentalBaseline = 50.0

	smallCapUSD = 100_000_000
	largeCapUSD = 10_000_000_000
	smallCapAdj = 20.0
	largeCapAdj = -10.0

	highTurnover    = 0.15
	lowTurnover     = 0.05
	highTurnoverAdj = 15.0
	lowTurnoverAdj  = -15.0

	deepDiscountPct = 70.0
	nearATHPct      = 10.0
	deepDiscountAdj = 15.0
	nearATHAdj      = -20.0

	strongMonthPct = 20.0
	weakMonthPct   = -30.0
	strongMonthAdj = 10.0
	weakMonthAdj   = -10.0
)

// Adjustments itemizes the fundamental score so it can be explained.
type Adjustments struct {
	MarketCap   float64 `json:"market_cap"`
	Turnover    float64 `json:"turnover"`
	ATHDistance float64 `json:"ath_distance"`
	Performance float64 `json:"performance_30d"`
}

// Sum of all adjustments
func (a Adjustments) Sum() float64 {
	return a.MarketCap + a.Turnover + a.ATHDistance + a.Performance
}

// Adjust evaluates the four market-structure rules independently.
func Adjust(asset market.Asset) Adjustments {
	var adj Adjustments

	switch {
	case asset.MarketCap < smallCapUSD:
		adj.MarketCap = smallCapAdj
	case asset.MarketCap > largeCapUSD:
		adj.MarketCap = largeCapAdj
	}

	// NaN (0/0) matches neither branch
	ratio := asset.VolumeRatio()
	switch {
	case ratio > highTurnover:
		adj.Turnover = highTurnoverAdj
	case ratio < lowTurnover:
		adj.Turnover = lowTurnoverAdj
	}

	distance := asset.ATHDistance()
	switch {
	case distance > deepDiscountPct:
		adj.ATHDistance = deepDiscountAdj
	case distance < nearATHPct:
		adj.ATHDistance = nearATHAdj
	}

	perf := asset.Performance30d()
	switch {
	case perf > strongMonthPct:
		adj.Performance = strongMonthAdj
	case perf < weakMonthPct:
		adj.Performance = weakMonthAdj
	}

	return adj
}

// FundamentalScore is baseline 50 plus the adjustments, clamped to [0,100].
func FundamentalScore(asset market.Asset) float64 {
	return clamp(fundamentalBaseline+Adjust(asset).Sum(), 0, 100)
}

// FundamentalSignal maps a clamped score onto a verdict, top-down.
func FundamentalSignal(score float64) signal.Signal {
	switch {
	case score >= 80:
		return signal.StrongBuy
	case score >= 65:
		return signal.Buy
	case score <= 20:
		return signal.StrongSell
	case score <= 35:
		return signal.Sell
	}
	return signal.Hold
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
