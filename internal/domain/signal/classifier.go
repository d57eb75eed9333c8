package signal

import "github.com/sawpanic/cryptoinsight/internal/domain/indicators"

// Signal is the discrete verdict shared by the technical and fundamental sides.
type Signal string

const (
	StrongBuy  Signal = "STRONG_BUY"
	Buy        Signal = "BUY"
	Hold       Signal = "HOLD"
	Sell       Signal = "SELL"
	StrongSell Signal = "STRONG_SELL"
)

// IsBuy reports BUY or STRONG_BUY.
func (s Signal) IsBuy() bool {
	return s == Buy || s == StrongBuy
}

// Technical is the classifier output
type Technical struct {
	Signal   Signal  `json:"signal"`
	Strength float64 `json:"strength"`
}

// TotalVotes is the fixed denominator. Abstaining indicators still count.
const TotalVotes = 5

// Votes is the raw tally behind a Technical verdict.
type Votes struct {
	Buy   int `json:"buy"`
	Sell  int `json:"sell"`
	Total int `json:"total"`
}

func (v Votes) BuyRatio() float64  { return float64(v.Buy) / float64(v.Total) }
func (v Votes) SellRatio() float64 { return float64(v.Sell) / float64(v.Total) }

// Tally casts the five indicator votes.
func Tally(set indicators.Set) Votes {
	v := Votes{Total: TotalVotes}

	// RSI
	if set.RSI < 30 {
		v.Buy++
	} else if set.RSI > 70 {
		v.Sell++
	}

	// MACD always votes
	if set.MACD.Trend == indicators.TrendBullish {
		v.Buy++
	} else {
		v.Sell++
	}

	// Stochastic %K
	if set.Stochastic.K < 20 {
		v.Buy++
	} else if set.Stochastic.K > 80 {
		v.Sell++
	}

	// Bollinger %B
	if set.BollingerBands.PercentB < 0 {
		v.Buy++
	} else if set.BollingerBands.PercentB > 1 {
		v.Sell++
	}

	// Williams %R
	if set.WilliamsR < -80 {
		v.Buy++
	} else if set.WilliamsR > -20 {
		v.Sell++
	}

	return v
}

// Classify turns the indicator set into a technical verdict. The first
// matching ratio rule wins; strength is the winning ratio.
func Classify(set indicators.Set) Technical {
	v := Tally(set)
	buyRatio, sellRatio := v.BuyRatio(), v.SellRatio()

	switch {
	case buyRatio >= 0.6:
		return Technical{Signal: StrongBuy, Strength: buyRatio}
	case buyRatio >= 0.4:
		return Technical{Signal: Buy, Strength: buyRatio}
	case sellRatio >= 0.6:
		return Technical{Signal: StrongSell, Strength: sellRatio}
	case sellRatio >= 0.4:
		return Technical{Signal: Sell, Strength: sellRatio}
	}
	return Technical{Signal: Hold, Strength: 0.5}
}
