package indicators

import (
	"fmt"
	"math/rand"
)

// Standard periods used for every asset
const (
	RSIPeriod        = 14
	StochKPeriod     = 14
	BollingerPeriod  = 20
	BollingerStdDevs = 2.0
	WilliamsRPeriod  = 14
	EMAPeriod        = 20
	SMAPeriod        = 50
	ATRPeriod        = 14
	ADXPeriod        = 14
	CCIPeriod        = 20
)

// Set aggregates all technical indicators for one price series
type Set struct {
	RSI            float64          `json:"rsi"`
	MACD           MACDResult       `json:"macd"`
	Stochastic     StochasticResult `json:"stochastic"`
	BollingerBands BollingerResult  `json:"bollingerBands"`
	WilliamsR      float64          `json:"williamsR"`
	EMA20          float64          `json:"ema20"`
	SMA50          float64          `json:"sma50"`
	ATR            float64          `json:"atr"`
	ADX            float64          `json:"adx"`
	CCI            float64          `json:"cci"`
}

// Compute calculates the full indicator set. est supplies ADX and CCI; a nil
// estimator falls back to CloseOnly.
func Compute(prices []float64, est Estimator) Set {
	if est == nil {
		est = CloseOnly{}
	}
	return Set{
		RSI:            RSI(prices, RSIPeriod),
		MACD:           MACD(prices),
		Stochastic:     Stochastic(prices, StochKPeriod),
		BollingerBands: BollingerBands(prices, BollingerPeriod, BollingerStdDevs),
		WilliamsR:      WilliamsR(prices, WilliamsRPeriod),
		EMA20:          EMA(prices, EMAPeriod),
		SMA50:          SMA(prices, SMAPeriod),
		ATR:            ATR(prices, ATRPeriod),
		ADX:            est.ADX(prices, ADXPeriod),
		CCI:            est.CCI(prices, CCIPeriod),
	}
}

// Estimator names accepted by NewEstimator
const (
	EstimatorStandIn   = "standin"
	EstimatorCloseOnly = "close_only"
)

// NewEstimator resolves a configured estimator name.
func NewEstimator(name string, rng *rand.Rand) (Estimator, error) {
	switch name {
	case "", EstimatorStandIn:
		return NewStandIn(rng), nil
	case EstimatorCloseOnly:
		return CloseOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown estimator %q", name)
	}
}
