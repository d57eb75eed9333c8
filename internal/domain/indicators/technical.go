package indicators

import "math"

// Trend is the MACD direction label.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
)

// Neutral values returned when a series is too short for an indicator.
const (
	NeutralRSI        = 50.0
	NeutralStochastic = 50.0
	NeutralWilliamsR  = -50.0
	NeutralPercentB   = 0.5
)

// MACDResult represents the result of MACD calculation
type MACDResult struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     Trend   `json:"trend"`
}

// StochasticResult holds %K and the approximated %D
type StochasticResult struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// BollingerResult represents the result of Bollinger Bands calculation
type BollingerResult struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	PercentB float64 `json:"percentB"`
}

// RSI calculates the Relative Strength Index over the last period steps.
// Gains and losses are plain means, not Wilder-smoothed.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return NeutralRSI // Neutral RSI when insufficient data
	}

	// Calculate price changes
	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := mean(gains[len(gains)-period:])
	avgLoss := mean(losses[len(losses)-period:])

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// EMA seeds with the first price and walks forward with k = 2/(period+1).
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// SMA is the mean of the last period prices, 0 when there are fewer.
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	return mean(prices[len(prices)-period:])
}

// macdSignalFactor approximates the signal line as a fixed fraction of the
// MACD line instead of a 9-period EMA of it.
const macdSignalFactor = 0.9

// MACD calculates the 12/26 MACD line with the approximated signal line.
func MACD(prices []float64) MACDResult {
	line := EMA(prices, 12) - EMA(prices, 26)
	signal := line * macdSignalFactor

	trend := TrendBearish
	if line > signal {
		trend = TrendBullish
	}

	return MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
		Trend:     trend,
	}
}

// Stochastic computes %K over the last kPeriod prices; %D is 0.8 x %K.
// A flat window (high == low) reports the midpoint.
func Stochastic(prices []float64, kPeriod int) StochasticResult {
	if kPeriod <= 0 || len(prices) < kPeriod {
		return StochasticResult{K: NeutralStochastic, D: NeutralStochastic}
	}

	low, high := minMax(prices[len(prices)-kPeriod:])
	current := prices[len(prices)-1]

	k := NeutralStochastic
	if high > low {
		k = (current - low) / (high - low) * 100
	}
	return StochasticResult{K: k, D: k * 0.8}
}

// BollingerBands uses a population standard deviation around SMA(period).
func BollingerBands(prices []float64, period int, multiplier float64) BollingerResult {
	if period <= 0 || len(prices) < period {
		return BollingerResult{PercentB: NeutralPercentB}
	}

	middle := SMA(prices, period)
	variance := 0.0
	for _, p := range prices[len(prices)-period:] {
		variance += (p - middle) * (p - middle)
	}
	stdDev := math.Sqrt(variance / float64(period))

	upper := middle + stdDev*multiplier
	lower := middle - stdDev*multiplier
	current := prices[len(prices)-1]

	percentB := NeutralPercentB
	if upper > lower {
		percentB = (current - lower) / (upper - lower)
	}

	return BollingerResult{
		Upper:    upper,
		Middle:   middle,
		Lower:    lower,
		PercentB: percentB,
	}
}

// WilliamsR ranges from -100 (at the low) to 0 (at the high).
// A flat window reports the midpoint.
func WilliamsR(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return NeutralWilliamsR
	}

	low, high := minMax(prices[len(prices)-period:])
	if high == low {
		return NeutralWilliamsR
	}
	current := prices[len(prices)-1]
	return -100 * (high - current) / (high - low)
}

// ATR is approximated from closes only: the mean absolute step over the last
// min(period, len-1) steps.
func ATR(prices []float64, period int) float64 {
	if len(prices) < 2 || period <= 0 {
		return 0
	}

	steps := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		steps[i-1] = math.Abs(prices[i] - prices[i-1])
	}

	n := period
	if len(steps) < n {
		n = len(steps)
	}
	return mean(steps[len(steps)-n:])
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minMax(values []float64) (float64, float64) {
	low, high := values[0], values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}
