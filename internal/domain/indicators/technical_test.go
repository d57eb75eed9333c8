package indicators

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenario = []float64{90, 91, 89, 93, 95, 94, 96, 98, 97, 100}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rising(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestRSI_NonNegativeStepsReturn100(t *testing.T) {
	for _, period := range []int{2, 5, 14, 30} {
		prices := rising(10, period+1)
		assert.Equal(t, 100.0, RSI(prices, period), "period %d", period)

		flat := constant(42, period+1)
		assert.Equal(t, 100.0, RSI(flat, period), "flat series, period %d", period)
	}
}

func TestRSI_InsufficientHistory(t *testing.T) {
	assert.Equal(t, NeutralRSI, RSI(scenario, 14))
	assert.Equal(t, NeutralRSI, RSI(nil, 14))
	assert.Equal(t, NeutralRSI, RSI(rising(1, 14), 14))
}

func TestRSI_KnownValue(t *testing.T) {
	// steps: +1, -1, +1, -1 -> equal mean gain and loss
	prices := []float64{10, 11, 10, 11, 10}
	assert.InDelta(t, 50.0, RSI(prices, 4), 1e-9)

	// only losses
	falling := []float64{5, 4, 3, 2, 1}
	assert.InDelta(t, 0.0, RSI(falling, 4), 1e-9)
}

func TestRSI_ScenarioInRange(t *testing.T) {
	for _, period := range []int{3, 5, 9} {
		v := RSI(scenario, period)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestMovingAverages_ConstantSeries(t *testing.T) {
	prices := constant(123.45, 60)
	for _, period := range []int{1, 12, 20, 26, 50} {
		assert.InDelta(t, 123.45, EMA(prices, period), 1e-9)
		assert.InDelta(t, 123.45, SMA(prices, period), 1e-9)
	}
}

func TestMovingAverages_Edges(t *testing.T) {
	assert.Equal(t, 0.0, EMA(nil, 20))
	assert.Equal(t, 0.0, SMA(scenario, 50))
	assert.InDelta(t, 98.333333, SMA(scenario, 3), 1e-6)

	// k = 2/3 for period 2: 1 -> 1*1/3 + 3*2/3
	assert.InDelta(t, 7.0/3.0, EMA([]float64{1, 3}, 2), 1e-9)
}

func TestMACD_RisingSeriesIsBullish(t *testing.T) {
	m := MACD(rising(100, 40))
	assert.Greater(t, m.Line, 0.0)
	assert.InDelta(t, m.Line*0.9, m.Signal, 1e-12)
	assert.InDelta(t, m.Line-m.Signal, m.Histogram, 1e-12)
	assert.Equal(t, TrendBullish, m.Trend)
}

func TestMACD_FallingSeriesIsBearish(t *testing.T) {
	prices := rising(100, 40)
	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}
	m := MACD(prices)
	assert.Less(t, m.Line, 0.0)
	assert.Equal(t, TrendBearish, m.Trend)
}

func TestStochastic(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		s := Stochastic(scenario, 14)
		assert.Equal(t, StochasticResult{K: 50, D: 50}, s)
	})

	t.Run("at the high", func(t *testing.T) {
		s := Stochastic(rising(1, 20), 14)
		assert.InDelta(t, 100.0, s.K, 1e-9)
		assert.InDelta(t, 80.0, s.D, 1e-9)
	})

	t.Run("flat window reports midpoint", func(t *testing.T) {
		s := Stochastic(constant(7, 20), 14)
		assert.Equal(t, 50.0, s.K)
		assert.False(t, math.IsNaN(s.D))
	})
}

func TestBollingerBands(t *testing.T) {
	t.Run("insufficient history default", func(t *testing.T) {
		bb := BollingerBands(scenario, 20, 2)
		assert.Equal(t, BollingerResult{Upper: 0, Middle: 0, Lower: 0, PercentB: 0.5}, bb)
	})

	t.Run("bands straddle the mean", func(t *testing.T) {
		bb := BollingerBands(scenario, 10, 2)
		assert.InDelta(t, SMA(scenario, 10), bb.Middle, 1e-9)
		assert.Greater(t, bb.Upper, bb.Middle)
		assert.Less(t, bb.Lower, bb.Middle)
		assert.InDelta(t, bb.Middle-bb.Lower, bb.Upper-bb.Middle, 1e-9)
		assert.InDelta(t, (100-bb.Lower)/(bb.Upper-bb.Lower), bb.PercentB, 1e-9)
	})

	t.Run("zero width reports midpoint", func(t *testing.T) {
		bb := BollingerBands(constant(3, 25), 20, 2)
		assert.Equal(t, 0.5, bb.PercentB)
		assert.Equal(t, 3.0, bb.Upper)
	})
}

func TestWilliamsR(t *testing.T) {
	assert.Equal(t, NeutralWilliamsR, WilliamsR(scenario, 14))
	assert.InDelta(t, 0.0, WilliamsR(rising(1, 14), 14), 1e-9)
	assert.Equal(t, NeutralWilliamsR, WilliamsR(constant(5, 14), 14))

	falling := []float64{14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	assert.InDelta(t, -100.0, WilliamsR(falling, 14), 1e-9)
}

func TestATR(t *testing.T) {
	assert.Equal(t, 0.0, ATR([]float64{5}, 14))
	assert.Equal(t, 0.0, ATR(nil, 14))

	// steps 1,2,4,2,1,2,2,1,3 over the scenario; all 9 used
	assert.InDelta(t, 2.0, ATR(scenario, 14), 1e-9)

	// last 3 steps: 2, 1, 3
	assert.InDelta(t, 2.0, ATR(scenario, 3), 1e-9)
}

func TestIndicatorsDoNotMutateInput(t *testing.T) {
	prices := append([]float64(nil), scenario...)
	_ = Compute(prices, CloseOnly{})
	assert.Equal(t, scenario, prices)
}

func TestCompute_ScenarioDefaults(t *testing.T) {
	set := Compute(scenario, Fixed{ADXValue: 25, CCIValue: -10})

	assert.Equal(t, NeutralRSI, set.RSI)
	assert.Equal(t, BollingerResult{PercentB: 0.5}, set.BollingerBands)
	assert.Equal(t, StochasticResult{K: 50, D: 50}, set.Stochastic)
	assert.Equal(t, NeutralWilliamsR, set.WilliamsR)
	assert.Equal(t, 0.0, set.SMA50)
	assert.Equal(t, 25.0, set.ADX)
	assert.Equal(t, -10.0, set.CCI)
	assert.Greater(t, set.EMA20, 90.0)
}

func TestStandIn_Ranges(t *testing.T) {
	est := NewStandIn(rand.New(rand.NewSource(7)))
	for i := 0; i < 1000; i++ {
		adx := est.ADX(scenario, ADXPeriod)
		cci := est.CCI(scenario, CCIPeriod)
		require.GreaterOrEqual(t, adx, 20.0)
		require.Less(t, adx, 80.0)
		require.GreaterOrEqual(t, cci, -200.0)
		require.Less(t, cci, 200.0)
	}
}

func TestCloseOnly(t *testing.T) {
	est := CloseOnly{}

	assert.Equal(t, NeutralADX, est.ADX(scenario, 14))
	assert.Equal(t, NeutralCCI, est.CCI(scenario, 20))
	assert.Equal(t, NeutralCCI, est.CCI(constant(4, 30), 20))

	// a one-way move has maximal directional strength
	assert.InDelta(t, 100.0, est.ADX(rising(10, 40), 14), 1e-9)

	cci := est.CCI(rising(10, 40), 20)
	assert.Greater(t, cci, 0.0)
}

func TestNewEstimator(t *testing.T) {
	est, err := NewEstimator("", nil)
	require.NoError(t, err)
	assert.IsType(t, &StandIn{}, est)

	est, err = NewEstimator(EstimatorCloseOnly, nil)
	require.NoError(t, err)
	assert.IsType(t, CloseOnly{}, est)

	_, err = NewEstimator("wilder", nil)
	assert.Error(t, err)
}
