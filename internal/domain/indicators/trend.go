package indicators

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Estimator supplies the trend-strength (ADX) and channel (CCI) readings.
// Neither feeds the technical verdict, so the strategy can be swapped freely.
type Estimator interface {
	ADX(prices []float64, period int) float64
	CCI(prices []float64, period int) float64
}

// StandIn reproduces the dashboard's placeholder readings: ADX uniform in
// [20,80] and CCI uniform in [-200,200]. The input series is ignored.
type StandIn struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStandIn builds a placeholder estimator. A nil rng is seeded from the clock.
func NewStandIn(rng *rand.Rand) *StandIn {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &StandIn{rng: rng}
}

func (s *StandIn) ADX(_ []float64, _ int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 20 + s.rng.Float64()*60
}

func (s *StandIn) CCI(_ []float64, _ int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rng.Float64() - 0.5) * 400
}

// Fixed returns constant readings. Used where scoring must be reproducible.
type Fixed struct {
	ADXValue float64
	CCIValue float64
}

func (f Fixed) ADX(_ []float64, _ int) float64 { return f.ADXValue }
func (f Fixed) CCI(_ []float64, _ int) float64 { return f.CCIValue }

// Neutral readings of the close-only estimator.
const (
	NeutralADX = 20.0
	NeutralCCI = 0.0
)

// CloseOnly derives ADX and CCI from closing prices alone. Without highs and
// lows the directional movement is taken close-to-close and the typical price
// is the close itself.
type CloseOnly struct{}

// ADX needs 2*period+1 closes for the smoothed DX average.
func (CloseOnly) ADX(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < 2*period+1 {
		return NeutralADX
	}

	n := len(prices) - 1
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < len(prices); i++ {
		move := prices[i] - prices[i-1]
		tr[i-1] = math.Abs(move)
		if move > 0 {
			plusDM[i-1] = move
		} else {
			minusDM[i-1] = -move
		}
	}

	// Wilder smoothing seeded with the first period sums
	var sTR, sPlus, sMinus float64
	for i := 0; i < period; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	dx := make([]float64, 0, n-period+1)
	dx = append(dx, directionalIndex(sTR, sPlus, sMinus))
	for i := period; i < n; i++ {
		sTR = sTR - sTR/float64(period) + tr[i]
		sPlus = sPlus - sPlus/float64(period) + plusDM[i]
		sMinus = sMinus - sMinus/float64(period) + minusDM[i]
		dx = append(dx, directionalIndex(sTR, sPlus, sMinus))
	}

	adx := mean(dx[:period])
	for _, v := range dx[period:] {
		adx = (adx*float64(period-1) + v) / float64(period)
	}
	return adx
}

// CCI is (last - SMA) / (0.015 * mean absolute deviation) over period closes.
func (CloseOnly) CCI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return NeutralCCI
	}

	window := prices[len(prices)-period:]
	avg := mean(window)
	dev := 0.0
	for _, p := range window {
		dev += math.Abs(p - avg)
	}
	dev /= float64(period)
	if dev == 0 {
		return NeutralCCI
	}
	return (window[len(window)-1] - avg) / (0.015 * dev)
}

func directionalIndex(tr, plus, minus float64) float64 {
	if tr == 0 {
		return 0
	}
	pdi := 100 * plus / tr
	mdi := 100 * minus / tr
	if pdi+mdi == 0 {
		return 0
	}
	return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
}
