// Package series supplies the price history each asset is scored on.
package series

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
)

// History lengths for the two consumers of a series
const (
	TablePeriods  = 50
	DetailPeriods = 24
)

// PriceSeries is chronological, oldest first, and always ends at the asset's
// current price.
type PriceSeries []float64

// Source produces a price series of exactly periods points for an asset.
type Source interface {
	Series(ctx context.Context, asset market.Asset, periods int) (PriceSeries, error)
	Name() string
}

// Random walk parameters
const (
	walkStartFactor = 0.9
	walkMaxStep     = 0.02
)

// RandomWalk synthesizes a plausible history when no real one exists: start
// 10% below the current price and take periods-1 uniform steps of at most 2%.
type RandomWalk struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomWalk creates the synthetic source. A nil rng is seeded from the clock.
func NewRandomWalk(rng *rand.Rand) *RandomWalk {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomWalk{rng: rng}
}

func (w *RandomWalk) Name() string { return "synthetic" }

func (w *RandomWalk) Series(_ context.Context, asset market.Asset, periods int) (PriceSeries, error) {
	return w.Generate(asset.CurrentPrice, periods), nil
}

// Generate returns periods prices, each > 0 for a positive currentPrice, with
// the last one equal to currentPrice exactly.
func (w *RandomWalk) Generate(currentPrice float64, periods int) PriceSeries {
	if periods < 1 {
		periods = 1
	}

	out := make(PriceSeries, periods)
	price := currentPrice * walkStartFactor

	w.mu.Lock()
	out[0] = price
	for i := 1; i < periods; i++ {
		change := (w.rng.Float64()*2 - 1) * walkMaxStep
		price *= 1 + change
		out[i] = price
	}
	w.mu.Unlock()

	out[periods-1] = currentPrice
	return out
}

// Fallback serves from Primary and degrades to Secondary on any error.
type Fallback struct {
	Primary   Source
	Secondary Source
}

func (f Fallback) Name() string { return f.Primary.Name() + "+" + f.Secondary.Name() }

func (f Fallback) Series(ctx context.Context, asset market.Asset, periods int) (PriceSeries, error) {
	s, err := f.Primary.Series(ctx, asset, periods)
	if err == nil {
		return s, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Warn().
		Err(err).
		Str("asset", asset.ID).
		Str("primary", f.Primary.Name()).
		Str("secondary", f.Secondary.Name()).
		Msg("Price series source degraded, using fallback")

	return f.Secondary.Series(ctx, asset, periods)
}

// Anchor shapes a real history into a valid series: non-positive points are
// dropped, only the last periods points are kept and the final point is
// replaced by the current price. An empty history becomes [price].
func Anchor(raw []float64, price float64, periods int) PriceSeries {
	if periods < 1 {
		periods = 1
	}

	clean := make(PriceSeries, 0, len(raw))
	for _, p := range raw {
		if p > 0 {
			clean = append(clean, p)
		}
	}

	if len(clean) == 0 {
		return PriceSeries{price}
	}
	if len(clean) > periods {
		clean = clean[len(clean)-periods:]
	}
	clean[len(clean)-1] = price
	return clean
}
