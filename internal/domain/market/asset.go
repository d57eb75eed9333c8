package market

import "math"

// Asset is one row of the markets feed. Field names follow the CoinGecko
// /coins/markets payload so snapshots can be decoded without a mapping layer.
// Optional fields are pointers: nil means the upstream omitted them.
type Asset struct {
	ID            string  `json:"id" yaml:"id"`
	Symbol        string  `json:"symbol" yaml:"symbol"`
	Name          string  `json:"name" yaml:"name"`
	Image         string  `json:"image,omitempty" yaml:"image,omitempty"`
	CurrentPrice  float64 `json:"current_price" yaml:"current_price"`
	MarketCap     float64 `json:"market_cap" yaml:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank,omitempty" yaml:"market_cap_rank,omitempty"`
	TotalVolume   float64 `json:"total_volume" yaml:"total_volume"`
	ATH           float64 `json:"ath,omitempty" yaml:"ath,omitempty"`

	ATHChangePercentage      *float64 `json:"ath_change_percentage,omitempty" yaml:"ath_change_percentage,omitempty"`
	PriceChangePercentage1h  *float64 `json:"price_change_percentage_1h,omitempty" yaml:"price_change_percentage_1h,omitempty"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h,omitempty" yaml:"price_change_percentage_24h,omitempty"`
	PriceChangePercentage7d  *float64 `json:"price_change_percentage_7d,omitempty" yaml:"price_change_percentage_7d,omitempty"`
	PriceChangePercentage30d *float64 `json:"price_change_percentage_30d,omitempty" yaml:"price_change_percentage_30d,omitempty"`

	CirculatingSupply float64  `json:"circulating_supply,omitempty" yaml:"circulating_supply,omitempty"`
	MaxSupply         *float64 `json:"max_supply,omitempty" yaml:"max_supply,omitempty"`
}

// ATHDistance is |ath_change_percentage|, 0 when the field is missing.
func (a Asset) ATHDistance() float64 {
	return math.Abs(orZero(a.ATHChangePercentage))
}

// Performance30d returns the 30 day change, 0 when missing.
func (a Asset) Performance30d() float64 {
	return orZero(a.PriceChangePercentage30d)
}

// Change24h returns the 24 hour change, 0 when missing.
func (a Asset) Change24h() float64 {
	return orZero(a.PriceChangePercentage24h)
}

// VolumeRatio is total_volume / market_cap with plain IEEE division:
// +Inf for a zero cap with volume, NaN when both are zero.
func (a Asset) VolumeRatio() float64 {
	return a.TotalVolume / a.MarketCap
}

// Valid reports whether the asset can be scored at all.
func (a Asset) Valid() bool {
	return a.CurrentPrice > 0 && !math.IsNaN(a.CurrentPrice) && !math.IsInf(a.CurrentPrice, 0)
}

// Float returns a pointer to v, for building assets with optional fields.
func Float(v float64) *float64 {
	return &v
}

func orZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return *v
}
