// Package views shapes a scoring pass for display: filtering, ranking and the
// market movers lists.
package views

import (
	"fmt"
	"math"
	"sort"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

// View selects which verdict a filter looks at
type View string

const (
	ViewTechnical   View = "technical"
	ViewFundamental View = "fundamental"
)

// DefaultLimit is the size of the main asset table
const DefaultLimit = 30

// DefaultMovers is the size of each movers list
const DefaultMovers = 5

// ParseView accepts "", "technical" or "fundamental"
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewTechnical:
		return ViewTechnical, nil
	case ViewFundamental:
		return ViewFundamental, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// Verdict returns the signal the view reads from a record
func (v View) Verdict(e market.Enriched) signal.Signal {
	if v == ViewFundamental {
		return e.FundamentalSignal
	}
	return e.TechnicalSignal.Signal
}

// OnlyBuy keeps records whose verdict under view is BUY or STRONG_BUY
func OnlyBuy(list []market.Enriched, view View) []market.Enriched {
	out := make([]market.Enriched, 0, len(list))
	for _, e := range list {
		if view.Verdict(e).IsBuy() {
			out = append(out, e)
		}
	}
	return out
}

// RankByCombined sorts a copy by combined score, highest first. Ties keep
// their input order.
func RankByCombined(list []market.Enriched) []market.Enriched {
	out := append([]market.Enriched(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})
	return out
}

// Limit truncates to n records; n <= 0 means DefaultLimit
func Limit(list []market.Enriched, n int) []market.Enriched {
	if n <= 0 {
		n = DefaultLimit
	}
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// TopGainers returns the n largest 24h rises. Only rising assets qualify.
func TopGainers(list []market.Enriched, n int) []market.Enriched {
	rising := filter(list, func(e market.Enriched) bool { return e.Change24h() > 0 })
	out := byKey(rising, func(e market.Enriched) float64 { return e.Change24h() }, true)
	return movers(out, n)
}

// TopLosers returns the n largest 24h falls. Only falling assets qualify.
func TopLosers(list []market.Enriched, n int) []market.Enriched {
	falling := filter(list, func(e market.Enriched) bool { return e.Change24h() < 0 })
	out := byKey(falling, func(e market.Enriched) float64 { return e.Change24h() }, false)
	return movers(out, n)
}

// VolumeSpikes returns the n highest volume to market cap ratios. Records
// whose ratio is undefined are left out.
func VolumeSpikes(list []market.Enriched, n int) []market.Enriched {
	defined := filter(list, func(e market.Enriched) bool { return !math.IsNaN(e.VolumeRatio()) })
	out := byKey(defined, func(e market.Enriched) float64 { return e.VolumeRatio() }, true)
	return movers(out, n)
}

func filter(list []market.Enriched, keep func(market.Enriched) bool) []market.Enriched {
	out := make([]market.Enriched, 0, len(list))
	for _, e := range list {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func byKey(list []market.Enriched, key func(market.Enriched) float64, desc bool) []market.Enriched {
	out := append([]market.Enriched(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return key(out[i]) > key(out[j])
		}
		return key(out[i]) < key(out[j])
	})
	return out
}

func movers(list []market.Enriched, n int) []market.Enriched {
	if n <= 0 {
		n = DefaultMovers
	}
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// Movers groups the three movers lists
type Movers struct {
	Gainers      []market.Enriched `json:"gainers"`
	Losers       []market.Enriched `json:"losers"`
	VolumeSpikes []market.Enriched `json:"volumeSpikes"`
}

// BuildMovers computes all three lists with n entries each
func BuildMovers(list []market.Enriched, n int) Movers {
	return Movers{
		Gainers:      TopGainers(list, n),
		Losers:       TopLosers(list, n),
		VolumeSpikes: VolumeSpikes(list, n),
	}
}

// Overview is the market-wide header shown above the table
type Overview struct {
	TotalMarketCap float64          `json:"totalMarketCap"`
	TotalVolume    float64          `json:"totalVolume"`
	BTCDominance   float64          `json:"btcDominance"`
	Assets         int              `json:"assets"`
	BuySignals     int              `json:"buySignals"`
	SellSignals    int              `json:"sellSignals"`
	AverageScore   float64          `json:"averageScore"`
	Sentiment      market.Sentiment `json:"sentiment"`
}

// BuildOverview aggregates totals over the scored universe. Dominance is the
// bitcoin share of the summed market cap, 0 when bitcoin is absent.
func BuildOverview(list []market.Enriched, sent market.Sentiment) Overview {
	ov := Overview{Assets: len(list), Sentiment: sent}
	var btcCap, scoreSum float64
	for _, e := range list {
		ov.TotalMarketCap += e.MarketCap
		ov.TotalVolume += e.TotalVolume
		scoreSum += e.CombinedScore
		if e.ID == "bitcoin" {
			btcCap = e.MarketCap
		}
		switch e.TechnicalSignal.Signal {
		case signal.Buy, signal.StrongBuy:
			ov.BuySignals++
		case signal.Sell, signal.StrongSell:
			ov.SellSignals++
		}
	}
	if ov.TotalMarketCap > 0 {
		ov.BTCDominance = btcCap / ov.TotalMarketCap * 100
	}
	if len(list) > 0 {
		ov.AverageScore = scoreSum / float64(len(list))
	}
	return ov
}
