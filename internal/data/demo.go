package data

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
)

// demoIDs are the randomized coins appended after the three fixed majors
var demoIDs = []string{
	"solana", "cardano", "ripple", "dogecoin", "polygon", "avalanche-2", "chainlink",
	"litecoin", "uniswap", "ethereum-classic", "stellar", "filecoin", "vechain", "algorand",
}

// DemoSentiment is the index shown with the demo universe
func DemoSentiment() market.Sentiment {
	return market.Sentiment{Value: 67, Classification: "Greed"}
}

// DemoAssets builds the offline universe: bitcoin, ethereum and BNB with fixed
// figures followed by fourteen coins with randomized market data. A nil rng is
// seeded from the clock.
func DemoAssets(rng *rand.Rand) []market.Asset {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	assets := []market.Asset{
		{
			ID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
			Image:        "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
			CurrentPrice: 67892.45, MarketCap: 1_340_000_000_000, MarketCapRank: 1,
			PriceChangePercentage1h:  market.Float(0.8),
			PriceChangePercentage24h: market.Float(2.5),
			PriceChangePercentage7d:  market.Float(-1.2),
			PriceChangePercentage30d: market.Float(15.3),
			TotalVolume:              28_000_000_000, ATH: 73750,
			ATHChangePercentage: market.Float(-7.9),
			CirculatingSupply:   19_700_000, MaxSupply: market.Float(21_000_000),
		},
		{
			ID: "ethereum", Symbol: "eth", Name: "Ethereum",
			Image:        "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
			CurrentPrice: 3456.78, MarketCap: 415_000_000_000, MarketCapRank: 2,
			PriceChangePercentage1h:  market.Float(-0.3),
			PriceChangePercentage24h: market.Float(-1.2),
			PriceChangePercentage7d:  market.Float(4.8),
			PriceChangePercentage30d: market.Float(8.7),
			TotalVolume:              12_000_000_000, ATH: 4878,
			ATHChangePercentage: market.Float(-29.1),
			CirculatingSupply:   120_000_000,
		},
		{
			ID: "binancecoin", Symbol: "bnb", Name: "BNB",
			Image:        "https://assets.coingecko.com/coins/images/825/large/bnb-icon2_2x.png",
			CurrentPrice: 592.45, MarketCap: 85_600_000_000, MarketCapRank: 4,
			PriceChangePercentage1h:  market.Float(1.2),
			PriceChangePercentage24h: market.Float(4.8),
			PriceChangePercentage7d:  market.Float(-2.3),
			PriceChangePercentage30d: market.Float(-5.2),
			TotalVolume:              1_800_000_000, ATH: 686.31,
			ATHChangePercentage: market.Float(-13.7),
			CirculatingSupply:   144_000_000, MaxSupply: market.Float(200_000_000),
		},
	}

	for i, id := range demoIDs {
		symbol := id
		if len(symbol) > 4 {
			symbol = symbol[:4]
		}

		a := market.Asset{
			ID:                       id,
			Symbol:                   symbol,
			Name:                     strings.ToUpper(id[:1]) + id[1:],
			Image:                    fmt.Sprintf("https://assets.coingecko.com/coins/images/%d/large/%s.png", 100+i, id),
			CurrentPrice:             rng.Float64()*100 + 1,
			MarketCap:                rng.Float64()*50_000_000_000 + 1_000_000_000,
			MarketCapRank:            5 + i,
			PriceChangePercentage1h:  market.Float((rng.Float64() - 0.5) * 6),
			PriceChangePercentage24h: market.Float((rng.Float64() - 0.5) * 20),
			PriceChangePercentage7d:  market.Float((rng.Float64() - 0.5) * 40),
			PriceChangePercentage30d: market.Float((rng.Float64() - 0.5) * 60),
			TotalVolume:              rng.Float64()*5_000_000_000 + 100_000_000,
			ATH:                      (rng.Float64()*100 + 50) * (rng.Float64()*2 + 1),
			ATHChangePercentage:      market.Float(-rng.Float64() * 80),
			CirculatingSupply:        rng.Float64()*1_000_000_000 + 100_000_000,
		}
		if rng.Float64() > 0.3 {
			a.MaxSupply = market.Float(rng.Float64()*2_000_000_000 + 1_000_000_000)
		}
		assets = append(assets, a)
	}

	return assets
}

// DemoProvenance labels inputs that came from the demo universe
func DemoProvenance() Provenance {
	return Provenance{Origin: OriginDemo, LoadedAt: time.Now().UTC()}
}
