package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment(t *testing.T) {
	assert.Equal(t, "Extreme Fear", ClassifySentiment(0))
	assert.Equal(t, "Extreme Fear", ClassifySentiment(24))
	assert.Equal(t, "Fear", ClassifySentiment(25))
	assert.Equal(t, "Neutral", ClassifySentiment(50))
	assert.Equal(t, "Greed", ClassifySentiment(67))
	assert.Equal(t, "Extreme Greed", ClassifySentiment(90))
}

func TestSentiment_Clamped(t *testing.T) {
	assert.Equal(t, Sentiment{Value: 0, Classification: "Extreme Fear"}, Sentiment{Value: -4}.Clamped())
	assert.Equal(t, Sentiment{Value: 100, Classification: "Extreme Greed"}, Sentiment{Value: 101}.Clamped())
	assert.Equal(t, Sentiment{Value: 67, Classification: "Greed"}, Sentiment{Value: 67, Classification: "Greed"}.Clamped())
	assert.Equal(t, 50, NeutralSentiment().Value)
}

func TestAsset_OptionalFields(t *testing.T) {
	a := Asset{CurrentPrice: 1}
	assert.Equal(t, 0.0, a.ATHDistance())
	assert.Equal(t, 0.0, a.Performance30d())
	assert.Equal(t, 0.0, a.Change24h())

	a.ATHChangePercentage = Float(-29.1)
	a.PriceChangePercentage30d = Float(math.NaN())
	assert.InDelta(t, 29.1, a.ATHDistance(), 1e-12)
	assert.Equal(t, 0.0, a.Performance30d())
}

func TestAsset_Valid(t *testing.T) {
	assert.True(t, Asset{CurrentPrice: 0.0001}.Valid())
	assert.False(t, Asset{CurrentPrice: 0}.Valid())
	assert.False(t, Asset{CurrentPrice: -3}.Valid())
	assert.False(t, Asset{CurrentPrice: math.Inf(1)}.Valid())
}
