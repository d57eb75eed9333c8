package market

// Sentiment is the market-wide mood index (fear & greed). One value is shared
// by every asset in a scoring pass.
type Sentiment struct {
	Value          int    `json:"value" yaml:"value"`
	Classification string `json:"classification" yaml:"classification"`
}

// NeutralSentiment is used whenever the index is unavailable.
func NeutralSentiment() Sentiment {
	return Sentiment{Value: 50, Classification: "Neutral"}
}

// Clamped returns the sentiment with Value forced into [0,100].
func (s Sentiment) Clamped() Sentiment {
	if s.Value < 0 {
		s.Value = 0
	}
	if s.Value > 100 {
		s.Value = 100
	}
	if s.Classification == "" {
		s.Classification = ClassifySentiment(s.Value)
	}
	return s
}

// ClassifySentiment maps an index value onto the alternative.me buckets.
func ClassifySentiment(value int) string {
	switch {
	case value <= 24:
		return "Extreme Fear"
	case value <= 44:
		return "Fear"
	case value <= 55:
		return "Neutral"
	case value <= 75:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}
