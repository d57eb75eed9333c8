package market

import (
	"github.com/sawpanic/cryptoinsight/internal/domain/indicators"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

// Enriched is an asset with everything one scoring pass derived for it.
// It is built once by the engine and never modified afterwards.
type Enriched struct {
	Asset

	Indicators        indicators.Set   `json:"indicators"`
	TechnicalSignal   signal.Technical `json:"technicalSignal"`
	FundamentalScore  float64          `json:"fundamentalScore"`
	FundamentalSignal signal.Signal    `json:"fundamentalSignal"`
	CombinedScore     float64          `json:"combinedScore"`
	Periods           int              `json:"periods"`
}
