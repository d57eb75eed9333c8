package http

import (
	"encoding/json"
	"time"

	"github.com/sawpanic/cryptoinsight/internal/application/views"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

// AssetsResponse is the main table
type AssetsResponse struct {
	RunID      string            `json:"run_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     string            `json:"source"`
	View       views.View        `json:"view"`
	OnlyBuy    bool              `json:"only_buy"`
	Sort       string            `json:"sort"`
	TotalCount int               `json:"total_count"`
	Count      int               `json:"count"`
	Sentiment  market.Sentiment  `json:"sentiment"`
	Assets     []market.Enriched `json:"assets"`
}

// AssetDetailResponse is one asset rescored on the detail history
type AssetDetailResponse struct {
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Periods   int             `json:"periods"`
	Asset     market.Enriched `json:"asset"`
	Votes     signal.Votes    `json:"votes"`
}

// HistoryResponse lists recorded scores of one asset, newest first
type HistoryResponse struct {
	AssetID string        `json:"asset_id"`
	Count   int           `json:"count"`
	Scores  []HistoryItem `json:"scores"`
}

// HistoryItem is one ledger row
type HistoryItem struct {
	RunID             string          `json:"run_id"`
	ScoredAt          time.Time       `json:"scored_at"`
	Price             float64         `json:"price"`
	TechnicalSignal   string          `json:"technicalSignal"`
	TechnicalStrength float64         `json:"technicalStrength"`
	FundamentalScore  float64         `json:"fundamentalScore"`
	FundamentalSignal string          `json:"fundamentalSignal"`
	CombinedScore     float64         `json:"combinedScore"`
	Indicators        json.RawMessage `json:"indicators,omitempty"`
}

// MoversResponse carries the three movers lists
type MoversResponse struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	views.Movers
}

// OverviewResponse is the market header
type OverviewResponse struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	views.Overview
}

// SentimentResponse reports the index shared by the last pass
type SentimentResponse struct {
	RunID     string           `json:"run_id"`
	Timestamp time.Time        `json:"timestamp"`
	Sentiment market.Sentiment `json:"sentiment"`
	Score     float64          `json:"score"` // contrarian contribution, 100 - value
}

// ErrorResponse represents API error responses
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
