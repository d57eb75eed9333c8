package persistence

import (
	"context"
	"time"
)

// ScoringRun is one completed scoring pass
type ScoringRun struct {
	ID                      string    `json:"id" db:"id"`
	StartedAt               time.Time `json:"started_at" db:"started_at"`
	CompletedAt             time.Time `json:"completed_at" db:"completed_at"`
	Source                  string    `json:"source" db:"source"`
	Estimator               string    `json:"estimator" db:"estimator"`
	Periods                 int       `json:"periods" db:"periods"`
	SentimentValue          int       `json:"sentiment_value" db:"sentiment_value"`
	SentimentClassification string    `json:"sentiment_classification" db:"sentiment_classification"`
	AssetCount              int       `json:"asset_count" db:"asset_count"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
}

// AssetScore is the ledger row for one asset within a run
type AssetScore struct {
	RunID             string    `json:"run_id" db:"run_id"`
	AssetID           string    `json:"asset_id" db:"asset_id"`
	Symbol            string    `json:"symbol" db:"symbol"`
	Price             float64   `json:"price" db:"price"`
	TechnicalSignal   string    `json:"technical_signal" db:"technical_signal"`
	TechnicalStrength float64   `json:"technical_strength" db:"technical_strength"`
	FundamentalScore  float64   `json:"fundamental_score" db:"fundamental_score"`
	FundamentalSignal string    `json:"fundamental_signal" db:"fundamental_signal"`
	CombinedScore     float64   `json:"combined_score" db:"combined_score"`
	Indicators        []byte    `json:"indicators" db:"indicators"` // JSON encoded indicator set
	ScoredAt          time.Time `json:"scored_at" db:"scored_at"`
}

// RunsRepo stores scoring passes and their per-asset results
type RunsRepo interface {
	// Record writes the run and all of its scores atomically
	Record(ctx context.Context, run ScoringRun, scores []AssetScore) error

	// Latest returns the most recent run, nil when none exist
	Latest(ctx context.Context) (*ScoringRun, error)

	// Scores returns the rows of one run ordered by combined score
	Scores(ctx context.Context, runID string) ([]AssetScore, error)

	// History returns the most recent rows for one asset, newest first
	History(ctx context.Context, assetID string, limit int) ([]AssetScore, error)
}

// Repository aggregates all repository interfaces
type Repository struct {
	Runs RunsRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck

	// Ping tests basic connectivity to database
	Ping(ctx context.Context) error
}
