package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/cryptoinsight/internal/persistence"
)

const defaultHistoryLimit = 20

// runsRepo implements RunsRepo for PostgreSQL
type runsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRunsRepo creates a new PostgreSQL scoring ledger
func NewRunsRepo(db *sqlx.DB, timeout time.Duration) persistence.RunsRepo {
	return &runsRepo{
		db:      db,
		timeout: timeout,
	}
}

const insertRunQuery = `
	INSERT INTO scoring_runs
	(id, started_at, completed_at, source, estimator, periods,
	 sentiment_value, sentiment_classification, asset_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertScoreQuery = `
	INSERT INTO asset_scores
	(run_id, asset_id, symbol, price, technical_signal, technical_strength,
	 fundamental_score, fundamental_signal, combined_score, indicators, scored_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (run_id, asset_id) DO NOTHING`

// Record writes a run and its scores in one transaction
func (r *runsRepo) Record(ctx context.Context, run persistence.ScoringRun, scores []persistence.AssetScore) error {
	if run.ID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if run.SentimentValue < 0 || run.SentimentValue > 100 {
		return fmt.Errorf("sentiment value %d outside [0,100]", run.SentimentValue)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertRunQuery,
		run.ID, run.StartedAt, run.CompletedAt, run.Source, run.Estimator, run.Periods,
		run.SentimentValue, run.SentimentClassification, run.AssetCount); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, s := range scores {
		indicators := s.Indicators
		if len(indicators) == 0 {
			indicators = []byte("{}")
		}
		if _, err := tx.ExecContext(ctx, insertScoreQuery,
			run.ID, s.AssetID, s.Symbol, s.Price, s.TechnicalSignal, s.TechnicalStrength,
			s.FundamentalScore, s.FundamentalSignal, s.CombinedScore, indicators, s.ScoredAt); err != nil {
			return fmt.Errorf("failed to insert score for %s: %w", s.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}

	return nil
}

// Latest returns the most recently completed run
func (r *runsRepo) Latest(ctx context.Context) (*persistence.ScoringRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, started_at, completed_at, source, estimator, periods,
		       sentiment_value, sentiment_classification, asset_count, created_at
		FROM scoring_runs
		ORDER BY completed_at DESC
		LIMIT 1`

	var run persistence.ScoringRun
	if err := r.db.GetContext(ctx, &run, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

// Scores returns all rows of one run, best combined score first
func (r *runsRepo) Scores(ctx context.Context, runID string) ([]persistence.AssetScore, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, asset_id, symbol, price, technical_signal, technical_strength,
		       fundamental_score, fundamental_signal, combined_score, indicators, scored_at
		FROM asset_scores
		WHERE run_id = $1
		ORDER BY combined_score DESC, asset_id ASC`

	var scores []persistence.AssetScore
	if err := r.db.SelectContext(ctx, &scores, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list scores for run %s: %w", runID, err)
	}

	return scores, nil
}

// History returns the latest rows for one asset
func (r *runsRepo) History(ctx context.Context, assetID string, limit int) ([]persistence.AssetScore, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, asset_id, symbol, price, technical_signal, technical_strength,
		       fundamental_score, fundamental_signal, combined_score, indicators, scored_at
		FROM asset_scores
		WHERE asset_id = $1
		ORDER BY scored_at DESC
		LIMIT $2`

	var scores []persistence.AssetScore
	if err := r.db.SelectContext(ctx, &scores, query, assetID, limit); err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", assetID, err)
	}

	return scores, nil
}
