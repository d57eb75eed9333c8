package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates the scoring ledger tables when missing
const schema = `
CREATE TABLE IF NOT EXISTS scoring_runs (
	id                       TEXT PRIMARY KEY,
	started_at               TIMESTAMPTZ NOT NULL,
	completed_at             TIMESTAMPTZ NOT NULL,
	source                   TEXT NOT NULL,
	estimator                TEXT NOT NULL,
	periods                  INTEGER NOT NULL,
	sentiment_value          INTEGER NOT NULL CHECK (sentiment_value BETWEEN 0 AND 100),
	sentiment_classification TEXT NOT NULL,
	asset_count              INTEGER NOT NULL,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS asset_scores (
	run_id             TEXT NOT NULL REFERENCES scoring_runs(id) ON DELETE CASCADE,
	asset_id           TEXT NOT NULL,
	symbol             TEXT NOT NULL,
	price              DOUBLE PRECISION NOT NULL,
	technical_signal   TEXT NOT NULL,
	technical_strength DOUBLE PRECISION NOT NULL,
	fundamental_score  DOUBLE PRECISION NOT NULL CHECK (fundamental_score BETWEEN 0 AND 100),
	fundamental_signal TEXT NOT NULL,
	combined_score     DOUBLE PRECISION NOT NULL,
	indicators         JSONB NOT NULL,
	scored_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, asset_id)
);

CREATE INDEX IF NOT EXISTS idx_asset_scores_asset_time ON asset_scores (asset_id, scored_at DESC);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_completed ON scoring_runs (completed_at DESC);
`

// Migrate ensures the scoring ledger schema exists
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}
