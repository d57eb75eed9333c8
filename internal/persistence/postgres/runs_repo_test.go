package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptoinsight/internal/persistence"
)

func newMockRepo(t *testing.T) (persistence.RunsRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewRunsRepo(sqlx.NewDb(mockDB, "postgres"), 5*time.Second), mock
}

func sampleRun() persistence.ScoringRun {
	start := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	return persistence.ScoringRun{
		ID:                      "3f1c9a52-2b64-4b7e-9d61-0a7a4f6f1e21",
		StartedAt:               start,
		CompletedAt:             start.Add(250 * time.Millisecond),
		Source:                  "synthetic",
		Estimator:               "close_only",
		Periods:                 50,
		SentimentValue:          67,
		SentimentClassification: "Greed",
		AssetCount:              2,
	}
}

func TestRunsRepo_Record(t *testing.T) {
	repo, mock := newMockRepo(t)
	run := sampleRun()
	scores := []persistence.AssetScore{
		{AssetID: "bitcoin", Symbol: "btc", Price: 67892.45, TechnicalSignal: "BUY", TechnicalStrength: 0.4,
			FundamentalScore: 45, FundamentalSignal: "HOLD", CombinedScore: 52.4, Indicators: []byte(`{"rsi":61}`), ScoredAt: run.CompletedAt},
		{AssetID: "ethereum", Symbol: "eth", Price: 3456.78, TechnicalSignal: "HOLD", TechnicalStrength: 0.5,
			FundamentalScore: 50, FundamentalSignal: "HOLD", CombinedScore: 46.6, ScoredAt: run.CompletedAt},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scoring_runs").
		WithArgs(run.ID, run.StartedAt, run.CompletedAt, "synthetic", "close_only", 50, 67, "Greed", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO asset_scores").
		WithArgs(run.ID, "bitcoin", "btc", 67892.45, "BUY", 0.4, 45.0, "HOLD", 52.4, []byte(`{"rsi":61}`), run.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO asset_scores").
		WithArgs(run.ID, "ethereum", "eth", 3456.78, "HOLD", 0.5, 50.0, "HOLD", 46.6, []byte("{}"), run.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Record(context.Background(), run, scores))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsRepo_RecordRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scoring_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO asset_scores").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Record(context.Background(), run, []persistence.AssetScore{{AssetID: "bitcoin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bitcoin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsRepo_RecordValidation(t *testing.T) {
	repo, mock := newMockRepo(t)

	run := sampleRun()
	run.ID = ""
	assert.Error(t, repo.Record(context.Background(), run, nil))

	run = sampleRun()
	run.SentimentValue = 140
	assert.Error(t, repo.Record(context.Background(), run, nil))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsRepo_Latest(t *testing.T) {
	repo, mock := newMockRepo(t)
	run := sampleRun()

	cols := []string{"id", "started_at", "completed_at", "source", "estimator", "periods",
		"sentiment_value", "sentiment_classification", "asset_count", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM scoring_runs").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(run.ID, run.StartedAt, run.CompletedAt,
			run.Source, run.Estimator, run.Periods, run.SentimentValue, run.SentimentClassification,
			run.AssetCount, run.CompletedAt))

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 67, got.SentimentValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsRepo_LatestEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM scoring_runs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func scoreColumns() []string {
	return []string{"run_id", "asset_id", "symbol", "price", "technical_signal", "technical_strength",
		"fundamental_score", "fundamental_signal", "combined_score", "indicators", "scored_at"}
}

func TestRunsRepo_Scores(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM asset_scores WHERE run_id").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(scoreColumns()).
			AddRow("run-1", "solana", "sol", 145.5, "STRONG_BUY", 0.8, 70.0, "BUY", 74.2, []byte(`{}`), ts).
			AddRow("run-1", "bitcoin", "btc", 67892.45, "HOLD", 0.5, 45.0, "HOLD", 44.0, []byte(`{}`), ts))

	scores, err := repo.Scores(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "solana", scores[0].AssetID)
	assert.Equal(t, 74.2, scores[0].CombinedScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsRepo_HistoryDefaultsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM asset_scores WHERE asset_id").
		WithArgs("bitcoin", defaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows(scoreColumns()))

	scores, err := repo.History(context.Background(), "bitcoin", 0)
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scoring_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), sqlx.NewDb(mockDB, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
