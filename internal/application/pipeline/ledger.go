package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/persistence"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

// ErrNoLedger is returned by Record when no ledger is configured
var ErrNoLedger = errors.New("scoring ledger not configured")

// Record writes a completed pass to the ledger
func (s *Scorer) Record(ctx context.Context, res *Result) error {
	if s.ledger == nil {
		return ErrNoLedger
	}

	run, scores, err := ToLedger(res, s.estimatorName)
	if err != nil {
		return err
	}

	timer := s.startTimer(metrics.StepRecord)
	if err := s.ledger.Record(ctx, run, scores); err != nil {
		s.stopTimer(timer, metrics.ResultError)
		if s.metrics != nil {
			s.metrics.RecordPipelineError(metrics.StepRecord, "ledger_write")
		}
		log.Error().Err(err).Str("run_id", res.RunID).Msg("Failed to record scoring pass")
		return fmt.Errorf("record pass %s: %w", res.RunID, err)
	}
	s.stopTimer(timer, metrics.ResultSuccess)

	log.Info().
		Str("run_id", res.RunID).
		Int("rows", len(scores)).
		Msg("Scoring pass recorded")
	return nil
}

// ToLedger converts a pass into ledger rows
func ToLedger(res *Result, estimator string) (persistence.ScoringRun, []persistence.AssetScore, error) {
	run := persistence.ScoringRun{
		ID:                      res.RunID,
		StartedAt:               res.StartedAt,
		CompletedAt:             res.CompletedAt,
		Source:                  res.Source,
		Estimator:               estimator,
		Periods:                 res.Periods,
		SentimentValue:          res.Sentiment.Value,
		SentimentClassification: res.Sentiment.Classification,
		AssetCount:              len(res.Assets),
	}

	scores := make([]persistence.AssetScore, 0, len(res.Assets))
	for _, e := range res.Assets {
		ind, err := json.Marshal(e.Indicators)
		if err != nil {
			return persistence.ScoringRun{}, nil, fmt.Errorf("encode indicators for %s: %w", e.ID, err)
		}
		scores = append(scores, persistence.AssetScore{
			RunID:             res.RunID,
			AssetID:           e.ID,
			Symbol:            e.Symbol,
			Price:             e.CurrentPrice,
			TechnicalSignal:   string(e.TechnicalSignal.Signal),
			TechnicalStrength: e.TechnicalSignal.Strength,
			FundamentalScore:  e.FundamentalScore,
			FundamentalSignal: string(e.FundamentalSignal),
			CombinedScore:     e.CombinedScore,
			Indicators:        ind,
			ScoredAt:          res.CompletedAt,
		})
	}

	return run, scores, nil
}
