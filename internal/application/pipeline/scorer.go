package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/scoring"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
	"github.com/sawpanic/cryptoinsight/internal/persistence"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

// Skip reasons
const (
	SkipInvalidPrice = "invalid_price"
	SkipSeriesError  = "series_error"
)

const defaultWorkers = 4

// Scorer runs scoring passes: it resolves each asset's series through the
// source and hands it to the engine. Results keep the input order.
type Scorer struct {
	engine        *scoring.Engine
	source        series.Source
	periods       int
	detailPeriods int
	workers       int
	estimatorName string
	metrics       *metrics.Registry
	ledger        persistence.RunsRepo
	now           func() time.Time
}

// Option configures a Scorer
type Option func(*Scorer)

// WithWorkers bounds the number of assets evaluated concurrently
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPeriods sets the table and detail history lengths
func WithPeriods(table, detail int) Option {
	return func(s *Scorer) {
		if table > 0 {
			s.periods = table
		}
		if detail > 0 {
			s.detailPeriods = detail
		}
	}
}

// WithMetrics records pass and asset metrics on the registry
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Scorer) { s.metrics = r }
}

// WithLedger enables Record
func WithLedger(repo persistence.RunsRepo) Option {
	return func(s *Scorer) { s.ledger = repo }
}

// WithEstimatorName labels ledger rows with the ADX/CCI strategy in use
func WithEstimatorName(name string) Option {
	return func(s *Scorer) { s.estimatorName = name }
}

// NewScorer creates an orchestrator over engine and source
func NewScorer(engine *scoring.Engine, source series.Source, opts ...Option) *Scorer {
	s := &Scorer{
		engine:        engine,
		source:        source,
		periods:       series.TablePeriods,
		detailPeriods: series.DetailPeriods,
		workers:       defaultWorkers,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Skip notes an asset that produced no record in a pass
type Skip struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of one pass
type Result struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Source      string            `json:"source"`
	Periods     int               `json:"periods"`
	Sentiment   market.Sentiment  `json:"sentiment"`
	Assets      []market.Enriched `json:"assets"`
	Skipped     []Skip            `json:"skipped,omitempty"`
}

// Run scores every valid asset against one shared sentiment value
func (s *Scorer) Run(ctx context.Context, assets []market.Asset, sent market.Sentiment) (*Result, error) {
	sent = sent.Clamped()
	res := &Result{
		RunID:     uuid.New().String(),
		StartedAt: s.now().UTC(),
		Source:    s.source.Name(),
		Periods:   s.periods,
		Sentiment: sent,
	}

	if s.metrics != nil {
		s.metrics.PassStarted()
		defer s.metrics.PassFinished(sent.Value)
	}
	timer := s.startTimer(metrics.StepPass)

	logger := log.With().Str("run_id", res.RunID).Logger()
	logger.Info().
		Int("assets", len(assets)).
		Int("sentiment", sent.Value).
		Str("source", res.Source).
		Msg("Scoring pass started")

	slots := make([]*market.Enriched, len(assets))
	failures := make([]error, len(assets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				e, err := s.evaluate(ctx, assets[i], sent, s.periods)
				if err != nil {
					failures[i] = err
					continue
				}
				slots[i] = &e
			}
		}()
	}

feed:
	for i, a := range assets {
		if !a.Valid() {
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.stopTimer(timer, metrics.ResultError)
		logger.Warn().Err(err).Msg("Scoring pass cancelled")
		return nil, err
	}

	res.Assets = make([]market.Enriched, 0, len(assets))
	for i, a := range assets {
		switch {
		case !a.Valid():
			res.Skipped = append(res.Skipped, Skip{AssetID: a.ID, Reason: SkipInvalidPrice})
			s.recordSkipped(SkipInvalidPrice)
			logger.Warn().
				Str("asset", a.ID).
				Float64("price", a.CurrentPrice).
				Msg("Skipping asset without a positive price")
		case failures[i] != nil:
			res.Skipped = append(res.Skipped, Skip{AssetID: a.ID, Reason: SkipSeriesError, Error: failures[i].Error()})
			s.recordSkipped(SkipSeriesError)
			logger.Warn().
				Err(failures[i]).
				Str("asset", a.ID).
				Msg("Skipping asset without a price series")
		case slots[i] != nil:
			res.Assets = append(res.Assets, *slots[i])
			if s.metrics != nil {
				s.metrics.RecordScored(string(slots[i].TechnicalSignal.Signal))
			}
		}
	}

	res.CompletedAt = s.now().UTC()
	duration := s.stopTimer(timer, metrics.ResultSuccess)

	logger.Info().
		Int("scored", len(res.Assets)).
		Int("skipped", len(res.Skipped)).
		Dur("duration", duration).
		Msg("Scoring pass completed")

	return res, nil
}

// Detail rescores one asset on the shorter detail history
func (s *Scorer) Detail(ctx context.Context, asset market.Asset, sent market.Sentiment) (market.Enriched, error) {
	if !asset.Valid() {
		return market.Enriched{}, fmt.Errorf("asset %s has no positive price", asset.ID)
	}
	return s.evaluate(ctx, asset, sent.Clamped(), s.detailPeriods)
}

// SourceName reports the configured series source
func (s *Scorer) SourceName() string {
	return s.source.Name()
}

func (s *Scorer) evaluate(ctx context.Context, asset market.Asset, sent market.Sentiment, periods int) (market.Enriched, error) {
	seriesTimer := s.startTimer(metrics.StepSeries)
	prices, err := s.source.Series(ctx, asset, periods)
	if err != nil {
		s.stopTimer(seriesTimer, metrics.ResultError)
		if s.metrics != nil && !errors.Is(err, context.Canceled) {
			s.metrics.RecordSourceError(s.source.Name())
		}
		return market.Enriched{}, fmt.Errorf("series for %s: %w", asset.ID, err)
	}
	s.stopTimer(seriesTimer, metrics.ResultSuccess)

	evalTimer := s.startTimer(metrics.StepEvaluate)
	e := s.engine.Evaluate(asset, prices, sent)
	s.stopTimer(evalTimer, metrics.ResultSuccess)
	return e, nil
}

func (s *Scorer) startTimer(step string) *metrics.StepTimer {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.StartStepTimer(step)
}

func (s *Scorer) stopTimer(t *metrics.StepTimer, result string) time.Duration {
	if t == nil {
		return 0
	}
	return t.Stop(result)
}

func (s *Scorer) recordSkipped(reason string) {
	if s.metrics != nil {
		s.metrics.RecordSkipped(reason)
	}
}

// Summary is the compact form of a pass pushed to subscribers
type Summary struct {
	RunID       string                `json:"run_id"`
	CompletedAt time.Time             `json:"completed_at"`
	Source      string                `json:"source"`
	Sentiment   market.Sentiment      `json:"sentiment"`
	Scored      int                   `json:"scored"`
	Skipped     int                   `json:"skipped"`
	Signals     map[signal.Signal]int `json:"signals"`
	Leader      string                `json:"leader,omitempty"`
	LeaderScore float64               `json:"leader_score,omitempty"`
}

// Summary condenses a pass: signal counts and the best combined score
func (r *Result) Summary() Summary {
	sum := Summary{
		RunID:       r.RunID,
		CompletedAt: r.CompletedAt,
		Source:      r.Source,
		Sentiment:   r.Sentiment,
		Scored:      len(r.Assets),
		Skipped:     len(r.Skipped),
		Signals:     make(map[signal.Signal]int),
	}
	for i, e := range r.Assets {
		sum.Signals[e.TechnicalSignal.Signal]++
		if i == 0 || e.CombinedScore > sum.LeaderScore {
			sum.Leader = e.ID
			sum.LeaderScore = e.CombinedScore
		}
	}
	return sum
}

// Find returns the record of one asset in the pass
func (r *Result) Find(assetID string) (market.Enriched, bool) {
	for _, e := range r.Assets {
		if e.ID == assetID {
			return e, true
		}
	}
	return market.Enriched{}, false
}
