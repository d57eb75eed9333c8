package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/config"
	"github.com/sawpanic/cryptoinsight/internal/data"
	"github.com/sawpanic/cryptoinsight/internal/domain/indicators"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/scoring"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/infrastructure/cache"
	"github.com/sawpanic/cryptoinsight/internal/infrastructure/db"
	"github.com/sawpanic/cryptoinsight/internal/infrastructure/providers"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

// app owns the long-lived services built from configuration
type app struct {
	cfg     *config.Config
	rng     *rand.Rand
	metrics *metrics.Registry

	redis    *redis.Client
	store    *cache.SnapshotStore
	feed     *providers.CoinGeckoHistory
	database *db.Manager
}

func newApp(cfg *config.Config, seed int64) *app {
	if seed == 0 {
		seed = cfg.Scoring.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &app{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		metrics: metrics.NewRegistry(),
	}
}

// scorer builds the engine, the series source and the orchestrator
func (a *app) scorer(ctx context.Context, sourceKind string, withLedger bool) (*pipeline.Scorer, error) {
	est, err := indicators.NewEstimator(a.cfg.Scoring.Estimator, rand.New(rand.NewSource(a.rng.Int63())))
	if err != nil {
		return nil, err
	}
	engine, err := scoring.NewEngine(est, a.cfg.Scoring.Weights)
	if err != nil {
		return nil, err
	}

	src, err := a.source(ctx, sourceKind)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithWorkers(a.cfg.Scoring.Workers),
		pipeline.WithPeriods(a.cfg.Scoring.TablePeriods, a.cfg.Scoring.DetailPeriods),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithEstimatorName(estimatorName(a.cfg.Scoring.Estimator)),
	}
	if withLedger {
		mgr, err := a.ledger()
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithLedger(mgr.Runs()))
	}

	return pipeline.NewScorer(engine, src, opts...), nil
}

// source resolves the configured series source. Real sources always fall
// back to the synthetic walk.
func (a *app) source(ctx context.Context, kind string) (series.Source, error) {
	if kind == "" {
		kind = a.cfg.Source.Kind
	}
	walk := series.NewRandomWalk(rand.New(rand.NewSource(a.rng.Int63())))

	switch kind {
	case config.SourceSynthetic:
		return walk, nil

	case config.SourceCoinGecko:
		if err := a.cfg.Source.CoinGecko.Validate(); err != nil {
			return nil, fmt.Errorf("coingecko: %w", err)
		}
		a.feed = providers.NewCoinGeckoHistory(a.cfg.Source.CoinGecko)
		var primary series.Source = a.feed
		if a.cfg.Cache.Enabled {
			store, err := a.snapshots(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Snapshot store unavailable, histories will not be recorded")
			} else {
				primary = cache.Recorder{Source: a.feed, Store: store}
			}
		}
		return series.Fallback{Primary: primary, Secondary: walk}, nil

	case config.SourceSnapshot:
		store, err := a.snapshots(ctx)
		if err != nil {
			return nil, err
		}
		return series.Fallback{Primary: store, Secondary: walk}, nil
	}

	return nil, fmt.Errorf("unknown source kind %q", kind)
}

func (a *app) snapshots(ctx context.Context) (*cache.SnapshotStore, error) {
	if a.store != nil {
		return a.store, nil
	}

	a.redis = cache.NewClient(a.cfg.Cache)
	store := cache.NewSnapshotStore(a.redis, a.cfg.Cache.KeyPrefix, a.cfg.Cache.TTL).WithMetrics(a.metrics)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("redis %s: %w", a.cfg.Cache.Addr, err)
	}

	a.store = store
	return store, nil
}

func (a *app) ledger() (*db.Manager, error) {
	if a.database != nil {
		return a.database, nil
	}
	if !a.cfg.Database.Enabled {
		return nil, fmt.Errorf("recording needs database.enabled and a DSN")
	}
	mgr, err := db.NewManager(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.database = mgr
	return mgr, nil
}

func (a *app) Close() {
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// inputSpec says where the universe and sentiment come from
type inputSpec struct {
	assetsPath    string
	sentimentPath string
	fng           int
	fngSet        bool
}

// loadInputs resolves the universe and sentiment. Without an assets file the
// demo universe is used together with its sentiment reading.
func (a *app) loadInputs(in inputSpec) ([]market.Asset, market.Sentiment, error) {
	var assets []market.Asset
	demo := in.assetsPath == ""
	if demo {
		assets = data.DemoAssets(rand.New(rand.NewSource(a.rng.Int63())))
		log.Info().Int("assets", len(assets)).Msg("Using demo universe")
	} else {
		loaded, _, err := data.LoadAssets(in.assetsPath)
		if err != nil {
			return nil, market.Sentiment{}, err
		}
		assets = loaded
	}

	switch {
	case in.fngSet:
		return assets, data.SentimentFromValue(in.fng), nil
	case in.sentimentPath != "":
		sent, _ := data.LoadSentiment(in.sentimentPath)
		return assets, sent, nil
	case demo:
		return assets, data.DemoSentiment(), nil
	default:
		return assets, market.NeutralSentiment(), nil
	}
}

func estimatorName(name string) string {
	if name == "" {
		return indicators.EstimatorStandIn
	}
	return name
}
