// Package cache keeps replayable price series snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/config"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

// ErrSnapshotMissing is returned when no snapshot exists for an asset
var ErrSnapshotMissing = errors.New("series snapshot missing")

// Snapshot is the stored form of one asset's history
type Snapshot struct {
	AssetID string    `json:"asset_id"`
	Prices  []float64 `json:"prices"`
	SavedAt time.Time `json:"saved_at"`
}

// SnapshotStore reads and writes series snapshots under
// <prefix>:series:<asset>:<periods>, one per requested history length
type SnapshotStore struct {
	client  redis.Cmdable
	prefix  string
	ttl     time.Duration
	metrics *metrics.Registry
	now     func() time.Time
}

// NewClient builds a Redis client from cache configuration
func NewClient(cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewSnapshotStore wraps a Redis client. A zero ttl keeps snapshots forever.
func NewSnapshotStore(client redis.Cmdable, prefix string, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithMetrics records cache hits and misses on the registry
func (s *SnapshotStore) WithMetrics(r *metrics.Registry) *SnapshotStore {
	s.metrics = r
	return s
}

func (s *SnapshotStore) key(assetID string, periods int) string {
	k := fmt.Sprintf("series:%s:%d", assetID, periods)
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Save stores the series recorded for an asset at the given history length
func (s *SnapshotStore) Save(ctx context.Context, assetID string, periods int, prices series.PriceSeries) error {
	data, err := json.Marshal(Snapshot{
		AssetID: assetID,
		Prices:  prices,
		SavedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", assetID, err)
	}

	if err := s.client.Set(ctx, s.key(assetID, periods), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", assetID, err)
	}
	return nil
}

// Load returns the snapshot stored for an asset at the given history length
func (s *SnapshotStore) Load(ctx context.Context, assetID string, periods int) (Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(assetID, periods)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.recordMiss()
		return Snapshot{}, fmt.Errorf("%s: %w", assetID, ErrSnapshotMissing)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot for %s: %w", assetID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt snapshot for %s: %w", assetID, err)
	}

	s.recordHit()
	return snap, nil
}

// Ping checks Redis connectivity
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SnapshotStore) Name() string { return config.SourceSnapshot }

// Series replays a stored history anchored to the asset's current price
func (s *SnapshotStore) Series(ctx context.Context, asset market.Asset, periods int) (series.PriceSeries, error) {
	snap, err := s.Load(ctx, asset.ID, periods)
	if err != nil {
		return nil, err
	}
	return series.Anchor(snap.Prices, asset.CurrentPrice, periods), nil
}

func (s *SnapshotStore) recordHit() {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(metrics.CacheSeries)
	}
}

func (s *SnapshotStore) recordMiss() {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(metrics.CacheSeries)
	}
}

// Recorder passes series through from Source and snapshots each one.
// Store failures are logged and never fail the lookup.
type Recorder struct {
	Source series.Source
	Store  *SnapshotStore
}

func (r Recorder) Name() string { return r.Source.Name() }

func (r Recorder) Series(ctx context.Context, asset market.Asset, periods int) (series.PriceSeries, error) {
	s, err := r.Source.Series(ctx, asset, periods)
	if err != nil {
		return nil, err
	}

	if err := r.Store.Save(ctx, asset.ID, periods, s); err != nil {
		log.Warn().
			Err(err).
			Str("asset", asset.ID).
			Msg("Failed to snapshot price series")
	}
	return s, nil
}
