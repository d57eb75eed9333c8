package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

var fixedTime = time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)

func newTestStore() (*SnapshotStore, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	store := NewSnapshotStore(db, "ci", 15*time.Minute)
	store.now = func() time.Time { return fixedTime }
	return store, mock
}

func encoded(t *testing.T, assetID string, prices []float64) []byte {
	t.Helper()
	data, err := json.Marshal(Snapshot{AssetID: assetID, Prices: prices, SavedAt: fixedTime})
	require.NoError(t, err)
	return data
}

func TestSnapshotStore_Save(t *testing.T) {
	store, mock := newTestStore()
	prices := series.PriceSeries{1, 2, 3}

	mock.ExpectSet("ci:series:bitcoin:3", encoded(t, "bitcoin", prices), 15*time.Minute).SetVal("OK")

	require.NoError(t, store.Save(context.Background(), "bitcoin", 3, prices))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_SaveError(t *testing.T) {
	store, mock := newTestStore()
	prices := series.PriceSeries{1}

	mock.ExpectSet("ci:series:bitcoin:1", encoded(t, "bitcoin", prices), 15*time.Minute).SetErr(errors.New("READONLY"))

	err := store.Save(context.Background(), "bitcoin", 1, prices)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestSnapshotStore_Series(t *testing.T) {
	store, mock := newTestStore()
	reg := metrics.NewRegistry()
	store.WithMetrics(reg)
	ctx := context.Background()

	t.Run("hit replays anchored history", func(t *testing.T) {
		mock.ExpectGet("ci:series:ethereum:3").SetVal(string(encoded(t, "ethereum", []float64{3000, 3100, 3200, 3300})))

		s, err := store.Series(ctx, market.Asset{ID: "ethereum", CurrentPrice: 3456.78}, 3)
		require.NoError(t, err)
		assert.Equal(t, series.PriceSeries{3100, 3200, 3456.78}, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss is ErrSnapshotMissing", func(t *testing.T) {
		mock.ExpectGet("ci:series:dogecoin:3").RedisNil()

		_, err := store.Series(ctx, market.Asset{ID: "dogecoin", CurrentPrice: 0.12}, 3)
		assert.ErrorIs(t, err, ErrSnapshotMissing)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure is not a miss", func(t *testing.T) {
		mock.ExpectGet("ci:series:solana:3").SetErr(redis.TxFailedErr)

		_, err := store.Series(ctx, market.Asset{ID: "solana", CurrentPrice: 145.5}, 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSnapshotMissing)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		mock.ExpectGet("ci:series:cardano:3").SetVal("{not json")

		_, err := store.Series(ctx, market.Asset{ID: "cardano", CurrentPrice: 0.35}, 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "corrupt")
	})

	assert.Equal(t, "snapshot", store.Name())
}

type staticSource struct{ s series.PriceSeries }

func (f staticSource) Name() string { return "static" }
func (f staticSource) Series(context.Context, market.Asset, int) (series.PriceSeries, error) {
	return f.s, nil
}

func TestRecorder(t *testing.T) {
	store, mock := newTestStore()
	prices := series.PriceSeries{10, 11, 12}

	mock.ExpectSet("ci:series:bitcoin:3", encoded(t, "bitcoin", prices), 15*time.Minute).SetErr(errors.New("connection refused"))

	rec := Recorder{Source: staticSource{prices}, Store: store}
	s, err := rec.Series(context.Background(), market.Asset{ID: "bitcoin", CurrentPrice: 12}, 3)

	// the store failure does not surface
	require.NoError(t, err)
	assert.Equal(t, prices, s)
	assert.Equal(t, "static", rec.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_KeyWithoutPrefix(t *testing.T) {
	store := NewSnapshotStore(nil, "", 0)
	assert.Equal(t, "series:bitcoin:50", store.key("bitcoin", 50))
}

// flatSource returns periods copies of the current price
type flatSource struct{}

func (flatSource) Name() string { return "flat" }
func (flatSource) Series(_ context.Context, asset market.Asset, periods int) (series.PriceSeries, error) {
	out := make(series.PriceSeries, periods)
	for i := range out {
		out[i] = asset.CurrentPrice
	}
	return out, nil
}

func TestRecorder_DetailDoesNotReplaceTableSnapshot(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	btc := market.Asset{ID: "bitcoin", CurrentPrice: 100}

	table, _ := flatSource{}.Series(ctx, btc, series.TablePeriods)
	detail, _ := flatSource{}.Series(ctx, btc, series.DetailPeriods)

	mock.ExpectSet("ci:series:bitcoin:50", encoded(t, "bitcoin", table), 15*time.Minute).SetVal("OK")
	mock.ExpectSet("ci:series:bitcoin:24", encoded(t, "bitcoin", detail), 15*time.Minute).SetVal("OK")
	mock.ExpectGet("ci:series:bitcoin:50").SetVal(string(encoded(t, "bitcoin", table)))

	rec := Recorder{Source: flatSource{}, Store: store}
	_, err := rec.Series(ctx, btc, series.TablePeriods)
	require.NoError(t, err)
	_, err = rec.Series(ctx, btc, series.DetailPeriods)
	require.NoError(t, err)

	replayed, err := store.Series(ctx, btc, series.TablePeriods)
	require.NoError(t, err)
	assert.Len(t, replayed, series.TablePeriods)
	assert.NoError(t, mock.ExpectationsWereMet())
}
