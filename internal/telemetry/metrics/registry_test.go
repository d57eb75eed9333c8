package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, r *Registry, name string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return metricValue(mf.GetMetric()[0])
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	}
	return 0
}

func TestRegistry_PassLifecycle(t *testing.T) {
	r := NewRegistry()

	r.PassStarted()
	assert.Equal(t, 1.0, gaugeValue(t, r, "cryptoinsight_active_passes"))

	r.RecordScored("BUY")
	r.RecordScored("BUY")
	r.RecordSkipped("invalid_price")
	r.PassFinished(67)

	assert.Equal(t, 0.0, gaugeValue(t, r, "cryptoinsight_active_passes"))
	assert.Equal(t, 1.0, gaugeValue(t, r, "cryptoinsight_passes_total"))
	assert.Equal(t, 2.0, gaugeValue(t, r, "cryptoinsight_assets_scored_total"))
	assert.Equal(t, 67.0, gaugeValue(t, r, "cryptoinsight_sentiment_index"))
	assert.Greater(t, gaugeValue(t, r, "cryptoinsight_last_pass_timestamp_seconds"), 0.0)
}

func TestRegistry_CacheHitRatio(t *testing.T) {
	r := NewRegistry()

	r.RecordCacheHit(CacheSeries)
	r.RecordCacheHit(CacheSeries)
	r.RecordCacheHit(CacheSeries)
	r.RecordCacheMiss(CacheSeries)

	assert.InDelta(t, 0.75, gaugeValue(t, r, "cryptoinsight_cache_hit_ratio"), 1e-9)
}

func TestRegistry_IndependentInstances(t *testing.T) {
	// separate registries must not collide on registration
	a := NewRegistry()
	b := NewRegistry()
	a.RecordSourceError("coingecko")
	assert.Equal(t, 1.0, gaugeValue(t, a, "cryptoinsight_source_errors_total"))

	families, err := b.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.NotEqual(t, "cryptoinsight_source_errors_total", mf.GetName())
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	timer := r.StartStepTimer(StepEvaluate)
	assert.GreaterOrEqual(t, timer.Stop(ResultSuccess), time.Duration(0))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cryptoinsight_step_duration_seconds_count{result="success",step="evaluate"} 1`)
}

func TestProviderHealth(t *testing.T) {
	ph := NewProviderHealth("coingecko")
	assert.True(t, ph.IsHealthy())
	assert.Equal(t, 1.0, ph.GetStatus().SuccessRate)

	ph.RecordRequest(false, 20*time.Millisecond)
	ph.SetDegraded(true, "http_error")
	status := ph.GetStatus()
	assert.False(t, status.IsHealthy)
	assert.Equal(t, "http_error", status.DegradedReason)
	assert.Equal(t, 0.0, status.SuccessRate)

	for i := 0; i < 9; i++ {
		ph.RecordRequest(true, 10*time.Millisecond)
	}
	status = ph.GetStatus()
	assert.True(t, status.IsHealthy)
	assert.False(t, status.Degraded)
	assert.InDelta(t, 0.9, status.SuccessRate, 1e-9)
	assert.Equal(t, int64(10), status.P50LatencyMS)

	r := NewRegistry()
	r.RecordProviderHealth(status)
	assert.InDelta(t, 0.9, gaugeValue(t, r, "cryptoinsight_provider_success_rate"), 1e-9)
}
