package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptoinsight/internal/config"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
)

func testProviderConfig(baseURL string) config.ProviderConfig {
	cfg := config.DefaultCoinGecko()
	cfg.BaseURL = baseURL
	cfg.RPS = 1000
	cfg.Burst = 100
	cfg.MaxRetries = 0
	cfg.BackoffMS = config.BackoffConfig{Base: 1, Max: 2}
	cfg.Circuit = config.CircuitConfig{FailureThreshold: 5, OpenSeconds: 60, TimeoutMS: 2000}
	cfg.APIKey = "demo-key"
	return cfg
}

func chartJSON(prices ...float64) string {
	points := make([]string, len(prices))
	for i, p := range prices {
		points[i] = fmt.Sprintf("[%d,%g]", 1725667200000+int64(i)*86400000, p)
	}
	return `{"prices":[` + strings.Join(points, ",") + `],"market_caps":[],"total_volumes":[]}`
}

func TestCoinGeckoHistory_Series(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "60", r.URL.Query().Get("days"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chartJSON(60000, 61000, 0, 62000, 63000, 64000))
	}))
	defer srv.Close()

	p := NewCoinGeckoHistory(testProviderConfig(srv.URL))
	s, err := p.Series(context.Background(), market.Asset{ID: "bitcoin", CurrentPrice: 67892.45}, 4)
	require.NoError(t, err)

	// zero dropped, last four kept, final point anchored
	assert.Equal(t, []float64{61000, 62000, 63000, 67892.45}, []float64(s))
	assert.True(t, p.IsHealthy())
	assert.Equal(t, "coingecko", p.Name())
	assert.Equal(t, "closed", p.CircuitState())
}

func TestCoinGeckoHistory_DaysCoverPeriods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "90", r.URL.Query().Get("days"))
		fmt.Fprint(w, chartJSON(1, 2, 3))
	}))
	defer srv.Close()

	p := NewCoinGeckoHistory(testProviderConfig(srv.URL))
	s, err := p.Series(context.Background(), market.Asset{ID: "solana", CurrentPrice: 145.5}, 90)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 145.5}, []float64(s))
}

func TestCoinGeckoHistory_Degraded(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"not found", http.StatusNotFound, `{"error":"coin not found"}`, "http_error"},
		{"rate limited", http.StatusTooManyRequests, ``, "rate_limited"},
		{"bad payload", http.StatusOK, `{"prices": "nope"}`, "decode_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "30")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			p := NewCoinGeckoHistory(testProviderConfig(srv.URL))
			_, err := p.Series(context.Background(), market.Asset{ID: "dogecoin", CurrentPrice: 0.12}, 10)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "PROVIDER_DEGRADED: "+tt.reason)
			assert.False(t, p.IsHealthy())
			assert.Equal(t, tt.reason, p.GetHealth().GetStatus().DegradedReason)
		})
	}
}

func TestCoinGeckoHistory_RecoversAfterSuccess(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, chartJSON(1, 2))
	}))
	defer srv.Close()

	p := NewCoinGeckoHistory(testProviderConfig(srv.URL))
	asset := market.Asset{ID: "cardano", CurrentPrice: 0.35}

	_, err := p.Series(context.Background(), asset, 5)
	require.Error(t, err)

	fail.Store(false)
	_, err = p.Series(context.Background(), asset, 5)
	require.NoError(t, err)
	assert.False(t, p.GetHealth().GetStatus().Degraded)
}

func TestCoinGeckoHistory_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, chartJSON(1))
	}))
	defer srv.Close()

	p := NewCoinGeckoHistory(testProviderConfig(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Series(ctx, market.Asset{ID: "bitcoin", CurrentPrice: 1}, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCoinGeckoHistory_RequiresID(t *testing.T) {
	p := NewCoinGeckoHistory(testProviderConfig("http://127.0.0.1:0"))
	_, err := p.Series(context.Background(), market.Asset{CurrentPrice: 1}, 5)
	assert.Error(t, err)
}

func TestMarketChart_Closes(t *testing.T) {
	c := MarketChart{Prices: [][]float64{{1, 10}, {2}, {3, 30}}}
	assert.Equal(t, []float64{10, 30}, c.Closes())
}
