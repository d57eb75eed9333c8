package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/config"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/infrastructure/httpclient"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

// CoinGeckoHistory is a series.Source backed by the CoinGecko market_chart endpoint
type CoinGeckoHistory struct {
	baseURL        string
	apiKey         string
	vsCurrency     string
	days           int
	client         *httpclient.ClientPool
	health         *metrics.ProviderHealth
	mu             sync.RWMutex
	degraded       bool
	degradedReason string
}

var _ series.Source = (*CoinGeckoHistory)(nil)

// NewCoinGeckoHistory builds the history source from provider configuration
func NewCoinGeckoHistory(cfg config.ProviderConfig) *CoinGeckoHistory {
	clientConfig := httpclient.ClientConfig{
		Name:             "coingecko",
		MaxConcurrency:   cfg.MaxConcurrency,
		RequestTimeout:   cfg.GetRequestTimeout(),
		JitterRange:      [2]int{50, 150},
		MaxRetries:       cfg.MaxRetries,
		BackoffBase:      cfg.GetBaseBackoff(),
		BackoffMax:       cfg.GetMaxBackoff(),
		UserAgent:        cfg.UserAgent,
		RPS:              cfg.RPS,
		Burst:            cfg.Burst,
		FailureThreshold: uint32(cfg.Circuit.FailureThreshold),
		OpenTimeout:      cfg.GetOpenTimeout(),
	}

	return newCoinGeckoHistory(cfg, httpclient.NewClientPool(clientConfig))
}

func newCoinGeckoHistory(cfg config.ProviderConfig, client *httpclient.ClientPool) *CoinGeckoHistory {
	return &CoinGeckoHistory{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		vsCurrency: cfg.VsCurrency,
		days:       cfg.Days,
		client:     client,
		health:     metrics.NewProviderHealth("coingecko"),
	}
}

func (p *CoinGeckoHistory) Name() string { return config.SourceCoinGecko }

// Series fetches daily closes for the asset and anchors them to its current price
func (p *CoinGeckoHistory) Series(ctx context.Context, asset market.Asset, periods int) (series.PriceSeries, error) {
	if asset.ID == "" {
		return nil, fmt.Errorf("coingecko: asset id is required")
	}

	days := p.days
	if days < periods {
		days = periods
	}

	q := url.Values{}
	q.Set("vs_currency", p.vsCurrency)
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", p.baseURL, url.PathEscape(asset.ID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	startTime := time.Now()
	resp, err := p.client.Do(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		p.health.RecordRequest(false, duration)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.handleDegradedState("api_error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.health.RecordRequest(false, duration)
		if resp.StatusCode == http.StatusTooManyRequests {
			p.handleRateLimit(resp)
			return nil, p.handleDegradedState("rate_limited", fmt.Errorf("rate limited by CoinGecko"))
		}
		return nil, p.handleDegradedState("http_error", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	var chart MarketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		p.health.RecordRequest(false, duration)
		return nil, p.handleDegradedState("decode_error", err)
	}

	p.health.RecordRequest(true, duration)
	p.clearDegraded()

	raw := chart.Closes()
	s := series.Anchor(raw, asset.CurrentPrice, periods)

	log.Debug().
		Str("asset", asset.ID).
		Int("points", len(raw)).
		Int("periods", len(s)).
		Dur("duration", duration).
		Msg("CoinGecko history retrieved")

	return s, nil
}

// IsHealthy reports whether the last calls succeeded
func (p *CoinGeckoHistory) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.degraded && p.health.IsHealthy()
}

// GetHealth exposes the provider health tracker
func (p *CoinGeckoHistory) GetHealth() *metrics.ProviderHealth {
	return p.health
}

// CircuitState reports the HTTP breaker state
func (p *CoinGeckoHistory) CircuitState() string {
	return p.client.State()
}

func (p *CoinGeckoHistory) handleRateLimit(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		log.Warn().
			Str("retry_after", retryAfter).
			Msg("CoinGecko rate limit hit")
	}
}

func (p *CoinGeckoHistory) handleDegradedState(reason string, err error) error {
	p.mu.Lock()
	p.degraded = true
	p.degradedReason = reason
	p.mu.Unlock()

	log.Warn().
		Err(err).
		Str("reason", reason).
		Msg("CoinGecko provider degraded")

	p.health.SetDegraded(true, reason)

	return fmt.Errorf("PROVIDER_DEGRADED: %s - %w", reason, err)
}

func (p *CoinGeckoHistory) clearDegraded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.degraded = false
	p.degradedReason = ""
}

// MarketChart is the market_chart response; each point is [unix_ms, value]
type MarketChart struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// Closes returns the price column in chronological order
func (c MarketChart) Closes() []float64 {
	out := make([]float64, 0, len(c.Prices))
	for _, point := range c.Prices {
		if len(point) < 2 {
			continue
		}
		out = append(out, point[1])
	}
	return out
}
