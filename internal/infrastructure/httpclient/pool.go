package httpclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit open")

// errUpstreamStatus marks a delivered response the breaker must count as a failure
var errUpstreamStatus = errors.New("upstream status")

type ClientConfig struct {
	Name           string
	MaxConcurrency int
	RequestTimeout time.Duration
	JitterRange    [2]int // Min/max jitter in milliseconds
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UserAgent      string

	RPS   float64 // Requests per second, 0 disables limiting
	Burst int

	FailureThreshold uint32        // Consecutive failures that open the breaker, 0 disables it
	OpenTimeout      time.Duration // Time spent open before a probe
}

type ClientPool struct {
	config    ClientConfig
	semaphore chan struct{}
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	mu        sync.RWMutex
	stats     ClientStats
}

type ClientStats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	RetriedRequests int64
	RejectedByOpen  int64
	TotalLatency    time.Duration
	P50Latency      time.Duration
	P95Latency      time.Duration
}

func NewClientPool(config ClientConfig) *ClientPool {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}

	cp := &ClientPool{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}

	if config.RPS > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		cp.limiter = rate.NewLimiter(rate.Limit(config.RPS), burst)
	}

	if config.FailureThreshold > 0 {
		threshold := config.FailureThreshold
		cp.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        config.Name,
			MaxRequests: 1,
			Timeout:     config.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("client", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("HTTP circuit state change")
			},
		})
	}

	return cp
}

// Do sends req honouring the concurrency cap, the rate limit and the breaker.
// A retryable status that persists past the last attempt is returned to the
// caller as a response but counts as a breaker failure.
func (cp *ClientPool) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case cp.semaphore <- struct{}{}:
		defer func() { <-cp.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if cp.config.UserAgent != "" {
		req.Header.Set("User-Agent", cp.config.UserAgent)
	}

	if cp.breaker == nil {
		return cp.doWithRetry(ctx, req)
	}

	result, err := cp.breaker.Execute(func() (interface{}, error) {
		resp, err := cp.doWithRetry(ctx, req)
		if err == nil && isRetryableStatus(resp.StatusCode) {
			return resp, errUpstreamStatus
		}
		return resp, err
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		cp.incrementStat("rejected")
		return nil, fmt.Errorf("%s: %w", cp.config.Name, ErrCircuitOpen)
	case errors.Is(err, errUpstreamStatus):
		return result.(*http.Response), nil
	case err != nil:
		return nil, err
	}
	return result.(*http.Response), nil
}

func (cp *ClientPool) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	if err := cp.applyJitter(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= cp.config.MaxRetries; attempt++ {
		if attempt > 0 {
			cp.incrementStat("retried")

			backoff := cp.calculateBackoff(attempt)
			log.Debug().
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Str("url", req.URL.String()).
				Msg("Retrying HTTP request")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if cp.limiter != nil {
			if err := cp.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := cp.client.Do(req.WithContext(ctx))
		cp.recordLatency(time.Since(startTime))

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				cp.incrementStat("failed")
				return nil, ctx.Err()
			}
			if isRetryableError(err) {
				continue
			}
			break
		}

		if isRetryableStatus(resp.StatusCode) && attempt < cp.config.MaxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
			continue
		}

		cp.incrementStat("success")
		return resp, nil
	}

	cp.incrementStat("failed")
	return nil, lastErr
}

// State reports the breaker state, "disabled" without a breaker
func (cp *ClientPool) State() string {
	if cp.breaker == nil {
		return "disabled"
	}
	return cp.breaker.State().String()
}

func (cp *ClientPool) applyJitter(ctx context.Context) error {
	if cp.config.JitterRange[0] >= cp.config.JitterRange[1] {
		return nil // No jitter configured
	}

	min := cp.config.JitterRange[0]
	max := cp.config.JitterRange[1]
	jitter := time.Duration(rand.Intn(max-min)+min) * time.Millisecond

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cp *ClientPool) calculateBackoff(attempt int) time.Duration {
	backoff := cp.config.BackoffBase * time.Duration(1<<uint(attempt-1))
	if cp.config.BackoffMax > 0 && backoff > cp.config.BackoffMax {
		backoff = cp.config.BackoffMax
	}

	// Add up to 10% jitter to backoff
	jitter := time.Duration(rand.Float64() * 0.1 * float64(backoff))
	return backoff + jitter
}

func (cp *ClientPool) GetStats() ClientStats {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.stats
}

func (cp *ClientPool) incrementStat(statType string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	cp.stats.TotalRequests++

	switch statType {
	case "success":
		cp.stats.SuccessRequests++
	case "failed":
		cp.stats.FailedRequests++
	case "retried":
		cp.stats.RetriedRequests++
	case "rejected":
		cp.stats.RejectedByOpen++
	}
}

func (cp *ClientPool) recordLatency(duration time.Duration) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	cp.stats.TotalLatency += duration

	if cp.stats.P50Latency == 0 {
		cp.stats.P50Latency = duration
		cp.stats.P95Latency = duration
		return
	}

	// Exponential moving average approximation
	alpha := 0.1
	cp.stats.P50Latency = time.Duration(float64(cp.stats.P50Latency)*(1-alpha) + float64(duration)*alpha)

	alpha95 := 0.05
	if duration > cp.stats.P95Latency {
		alpha95 = 0.2 // React faster to higher latencies
	}
	cp.stats.P95Latency = time.Duration(float64(cp.stats.P95Latency)*(1-alpha95) + float64(duration)*alpha95)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, retryable := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"eof",
	} {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
