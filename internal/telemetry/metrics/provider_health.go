package metrics

import (
	"sort"
	"sync"
	"time"
)

// ProviderHealth tracks request outcomes for an upstream data provider
type ProviderHealth struct {
	providerName    string
	mu              sync.RWMutex
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	lastSuccess     time.Time
	lastFailure     time.Time
	latencies       []time.Duration
	maxLatencies    int
	degraded        bool
	degradedReason  string
}

// HealthStatus represents the current health status
type HealthStatus struct {
	ProviderName   string    `json:"provider_name"`
	IsHealthy      bool      `json:"is_healthy"`
	SuccessRate    float64   `json:"success_rate"`
	P50LatencyMS   int64     `json:"p50_latency_ms"`
	P95LatencyMS   int64     `json:"p95_latency_ms"`
	Degraded       bool      `json:"degraded"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
	TotalRequests  int64     `json:"total_requests"`
	FailedRequests int64     `json:"failed_requests"`
	LastSuccess    time.Time `json:"last_success"`
	LastFailure    time.Time `json:"last_failure"`
}

// NewProviderHealth creates a new provider health tracker
func NewProviderHealth(providerName string) *ProviderHealth {
	return &ProviderHealth{
		providerName: providerName,
		latencies:    make([]time.Duration, 0, 256),
		maxLatencies: 256,
	}
}

// RecordRequest records the result and latency of an API request.
// A success clears the degraded flag.
func (ph *ProviderHealth) RecordRequest(success bool, latency time.Duration) {
	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.totalRequests++

	if success {
		ph.successRequests++
		ph.lastSuccess = time.Now()
		ph.degraded = false
		ph.degradedReason = ""
	} else {
		ph.failedRequests++
		ph.lastFailure = time.Now()
	}

	ph.latencies = append(ph.latencies, latency)
	if len(ph.latencies) > ph.maxLatencies {
		ph.latencies = ph.latencies[len(ph.latencies)-ph.maxLatencies:]
	}
}

// SetDegraded marks the provider as degraded
func (ph *ProviderHealth) SetDegraded(degraded bool, reason string) {
	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.degraded = degraded
	ph.degradedReason = reason
}

// IsHealthy returns true if the provider is considered healthy
func (ph *ProviderHealth) IsHealthy() bool {
	ph.mu.RLock()
	defer ph.mu.RUnlock()
	return ph.healthyLocked()
}

func (ph *ProviderHealth) healthyLocked() bool {
	if ph.degraded {
		return false
	}
	if ph.totalRequests == 0 {
		return true
	}
	return float64(ph.successRequests)/float64(ph.totalRequests) >= 0.9
}

// GetStatus returns the current health status
func (ph *ProviderHealth) GetStatus() HealthStatus {
	ph.mu.RLock()
	defer ph.mu.RUnlock()

	status := HealthStatus{
		ProviderName:   ph.providerName,
		IsHealthy:      ph.healthyLocked(),
		Degraded:       ph.degraded,
		DegradedReason: ph.degradedReason,
		TotalRequests:  ph.totalRequests,
		FailedRequests: ph.failedRequests,
		LastSuccess:    ph.lastSuccess,
		LastFailure:    ph.lastFailure,
		SuccessRate:    1.0,
	}

	if ph.totalRequests > 0 {
		status.SuccessRate = float64(ph.successRequests) / float64(ph.totalRequests)
	}

	if n := len(ph.latencies); n > 0 {
		sorted := make([]time.Duration, n)
		copy(sorted, ph.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		status.P50LatencyMS = sorted[(n-1)*50/100].Milliseconds()
		status.P95LatencyMS = sorted[(n-1)*95/100].Milliseconds()
	}

	return status
}
