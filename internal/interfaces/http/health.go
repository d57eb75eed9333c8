package http

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/persistence"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

// Health states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusStarting  = "starting"
	StatusUnhealthy = "unhealthy"
)

// Check states
const (
	CheckPass = "pass"
	CheckWarn = "warn"
	CheckFail = "fail"
)

const checkTimeout = 2 * time.Second

// Pinger is a dependency that can report basic reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderStatus is an upstream feed exposing its health tracker
type ProviderStatus interface {
	Name() string
	GetHealth() *metrics.ProviderHealth
	CircuitState() string
}

// HealthHandler provides system health status endpoint
type HealthHandler struct {
	state      *State
	ledger     persistence.RepositoryHealth
	cache      Pinger
	providers  []ProviderStatus
	metrics    *metrics.Registry
	staleAfter time.Duration
	startTime  time.Time
	version    string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(deps Deps) *HealthHandler {
	return &HealthHandler{
		state:      deps.State,
		ledger:     deps.Ledger,
		cache:      deps.Cache,
		providers:  deps.Providers,
		metrics:    deps.Metrics,
		staleAfter: deps.StaleAfter,
		startTime:  time.Now(),
		version:    deps.Version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime"`
	Version   string                  `json:"version"`
	System    SystemInfo              `json:"system"`
	LastPass  *PassInfo               `json:"last_pass,omitempty"`
	Providers map[string]ProviderInfo `json:"providers,omitempty"`
	Checks    map[string]CheckResult  `json:"checks"`
}

// SystemInfo provides system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// PassInfo describes the published pass
type PassInfo struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
	Age         string    `json:"age"`
	Scored      int       `json:"scored"`
	Skipped     int       `json:"skipped"`
	Source      string    `json:"source"`
}

// ProviderInfo is a feed's health plus its breaker state
type ProviderInfo struct {
	metrics.HealthStatus
	Circuit string `json:"circuit"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// ServeHTTP implements the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.gather(r.Context())

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	switch response.Status {
	case StatusHealthy, StatusDegraded:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}

func (h *HealthHandler) gather(ctx context.Context) HealthResponse {
	now := time.Now()
	response := HealthResponse{
		Timestamp: now.UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		System:    systemInfo(),
		Checks:    make(map[string]CheckResult),
	}

	if pass, ok := h.state.Latest(); ok {
		age := now.Sub(pass.CompletedAt)
		response.LastPass = &PassInfo{
			RunID:       pass.RunID,
			CompletedAt: pass.CompletedAt,
			Age:         age.Round(time.Second).String(),
			Scored:      len(pass.Assets),
			Skipped:     len(pass.Skipped),
			Source:      pass.Source,
		}
		if h.staleAfter > 0 && age > h.staleAfter {
			response.Checks["last_pass"] = CheckResult{Status: CheckWarn, Message: "Last pass is older than " + h.staleAfter.String()}
		} else {
			response.Checks["last_pass"] = CheckResult{Status: CheckPass, Message: "Pass published"}
		}
	} else {
		response.Checks["last_pass"] = CheckResult{Status: CheckFail, Message: "No scoring pass has completed yet"}
	}

	if h.ledger != nil {
		response.Checks["ledger"] = h.ping(ctx, h.ledger, "Ledger reachable")
	}
	if h.cache != nil {
		response.Checks["cache"] = h.ping(ctx, h.cache, "Cache reachable")
	}

	if len(h.providers) > 0 {
		response.Providers = make(map[string]ProviderInfo, len(h.providers))
		for _, p := range h.providers {
			status := p.GetHealth().GetStatus()
			if h.metrics != nil {
				h.metrics.RecordProviderHealth(status)
			}
			response.Providers[p.Name()] = ProviderInfo{HealthStatus: status, Circuit: p.CircuitState()}

			check := CheckResult{Status: CheckPass, Message: "Provider healthy"}
			if !status.IsHealthy || status.Degraded {
				check = CheckResult{Status: CheckWarn, Message: "Provider degraded, series fall back to synthetic"}
			}
			response.Checks["provider_"+p.Name()] = check
		}
	}

	response.Status = overallStatus(response.Checks)
	return response
}

func (h *HealthHandler) ping(ctx context.Context, p Pinger, ok string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return CheckResult{Status: CheckWarn, Message: err.Error(), Duration: time.Since(start)}
	}
	return CheckResult{Status: CheckPass, Message: ok, Duration: time.Since(start)}
}

// overallStatus: no pass yet is starting, any warning is degraded
func overallStatus(checks map[string]CheckResult) string {
	if checks["last_pass"].Status == CheckFail {
		return StatusStarting
	}
	status := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case CheckFail:
			return StatusUnhealthy
		case CheckWarn:
			status = StatusDegraded
		}
	}
	return status
}

func systemInfo() SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemAlloc:      mem.Alloc,
		NumGC:         mem.NumGC,
	}
}
