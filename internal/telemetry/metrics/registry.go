package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Pipeline steps
const (
	StepSeries   = "series"
	StepEvaluate = "evaluate"
	StepPass     = "pass"
	StepRecord   = "record"
)

// Step results
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// CacheSeries labels the price series snapshot cache
const CacheSeries = "series"

// Registry holds all Prometheus metrics for CryptoInsight
type Registry struct {
	reg *prometheus.Registry

	StepDuration *prometheus.HistogramVec
	PipelineErrs *prometheus.CounterVec

	PassesTotal   prometheus.Counter
	ActivePasses  prometheus.Gauge
	LastPassTime  prometheus.Gauge
	AssetsScored  *prometheus.CounterVec
	AssetsSkipped *prometheus.CounterVec
	Sentiment     prometheus.Gauge

	SourceErrors *prometheus.CounterVec

	CacheHitRatio prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	WSClients prometheus.Gauge

	ProviderSuccessRate *prometheus.GaugeVec
	ProviderDegraded    *prometheus.GaugeVec
}

// NewRegistry creates a registry with every CryptoInsight collector registered
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptoinsight_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"step", "result"},
		),

		PipelineErrs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoinsight_pipeline_errors_total",
				Help: "Total number of pipeline errors by step",
			},
			[]string{"step", "error_type"},
		),

		PassesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cryptoinsight_passes_total",
				Help: "Total number of scoring passes started",
			},
		),

		ActivePasses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_active_passes",
				Help: "Number of scoring passes currently running",
			},
		),

		LastPassTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_last_pass_timestamp_seconds",
				Help: "Unix time of the last completed scoring pass",
			},
		),

		AssetsScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoinsight_assets_scored_total",
				Help: "Assets scored by technical signal",
			},
			[]string{"signal"},
		),

		AssetsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoinsight_assets_skipped_total",
				Help: "Assets dropped from a pass by reason",
			},
			[]string{"reason"},
		),

		Sentiment: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_sentiment_index",
				Help: "Fear and greed index used by the last pass (0-100)",
			},
		),

		SourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoinsight_source_errors_total",
				Help: "Price series source failures by source",
			},
			[]string{"source"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_cache_hit_ratio",
				Help: "Current cache hit ratio (0.0 to 1.0)",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoinsight_cache_hits_total",
				Help: "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoinsight_cache_misses_total",
				Help: "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_ws_clients",
				Help: "Connected websocket subscribers",
			},
		),

		ProviderSuccessRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_provider_success_rate",
				Help: "Provider success rate over the measurement window (0.0-1.0)",
			},
			[]string{"provider"},
		),

		ProviderDegraded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptoinsight_provider_degraded",
				Help: "Provider degraded status (1=degraded, 0=healthy)",
			},
			[]string{"provider"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.StepDuration,
		r.PipelineErrs,
		r.PassesTotal,
		r.ActivePasses,
		r.LastPassTime,
		r.AssetsScored,
		r.AssetsSkipped,
		r.Sentiment,
		r.SourceErrors,
		r.CacheHitRatio,
		r.CacheHits,
		r.CacheMisses,
		r.WSClients,
		r.ProviderSuccessRate,
		r.ProviderDegraded,
	)

	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// StepTimer tracks execution time for pipeline steps
type StepTimer struct {
	metrics *Registry
	step    string
	start   time.Time
}

// StartStepTimer begins timing a pipeline step
func (r *Registry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{
		metrics: r,
		step:    step,
		start:   time.Now(),
	}
}

// Stop completes the step timing and records the metric
func (st *StepTimer) Stop(result string) time.Duration {
	duration := time.Since(st.start)
	if st.metrics != nil {
		st.metrics.StepDuration.WithLabelValues(st.step, result).Observe(duration.Seconds())
	}
	return duration
}

// PassStarted marks a scoring pass as running
func (r *Registry) PassStarted() {
	r.PassesTotal.Inc()
	r.ActivePasses.Inc()
}

// PassFinished records the end of a scoring pass
func (r *Registry) PassFinished(sentiment int) {
	r.ActivePasses.Dec()
	r.LastPassTime.Set(float64(time.Now().Unix()))
	r.Sentiment.Set(float64(sentiment))
}

// RecordScored counts one scored asset under its technical signal
func (r *Registry) RecordScored(signal string) {
	r.AssetsScored.WithLabelValues(signal).Inc()
}

// RecordSkipped counts one asset dropped from a pass
func (r *Registry) RecordSkipped(reason string) {
	r.AssetsSkipped.WithLabelValues(reason).Inc()
}

// RecordSourceError counts a failed series lookup
func (r *Registry) RecordSourceError(source string) {
	r.SourceErrors.WithLabelValues(source).Inc()
}

// RecordPipelineError records a pipeline error
func (r *Registry) RecordPipelineError(step, errorType string) {
	r.PipelineErrs.WithLabelValues(step, errorType).Inc()
	log.Warn().
		Str("step", step).
		Str("error_type", errorType).
		Msg("Pipeline error recorded")
}

// RecordCacheHit records a cache hit for the specified cache type
func (r *Registry) RecordCacheHit(cacheType string) {
	r.CacheHits.WithLabelValues(cacheType).Inc()
	r.updateCacheHitRatio(cacheType)
}

// RecordCacheMiss records a cache miss for the specified cache type
func (r *Registry) RecordCacheMiss(cacheType string) {
	r.CacheMisses.WithLabelValues(cacheType).Inc()
	r.updateCacheHitRatio(cacheType)
}

// RecordProviderHealth mirrors a provider health snapshot into gauges
func (r *Registry) RecordProviderHealth(status HealthStatus) {
	r.ProviderSuccessRate.WithLabelValues(status.ProviderName).Set(status.SuccessRate)
	degraded := 0.0
	if status.Degraded {
		degraded = 1
	}
	r.ProviderDegraded.WithLabelValues(status.ProviderName).Set(degraded)
}

// updateCacheHitRatio recomputes the hit ratio from the counters
func (r *Registry) updateCacheHitRatio(cacheType string) {
	hits := counterValue(r.CacheHits, cacheType)
	misses := counterValue(r.CacheMisses, cacheType)

	if total := hits + misses; total > 0 {
		r.CacheHitRatio.Set(hits / total)
	}
}

func counterValue(vec *prometheus.CounterVec, label string) float64 {
	c, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
