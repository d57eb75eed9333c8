package config

import (
	"fmt"
	"time"
)

// Price series source kinds
const (
	SourceSynthetic = "synthetic"
	SourceCoinGecko = "coingecko"
	SourceSnapshot  = "snapshot"
)

// SourceConfig selects where price histories come from
type SourceConfig struct {
	Kind      string         `yaml:"kind" envconfig:"KIND"`
	CoinGecko ProviderConfig `yaml:"coingecko" envconfig:"COINGECKO"`
}

// ProviderConfig represents configuration for the history provider
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL"`
	APIKey         string        `yaml:"api_key" envconfig:"API_KEY"`
	VsCurrency     string        `yaml:"vs_currency" envconfig:"VS_CURRENCY"`
	Days           int           `yaml:"days" envconfig:"DAYS"`
	RPS            float64       `yaml:"rps" envconfig:"RPS"`     // Requests per second
	Burst          int           `yaml:"burst" envconfig:"BURST"` // Burst capacity
	MaxConcurrency int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	MaxRetries     int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	UserAgent      string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	BackoffMS      BackoffConfig `yaml:"backoff_ms" envconfig:"BACKOFF_MS"` // Backoff configuration
	Circuit        CircuitConfig `yaml:"circuit" envconfig:"CIRCUIT"`       // Circuit breaker config
}

// BackoffConfig represents exponential backoff configuration
type BackoffConfig struct {
	Base int `yaml:"base" envconfig:"BASE"` // Base backoff in milliseconds
	Max  int `yaml:"max" envconfig:"MAX"`   // Maximum backoff in milliseconds
}

// CircuitConfig represents circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" envconfig:"FAILURE_THRESHOLD"` // Consecutive failures to open circuit
	OpenSeconds      int `yaml:"open_seconds" envconfig:"OPEN_SECONDS"`           // Time spent open before probing
	TimeoutMS        int `yaml:"timeout_ms" envconfig:"TIMEOUT_MS"`               // Request timeout in milliseconds
}

// DefaultCoinGecko returns free-tier friendly settings
func DefaultCoinGecko() ProviderConfig {
	return ProviderConfig{
		BaseURL:        "https://api.coingecko.com/api/v3",
		VsCurrency:     "usd",
		Days:           60,
		RPS:            0.5,
		Burst:          2,
		MaxConcurrency: 2, // Conservative for free tier
		MaxRetries:     2,
		UserAgent:      "CryptoInsight/1.0 (Free Tier)",
		BackoffMS:      BackoffConfig{Base: 1000, Max: 30000},
		Circuit:        CircuitConfig{FailureThreshold: 3, OpenSeconds: 60, TimeoutMS: 10000},
	}
}

// Validate ensures the source configuration is valid and consistent
func (s *SourceConfig) Validate() error {
	switch s.Kind {
	case SourceSynthetic, SourceSnapshot:
		return nil
	case SourceCoinGecko:
		if err := s.CoinGecko.Validate(); err != nil {
			return fmt.Errorf("coingecko: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown source kind %q", s.Kind)
}

// Validate ensures a provider configuration is valid
func (p *ProviderConfig) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %f", p.RPS)
	}
	if p.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", p.Burst)
	}
	if p.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", p.Days)
	}
	if p.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", p.MaxConcurrency)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", p.MaxRetries)
	}

	// Validate backoff config
	if err := p.BackoffMS.Validate(); err != nil {
		return fmt.Errorf("backoff_ms: %w", err)
	}

	// Validate circuit config
	if err := p.Circuit.Validate(); err != nil {
		return fmt.Errorf("circuit: %w", err)
	}

	return nil
}

// Validate ensures backoff configuration is valid
func (b *BackoffConfig) Validate() error {
	if b.Base <= 0 {
		return fmt.Errorf("base must be positive, got %d", b.Base)
	}
	if b.Max <= b.Base {
		return fmt.Errorf("max (%d) must be > base (%d)", b.Max, b.Base)
	}
	return nil
}

// Validate ensures circuit breaker configuration is valid
func (c *CircuitConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.OpenSeconds <= 0 {
		return fmt.Errorf("open_seconds must be positive, got %d", c.OpenSeconds)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", c.TimeoutMS)
	}
	return nil
}

// GetRequestTimeout returns the request timeout as a time.Duration
func (p *ProviderConfig) GetRequestTimeout() time.Duration {
	return time.Duration(p.Circuit.TimeoutMS) * time.Millisecond
}

// GetBaseBackoff returns the base backoff as a time.Duration
func (p *ProviderConfig) GetBaseBackoff() time.Duration {
	return time.Duration(p.BackoffMS.Base) * time.Millisecond
}

// GetMaxBackoff returns the maximum backoff as a time.Duration
func (p *ProviderConfig) GetMaxBackoff() time.Duration {
	return time.Duration(p.BackoffMS.Max) * time.Millisecond
}

// GetOpenTimeout returns how long the circuit stays open
func (p *ProviderConfig) GetOpenTimeout() time.Duration {
	return time.Duration(p.Circuit.OpenSeconds) * time.Second
}
