package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/cryptoinsight/internal/domain/scoring"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/infrastructure/db"
)

// EnvPrefix namespaces every environment override, e.g. CRYPTOINSIGHT_SERVER_PORT
const EnvPrefix = "CRYPTOINSIGHT"

// Config is the full application configuration
type Config struct {
	LogLevel string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	Scoring  ScoringConfig `yaml:"scoring" envconfig:"SCORING"`
	Source   SourceConfig  `yaml:"source" envconfig:"SOURCE"`
	Cache    CacheConfig   `yaml:"cache" envconfig:"CACHE"`
	Database db.Config     `yaml:"database" envconfig:"DATABASE"`
	Server   ServerConfig  `yaml:"server" envconfig:"SERVER"`
}

// ScoringConfig controls a scoring pass
type ScoringConfig struct {
	TablePeriods  int             `yaml:"table_periods" envconfig:"TABLE_PERIODS"`
	DetailPeriods int             `yaml:"detail_periods" envconfig:"DETAIL_PERIODS"`
	Workers       int             `yaml:"workers" envconfig:"WORKERS"`
	Estimator     string          `yaml:"estimator" envconfig:"ESTIMATOR"` // standin | close_only
	Seed          int64           `yaml:"seed" envconfig:"SEED"`           // 0 means time seeded
	Weights       scoring.Weights `yaml:"weights" envconfig:"WEIGHTS"`
}

// CacheConfig configures the Redis series snapshot store
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" envconfig:"ENABLED"`
	Addr      string        `yaml:"addr" envconfig:"ADDR"`
	Password  string        `yaml:"password" envconfig:"PASSWORD"`
	DB        int           `yaml:"db" envconfig:"DB"`
	TTL       time.Duration `yaml:"ttl" envconfig:"TTL"`
	KeyPrefix string        `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
	AssetsFile      string        `yaml:"assets_file" envconfig:"ASSETS_FILE"`
	SentimentFile   string        `yaml:"sentiment_file" envconfig:"SENTIMENT_FILE"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogLevel: "info",
		Scoring: ScoringConfig{
			TablePeriods:  series.TablePeriods,
			DetailPeriods: series.DetailPeriods,
			Workers:       4,
			Estimator:     "standin",
			Weights:       scoring.DefaultWeights(),
		},
		Source: SourceConfig{
			Kind:      SourceSynthetic,
			CoinGecko: DefaultCoinGecko(),
		},
		Cache: CacheConfig{
			Addr:      "localhost:6379",
			TTL:       15 * time.Minute,
			KeyPrefix: "cryptoinsight",
		},
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			RefreshInterval: time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (a .env file in the working directory is honoured).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults plus environment
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if c.Scoring.TablePeriods < 1 || c.Scoring.DetailPeriods < 1 {
		return fmt.Errorf("scoring periods must be positive, got table=%d detail=%d",
			c.Scoring.TablePeriods, c.Scoring.DetailPeriods)
	}
	if c.Scoring.Workers < 1 {
		return fmt.Errorf("scoring workers must be at least 1, got %d", c.Scoring.Workers)
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if c.Source.Kind == SourceSnapshot && !c.Cache.Enabled {
		return fmt.Errorf("source kind %q requires cache.enabled", SourceSnapshot)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache: addr cannot be empty when enabled")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
