package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cryptoinsight/internal/config"
)

const (
	appName = "CryptoInsight"
	version = "v1.0.0"
)

const defaultConfigPath = "config/cryptoinsight.yaml"

// rootOptions are shared by every subcommand
type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "cryptoinsight",
		Short:   "Crypto signal scoring engine",
		Version: version,
		Long: `CryptoInsight scores a universe of crypto assets.

Each asset gets ten technical indicators, a technical verdict, a fundamental
score built from market structure, and a combined score that blends both with
the market-wide fear and greed index.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			setLogLevel(cfg.LogLevel)
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(newScoreCmd(opts))
	rootCmd.AddCommand(newIndicatorsCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))

	return rootCmd
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		if level != "" {
			log.Warn().Str("level", level).Msg("Unknown log level, using info")
		}
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
