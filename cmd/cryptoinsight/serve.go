package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	httpapi "github.com/sawpanic/cryptoinsight/internal/interfaces/http"
)

type serveOptions struct {
	inputs  inputSpec
	host    string
	port    int
	source  string
	seed    int64
	record  bool
	refresh time.Duration
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only scoring API",
		Long: `Starts the HTTP API. The universe is re-scored every refresh interval and
each pass is pushed to websocket subscribers on /ws.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.inputs.fngSet = cmd.Flags().Changed("fng")
			cfg := root.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = opts.port
			}
			if cmd.Flags().Changed("refresh") {
				cfg.RefreshInterval = opts.refresh
			}
			if !cmd.Flags().Changed("assets") && cfg.AssetsFile != "" {
				opts.inputs.assetsPath = cfg.AssetsFile
			}
			if !cmd.Flags().Changed("sentiment") && cfg.SentimentFile != "" {
				opts.inputs.sentimentPath = cfg.SentimentFile
			}
			root.cfg.Server = cfg
			return runServe(cmd.Context(), root, opts)
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &opts.inputs)
	fs.StringVar(&opts.host, "host", "", "Listen host, default from config")
	fs.IntVar(&opts.port, "port", 0, "Listen port, default from config")
	fs.StringVar(&opts.source, "source", "", "Series source (synthetic|coingecko|snapshot), default from config")
	fs.Int64Var(&opts.seed, "seed", 0, "Random seed for the demo universe and synthetic series")
	fs.BoolVar(&opts.record, "record", false, "Write every pass to the scoring ledger")
	fs.DurationVar(&opts.refresh, "refresh", 0, "Re-scoring interval, default from config")

	return cmd
}

func runServe(parent context.Context, root *rootOptions, opts *serveOptions) error {
	cfg := root.cfg
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, opts.seed)
	defer a.Close()

	withLedger := opts.record || cfg.Database.Enabled
	scorer, err := a.scorer(ctx, opts.source, withLedger)
	if err != nil {
		return err
	}

	state := httpapi.NewState()
	hub := httpapi.NewHub(a.metrics)
	defer hub.Close()

	deps := httpapi.Deps{
		Scorer:     scorer,
		State:      state,
		Hub:        hub,
		Metrics:    a.metrics,
		Version:    version,
		StaleAfter: 3 * cfg.Server.RefreshInterval,
	}
	if a.database != nil && a.database.IsEnabled() {
		deps.Ledger = a.database.Health()
		deps.Runs = a.database.Runs()
	}
	if a.store != nil {
		deps.Cache = a.store
	}
	if a.feed != nil {
		deps.Providers = []httpapi.ProviderStatus{a.feed}
	}

	inputs := func(context.Context) ([]market.Asset, market.Sentiment, error) {
		return a.loadInputs(opts.inputs)
	}
	refresher := httpapi.NewRefresher(scorer, inputs, state, hub, cfg.Server.RefreshInterval, opts.record)
	go refresher.Run(ctx)

	server := httpapi.NewServer(cfg.Server, deps)
	serverErr := make(chan error, 1)
	go func() {
		addr := server.Addr()
		log.Info().
			Str("assets", fmt.Sprintf("http://%s/assets", addr)).
			Str("health", fmt.Sprintf("http://%s/health", addr)).
			Str("metrics", fmt.Sprintf("http://%s/metrics", addr)).
			Str("ws", fmt.Sprintf("ws://%s/ws", addr)).
			Dur("refresh", cfg.Server.RefreshInterval).
			Msg("API endpoints available")

		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
