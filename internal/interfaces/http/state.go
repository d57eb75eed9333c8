package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
)

// State holds the latest completed pass and the inputs it was scored from
type State struct {
	mu     sync.RWMutex
	pass   *pipeline.Result
	assets map[string]market.Asset
}

// NewState creates an empty state
func NewState() *State {
	return &State{assets: make(map[string]market.Asset)}
}

// Update replaces the published pass
func (s *State) Update(pass *pipeline.Result, assets []market.Asset) {
	byID := make(map[string]market.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	s.mu.Lock()
	s.pass = pass
	s.assets = byID
	s.mu.Unlock()
}

// Latest returns the last pass, false before the first one completes
func (s *State) Latest() (*pipeline.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pass, s.pass != nil
}

// Asset returns the input record of an asset in the last pass
func (s *State) Asset(id string) (market.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	return a, ok
}

// InputsFunc supplies the universe and sentiment for a pass
type InputsFunc func(ctx context.Context) ([]market.Asset, market.Sentiment, error)

// Refresher re-scores the universe on an interval and publishes each pass
type Refresher struct {
	scorer   *pipeline.Scorer
	inputs   InputsFunc
	state    *State
	hub      *Hub
	interval time.Duration
	record   bool
}

// NewRefresher creates the background loop. hub may be nil. With record set
// every pass is written to the scorer's ledger.
func NewRefresher(scorer *pipeline.Scorer, inputs InputsFunc, state *State, hub *Hub, interval time.Duration, record bool) *Refresher {
	return &Refresher{
		scorer:   scorer,
		inputs:   inputs,
		state:    state,
		hub:      hub,
		interval: interval,
		record:   record,
	}
}

// Refresh runs one pass and publishes it
func (r *Refresher) Refresh(ctx context.Context) error {
	assets, sent, err := r.inputs(ctx)
	if err != nil {
		return err
	}

	pass, err := r.scorer.Run(ctx, assets, sent)
	if err != nil {
		return err
	}
	r.state.Update(pass, assets)

	if r.hub != nil {
		if err := r.hub.Broadcast(pass.Summary()); err != nil {
			log.Warn().Err(err).Msg("Failed to broadcast pass summary")
		}
	}

	if r.record {
		if err := r.scorer.Record(ctx, pass); err != nil && !errors.Is(err, pipeline.ErrNoLedger) {
			log.Warn().Err(err).Str("run_id", pass.RunID).Msg("Pass not recorded")
		}
	}
	return nil
}

// Run refreshes immediately and then on every tick until ctx is done
func (r *Refresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Initial scoring pass failed")
	}
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Scoring pass failed")
			}
		}
	}
}
