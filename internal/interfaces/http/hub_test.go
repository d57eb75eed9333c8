package http

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/data"
	"github.com/sawpanic/cryptoinsight/internal/domain/indicators"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/scoring"
	"github.com/sawpanic/cryptoinsight/internal/domain/series"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSummary(t *testing.T, conn *websocket.Conn) pipeline.Summary {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var sum pipeline.Summary
	require.NoError(t, json.Unmarshal(raw, &sum))
	return sum
}

func TestHub_Broadcast(t *testing.T) {
	reg := metrics.NewRegistry()
	hub := NewHub(reg)
	env := newTestEnv(t, Deps{Hub: hub})
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	require.NoError(t, hub.Broadcast(pipeline.Summary{RunID: "first"}))

	conn := dial(t, srv)
	assert.Equal(t, "first", readSummary(t, conn).RunID, "late subscriber gets the last message")
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(pipeline.Summary{RunID: "second", Scored: 4}))
	sum := readSummary(t, conn)
	assert.Equal(t, "second", sum.RunID)
	assert.Equal(t, 4, sum.Scored)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	env := newTestEnv(t, Deps{Hub: hub})
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	env := newTestEnv(t, Deps{Hub: hub})
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestRefresher_Refresh(t *testing.T) {
	engine, err := scoring.NewEngine(indicators.Fixed{ADXValue: 20}, scoring.DefaultWeights())
	require.NoError(t, err)
	ledger := &fakeRuns{}
	scorer := pipeline.NewScorer(engine, series.NewRandomWalk(rand.New(rand.NewSource(5))), pipeline.WithLedger(ledger))

	state := NewState()
	hub := NewHub(nil)
	inputs := func(context.Context) ([]market.Asset, market.Sentiment, error) {
		return data.DemoAssets(rand.New(rand.NewSource(2))), market.Sentiment{Value: 20}, nil
	}

	r := NewRefresher(scorer, inputs, state, hub, time.Minute, true)
	require.NoError(t, r.Refresh(context.Background()))

	pass, ok := state.Latest()
	require.True(t, ok)
	assert.Len(t, pass.Assets, 17)
	assert.Equal(t, "Extreme Fear", pass.Sentiment.Classification)

	btc, ok := state.Asset("bitcoin")
	require.True(t, ok)
	assert.Equal(t, 67892.45, btc.CurrentPrice)

	failing := NewRefresher(scorer, func(context.Context) ([]market.Asset, market.Sentiment, error) {
		return nil, market.Sentiment{}, errors.New("assets file missing")
	}, state, nil, time.Minute, false)
	assert.Error(t, failing.Refresh(context.Background()))

	still, _ := state.Latest()
	assert.Equal(t, pass.RunID, still.RunID, "failed refresh keeps the previous pass")
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	engine, err := scoring.NewEngine(indicators.Fixed{}, scoring.DefaultWeights())
	require.NoError(t, err)
	scorer := pipeline.NewScorer(engine, series.NewRandomWalk(nil))

	state := NewState()
	calls := make(chan struct{}, 16)
	inputs := func(context.Context) ([]market.Asset, market.Sentiment, error) {
		calls <- struct{}{}
		return []market.Asset{{ID: "bitcoin", CurrentPrice: 100}}, market.NeutralSentiment(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewRefresher(scorer, inputs, state, nil, 20*time.Millisecond, false).Run(ctx)
		close(done)
	}()

	<-calls
	<-calls
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
	_, ok := state.Latest()
	assert.True(t, ok)
}
