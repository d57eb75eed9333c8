package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/application/views"
	"github.com/sawpanic/cryptoinsight/internal/domain/scoring"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
	"github.com/sawpanic/cryptoinsight/internal/persistence"
)

// Sort orders accepted by /assets
const (
	SortNone     = ""
	SortCombined = "combined"
)

const maxLimit = 250

// Handlers serves the read endpoints from the latest pass
type Handlers struct {
	scorer *pipeline.Scorer
	state  *State
	runs   persistence.RunsRepo
}

// NewHandlers creates the endpoint handlers
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{scorer: deps.Scorer, state: deps.State, runs: deps.Runs}
}

// Assets handles GET /assets?view=&only_buy=&sort=&limit=
func (h *Handlers) Assets(w http.ResponseWriter, r *http.Request) {
	pass, ok := h.latest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	view, err := views.ParseView(q.Get("view"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_view", err.Error())
		return
	}

	onlyBuy := false
	if v := q.Get("only_buy"); v != "" {
		onlyBuy, err = strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_only_buy", "only_buy must be true or false")
			return
		}
	}

	sortBy := q.Get("sort")
	if sortBy != SortNone && sortBy != SortCombined {
		h.writeError(w, r, http.StatusBadRequest, "invalid_sort", "sort must be combined or omitted")
		return
	}

	limit, ok := h.parseLimit(w, r, views.DefaultLimit)
	if !ok {
		return
	}

	list := pass.Assets
	if onlyBuy {
		list = views.OnlyBuy(list, view)
	}
	if sortBy == SortCombined {
		list = views.RankByCombined(list)
	}
	total := len(list)
	list = views.Limit(list, limit)

	h.writeJSON(w, http.StatusOK, AssetsResponse{
		RunID:      pass.RunID,
		Timestamp:  pass.CompletedAt,
		Source:     pass.Source,
		View:       view,
		OnlyBuy:    onlyBuy,
		Sort:       sortBy,
		TotalCount: total,
		Count:      len(list),
		Sentiment:  pass.Sentiment,
		Assets:     list,
	})
}

// AssetDetail handles GET /assets/{id}, rescoring on the detail history
func (h *Handlers) AssetDetail(w http.ResponseWriter, r *http.Request) {
	pass, ok := h.latest(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	asset, found := h.state.Asset(id)
	if !found || !asset.Valid() {
		h.writeError(w, r, http.StatusNotFound, "asset_not_found", "No scored asset with id "+id)
		return
	}

	e, err := h.scorer.Detail(r.Context(), asset, pass.Sentiment)
	if err != nil {
		log.Warn().Err(err).Str("asset", id).Msg("Detail scoring failed")
		h.writeError(w, r, http.StatusBadGateway, "series_unavailable", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, AssetDetailResponse{
		RunID:     pass.RunID,
		Timestamp: time.Now().UTC(),
		Periods:   e.Periods,
		Asset:     e,
		Votes:     signal.Tally(e.Indicators),
	})
}

// AssetHistory handles GET /assets/{id}/history?limit= from the ledger
func (h *Handlers) AssetHistory(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "ledger_disabled", "Scoring ledger is not configured")
		return
	}

	limit, ok := h.parseLimit(w, r, 0)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	rows, err := h.runs.History(r.Context(), id, limit)
	if err != nil {
		log.Error().Err(err).Str("asset", id).Msg("Ledger history query failed")
		h.writeError(w, r, http.StatusInternalServerError, "ledger_error", "Failed to read scoring history")
		return
	}

	items := make([]HistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, HistoryItem{
			RunID:             row.RunID,
			ScoredAt:          row.ScoredAt,
			Price:             row.Price,
			TechnicalSignal:   row.TechnicalSignal,
			TechnicalStrength: row.TechnicalStrength,
			FundamentalScore:  row.FundamentalScore,
			FundamentalSignal: row.FundamentalSignal,
			CombinedScore:     row.CombinedScore,
			Indicators:        json.RawMessage(row.Indicators),
		})
	}

	h.writeJSON(w, http.StatusOK, HistoryResponse{AssetID: id, Count: len(items), Scores: items})
}

// Movers handles GET /movers?limit=
func (h *Handlers) Movers(w http.ResponseWriter, r *http.Request) {
	pass, ok := h.latest(w, r)
	if !ok {
		return
	}
	limit, ok := h.parseLimit(w, r, views.DefaultMovers)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, MoversResponse{
		RunID:     pass.RunID,
		Timestamp: pass.CompletedAt,
		Movers:    views.BuildMovers(pass.Assets, limit),
	})
}

// Overview handles GET /overview
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	pass, ok := h.latest(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, OverviewResponse{
		RunID:     pass.RunID,
		Timestamp: pass.CompletedAt,
		Overview:  views.BuildOverview(pass.Assets, pass.Sentiment),
	})
}

// Sentiment handles GET /sentiment
func (h *Handlers) Sentiment(w http.ResponseWriter, r *http.Request) {
	pass, ok := h.latest(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, SentimentResponse{
		RunID:     pass.RunID,
		Timestamp: pass.CompletedAt,
		Sentiment: pass.Sentiment,
		Score:     scoring.SentimentScore(pass.Sentiment),
	})
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	pass, ok := h.state.Latest()
	if !ok {
		h.writeError(w, r, http.StatusServiceUnavailable, "no_pass", "No scoring pass has completed yet")
	}
	return pass, ok
}

func (h *Handlers) parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		h.writeError(w, r, http.StatusBadRequest, "invalid_limit",
			"limit must be an integer between 1 and "+strconv.Itoa(maxLimit))
		return 0, false
	}
	return n, true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}
