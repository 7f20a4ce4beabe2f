package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Joenasriani/vibedeal/models"
	"github.com/Joenasriani/vibedeal/utils"
)

const msgMissingCredential = "Search is not configured: the server has no API credential."

type searchResponse struct {
	Status            string            `json:"status"`
	NarrativeMarkdown string            `json:"narrative_markdown"`
	NarrativeHTML     string            `json:"narrative_html"`
	Citations         []models.Citation `json:"citations,omitempty"`
	Raw               json.RawMessage   `json:"raw,omitempty"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HandleSearch serves POST /api/search: one submission, one grounded
// generate call, the raw answer plus rendered narrative back. Error
// categories map to distinct fixed messages; transport detail is only
// logged.
func HandleSearch(fetcher utils.DealFetcher, store *utils.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var params models.SearchParams
		params.OptionalFeatures = models.DefaultFeatures()
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "Invalid request body."})
			return
		}

		resp, err := fetcher.FetchDeals(r.Context(), params)
		if err != nil {
			status, msg := mapSearchError(err)
			writeJSON(w, status, errorResponse{Status: "error", Error: msg})
			return
		}

		if store != nil {
			if err := store.RecordSearch(r.Context(), params); err != nil {
				zap.L().Warn("Failed to record search history", zap.Error(err))
			}
		}

		narrative := utils.NarrativeText(resp)
		out := searchResponse{
			Status:            "success",
			NarrativeMarkdown: narrative,
			NarrativeHTML:     utils.RenderNarrative(narrative),
			Citations:         utils.ExtractCitations(resp),
		}
		if raw, err := json.Marshal(resp); err == nil {
			out.Raw = raw
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func mapSearchError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrLocationRequired):
		return http.StatusUnprocessableEntity, msgLocationRequired
	case errors.Is(err, models.ErrMissingCredential):
		return http.StatusServiceUnavailable, msgMissingCredential
	default:
		zap.L().Error("Search request failed", zap.Error(err))
		return http.StatusBadGateway, msgSearchFailed
	}
}

// HandleHealthz reports process liveness.
func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

// HandleStats serves the accumulated token usage counters.
func HandleStats(stats *utils.TokenStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token_usage": stats.Snapshot(),
			"timestamp":   time.Now(),
		})
	}
}

// HandleHistory serves the recent-search list.
func HandleHistory(store *utils.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.RecentSearches(r.Context())
		if err != nil {
			zap.L().Error("Failed to read search history", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Error: "Failed to read search history."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"searches": entries,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}
