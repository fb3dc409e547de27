// Package helpers exposes the matching query endpoint used by
// recommendation UIs outside the dispatch path.
package helpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/match"
	"github.com/helperlink/dispatch/core/model"
)

// Handler serves the /helpers routes.
type Handler struct {
	orch *dispatch.Orchestrator
}

// NewHandler creates a Handler.
func NewHandler(orch *dispatch.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// Routes builds the chi routing table.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/match", h.match)
	return r
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crit := match.Criteria{
		Category: model.Category{ID: q.Get("category_id")},
		Urgency:  model.Urgency(q.Get("urgency")),
	}
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr == nil && lngErr == nil {
		crit.Location = &model.Coordinate{Lat: lat, Lng: lng}
	}
	if v, err := strconv.ParseFloat(q.Get("budget_min"), 64); err == nil {
		crit.BudgetMin = v
	}
	if v, err := strconv.ParseFloat(q.Get("budget_max"), 64); err == nil {
		crit.BudgetMax = v
	}

	results, err := h.orch.FindMatchingHelpers(r.Context(), crit)
	if err != nil {
		var invalid *match.InvalidRequestError
		status := http.StatusInternalServerError
		if errors.As(err, &invalid) {
			status = http.StatusBadRequest
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"matches": results, "count": len(results)})
}
