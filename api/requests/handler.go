// Package requests exposes the request lifecycle endpoints: rebroadcast,
// accept, cancel, complete and a read endpoint for operational debugging.
package requests

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/match"
)

// Handler serves the /requests routes.
type Handler struct {
	orch  *dispatch.Orchestrator
	store dispatch.Store
}

// NewHandler creates a Handler.
func NewHandler(orch *dispatch.Orchestrator, store dispatch.Store) *Handler {
	return &Handler{orch: orch, store: store}
}

// Routes builds the chi routing table.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.get)
	r.Post("/{id}/rebroadcast", h.rebroadcast)
	r.Post("/{id}/accept", h.accept)
	r.Post("/{id}/decline", h.decline)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/complete", h.complete)
	return r
}

type rebroadcastResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	HelpersNotified int    `json:"helpersNotified"`
}

type helperAction struct {
	HelperID string `json:"helper_id"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) rebroadcast(w http.ResponseWriter, r *http.Request) {
	out, err := h.orch.Broadcast(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rebroadcastResponse{
		Success:         true,
		Message:         out.Message,
		HelpersNotified: out.HelpersNotified,
	})
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	var body helperAction
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.HelperID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "helper_id is required"})
		return
	}
	if err := h.orch.Accept(r.Context(), chi.URLParam(r, "id"), body.HelperID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) decline(w http.ResponseWriter, r *http.Request) {
	var body helperAction
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.HelperID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "helper_id is required"})
		return
	}
	if err := h.orch.Decline(r.Context(), chi.URLParam(r, "id"), body.HelperID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var body helperAction
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.HelperID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "helper_id is required"})
		return
	}
	out, err := h.orch.CancelAssignment(r.Context(), chi.URLParam(r, "id"), body.HelperID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rebroadcastResponse{
		Success:         true,
		Message:         out.Message,
		HelpersNotified: out.HelpersNotified,
	})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Complete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeError maps the dispatch error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound *dispatch.NotFoundError
		terminal *dispatch.TerminalStateError
		assigned *dispatch.AlreadyAssignedError
		started  *dispatch.WorkStartedError
		invalid  *match.InvalidRequestError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &terminal), errors.As(err, &invalid), errors.As(err, &started):
		status = http.StatusBadRequest
	case errors.As(err, &assigned):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
