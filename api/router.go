// Package api exposes the dispatch HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/helperlink/dispatch/api/helpers"
	"github.com/helperlink/dispatch/api/requests"
	"github.com/helperlink/dispatch/core/dispatch"
)

// NewRouter assembles the HTTP routes around the orchestrator.
func NewRouter(orch *dispatch.Orchestrator, store dispatch.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/requests", requests.NewHandler(orch, store).Routes())
	r.Mount("/helpers", helpers.NewHandler(orch).Routes())
	return r
}
