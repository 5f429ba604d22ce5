package signals

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/handlers"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/pagination"
	"github.com/backofhouse/steward/pkg/routes"
)

// Handler provides HTTP endpoints for signal ingest and retrieval.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and
// pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "signals"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for signal endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/signals",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Ingest},
			{Method: "POST", Pattern: "/batch", Handler: h.IngestBatch},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (enforcement.Actor, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingCredentials)
		return enforcement.Actor{}, false
	}
	return enforcement.ActorFromPrincipal(p.Subject, p.TenantID, p.Roles), true
}

// Ingest accepts one detector emission. Stored signals answer 201,
// deduplicated ones 200 with the previously stored row.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var in SignalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Ingest(r.Context(), actor.TenantID, in)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == OutcomeDeduplicated {
		status = http.StatusOK
	}
	handlers.RespondJSON(w, status, result)
}

// IngestBatch accepts a batch of detector emissions and reports
// per-item outcomes without letting one failure abort the rest.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var inputs []SignalInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	results, err := h.sys.IngestBatch(r.Context(), actor.TenantID, inputs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}

// List returns a paginated slice of the tenant's signals with optional
// query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), actor.TenantID, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one signal by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	sig, err := h.sys.Find(r.Context(), actor.TenantID, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sig)
}
