package escalation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/pkg/handlers"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/routes"
)

// Handler provides HTTP endpoints for running sweeps and inspecting
// the active policy pack.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "escalation"),
	}
}

// Routes returns the route group definition for escalation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/escalations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/sweep", Handler: h.Sweep},
			{Method: "GET", Pattern: "/policy", Handler: h.Policy},
		},
	}
}

// Sweep runs an escalation sweep over the caller's tenant. Query
// parameters narrow it: venue_id, dry_run, and as_of (RFC 3339).
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingCredentials)
		return
	}

	opts := SweepOptions{TenantID: &p.TenantID}

	query := r.URL.Query()
	if v := query.Get("venue_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		opts.VenueID = &id
	}
	if v := query.Get("as_of"); v != "" {
		asOf, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		opts.AsOf = asOf
	}
	opts.DryRun = query.Get("dry_run") == "true"

	result, err := h.sys.Sweep(r.Context(), opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Policy returns the active policy pack.
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFrom(r.Context()); !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingCredentials)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, h.sys.Policy().Source())
}
