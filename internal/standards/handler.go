package standards

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/formatting"
	"github.com/backofhouse/steward/pkg/handlers"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/routes"
)

// Handler provides HTTP endpoints for standards store operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "standards"),
	}
}

// Routes returns the route group definition for standards endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/standards",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.ListCurrent},
			{Method: "GET", Pattern: "/resolve", Handler: h.Resolve},
			{Method: "GET", Pattern: "/resolve-set", Handler: h.ResolveSet},
			{Method: "GET", Pattern: "/history", Handler: h.History},
			{Method: "POST", Pattern: "/calibrations", Handler: h.Calibrate},
			{Method: "GET", Pattern: "/bounds", Handler: h.ListBounds},
			{Method: "POST", Pattern: "/bounds", Handler: h.SetBound},
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

// ListCurrent returns the effective standards for the tenant, narrowed to
// a venue when the venue_id parameter is present.
func (h *Handler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	venueID, err := optionalVenue(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	current, err := h.sys.ListCurrent(r.Context(), actor.TenantID, venueID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, current)
}

// Resolve returns the effective value of one standard key for a scope at
// a point in time. Parameters: domain, key, venue_id (optional), as_of
// (optional RFC 3339 timestamp or business date; defaults to now).
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	domain, key, venueID, err := scopeParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	asOf, err := asOfParam(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	scope := Scope{TenantID: actor.TenantID, VenueID: venueID}
	resolved, err := h.sys.Resolve(r.Context(), scope, domain, key, asOf)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resolved)
}

// ResolveSet resolves several standard keys for one scope in a single
// pass. Parameters: domain, keys (comma-separated), venue_id (optional),
// as_of (optional). Unconfigured or unknown keys are reported in the
// result's missing list rather than failing the request.
func (h *Handler) ResolveSet(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	domain, err := enforcement.ParseDomain(r.URL.Query().Get("domain"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	keys := splitKeys(r.URL.Query().Get("keys"))
	if len(keys) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: at least one key is required", ErrInvalidRequest))
		return
	}

	venueID, err := optionalVenue(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	asOf, err := asOfParam(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	scope := Scope{TenantID: actor.TenantID, VenueID: venueID}
	set, err := h.sys.ResolveSet(r.Context(), scope, domain, keys, asOf)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, set)
}

// History returns the full version chain of one standard key for a scope.
// Parameters: domain, key, venue_id (optional).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	domain, key, venueID, err := scopeParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	scope := Scope{TenantID: actor.TenantID, VenueID: venueID}
	versions, err := h.sys.History(r.Context(), scope, domain, key)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, versions)
}

// Calibrate records a new tenant or venue calibration version.
func (h *Handler) Calibrate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var cmd CalibrateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	standard, err := h.sys.Calibrate(r.Context(), actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, standard)
}

// ListBounds returns the current global bounds.
func (h *Handler) ListBounds(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	bounds, err := h.sys.ListBounds(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, bounds)
}

// SetBound records a new global bound version.
func (h *Handler) SetBound(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var cmd BoundCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	bound, err := h.sys.SetGlobalBound(r.Context(), actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, bound)
}

func scopeParams(r *http.Request) (enforcement.Domain, string, *uuid.UUID, error) {
	domain, err := enforcement.ParseDomain(r.URL.Query().Get("domain"))
	if err != nil {
		return "", "", nil, err
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		return "", "", nil, fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}

	venueID, err := optionalVenue(r)
	if err != nil {
		return "", "", nil, err
	}

	return domain, key, venueID, nil
}

func optionalVenue(r *http.Request) (*uuid.UUID, error) {
	v := r.URL.Query().Get("venue_id")
	if v == "" {
		return nil, nil
	}

	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%w: venue_id must be a UUID", ErrInvalidRequest)
	}

	return &id, nil
}

func asOfParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		return time.Now().UTC(), nil
	}

	t, ok := parseAsOf(v)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: as_of must be RFC 3339 or a business date", ErrInvalidRequest)
	}
	return t, nil
}

func splitKeys(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func parseAsOf(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := formatting.ParseBusinessDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
