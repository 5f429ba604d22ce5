package inbox

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/formatting"
	"github.com/backofhouse/steward/pkg/handlers"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/routes"
)

// Handler provides HTTP endpoints for the inbox, briefing reviews, and
// the automation gate.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "inbox"),
	}
}

// Routes returns the route group definition for inbox endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/inbox", Handler: h.Inbox},
			{Method: "POST", Pattern: "/briefings", Handler: h.RecordReview},
			{Method: "GET", Pattern: "/briefings/{venue}/{date}", Handler: h.FindBriefing},
			{Method: "GET", Pattern: "/briefings/{venue}/{date}/archive", Handler: h.Archive},
			{Method: "GET", Pattern: "/gate", Handler: h.Gate},
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

// Inbox returns the prioritized open items for the caller's tenant.
// Query parameters: venue_id, from, to (business dates, YYYY-MM-DD).
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var q Query
	params := r.URL.Query()

	if v := params.Get("venue_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		q.VenueID = &id
	}
	if v := params.Get("from"); v != "" {
		from, err := formatting.ParseBusinessDate(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		q.From = &from
	}
	if v := params.Get("to"); v != "" {
		to, err := formatting.ParseBusinessDate(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		q.To = &to
	}

	view, err := h.sys.Inbox(r.Context(), actor.TenantID, q)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, view)
}

// RecordReview records that the caller reviewed a venue's briefing.
func (h *Handler) RecordReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var cmd ReviewCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	briefing, err := h.sys.RecordReview(r.Context(), actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, briefing)
}

// FindBriefing returns the recorded review for a venue and date.
func (h *Handler) FindBriefing(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	venueID, err := uuid.Parse(r.PathValue("venue"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	date, err := formatting.ParseBusinessDate(r.PathValue("date"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	briefing, err := h.sys.FindBriefing(r.Context(), actor.TenantID, venueID, date)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, briefing)
}

// Archive streams the frozen snapshot that was uploaded when the
// briefing was reviewed.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	venueID, err := uuid.Parse(r.PathValue("venue"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	date, err := formatting.ParseBusinessDate(r.PathValue("date"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	body, err := h.sys.Archive(r.Context(), actor.TenantID, venueID, date)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	filename := fmt.Sprintf("briefing-%s.json", formatting.FormatBusinessDate(date))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

// Gate answers whether automation may proceed for a venue. Query
// parameters: venue_id (required), date (YYYY-MM-DD, default today).
func (h *Handler) Gate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()

	venueID, err := uuid.Parse(params.Get("venue_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if v := params.Get("date"); v != "" {
		date, err = formatting.ParseBusinessDate(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
	}

	decision, err := h.sys.CanProceed(r.Context(), actor.TenantID, venueID, date)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, decision)
}
