package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/pkg/middleware"
)

type fakeSystem struct {
	sweepFn func(opts SweepOptions) (*SweepResult, error)
	policy  *Policy
}

func (f *fakeSystem) Handler() *Handler { return nil }

func (f *fakeSystem) Sweep(_ context.Context, opts SweepOptions) (*SweepResult, error) {
	return f.sweepFn(opts)
}

func (f *fakeSystem) Policy() *Policy { return f.policy }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	p := middleware.Principal{
		TenantID: sweepTenant,
		Subject:  "ops@backofhouse.test",
		Roles:    []string{"regional_director"},
	}
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func TestSweepHandler(t *testing.T) {
	t.Run("runs a scoped sweep", func(t *testing.T) {
		venue := uuid.MustParse("22222222-2222-2222-2222-222222222222")
		asOf := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)

		var captured SweepOptions
		sys := &fakeSystem{
			sweepFn: func(opts SweepOptions) (*SweepResult, error) {
				captured = opts
				return &SweepResult{Scopes: 1, Escalations: 2, Expiries: 1, DryRun: opts.DryRun}, nil
			},
		}
		mux := setupMux(NewHandler(sys, testLogger()))

		req := authedRequest("POST", "/escalations/sweep?venue_id="+venue.String()+"&as_of=2026-08-14T12:00:00Z&dry_run=true")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.TenantID == nil || *captured.TenantID != sweepTenant {
			t.Errorf("tenant = %v, want the caller's tenant", captured.TenantID)
		}
		if captured.VenueID == nil || *captured.VenueID != venue {
			t.Errorf("venue = %v, want %v", captured.VenueID, venue)
		}
		if !captured.AsOf.Equal(asOf) {
			t.Errorf("as_of = %v, want %v", captured.AsOf, asOf)
		}
		if !captured.DryRun {
			t.Error("dry_run not passed through")
		}

		var result SweepResult
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if result.Escalations != 2 || result.Expiries != 1 {
			t.Errorf("result = %+v, want 2 escalations and 1 expiry", result)
		}
	})

	t.Run("defaults to the whole tenant", func(t *testing.T) {
		var captured SweepOptions
		sys := &fakeSystem{
			sweepFn: func(opts SweepOptions) (*SweepResult, error) {
				captured = opts
				return &SweepResult{}, nil
			},
		}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/escalations/sweep"))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.VenueID != nil || captured.DryRun || !captured.AsOf.IsZero() {
			t.Errorf("options = %+v, want tenant-wide live sweep", captured)
		}
	})

	t.Run("rejects a malformed venue id", func(t *testing.T) {
		sys := &fakeSystem{
			sweepFn: func(SweepOptions) (*SweepResult, error) {
				t.Error("sweep should not run")
				return &SweepResult{}, nil
			},
		}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/escalations/sweep?venue_id=not-a-uuid"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects a malformed as_of", func(t *testing.T) {
		sys := &fakeSystem{
			sweepFn: func(SweepOptions) (*SweepResult, error) {
				t.Error("sweep should not run")
				return &SweepResult{}, nil
			},
		}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/escalations/sweep?as_of=yesterday"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("returns 500 when the sweep fails", func(t *testing.T) {
		sys := &fakeSystem{
			sweepFn: func(SweepOptions) (*SweepResult, error) {
				return nil, errors.New("scope discovery failed")
			},
		}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/escalations/sweep"))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		sys := &fakeSystem{
			sweepFn: func(SweepOptions) (*SweepResult, error) { return &SweepResult{}, nil },
		}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/escalations/sweep", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestPolicyHandler(t *testing.T) {
	t.Run("returns the active pack", func(t *testing.T) {
		sys := &fakeSystem{policy: testPolicy(t)}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("GET", "/escalations/policy"))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var pack Pack
		if err := json.NewDecoder(rec.Body).Decode(&pack); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if pack.Routes["critical"]["venue_manager"] != "gm" {
			t.Errorf("critical route = %q, want gm", pack.Routes["critical"]["venue_manager"])
		}
		if len(pack.Windows) != 2 {
			t.Errorf("windows = %d, want 2", len(pack.Windows))
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		sys := &fakeSystem{policy: testPolicy(t)}
		mux := setupMux(NewHandler(sys, testLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/escalations/policy", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestHandlerRoutes(t *testing.T) {
	sys := &fakeSystem{policy: testPolicy(t)}
	group := NewHandler(sys, testLogger()).Routes()

	if group.Prefix != "/escalations" {
		t.Errorf("prefix = %q, want /escalations", group.Prefix)
	}

	want := []struct {
		method  string
		pattern string
	}{
		{"POST", "/sweep"},
		{"GET", "/policy"},
	}

	if len(group.Routes) != len(want) {
		t.Fatalf("routes = %d, want %d", len(group.Routes), len(want))
	}

	for i, tt := range want {
		route := group.Routes[i]
		if route.Method != tt.method || route.Pattern != tt.pattern {
			t.Errorf("route %d = %s %s, want %s %s", i, route.Method, route.Pattern, tt.method, tt.pattern)
		}
	}
}
