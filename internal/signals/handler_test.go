package signals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/pagination"
)

type fakeSystem struct {
	ingestFn func(tenantID uuid.UUID, in SignalInput) (*IngestResult, error)
	batchFn  func(tenantID uuid.UUID, inputs []SignalInput) ([]BatchResult, error)
	findFn   func(tenantID, id uuid.UUID) (*Signal, error)
	listFn   func(tenantID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Signal], error)
}

func (f *fakeSystem) Handler() *Handler { return nil }

func (f *fakeSystem) Ingest(_ context.Context, tenantID uuid.UUID, in SignalInput) (*IngestResult, error) {
	return f.ingestFn(tenantID, in)
}

func (f *fakeSystem) IngestBatch(_ context.Context, tenantID uuid.UUID, inputs []SignalInput) ([]BatchResult, error) {
	return f.batchFn(tenantID, inputs)
}

func (f *fakeSystem) Find(_ context.Context, tenantID, id uuid.UUID) (*Signal, error) {
	return f.findFn(tenantID, id)
}

func (f *fakeSystem) List(_ context.Context, tenantID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Signal], error) {
	return f.listFn(tenantID, page, filters)
}

func (f *fakeSystem) CriticalClusters(context.Context, uuid.UUID, *uuid.UUID, time.Time, int) ([]Cluster, error) {
	return []Cluster{}, nil
}

var testTenant = uuid.MustParse("11111111-1111-1111-1111-111111111111")

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

func newTestHandler(sys System) *Handler {
	return NewHandler(sys, testLogger(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	p := middleware.Principal{
		TenantID: testTenant,
		Subject:  "pos-connector@backofhouse.test",
		Roles:    []string{"gm"},
	}
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func sampleSignal() Signal {
	venue := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	return Signal{
		ID:           uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		TenantID:     testTenant,
		VenueID:      &venue,
		BusinessDate: time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC),
		Domain:       enforcement.DomainRevenue,
		SignalType:   "pour_cost_deviation",
		Source:       enforcement.SourceRule,
		Severity:     enforcement.SeverityCritical,
		Confidence:   0.92,
		DedupeKey:    "pour_cost_deviation:2026-08-13",
		CreatedAt:    time.Date(2026, 8, 14, 6, 0, 0, 0, time.UTC),
	}
}

func TestIngestHandler(t *testing.T) {
	body, _ := json.Marshal(validInput())

	t.Run("stores a new signal", func(t *testing.T) {
		sig := sampleSignal()
		feedbackID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
		sys := &fakeSystem{
			ingestFn: func(tenantID uuid.UUID, in SignalInput) (*IngestResult, error) {
				if tenantID != testTenant {
					t.Errorf("tenant = %v, want %v", tenantID, testTenant)
				}
				if in.SignalType != "pour_cost_deviation" {
					t.Errorf("signal_type = %q, want pour_cost_deviation", in.SignalType)
				}
				return &IngestResult{Signal: &sig, Outcome: OutcomeStored, FeedbackID: &feedbackID}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/signals", body))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}

		var got IngestResult
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Outcome != OutcomeStored {
			t.Errorf("outcome = %q, want stored", got.Outcome)
		}
		if got.FeedbackID == nil || *got.FeedbackID != feedbackID {
			t.Errorf("feedback_id = %v, want %v", got.FeedbackID, feedbackID)
		}
	})

	t.Run("deduplicates a repeat", func(t *testing.T) {
		sig := sampleSignal()
		sys := &fakeSystem{
			ingestFn: func(uuid.UUID, SignalInput) (*IngestResult, error) {
				return &IngestResult{Signal: &sig, Outcome: OutcomeDeduplicated}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/signals", body))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		sys := &fakeSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/signals", []byte("{")))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("maps validation failure", func(t *testing.T) {
		sys := &fakeSystem{
			ingestFn: func(uuid.UUID, SignalInput) (*IngestResult, error) {
				return nil, ErrInvalidSignal
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/signals", body))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		sys := &fakeSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/signals", bytes.NewReader(body)))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestIngestBatchHandler(t *testing.T) {
	t.Run("reports per-item outcomes", func(t *testing.T) {
		sig := sampleSignal()
		sys := &fakeSystem{
			batchFn: func(tenantID uuid.UUID, inputs []SignalInput) ([]BatchResult, error) {
				if len(inputs) != 2 {
					t.Errorf("inputs = %d, want 2", len(inputs))
				}
				return []BatchResult{
					{Index: 0, Result: &IngestResult{Signal: &sig, Outcome: OutcomeStored}},
					{Index: 1, Error: "invalid signal: dedupe_key is required"},
				}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		first := validInput()
		second := validInput()
		second.DedupeKey = ""
		body, _ := json.Marshal([]SignalInput{first, second})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/signals/batch", body))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got []BatchResult
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("results = %d, want 2", len(got))
		}
		if got[0].Error != "" || got[0].Result == nil {
			t.Errorf("first item should have succeeded: %+v", got[0])
		}
		if got[1].Error == "" {
			t.Errorf("second item should carry an error")
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		sys := &fakeSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("POST", "/signals/batch", []byte("not json")))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListHandler(t *testing.T) {
	t.Run("returns paginated list", func(t *testing.T) {
		sig := sampleSignal()
		sys := &fakeSystem{
			listFn: func(tenantID uuid.UUID, _ pagination.PageRequest, _ Filters) (*pagination.PageResult[Signal], error) {
				if tenantID != testTenant {
					t.Errorf("tenant = %v, want %v", tenantID, testTenant)
				}
				result := pagination.NewPageResult([]Signal{sig}, 1, 1, 20)
				return &result, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("GET", "/signals", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("extracts filters from the query string", func(t *testing.T) {
		var captured Filters
		sys := &fakeSystem{
			listFn: func(_ uuid.UUID, _ pagination.PageRequest, filters Filters) (*pagination.PageResult[Signal], error) {
				captured = filters
				result := pagination.NewPageResult([]Signal{}, 0, 1, 20)
				return &result, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("GET", "/signals?severity=critical&domain=revenue&source=rule", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Severity == nil || *captured.Severity != enforcement.SeverityCritical {
			t.Errorf("severity filter = %v, want critical", captured.Severity)
		}
		if captured.Domain == nil || *captured.Domain != enforcement.DomainRevenue {
			t.Errorf("domain filter = %v, want revenue", captured.Domain)
		}
		if captured.Source == nil || *captured.Source != enforcement.SourceRule {
			t.Errorf("source filter = %v, want rule", captured.Source)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		sys := &fakeSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/signals", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestFindHandler(t *testing.T) {
	sig := sampleSignal()

	t.Run("returns the signal", func(t *testing.T) {
		sys := &fakeSystem{
			findFn: func(tenantID, id uuid.UUID) (*Signal, error) {
				if tenantID != testTenant {
					t.Errorf("tenant = %v, want %v", tenantID, testTenant)
				}
				if id != sig.ID {
					t.Errorf("id = %v, want %v", id, sig.ID)
				}
				return &sig, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("GET", "/signals/"+sig.ID.String(), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got Signal
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.DedupeKey != sig.DedupeKey {
			t.Errorf("dedupe_key = %q, want %q", got.DedupeKey, sig.DedupeKey)
		}
	})

	t.Run("rejects an invalid id", func(t *testing.T) {
		sys := &fakeSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("GET", "/signals/not-a-uuid", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("maps missing signals to 404", func(t *testing.T) {
		sys := &fakeSystem{
			findFn: func(_, id uuid.UUID) (*Signal, error) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest("GET", "/signals/"+uuid.NewString(), nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerRoutes(t *testing.T) {
	h := newTestHandler(&fakeSystem{})
	group := h.Routes()

	if group.Prefix != "/signals" {
		t.Errorf("prefix = %q, want /signals", group.Prefix)
	}

	want := []struct {
		method  string
		pattern string
	}{
		{"POST", ""},
		{"POST", "/batch"},
		{"GET", ""},
		{"GET", "/{id}"},
	}

	if len(group.Routes) != len(want) {
		t.Fatalf("routes = %d, want %d", len(group.Routes), len(want))
	}

	for i, w := range want {
		route := group.Routes[i]
		if route.Method != w.method || route.Pattern != w.pattern {
			t.Errorf("route %d = %s %s, want %s %s", i, route.Method, route.Pattern, w.method, w.pattern)
		}
	}
}
