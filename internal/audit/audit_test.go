package audit_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/pkg/pagination"
	"github.com/clearcase/worker/pkg/routes"
)

type mockSystem struct {
	listFn func(ctx context.Context, caseID uuid.UUID, page pagination.PageRequest, filters audit.Filters) (*pagination.PageResult[audit.Entry], error)
}

func (m *mockSystem) Handler() *audit.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, caseID uuid.UUID, page pagination.PageRequest, filters audit.Filters) (*pagination.PageResult[audit.Entry], error) {
	return m.listFn(ctx, caseID, page, filters)
}

func (m *mockSystem) Write(context.Context, audit.WriteCommand) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockSystem) Latest(context.Context, uuid.UUID, audit.EventType, string) (*audit.Entry, error) {
	return nil, audit.ErrNotFound
}

func (m *mockSystem) ExistsForExtraction(context.Context, uuid.UUID, audit.EventType) (bool, error) {
	return false, nil
}

func newTestHandler(sys audit.System) *audit.Handler {
	return audit.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *audit.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerList(t *testing.T) {
	caseID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	subtype := audit.SubtypeReplaySkipped

	var (
		gotCase    uuid.UUID
		gotPage    pagination.PageRequest
		gotFilters audit.Filters
	)
	sys := &mockSystem{
		listFn: func(_ context.Context, id uuid.UUID, page pagination.PageRequest, filters audit.Filters) (*pagination.PageResult[audit.Entry], error) {
			gotCase, gotPage, gotFilters = id, page, filters
			entries := []audit.Entry{{
				ID:        uuid.New(),
				CaseID:    &id,
				EventType: audit.EventCaseUpdated,
				ActorType: audit.ActorWorker,
				Subtype:   &subtype,
				Payload:   json.RawMessage(`{"subtype":"asset_replay_skipped"}`),
				CreatedAt: time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
			}}
			result := pagination.NewPageResult(entries, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := httptest.NewRecorder()
	target := "/cases/" + caseID.String() + "/audit?page=2&page_size=5&subtype=asset_replay_skipped&since=2026-02-01T00:00:00Z"
	setupMux(newTestHandler(sys)).ServeHTTP(rec, httptest.NewRequest("GET", target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotCase != caseID {
		t.Errorf("case = %s", gotCase)
	}
	if gotPage.Page != 2 || gotPage.PageSize != 5 {
		t.Errorf("page = %+v", gotPage)
	}
	if gotFilters.Subtype == nil || *gotFilters.Subtype != subtype {
		t.Errorf("subtype filter = %v", gotFilters.Subtype)
	}
	if gotFilters.Since == nil || !gotFilters.Since.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since filter = %v", gotFilters.Since)
	}

	var body pagination.PageResult[audit.Entry]
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Data[0].EventType != audit.EventCaseUpdated {
		t.Errorf("body = %+v", body)
	}
}

func TestHandlerListInvalidID(t *testing.T) {
	sys := &mockSystem{}
	rec := httptest.NewRecorder()
	setupMux(newTestHandler(sys)).ServeHTTP(rec, httptest.NewRequest("GET", "/cases/not-a-uuid/audit", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := audit.FiltersFromQuery(url.Values{
		"event_type": {"OCR_RUN"},
		"since":      {"yesterday"},
	})
	if f.EventType == nil || *f.EventType != "OCR_RUN" {
		t.Errorf("event type = %v", f.EventType)
	}
	if f.Subtype != nil {
		t.Errorf("subtype = %v, want nil", f.Subtype)
	}
	if f.Since != nil {
		t.Errorf("since = %v, want nil for unparseable input", f.Since)
	}
}

func TestEntryPayloadAccessors(t *testing.T) {
	e := audit.Entry{Payload: json.RawMessage(`{"enabled":true,"description":"  lease papers ","count":3}`)}

	if !e.PayloadBool("enabled") {
		t.Error("enabled should be true")
	}
	if e.PayloadBool("count") || e.PayloadBool("missing") {
		t.Error("non-boolean fields should read false")
	}
	if got := e.PayloadString("description"); got != "  lease papers " {
		t.Errorf("description = %q", got)
	}

	broken := audit.Entry{Payload: json.RawMessage(`not json`)}
	if broken.PayloadBool("enabled") || broken.PayloadString("description") != "" {
		t.Error("malformed payload should read as empty")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{audit.ErrNotFound, http.StatusNotFound},
		{audit.ErrInvalidID, http.StatusBadRequest},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := audit.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
