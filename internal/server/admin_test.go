package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

type fakeEvents struct {
	events    []domain.ProxyEvent
	err       error
	lastLimit int
}

func (f *fakeEvents) Recent(limit int) ([]domain.ProxyEvent, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func TestAdminHealthz(t *testing.T) {
	h := NewAdminHandler(&fakeEvents{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AdminPrefix+"healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAdminEventsRespectsLimit(t *testing.T) {
	events := &fakeEvents{events: []domain.ProxyEvent{
		{ID: "e2", Outcome: domain.OutcomeFailed},
		{ID: "e1", Outcome: domain.OutcomeProxied},
	}}
	h := NewAdminHandler(events)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AdminPrefix+"events?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Events []domain.ProxyEvent `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].ID != "e2" {
		t.Fatalf("unexpected events %+v", body.Events)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AdminPrefix+"events?limit=100000", nil))
	if events.lastLimit != maxEventsLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxEventsLimit, events.lastLimit)
	}
}

func TestAdminEventsErrors(t *testing.T) {
	h := NewAdminHandler(&fakeEvents{err: errors.New("db closed")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AdminPrefix+"events?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AdminPrefix+"events", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store error, got %d", rec.Code)
	}
}

func TestWithAdminPassesOtherPathsUntouched(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
		w.WriteHeader(http.StatusTeapot)
	})
	h := WithAdmin(NewAdminHandler(&fakeEvents{}), next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api//users", nil))
	if rec.Code != http.StatusTeapot || seen != "/api//users" {
		t.Fatalf("expected raw path forwarded, got code=%d path=%q", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AdminPrefix+"healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin healthz 200, got %d", rec.Code)
	}
}
