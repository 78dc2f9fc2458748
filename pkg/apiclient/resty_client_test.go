package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []map[string]any
}

func (r *recordingLogger) DebugObj(string, string, interface{}) {}
func (r *recordingLogger) ErrorObj(_ string, _ string, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fields, _ := obj.(map[string]any)
	r.errors = append(r.errors, fields)
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration, log Logger) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, BasePath: DefaultBasePath, Timeout: timeout}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClientPrefixesBasePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("X-Backend", "yes")
		w.Write([]byte(`{"users":[]}`))
	}))
	defer srv.Close()

	log := &recordingLogger{}
	client := newTestClient(t, srv.URL, DefaultTimeout, log)

	resp, err := client.Get(context.Background(), "/users", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotPath != "/api/users" {
		t.Fatalf("expected /api/users, got %s", gotPath)
	}
	if resp.StatusCode() != http.StatusOK || string(resp.Body()) != `{"users":[]}` {
		t.Fatalf("response altered: %d %s", resp.StatusCode(), resp.Body())
	}
	if resp.Header().Get("X-Backend") != "yes" {
		t.Fatalf("expected backend header to pass through")
	}
	if log.count() != 0 {
		t.Fatalf("expected no error logs on success, got %d", log.count())
	}
}

func TestClientPrefixesPathWithoutLeadingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/", DefaultTimeout, nil)
	if _, err := client.Get(context.Background(), "tasks/1", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotPath != "/api/tasks/1" {
		t.Fatalf("expected /api/tasks/1, got %s", gotPath)
	}
}

func TestClientPostSendsJSONBody(t *testing.T) {
	var contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		method = r.Method
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, DefaultTimeout, nil)
	resp, err := client.Post(context.Background(), "/auth/login", map[string]string{"username": "u"}, map[string]string{"X-Test": "1"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if method != http.MethodPost || resp.StatusCode() != http.StatusCreated {
		t.Fatalf("unexpected method/status: %s %d", method, resp.StatusCode())
	}
	if !strings.HasPrefix(contentType, "application/json") {
		t.Fatalf("expected json content type, got %q", contentType)
	}
}

func TestClientLogsAndReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	log := &recordingLogger{}
	client := newTestClient(t, srv.URL, DefaultTimeout, log)

	_, err := client.Get(context.Background(), "/missing", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", statusErr.StatusCode)
	}
	if log.count() != 1 {
		t.Fatalf("expected exactly one error log, got %d", log.count())
	}
	entry := log.errors[0]
	if entry["component"] != Component || entry["status"] != http.StatusNotFound {
		t.Fatalf("unexpected log fields: %v", entry)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	log := &recordingLogger{}
	client := newTestClient(t, srv.URL, 50*time.Millisecond, log)

	_, err := client.Get(context.Background(), "/slow", nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if log.count() != 1 {
		t.Fatalf("expected exactly one error log, got %d", log.count())
	}
	if log.errors[0]["timeout"] != true {
		t.Fatalf("expected timeout flag in log entry, got %v", log.errors[0])
	}
}

func TestClientLogsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	log := &recordingLogger{}
	client := newTestClient(t, addr, time.Second, log)

	if _, err := client.Get(context.Background(), "/users", nil); err == nil {
		t.Fatalf("expected connection error")
	}
	if log.count() != 1 {
		t.Fatalf("expected exactly one error log, got %d", log.count())
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []Config{
		{BaseURL: "http://localhost:5173", BasePath: "", Timeout: time.Second},
		{BaseURL: "http://localhost:5173", BasePath: "/api", Timeout: 0},
		{BaseURL: "/relative", BasePath: "/api", Timeout: time.Second},
	}
	for _, cfg := range cases {
		if _, err := New(cfg, nil); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestIsTimeoutIgnoresOtherErrors(t *testing.T) {
	if IsTimeout(nil) || IsTimeout(errors.New("boom")) {
		t.Fatalf("plain errors must not be classified as timeouts")
	}
	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be a timeout")
	}
}
