package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSinkPostsAlert(t *testing.T) {
	var (
		method, token string
		payload       Alert
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		token = r.Header.Get("X-Token")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := newWebhookSink(WebhookConfig{
		URL:            srv.URL,
		Method:         http.MethodPost,
		Headers:        map[string]string{"X-Token": "s3cret"},
		TimeoutSeconds: 2,
	})
	a := newAlert("hook", "devgate", "development", failedEvent())
	if err := sink.Deliver(context.Background(), a); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if method != http.MethodPost || token != "s3cret" {
		t.Fatalf("unexpected request method=%s token=%q", method, token)
	}
	if payload.Event.ID != "req-1" || payload.Reason != ReasonUnreachable || payload.Route != "hook" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestWebhookSinkFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := newWebhookSink(WebhookConfig{URL: srv.URL, Method: http.MethodPost, TimeoutSeconds: 1})
	if err := sink.Deliver(context.Background(), Alert{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}
