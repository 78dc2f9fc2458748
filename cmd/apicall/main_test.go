package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-devgate/pkg/apiclient"
)

func TestParseHeaders(t *testing.T) {
	got, err := parseHeaders([]string{"X-Trace: abc", "Accept:application/json"})
	if err != nil {
		t.Fatalf("parseHeaders: %v", err)
	}
	if got["X-Trace"] != "abc" || got["Accept"] != "application/json" {
		t.Fatalf("unexpected headers %v", got)
	}
	if _, err := parseHeaders([]string{"no-colon"}); err == nil {
		t.Fatalf("expected error for header without colon")
	}
	if got, _ := parseHeaders(nil); got != nil {
		t.Fatalf("expected nil map for no headers, got %v", got)
	}
}

func TestCallWritesResponseBody(t *testing.T) {
	var gotPath, gotTrace string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTrace = r.Header.Get("X-Trace")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL, BasePath: "/api", Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}

	var out bytes.Buffer
	err = call(context.Background(), client, http.MethodPost, "/papers", `{"title":"x"}`, []string{"X-Trace: 1"}, &out)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gotPath != "/api/papers" || gotTrace != "1" {
		t.Fatalf("unexpected request path=%s trace=%s", gotPath, gotTrace)
	}
	if string(gotBody) != `{"title":"x"}` {
		t.Fatalf("unexpected request body %s", gotBody)
	}
	if out.String() != `{"ok":true}` {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCallRejectsInvalidJSON(t *testing.T) {
	client, err := apiclient.New(apiclient.Config{BaseURL: "http://127.0.0.1:1", BasePath: "/api", Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	if err := call(context.Background(), client, http.MethodPost, "/x", "{bad", nil, io.Discard); err == nil {
		t.Fatalf("expected error for invalid JSON body")
	}
}
