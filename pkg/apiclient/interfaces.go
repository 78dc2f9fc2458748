package apiclient

import (
	"context"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// API abstracts backend calls so callers can inject mocks or different transports.
type API interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) (Response, error)
	Get(ctx context.Context, path string, headers map[string]string) (Response, error)
	Post(ctx context.Context, path string, body any, headers map[string]string) (Response, error)
	Put(ctx context.Context, path string, body any, headers map[string]string) (Response, error)
	Delete(ctx context.Context, path string, headers map[string]string) (Response, error)
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) ErrorObj(string, string, interface{}) {}
