package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// Component identifies this package in diagnostic log entries.
	Component = "apiclient"

	DefaultBasePath = "/api"
	DefaultTimeout  = 30 * time.Second
)

// Config is the immutable configuration of a Client.
type Config struct {
	// BaseURL is the origin relative request paths are resolved against.
	BaseURL  string
	BasePath string
	Timeout  time.Duration
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	snippet := readBodySnippet(e.Body)
	if snippet == "" {
		return fmt.Sprintf("%s %s: http response status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http response status %d: %s", e.Method, e.URL, e.StatusCode, snippet)
}

// Client issues backend API requests under a fixed base path and timeout.
// Every failure is logged once and returned to the caller as is.
type Client struct {
	client *resty.Client
	cfg    Config
	log    Logger
}

var _ API = (*Client)(nil)

// New validates cfg and builds a Client.
func New(cfg Config, log Logger) (*Client, error) {
	cfg.BasePath = strings.TrimSpace(cfg.BasePath)
	if cfg.BasePath == "" {
		return nil, errors.New("base path must not be empty")
	}
	if !strings.HasPrefix(cfg.BasePath, "/") {
		cfg.BasePath = "/" + cfg.BasePath
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	origin, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !origin.IsAbs() || origin.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(origin.String(), "/")

	if log == nil {
		log = noopLogger{}
	}

	c := &Client{cfg: cfg, log: log}
	c.client = newRestyBaseClient(cfg.Timeout).
		SetBaseURL(cfg.BaseURL + cfg.BasePath).
		SetLogger(restyLogger{log: log}).
		OnAfterResponse(rejectNonSuccess).
		OnError(c.logFailure)
	return c, nil
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Do performs a request against BaseURL+BasePath+path.
func (c *Client) Do(ctx context.Context, method, path string, body any, headers map[string]string) (Response, error) {
	req := c.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(strings.ToUpper(method), path)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Get performs an HTTP GET request with the specified context, path, and headers.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) (Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, headers)
}

func (c *Client) Post(ctx context.Context, path string, body any, headers map[string]string) (Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, headers)
}

func (c *Client) Put(ctx context.Context, path string, body any, headers map[string]string) (Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, headers)
}

func (c *Client) Delete(ctx context.Context, path string, headers map[string]string) (Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, headers)
}

// rejectNonSuccess turns non-2xx responses into a StatusError.
func rejectNonSuccess(_ *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &StatusError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}
}

// logFailure runs once per failed request, after resty gave up on it.
func (c *Client) logFailure(req *resty.Request, err error) {
	details := map[string]any{
		"component": Component,
		"method":    req.Method,
		"url":       req.URL,
		"timeout":   IsTimeout(err),
	}

	var respErr *resty.ResponseError
	if errors.As(err, &respErr) {
		err = respErr.Err
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		details["status"] = statusErr.StatusCode
	}
	details["error"] = err.Error()

	c.log.ErrorObj("API Error", "api_error", details)
}

// IsTimeout reports whether err comes from the request exceeding its deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// restyResponseAdapter adapts resty.Response to the Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }

// restyLogger keeps resty's internal chatter at debug level so failures are
// only reported through logFailure.
type restyLogger struct {
	log Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.debug(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.debug(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.debug(format, v...) }

func (l restyLogger) debug(format string, v ...interface{}) {
	l.log.DebugObj("resty", "resty_message", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
