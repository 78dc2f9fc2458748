package devproxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id assigned to each proxied request.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const inboundKey ctxKey = iota

// inbound is what the dev server saw before the request was rewritten.
type inbound struct {
	id      string
	req     *http.Request
	started time.Time
}

// RequestID returns the id assigned to a proxied request, or "".
func RequestID(ctx context.Context) string {
	if in, ok := ctx.Value(inboundKey).(*inbound); ok {
		return in.id
	}
	return ""
}

// StartedAt returns when the dev server received a proxied request.
func StartedAt(ctx context.Context) time.Time {
	if in, ok := ctx.Value(inboundKey).(*inbound); ok {
		return in.started
	}
	return time.Time{}
}

type route struct {
	rule  Rule
	proxy *httputil.ReverseProxy
}

// Handler dispatches requests to the first rule whose prefix matches,
// longest prefix first. Everything else goes to the fallback handler.
type Handler struct {
	routes   []route
	fallback http.Handler
	log      Logger
}

// NewHandler validates rules and builds one reverse proxy per rule.
func NewHandler(rules []Rule, fallback http.Handler, log Logger) (*Handler, error) {
	if len(rules) == 0 {
		return nil, errors.New("at least one proxy rule is required")
	}
	log = ensureLogger(log)

	ids := make(map[string]struct{}, len(rules))
	prefixes := make(map[string]struct{}, len(rules))
	routes := make([]route, 0, len(rules))
	for _, rule := range rules {
		if err := rule.validate(); err != nil {
			return nil, err
		}
		if _, dup := ids[rule.ID]; dup {
			return nil, fmt.Errorf("duplicate proxy rule id %q", rule.ID)
		}
		if _, dup := prefixes[rule.PathPrefix]; dup {
			return nil, fmt.Errorf("duplicate proxy rule prefix %q", rule.PathPrefix)
		}
		ids[rule.ID] = struct{}{}
		prefixes[rule.PathPrefix] = struct{}{}
		routes = append(routes, route{rule: rule, proxy: newReverseProxy(rule, log)})
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].rule.PathPrefix) > len(routes[j].rule.PathPrefix)
	})

	return &Handler{routes: routes, fallback: fallback, log: log}, nil
}

// Rules returns the configured rules in match order.
func (h *Handler) Rules() []Rule {
	out := make([]Rule, len(h.routes))
	for i, rt := range h.routes {
		out[i] = rt.rule
	}
	return out
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range h.routes {
		if !rt.rule.Matches(r.URL.Path) {
			continue
		}
		in := &inbound{id: r.Header.Get(RequestIDHeader), started: time.Now()}
		if in.id == "" {
			in.id = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), inboundKey, in))
		in.req = r
		rt.proxy.ServeHTTP(w, r)
		return
	}

	if h.fallback != nil {
		h.fallback.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func newReverseProxy(rule Rule, log Logger) *httputil.ReverseProxy {
	target := rule.Target
	origin := rule.Origin()

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			if rule.ChangeOrigin {
				pr.Out.Host = target.Host
				pr.Out.Header.Set("Origin", origin)
			} else {
				pr.Out.Host = pr.In.Host
			}
			if id := RequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(RequestIDHeader, id)
			}
			if rule.OnRequest != nil {
				rule.OnRequest(rule, pr.Out, originalRequest(pr.In))
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			if rule.OnResponse != nil {
				rule.OnResponse(rule, originalRequest(resp.Request), resp)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, out *http.Request, err error) {
			in := originalRequest(out)
			if errors.Is(err, context.Canceled) {
				log.DebugObj("proxied request cancelled by client", "proxy_cancelled", map[string]any{
					"rule_id": rule.ID,
					"path":    in.URL.Path,
				})
				// Nobody is left to read a response.
				return
			}
			if rule.OnError != nil {
				rule.OnError(rule, in, err)
			}
			http.Error(w, fmt.Sprintf("API proxy failed: %s is unreachable", target.String()), http.StatusBadGateway)
		},
		ErrorLog: stdLogger(log),
	}
}

// originalRequest maps an outgoing request back to the one the dev server received.
func originalRequest(r *http.Request) *http.Request {
	if r == nil {
		return nil
	}
	if in, ok := r.Context().Value(inboundKey).(*inbound); ok && in.req != nil {
		return in.req
	}
	return r
}

type logWriter struct {
	log Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.log.WarnObj("reverse proxy", "proxy_log", strings.TrimSpace(string(p)))
	return len(p), nil
}

func stdLogger(l Logger) *log.Logger {
	return log.New(logWriter{log: l}, "", 0)
}
