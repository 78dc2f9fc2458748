package devproxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// EnvTargetOrigin overrides the upstream origin of the default rule.
	EnvTargetOrigin = "VITE_API_URL"
	// EnvDebug enables the per-request debug line when non-empty.
	EnvDebug = "DEBUG"

	DefaultTargetOrigin = "http://localhost:8000"
	DefaultPathPrefix   = "/api"
	DefaultRuleID       = "api"
)

// ErrorHook is called when the upstream of rule could not be reached.
// r is the request as it was received by the dev server.
type ErrorHook func(rule Rule, r *http.Request, err error)

// RequestHook is called for every request dispatched upstream.
// out is the outgoing request, in the original one.
type RequestHook func(rule Rule, out, in *http.Request)

// ResponseHook is called once the upstream answered.
type ResponseHook func(rule Rule, in *http.Request, resp *http.Response)

// Rule forwards every request under PathPrefix to Target.
type Rule struct {
	ID           string
	PathPrefix   string
	Target       *url.URL
	ChangeOrigin bool

	OnError    ErrorHook
	OnRequest  RequestHook
	OnResponse ResponseHook
}

// DefaultRule is the /api rule pointed at target.
func DefaultRule(target *url.URL) Rule {
	return Rule{
		ID:           DefaultRuleID,
		PathPrefix:   DefaultPathPrefix,
		Target:       target,
		ChangeOrigin: true,
	}
}

// ResolveTargetOrigin returns the upstream origin for the given override,
// falling back to DefaultTargetOrigin when the override is blank.
func ResolveTargetOrigin(override string) (*url.URL, error) {
	raw := strings.TrimSpace(override)
	if raw == "" {
		raw = DefaultTargetOrigin
	}
	return parseTarget(raw)
}

func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("target %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("target %q has no host", raw)
	}
	return u, nil
}

// Origin is the scheme://host form of the rule target.
func (r Rule) Origin() string {
	if r.Target == nil {
		return ""
	}
	return r.Target.Scheme + "://" + r.Target.Host
}

// Matches reports whether path falls under the rule prefix.
// "/api" matches "/api" and "/api/users" but not "/apix".
func (r Rule) Matches(path string) bool {
	prefix := r.PathPrefix
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

func (r Rule) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("rule id is required")
	}
	if r.PathPrefix == "" || !strings.HasPrefix(r.PathPrefix, "/") {
		return fmt.Errorf("rule %q: path prefix %q must start with /", r.ID, r.PathPrefix)
	}
	if r.Target == nil {
		return fmt.Errorf("rule %q: target is required", r.ID)
	}
	if _, err := parseTarget(r.Target.String()); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	return nil
}
