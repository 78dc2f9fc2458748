package devproxy

import (
	"fmt"
	"net/http"
	"strings"
)

// Logger is the diagnostic surface used by the proxy hooks.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// FailureBanner renders the advisory printed when a rule target is unreachable.
// startHint is the command that starts the backend.
func FailureBanner(target, method, path string, err error, startHint string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("⚠️  API proxy failed\n")
	if method != "" || path != "" {
		fmt.Fprintf(&b, "   Request: %s %s\n", method, path)
	}
	if err != nil {
		fmt.Fprintf(&b, "   Error: %v\n", err)
	}
	if startHint != "" {
		fmt.Fprintf(&b, "   Make sure the backend is running: %s\n", startHint)
	}
	fmt.Fprintf(&b, "   Current target: %s\n", target)
	fmt.Fprintf(&b, "   If the backend listens on another port, set: %s=http://localhost:<port>\n", EnvTargetOrigin)
	return b.String()
}

// BannerOnError logs FailureBanner for every upstream failure. It never
// recovers or retries; the handler answers 502 afterwards.
func BannerOnError(log Logger, startHint string) ErrorHook {
	log = ensureLogger(log)
	return func(rule Rule, r *http.Request, err error) {
		target := rule.Target.String()
		log.ErrorObj(FailureBanner(target, r.Method, r.URL.RequestURI(), err, startHint), "proxy_failure", map[string]any{
			"rule_id": rule.ID,
			"target":  target,
			"method":  r.Method,
			"path":    r.URL.Path,
			"error":   errString(err),
		})
	}
}

// DebugOnRequest logs one line per proxied request when enabled.
func DebugOnRequest(log Logger, enabled bool) RequestHook {
	log = ensureLogger(log)
	return func(rule Rule, _ *http.Request, in *http.Request) {
		if !enabled {
			return
		}
		log.DebugObj(fmt.Sprintf("🔄 [API] %s %s → %s", in.Method, in.URL.RequestURI(), rule.Target.String()), "proxy_request", map[string]any{
			"rule_id": rule.ID,
		})
	}
}

// ChainErrorHooks runs every non-nil hook in order.
func ChainErrorHooks(hooks ...ErrorHook) ErrorHook {
	return func(rule Rule, r *http.Request, err error) {
		for _, h := range hooks {
			if h != nil {
				h(rule, r, err)
			}
		}
	}
}

// ChainRequestHooks runs every non-nil hook in order.
func ChainRequestHooks(hooks ...RequestHook) RequestHook {
	return func(rule Rule, out, in *http.Request) {
		for _, h := range hooks {
			if h != nil {
				h(rule, out, in)
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
