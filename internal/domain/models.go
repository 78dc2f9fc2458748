package domain

import "time"

// Domain contains core models shared by the dev server components.

// Proxy event outcomes.
const (
	OutcomeProxied = "proxied"
	OutcomeFailed  = "failed"
)

// ProxyEvent describes a single request handled by a proxy rule.
type ProxyEvent struct {
	ID         string    `json:"id"`
	RuleID     string    `json:"rule_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Target     string    `json:"target"`
	Status     int       `json:"status,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Failed reports whether the upstream could not be reached.
func (e ProxyEvent) Failed() bool {
	return e.Outcome == OutcomeFailed
}
