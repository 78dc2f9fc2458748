package alerts

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

// Reasons an alert is raised.
const (
	ReasonUnreachable = "backend_unreachable"
	ReasonStatus      = "backend_status"
)

// Alert is the payload every sink delivers.
type Alert struct {
	Route       string            `json:"route"`
	Source      string            `json:"source"`
	Environment string            `json:"environment"`
	Reason      string            `json:"reason"`
	Summary     string            `json:"summary"`
	Event       domain.ProxyEvent `json:"event"`
	RaisedAt    time.Time         `json:"raised_at"`
}

func newAlert(route, source, environment string, evt domain.ProxyEvent) Alert {
	a := Alert{
		Route:       route,
		Source:      source,
		Environment: environment,
		Event:       evt,
		RaisedAt:    time.Now().UTC(),
	}
	if evt.Failed() {
		a.Reason = ReasonUnreachable
		a.Summary = fmt.Sprintf("%s %s via %q: %s unreachable: %s", evt.Method, evt.Path, evt.RuleID, evt.Target, evt.Error)
	} else {
		a.Reason = ReasonStatus
		a.Summary = fmt.Sprintf("%s %s via %q: %s answered %d", evt.Method, evt.Path, evt.RuleID, evt.Target, evt.Status)
	}
	return a
}

// attributes are attached to queue and topic messages.
func (a Alert) attributes() map[string]string {
	attrs := map[string]string{
		"route":   a.Route,
		"rule_id": a.Event.RuleID,
		"reason":  a.Reason,
		"outcome": a.Event.Outcome,
	}
	if a.Event.Status > 0 {
		attrs["status"] = strconv.Itoa(a.Event.Status)
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
