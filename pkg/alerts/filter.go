package alerts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

// Filter selects which proxy events raise an alert on a route.
//
// Outcomes lists the outcomes that always alert; it defaults to "failed".
// MinStatus additionally alerts on proxied responses at or above that status.
// Rules restricts the route to the named proxy rules; empty means all rules.
type Filter struct {
	Outcomes  []string `json:"outcomes" yaml:"outcomes"`
	Rules     []string `json:"rules" yaml:"rules"`
	MinStatus int      `json:"min_status" yaml:"min_status"`
}

// Match reports whether evt should raise an alert.
func (f Filter) Match(evt domain.ProxyEvent) bool {
	if len(f.Rules) > 0 && !slices.Contains(f.Rules, evt.RuleID) {
		return false
	}
	if slices.Contains(f.Outcomes, evt.Outcome) {
		return true
	}
	return !evt.Failed() && f.MinStatus > 0 && evt.Status >= f.MinStatus
}

// normalize applies defaults and checks the filter against the known rule ids.
func (f *Filter) normalize(knownRules []string) error {
	outcomes := make([]string, 0, len(f.Outcomes))
	for _, o := range f.Outcomes {
		o = strings.ToLower(strings.TrimSpace(o))
		switch o {
		case "":
			continue
		case domain.OutcomeFailed, domain.OutcomeProxied:
			outcomes = append(outcomes, o)
		default:
			return fmt.Errorf("unknown outcome %q (expected %q or %q)", o, domain.OutcomeFailed, domain.OutcomeProxied)
		}
	}
	if len(outcomes) == 0 {
		outcomes = []string{domain.OutcomeFailed}
	}
	f.Outcomes = outcomes

	if f.MinStatus != 0 && (f.MinStatus < 100 || f.MinStatus > 599) {
		return fmt.Errorf("min_status %d is not an HTTP status", f.MinStatus)
	}

	rules := make([]string, 0, len(f.Rules))
	for _, id := range f.Rules {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !slices.Contains(knownRules, id) {
			return fmt.Errorf("unknown proxy rule %q", id)
		}
		rules = append(rules, id)
	}
	f.Rules = rules
	return nil
}
