package alerts

import (
	"testing"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

func TestFilterMatch(t *testing.T) {
	failed := domain.ProxyEvent{RuleID: "api", Outcome: domain.OutcomeFailed}
	ok := domain.ProxyEvent{RuleID: "api", Outcome: domain.OutcomeProxied, Status: 200}
	boom := domain.ProxyEvent{RuleID: "api", Outcome: domain.OutcomeProxied, Status: 503}
	uploads := domain.ProxyEvent{RuleID: "uploads", Outcome: domain.OutcomeFailed}

	cases := []struct {
		name   string
		filter Filter
		evt    domain.ProxyEvent
		want   bool
	}{
		{"failure alerts by default", Filter{Outcomes: []string{domain.OutcomeFailed}}, failed, true},
		{"success is quiet by default", Filter{Outcomes: []string{domain.OutcomeFailed}}, ok, false},
		{"min status catches 5xx", Filter{Outcomes: []string{domain.OutcomeFailed}, MinStatus: 500}, boom, true},
		{"min status ignores 2xx", Filter{Outcomes: []string{domain.OutcomeFailed}, MinStatus: 500}, ok, false},
		{"proxied outcome matches everything proxied", Filter{Outcomes: []string{domain.OutcomeProxied}}, ok, true},
		{"rule filter excludes other rules", Filter{Outcomes: []string{domain.OutcomeFailed}, Rules: []string{"api"}}, uploads, false},
		{"rule filter keeps named rule", Filter{Outcomes: []string{domain.OutcomeFailed}, Rules: []string{"uploads"}}, uploads, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(tc.evt); got != tc.want {
			t.Fatalf("%s: Match = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFilterNormalize(t *testing.T) {
	f := Filter{Outcomes: []string{" FAILED ", ""}, Rules: []string{"api", " "}}
	if err := f.normalize([]string{"api"}); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(f.Outcomes) != 1 || f.Outcomes[0] != domain.OutcomeFailed || len(f.Rules) != 1 {
		t.Fatalf("unexpected normalized filter %+v", f)
	}

	empty := Filter{}
	if err := empty.normalize(nil); err != nil || len(empty.Outcomes) != 1 || empty.Outcomes[0] != domain.OutcomeFailed {
		t.Fatalf("expected failed outcome default, got %+v err=%v", empty, err)
	}

	for _, bad := range []Filter{
		{Rules: []string{"legacy"}},
		{Outcomes: []string{"timeout"}},
		{MinStatus: 42},
	} {
		if err := bad.normalize([]string{"api"}); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}
