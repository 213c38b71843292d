package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/metallisense/metallisense/internal/domain/analysis"
	"github.com/metallisense/metallisense/internal/port/audit"
)

// recordingSink captures audit entries for assertions.
type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

var _ audit.Sink = (*recordingSink)(nil)

func (s *recordingSink) Record(_ context.Context, entry audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) decisions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Decision
	}
	return out
}

func anomalyResultWith(severity analysis.Severity) *analysis.AgentResult {
	return &analysis.AgentResult{
		Agent:   analysis.AnomalyAgentName,
		Anomaly: &analysis.AnomalyPayload{Score: 0.8, Severity: severity},
	}
}

func TestNewDecisionPolicyRejectsUnknownGate(t *testing.T) {
	if _, err := NewDecisionPolicy("CRITICAL", nil); err == nil {
		t.Fatal("expected error for unknown gate severity")
	}
	if _, err := NewDecisionPolicy("ERROR", nil); err == nil {
		t.Fatal("ERROR is not a valid gate severity")
	}
}

func TestShouldCheckAnomalyAlwaysTrue(t *testing.T) {
	sink := &recordingSink{}
	p, err := NewDecisionPolicy("HIGH", sink)
	if err != nil {
		t.Fatal(err)
	}

	if !p.ShouldCheckAnomaly(context.Background()) {
		t.Fatal("anomaly check must be unconditional")
	}
	if d := sink.decisions(); len(d) != 1 || d[0] != "ANOMALY_CHECK" {
		t.Errorf("expected one ANOMALY_CHECK entry, got %v", d)
	}
}

func TestShouldRecommendAlloyGate(t *testing.T) {
	cases := []struct {
		gate     string
		severity analysis.Severity
		want     bool
	}{
		{"HIGH", analysis.SeverityLow, false},
		{"HIGH", analysis.SeverityMedium, false},
		{"HIGH", analysis.SeverityHigh, true},
		{"MEDIUM", analysis.SeverityMedium, true},
		{"MEDIUM", analysis.SeverityHigh, true},
		{"MEDIUM", analysis.SeverityLow, false},
		{"LOW", analysis.SeverityLow, true},
	}

	for _, c := range cases {
		p, err := NewDecisionPolicy(c.gate, nil)
		if err != nil {
			t.Fatal(err)
		}
		got := p.ShouldRecommendAlloy(context.Background(), anomalyResultWith(c.severity), "SG-IRON")
		if got != c.want {
			t.Errorf("gate %s, severity %s: got %v, want %v", c.gate, c.severity, got, c.want)
		}
	}
}

func TestErrorSeverityNeverTriggersAlloy(t *testing.T) {
	for _, gate := range []string{"LOW", "MEDIUM", "HIGH"} {
		p, err := NewDecisionPolicy(gate, nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.ShouldRecommendAlloy(context.Background(), anomalyResultWith(analysis.SeverityError), "SG-IRON") {
			t.Errorf("gate %s: ERROR severity must never trigger the alloy agent", gate)
		}
	}
}

func TestGateMetWithoutGradeAuditsSkip(t *testing.T) {
	sink := &recordingSink{}
	p, err := NewDecisionPolicy("HIGH", sink)
	if err != nil {
		t.Fatal(err)
	}

	if p.ShouldRecommendAlloy(context.Background(), anomalyResultWith(analysis.SeverityHigh), "") {
		t.Fatal("no grade supplied: gate must not pass")
	}
	d := sink.decisions()
	if len(d) != 1 || d[0] != "ALLOY_SKIP" {
		t.Fatalf("expected a single ALLOY_SKIP entry, got %v", d)
	}
	if !strings.Contains(sink.entries[0].Reasoning, "no grade") {
		t.Errorf("skip reasoning should name the missing grade, got %q", sink.entries[0].Reasoning)
	}
}

func TestShouldRecommendAlloyNilResult(t *testing.T) {
	p, err := NewDecisionPolicy("LOW", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.ShouldRecommendAlloy(context.Background(), nil, "SG-IRON") {
		t.Fatal("nil anomaly result must not trigger the alloy agent")
	}
}

func TestAlloyDecisionsAreAudited(t *testing.T) {
	sink := &recordingSink{}
	p, err := NewDecisionPolicy("HIGH", sink)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	p.ShouldRecommendAlloy(ctx, anomalyResultWith(analysis.SeverityLow), "SG-IRON")
	p.ShouldRecommendAlloy(ctx, anomalyResultWith(analysis.SeverityHigh), "SG-IRON")

	d := sink.decisions()
	if len(d) != 2 || d[0] != "ALLOY_SKIP" || d[1] != "ALLOY_RECOMMENDATION" {
		t.Fatalf("expected [ALLOY_SKIP ALLOY_RECOMMENDATION], got %v", d)
	}
	for _, e := range sink.entries {
		if e.ID == "" || e.Reasoning == "" || e.At.IsZero() {
			t.Errorf("audit entry incomplete: %+v", e)
		}
	}
}

func TestExecutionOrderIsFixed(t *testing.T) {
	p, err := NewDecisionPolicy("HIGH", nil)
	if err != nil {
		t.Fatal(err)
	}
	order := p.ExecutionOrder()
	if len(order) != 2 || order[0] != analysis.AnomalyAgentName || order[1] != analysis.AlloyAgentName {
		t.Fatalf("unexpected execution order %v", order)
	}
}

func TestAdvisoryPredicates(t *testing.T) {
	sink := &recordingSink{}
	p, err := NewDecisionPolicy("HIGH", sink)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if !p.RequiresHumanApproval(ctx) {
		t.Error("human approval is always required")
	}
	if p.IsActionAllowed(ctx, "add_alloy") {
		t.Error("autonomous actions are never allowed")
	}

	d := sink.decisions()
	if len(d) != 2 || d[0] != "HUMAN_APPROVAL" || d[1] != "ACTION_DENIED" {
		t.Errorf("expected [HUMAN_APPROVAL ACTION_DENIED], got %v", d)
	}
}
