// Package service contains the orchestration core: the decision policy,
// the two agent wrappers and the analysis manager.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/metallisense/metallisense/internal/domain/analysis"
	"github.com/metallisense/metallisense/internal/port/audit"
)

// DecisionPolicy is the stateless set of predicates governing agent
// invocation. Predicates are pure over their inputs; the only side
// effect is the audit entry each call emits, and that goes to an
// external sink off the critical path.
type DecisionPolicy struct {
	gate analysis.Severity
	sink audit.Sink
}

// NewDecisionPolicy creates a policy with the given alloy gate severity
// (the minimum anomaly severity that triggers the alloy agent).
func NewDecisionPolicy(gateSeverity string, sink audit.Sink) (*DecisionPolicy, error) {
	gate, ok := analysis.ParseSeverity(gateSeverity)
	if !ok {
		return nil, fmt.Errorf("invalid alloy gate severity %q", gateSeverity)
	}
	return &DecisionPolicy{gate: gate, sink: sink}, nil
}

// GateSeverity returns the configured alloy gate severity.
func (p *DecisionPolicy) GateSeverity() analysis.Severity {
	return p.gate
}

// ShouldCheckAnomaly reports whether the anomaly agent should run.
// The anomaly check is unconditional: every composition is scored.
func (p *DecisionPolicy) ShouldCheckAnomaly(ctx context.Context) bool {
	p.record(ctx, "ANOMALY_CHECK", "anomaly detection runs on every composition")
	return true
}

// ShouldRecommendAlloy reports whether the alloy agent should run for
// the given anomaly result. True only when the anomaly severity meets
// or exceeds the configured gate and a target grade was supplied; a
// failed anomaly result never triggers a recommendation. Each skip is
// audited with its actual cause.
func (p *DecisionPolicy) ShouldRecommendAlloy(ctx context.Context, anomaly *analysis.AgentResult, gradeID string) bool {
	if anomaly == nil || anomaly.Anomaly == nil {
		p.record(ctx, "ALLOY_SKIP", "no anomaly result available")
		return false
	}

	severity := anomaly.Anomaly.Severity
	if !severity.AtLeast(p.gate) {
		p.record(ctx, "ALLOY_SKIP",
			fmt.Sprintf("severity %s below gate %s for grade %q", severity, p.gate, gradeID))
		return false
	}
	if gradeID == "" {
		p.record(ctx, "ALLOY_SKIP",
			fmt.Sprintf("severity %s meets gate %s but no grade was supplied", severity, p.gate))
		return false
	}

	p.record(ctx, "ALLOY_RECOMMENDATION",
		fmt.Sprintf("severity %s meets gate %s for grade %q", severity, p.gate, gradeID))
	return true
}

// ExecutionOrder returns the fixed agent execution order. Anomaly
// detection always precedes alloy correction because the gate depends
// on its result.
func (p *DecisionPolicy) ExecutionOrder() []string {
	return []string{analysis.AnomalyAgentName, analysis.AlloyAgentName}
}

// RequiresHumanApproval reports whether agent output needs human
// sign-off. Always true: the pipeline is advisory only.
func (p *DecisionPolicy) RequiresHumanApproval(ctx context.Context) bool {
	p.record(ctx, "HUMAN_APPROVAL", "all agent output requires human approval")
	return true
}

// IsActionAllowed reports whether the named corrective action may be
// executed autonomously. Always false: the policy can permit
// computation but never execution.
func (p *DecisionPolicy) IsActionAllowed(ctx context.Context, action string) bool {
	p.record(ctx, "ACTION_DENIED", fmt.Sprintf("autonomous action %q is not permitted", action))
	return false
}

func (p *DecisionPolicy) record(ctx context.Context, decision, reasoning string) {
	if p.sink == nil {
		return
	}
	p.sink.Record(ctx, audit.Entry{
		ID:        uuid.NewString(),
		Decision:  decision,
		Reasoning: reasoning,
		At:        time.Now().UTC(),
	})
}
