package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/metallisense/metallisense/internal/adapter/otel"
	"github.com/metallisense/metallisense/internal/adapter/ws"
	"github.com/metallisense/metallisense/internal/domain"
	"github.com/metallisense/metallisense/internal/domain/analysis"
	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/logger"
	"github.com/metallisense/metallisense/internal/port/broadcast"
)

// ManagerService orchestrates one analysis request: anomaly agent
// first, always; then the decision policy gates the alloy agent; then
// both outputs are aggregated under the mandatory safety note. Agents
// never call each other or the policy — all control flow runs through
// the manager, and the manager holds no state across calls.
type ManagerService struct {
	anomaly *AnomalyService
	alloy   *AlloyService
	policy  *DecisionPolicy
	hub     broadcast.Broadcaster
	metrics *otel.Metrics
	log     *slog.Logger
}

// NewManagerService creates the analysis manager. hub and metrics are
// optional; nil disables the live feed and instrument recording.
func NewManagerService(anomaly *AnomalyService, alloy *AlloyService, policy *DecisionPolicy, hub broadcast.Broadcaster, metrics *otel.Metrics, log *slog.Logger) *ManagerService {
	return &ManagerService{
		anomaly: anomaly,
		alloy:   alloy,
		policy:  policy,
		hub:     hub,
		metrics: metrics,
		log:     log,
	}
}

// Analyze runs the full advisory pipeline for one composition/grade
// pair. Agent-level failures are represented inside the envelope, never
// as a returned error; the only request-level failure is a structurally
// missing composition, and even then the returned envelope carries an
// ERROR anomaly result and the safety note.
func (m *ManagerService) Analyze(ctx context.Context, comp composition.Composition, gradeID string) (*analysis.Envelope, error) {
	start := time.Now()
	envelopeID := uuid.NewString()

	ctx = logger.WithEnvelopeID(ctx, envelopeID)
	ctx, span := otel.StartAnalysisSpan(ctx, envelopeID, gradeID)
	defer span.End()

	if m.metrics != nil {
		m.metrics.AnalysesStarted.Add(ctx, 1)
	}

	// The one input-validation responsibility the manager owns: a
	// request with no composition at all cannot be analyzed.
	if len(comp) == 0 {
		if m.metrics != nil {
			m.metrics.AnalysesFailed.Add(ctx, 1)
		}
		env := m.newEnvelope(envelopeID, *m.structuralErrorResult(), nil)
		return env, fmt.Errorf("%w: composition is required", domain.ErrInvalidInput)
	}

	// Step 1: anomaly detection, unconditional.
	m.policy.ShouldCheckAnomaly(ctx)
	agentCtx, agentSpan := otel.StartAgentSpan(ctx, analysis.AnomalyAgentName)
	anomalyResult := m.anomaly.Analyze(agentCtx, comp)
	agentSpan.End()

	if m.metrics != nil && !anomalyResult.Failed() {
		m.metrics.AnomalyScore.Record(ctx, anomalyResult.Anomaly.Score)
	}

	// Step 2: alloy correction, gated on the anomaly severity. The
	// alloy result must not be computed before the anomaly result is
	// fully resolved — ordering is strict.
	var alloyResult *analysis.AgentResult
	if m.policy.ShouldRecommendAlloy(ctx, anomalyResult, gradeID) {
		agentCtx, agentSpan := otel.StartAgentSpan(ctx, analysis.AlloyAgentName)
		alloyResult = m.alloy.Recommend(agentCtx, gradeID, comp)
		agentSpan.End()

		if m.metrics != nil {
			m.metrics.AlloyInvoked.Add(ctx, 1)
		}
	} else {
		// Skipped, a valid state distinct from failed: the envelope's
		// alloy slot stays absent.
		if m.metrics != nil {
			m.metrics.AlloySkipped.Add(ctx, 1)
		}
	}

	// Step 3: aggregate. The safety note is attached unconditionally;
	// the approval predicate is consulted for the audit trail.
	m.policy.RequiresHumanApproval(ctx)
	env := m.newEnvelope(envelopeID, *anomalyResult, alloyResult)

	if m.metrics != nil {
		m.metrics.AnalysesCompleted.Add(ctx, 1)
		m.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	}

	m.log.Info("analysis complete",
		"envelope_id", env.ID,
		"grade", gradeID,
		"severity", anomalyResult.Anomaly.Severity,
		"alloy_invoked", alloyResult != nil,
	)

	if m.hub != nil {
		m.hub.BroadcastEvent(ctx, ws.EventAnalysisCompleted, env)
	}

	return env, nil
}

// Ready reports whether both agents are ready to serve.
func (m *ManagerService) Ready() bool {
	return m.anomaly.Ready() && m.alloy.Ready()
}

// AgentStatus describes one agent's readiness.
type AgentStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// Status is the manager's readiness surface.
type Status struct {
	Ready          bool              `json:"ready"`
	GateSeverity   analysis.Severity `json:"alloy_gate_severity"`
	ExecutionOrder []string          `json:"execution_order"`
	Agents         []AgentStatus     `json:"agents"`
}

// Status reports the readiness of the manager and both agents.
func (m *ManagerService) Status() Status {
	return Status{
		Ready:          m.Ready(),
		GateSeverity:   m.policy.GateSeverity(),
		ExecutionOrder: m.policy.ExecutionOrder(),
		Agents: []AgentStatus{
			{Name: analysis.AnomalyAgentName, Ready: m.anomaly.Ready()},
			{Name: analysis.AlloyAgentName, Ready: m.alloy.Ready()},
		},
	}
}

func (m *ManagerService) newEnvelope(id string, anomaly analysis.AgentResult, alloy *analysis.AgentResult) *analysis.Envelope {
	return &analysis.Envelope{
		ID:         id,
		Anomaly:    anomaly,
		Alloy:      alloy,
		SafetyNote: analysis.SafetyNote,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *ManagerService) structuralErrorResult() *analysis.AgentResult {
	reason := "no composition supplied"
	return &analysis.AgentResult{
		Agent:       analysis.AnomalyAgentName,
		Confidence:  0,
		Explanation: "Analysis not performed: " + reason,
		Error:       reason,
		Anomaly: &analysis.AnomalyPayload{
			Score:    0,
			Severity: analysis.SeverityError,
		},
	}
}
