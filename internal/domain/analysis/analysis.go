// Package analysis defines the agent result and response envelope types
// produced by the advisory analysis pipeline.
package analysis

import "time"

// SafetyNote is attached to every envelope, without exception. The
// entire pipeline is advisory: no output may reach a caller without the
// human-approval notice.
const SafetyNote = "Human approval required before action"

// Agent name constants, carried on every AgentResult.
const (
	AnomalyAgentName = "AnomalyDetectionAgent"
	AlloyAgentName   = "AlloyCorrectionAgent"
)

// Severity classifies anomaly magnitude. LOW, MEDIUM and HIGH are
// ordered; ERROR is a sentinel for failed agent invocations and never
// participates in gate comparisons.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
	SeverityError  Severity = "ERROR"
)

// rank orders the classifiable severities. ERROR ranks below every
// classifiable tier so it never satisfies a gate.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	default:
		return -1
	}
}

// Classifiable reports whether s is one of the ordered tiers.
func (s Severity) Classifiable() bool {
	return s.rank() >= 0
}

// AtLeast reports whether s meets or exceeds the given threshold tier.
// ERROR never meets any threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	if !s.Classifiable() || !threshold.Classifiable() {
		return false
	}
	return s.rank() >= threshold.rank()
}

// ParseSeverity returns the Severity named by raw, or false when raw
// does not name a classifiable tier.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(raw), true
	}
	return "", false
}

// AnomalyPayload carries the anomaly-specific fields of an AgentResult.
type AnomalyPayload struct {
	Score    float64  `json:"anomaly_score"`
	Severity Severity `json:"severity"`
}

// AlloyPayload carries the alloy-specific fields of an AgentResult.
// RecommendedAdditions maps element symbols to non-negative, capped
// addition percentages; empty means no executable correction.
type AlloyPayload struct {
	Grade                string             `json:"grade"`
	RecommendedAdditions map[string]float64 `json:"recommended_additions"`
}

// AgentResult is the uniform output of a single agent invocation.
// Created fresh per call and never mutated afterwards. When Error is
// set, Confidence is 0 and the payload severity (if any) is ERROR.
type AgentResult struct {
	Agent       string          `json:"agent"`
	Confidence  float64         `json:"confidence"`
	Explanation string          `json:"explanation"`
	Error       string          `json:"error,omitempty"`
	Anomaly     *AnomalyPayload `json:"anomaly,omitempty"`
	Alloy       *AlloyPayload   `json:"alloy,omitempty"`
}

// Failed reports whether the invocation degraded to an error result.
func (r *AgentResult) Failed() bool {
	return r.Error != ""
}

// Envelope is the aggregate advisory response for one analysis request.
// Alloy is nil when the decision policy skipped the alloy agent — a
// distinct, valid state from a present-but-failed result. Constructed
// once per request and immutable once returned.
type Envelope struct {
	ID         string       `json:"id"`
	Anomaly    AgentResult  `json:"anomaly_result"`
	Alloy      *AgentResult `json:"alloy_result,omitempty"`
	SafetyNote string       `json:"safety_note"`
	Timestamp  time.Time    `json:"timestamp"`
}
