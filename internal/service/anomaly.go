package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/metallisense/metallisense/internal/config"
	"github.com/metallisense/metallisense/internal/domain/analysis"
	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/logger"
	"github.com/metallisense/metallisense/internal/port/scoring"
	"github.com/metallisense/metallisense/internal/resilience"
)

// Per-tier explanation templates. Static by design: the explanation is
// tied to the severity tier, not derived from the input.
var anomalyExplanations = map[analysis.Severity]string{
	analysis.SeverityLow:    "Reading is within normal operational variance relative to the historical composition distribution.",
	analysis.SeverityMedium: "Moderate anomaly detected in the composition pattern. Verify sensor calibration and melt stability.",
	analysis.SeverityHigh:   "Composition significantly deviates from historical patterns. Possible sensor drift, contamination or unstable melt chemistry. Human inspection recommended.",
}

// AnomalyService wraps the scoring collaborator as the anomaly
// detection agent. Stateless across calls; a failure in the
// collaborator degrades to an ERROR result and never reaches the caller
// as an error.
type AnomalyService struct {
	scorer  scoring.Scorer
	breaker *resilience.Breaker
	low     float64
	high    float64
	log     *slog.Logger
}

// NewAnomalyService creates the anomaly agent. The severity breakpoints
// come from validated config: low < high, both inside (0, 1].
func NewAnomalyService(scorer scoring.Scorer, cfg config.Anomaly, breaker *resilience.Breaker, log *slog.Logger) *AnomalyService {
	return &AnomalyService{
		scorer:  scorer,
		breaker: breaker,
		low:     cfg.LowThreshold,
		high:    cfg.HighThreshold,
		log:     log,
	}
}

// Analyze scores the composition and classifies its severity. The
// returned result always carries a confidence in [0, 1]; on any failure
// it carries severity ERROR, score 0 and confidence 0 instead of
// propagating the error.
func (s *AnomalyService) Analyze(ctx context.Context, comp composition.Composition) *analysis.AgentResult {
	if missing := comp.MissingElements(); len(missing) > 0 {
		return s.errorResult(fmt.Sprintf("composition missing required elements: %v", missing))
	}

	var score float64
	err := s.breaker.Execute(func() error {
		var scoreErr error
		score, scoreErr = s.scorer.Score(ctx, comp)
		return scoreErr
	})
	if err != nil {
		s.log.Warn("anomaly scoring failed", "error", err, "envelope_id", logger.EnvelopeID(ctx))
		return s.errorResult(fmt.Sprintf("scoring collaborator failed: %s", err))
	}
	if score < 0 || score > 1 {
		s.log.Warn("anomaly score out of range", "score", score, "envelope_id", logger.EnvelopeID(ctx))
		return s.errorResult(fmt.Sprintf("scoring collaborator returned out-of-range score %.4f", score))
	}

	severity := s.classify(score)

	return &analysis.AgentResult{
		Agent:       analysis.AnomalyAgentName,
		Confidence:  Confidence(score),
		Explanation: anomalyExplanations[severity],
		Anomaly: &analysis.AnomalyPayload{
			Score:    score,
			Severity: severity,
		},
	}
}

// Ready reports whether the scoring collaborator is loaded and not
// short-circuited.
func (s *AnomalyService) Ready() bool {
	return s.scorer.Ready() && s.breaker.Healthy()
}

// classify maps a score to its severity tier via the configured
// breakpoints: score < low is LOW, low <= score < high is MEDIUM,
// score >= high is HIGH.
func (s *AnomalyService) classify(score float64) analysis.Severity {
	switch {
	case score < s.low:
		return analysis.SeverityLow
	case score < s.high:
		return analysis.SeverityMedium
	default:
		return analysis.SeverityHigh
	}
}

// Confidence maps an anomaly score to detection confidence:
// 2*|score-0.5| clipped to [0, 1]. Scores at either extreme are fully
// trusted; a score on the decision boundary (0.5) carries none.
func Confidence(score float64) float64 {
	d := score - 0.5
	if d < 0 {
		d = -d
	}
	c := 2 * d
	if c > 1 {
		return 1
	}
	return c
}

func (s *AnomalyService) errorResult(reason string) *analysis.AgentResult {
	return &analysis.AgentResult{
		Agent:       analysis.AnomalyAgentName,
		Confidence:  0,
		Explanation: "Anomaly detection unavailable: " + reason,
		Error:       reason,
		Anomaly: &analysis.AnomalyPayload{
			Score:    0,
			Severity: analysis.SeverityError,
		},
	}
}
