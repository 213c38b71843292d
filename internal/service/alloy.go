package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/metallisense/metallisense/internal/config"
	"github.com/metallisense/metallisense/internal/domain"
	"github.com/metallisense/metallisense/internal/domain/analysis"
	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/logger"
	"github.com/metallisense/metallisense/internal/port/prediction"
	"github.com/metallisense/metallisense/internal/port/registry"
	"github.com/metallisense/metallisense/internal/resilience"
)

// AlloyService wraps the regression collaborator as the alloy
// correction agent. The collaborator's raw deltas are advisory input
// only: the agent applies its own safety shaping regardless of what the
// model predicts, and every failure degrades to an ERROR result with
// empty additions.
type AlloyService struct {
	registry    registry.Registry
	predictor   prediction.DeltaPredictor
	breaker     *resilience.Breaker
	minAddition float64
	maxAddition float64
	log         *slog.Logger
}

// NewAlloyService creates the alloy agent. MinAddition and MaxAddition
// come from validated config: 0 <= min < max.
func NewAlloyService(reg registry.Registry, predictor prediction.DeltaPredictor, cfg config.Alloy, breaker *resilience.Breaker, log *slog.Logger) *AlloyService {
	return &AlloyService{
		registry:    reg,
		predictor:   predictor,
		breaker:     breaker,
		minAddition: cfg.MinAddition,
		maxAddition: cfg.MaxAddition,
		log:         log,
	}
}

// Recommend resolves the grade and produces safety-bounded alloy
// additions. The recommendation never removes material: negative deltas
// are dropped, deltas below the minimum significance are dropped, and
// every remaining delta is clipped to the per-element addition cap.
// The cap is a hard ceiling enforced here no matter what the
// collaborator returns.
func (s *AlloyService) Recommend(ctx context.Context, gradeID string, comp composition.Composition) *analysis.AgentResult {
	spec, err := s.registry.Resolve(ctx, gradeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.errorResult(gradeID, fmt.Sprintf("unknown grade: %s", gradeID))
		}
		s.log.Warn("grade resolution failed", "grade", gradeID, "error", err, "envelope_id", logger.EnvelopeID(ctx))
		return s.errorResult(gradeID, fmt.Sprintf("grade registry failed: %s", err))
	}

	if missing := comp.MissingElements(); len(missing) > 0 {
		return s.errorResult(gradeID, fmt.Sprintf("composition missing required elements: %v", missing))
	}

	var deltas map[string]float64
	var confidence float64
	err = s.breaker.Execute(func() error {
		var predictErr error
		deltas, confidence, predictErr = s.predictor.PredictDeltas(ctx, spec, comp)
		return predictErr
	})
	if err != nil {
		s.log.Warn("alloy prediction failed", "grade", gradeID, "error", err, "envelope_id", logger.EnvelopeID(ctx))
		return s.errorResult(gradeID, fmt.Sprintf("regression collaborator failed: %s", err))
	}

	additions := s.shape(deltas)

	explanation := fmt.Sprintf("Composition is within acceptable range for %s. No executable additions required.", gradeID)
	if len(additions) > 0 {
		explanation = fmt.Sprintf("Recommending alloy additions to move the melt toward the %s target ranges, based on historical correction patterns.", gradeID)
	}

	return &analysis.AgentResult{
		Agent:       analysis.AlloyAgentName,
		Confidence:  clipUnit(confidence),
		Explanation: explanation,
		Alloy: &analysis.AlloyPayload{
			Grade:                gradeID,
			RecommendedAdditions: additions,
		},
	}
}

// Ready reports whether the regression collaborator is loaded and not
// short-circuited.
func (s *AlloyService) Ready() bool {
	return s.predictor.Ready() && s.breaker.Healthy()
}

// shape applies the mandatory safety filtering to raw deltas:
// additions only, minimum significance, per-element cap.
func (s *AlloyService) shape(deltas map[string]float64) map[string]float64 {
	additions := make(map[string]float64, len(deltas))
	for el, d := range deltas {
		if d < s.minAddition {
			continue
		}
		if d > s.maxAddition {
			d = s.maxAddition
		}
		additions[el] = d
	}
	return additions
}

func (s *AlloyService) errorResult(gradeID, reason string) *analysis.AgentResult {
	return &analysis.AgentResult{
		Agent:       analysis.AlloyAgentName,
		Confidence:  0,
		Explanation: "Alloy recommendation unavailable: " + reason,
		Error:       reason,
		Alloy: &analysis.AlloyPayload{
			Grade:                gradeID,
			RecommendedAdditions: map[string]float64{},
		},
	}
}

func clipUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
