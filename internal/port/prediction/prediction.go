// Package prediction defines the port for the alloy regression collaborator.
package prediction

import (
	"context"

	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/domain/grade"
)

// DeltaPredictor predicts per-element concentration deltas that would
// move a composition toward a target grade. Raw deltas are unconstrained
// in sign and magnitude; all safety shaping (sign filtering, minimum
// significance, addition caps) happens in the alloy agent, never here.
// The returned confidence is the collaborator's own estimate and is
// clipped to [0, 1] by the agent. Implementations must be safe for
// concurrent use after initialization.
type DeltaPredictor interface {
	PredictDeltas(ctx context.Context, spec *grade.Spec, comp composition.Composition) (deltas map[string]float64, confidence float64, err error)

	// Ready reports whether the underlying model is loaded and responsive.
	Ready() bool
}
