// Package scoring defines the port for the anomaly scoring collaborator.
package scoring

import (
	"context"

	"github.com/metallisense/metallisense/internal/domain/composition"
)

// Scorer rates how anomalous a composition is relative to historical
// normal behavior. Score returns a value in [0, 1] where 1 is maximally
// anomalous. Implementations must be deterministic: identical input
// must yield an identical score, and must be safe for concurrent use
// after initialization.
type Scorer interface {
	Score(ctx context.Context, comp composition.Composition) (float64, error)

	// Ready reports whether the underlying model is loaded and responsive.
	Ready() bool
}
