package model

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/domain/grade"
)

// AlloyArtifact is the persisted calibration for the alloy delta
// predictor: per-element correction gains fit at training time, a base
// confidence, and a damping factor that discounts confidence as the
// total predicted correction grows.
type AlloyArtifact struct {
	Version        int                `yaml:"version"`
	Gains          map[string]float64 `yaml:"gains"`
	BaseConfidence float64            `yaml:"base_confidence"`
	Damping        float64            `yaml:"damping"`
}

func (a *AlloyArtifact) validate() error {
	if len(a.Gains) == 0 {
		return fmt.Errorf("alloy artifact: no element gains")
	}
	if a.BaseConfidence < 0 || a.BaseConfidence > 1 {
		return fmt.Errorf("alloy artifact: base_confidence must be in [0,1], got %.4f", a.BaseConfidence)
	}
	if a.Damping < 0 {
		return fmt.Errorf("alloy artifact: damping must be >= 0, got %.4f", a.Damping)
	}
	return nil
}

// AlloyPredictor implements the prediction port using a stored
// calibration artifact. Raw deltas point each element at the grade's
// range midpoint scaled by the trained gain; they are unconstrained in
// sign and magnitude — the alloy agent owns all safety shaping.
// Read-only after construction and safe for concurrent use.
type AlloyPredictor struct {
	artifact *AlloyArtifact
}

// LoadAlloyPredictor reads and validates an alloy artifact from a YAML file.
func LoadAlloyPredictor(path string) (*AlloyPredictor, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("read alloy artifact: %w", err)
	}

	var artifact AlloyArtifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse alloy artifact %s: %w", path, err)
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}

	return &AlloyPredictor{artifact: &artifact}, nil
}

// NewAlloyPredictor wraps an already-validated artifact.
func NewAlloyPredictor(artifact *AlloyArtifact) (*AlloyPredictor, error) {
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &AlloyPredictor{artifact: artifact}, nil
}

// PredictDeltas returns raw per-element deltas toward the grade's range
// midpoints and the model's confidence in the correction.
func (p *AlloyPredictor) PredictDeltas(_ context.Context, spec *grade.Spec, comp composition.Composition) (map[string]float64, float64, error) {
	if p.artifact == nil {
		return nil, 0, fmt.Errorf("alloy predictor: artifact not loaded")
	}
	if spec == nil {
		return nil, 0, fmt.Errorf("alloy predictor: grade spec is required")
	}

	deltas := make(map[string]float64, len(spec.Ranges))
	var magnitude float64
	for el, r := range spec.Ranges {
		pct, ok := comp[el]
		if !ok {
			return nil, 0, fmt.Errorf("alloy predictor: composition missing element %s", el)
		}
		gain, ok := p.artifact.Gains[el]
		if !ok {
			gain = 1.0
		}
		d := gain * (r.Midpoint() - pct)
		deltas[el] = d
		if d < 0 {
			magnitude -= d
		} else {
			magnitude += d
		}
	}

	confidence := clip01(p.artifact.BaseConfidence - p.artifact.Damping*magnitude)
	return deltas, confidence, nil
}

// Ready reports whether the artifact is loaded.
func (p *AlloyPredictor) Ready() bool {
	return p != nil && p.artifact != nil
}
