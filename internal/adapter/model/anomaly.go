// Package model implements the scoring and regression collaborator ports
// on calibration artifacts persisted at training time. Only the
// inference path lives here; training, sampling and fitting happen in
// the offline pipeline that produces the artifacts.
package model

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/metallisense/metallisense/internal/domain/composition"
)

// ElementStats holds the per-element location and spread learned at
// training time.
type ElementStats struct {
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
}

// AnomalyArtifact is the persisted calibration for the anomaly scorer.
// DispersionMin and DispersionMax are the dispersion-statistic bounds
// observed on the training set; scoring normalizes against them and
// never re-samples, so repeated calls with identical input are
// identical by construction.
type AnomalyArtifact struct {
	Version  int                     `yaml:"version"`
	Elements map[string]ElementStats `yaml:"elements"`
	Calibration struct {
		DispersionMin float64 `yaml:"dispersion_min"`
		DispersionMax float64 `yaml:"dispersion_max"`
	} `yaml:"calibration"`
}

func (a *AnomalyArtifact) validate() error {
	if len(a.Elements) == 0 {
		return fmt.Errorf("anomaly artifact: no element statistics")
	}
	for el, st := range a.Elements {
		if st.Std <= 0 {
			return fmt.Errorf("anomaly artifact: element %s has non-positive std %.6f", el, st.Std)
		}
	}
	if a.Calibration.DispersionMax <= a.Calibration.DispersionMin {
		return fmt.Errorf("anomaly artifact: calibration bounds must satisfy min < max, got [%.6f, %.6f]",
			a.Calibration.DispersionMin, a.Calibration.DispersionMax)
	}
	return nil
}

// AnomalyScorer implements the scoring port using a stored calibration
// artifact. It is read-only after construction and safe for concurrent use.
type AnomalyScorer struct {
	artifact *AnomalyArtifact
}

// LoadAnomalyScorer reads and validates an anomaly artifact from a YAML file.
func LoadAnomalyScorer(path string) (*AnomalyScorer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("read anomaly artifact: %w", err)
	}

	var artifact AnomalyArtifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse anomaly artifact %s: %w", path, err)
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}

	return &AnomalyScorer{artifact: &artifact}, nil
}

// NewAnomalyScorer wraps an already-validated artifact. Used by tests
// and embedded deployments that construct artifacts in memory.
func NewAnomalyScorer(artifact *AnomalyArtifact) (*AnomalyScorer, error) {
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &AnomalyScorer{artifact: artifact}, nil
}

// Score returns a deterministic anomaly score in [0, 1] for the
// composition: the mean absolute z-distance of the reading from the
// trained element statistics, normalized by the stored calibration
// bounds and clipped.
func (s *AnomalyScorer) Score(_ context.Context, comp composition.Composition) (float64, error) {
	if s.artifact == nil {
		return 0, fmt.Errorf("anomaly scorer: artifact not loaded")
	}

	var sum float64
	var n int
	for el, st := range s.artifact.Elements {
		pct, ok := comp[el]
		if !ok {
			return 0, fmt.Errorf("anomaly scorer: composition missing element %s", el)
		}
		z := pct - st.Mean
		if z < 0 {
			z = -z
		}
		sum += z / st.Std
		n++
	}
	dispersion := sum / float64(n)

	cal := s.artifact.Calibration
	score := (dispersion - cal.DispersionMin) / (cal.DispersionMax - cal.DispersionMin)
	return clip01(score), nil
}

// Ready reports whether the artifact is loaded.
func (s *AnomalyScorer) Ready() bool {
	return s != nil && s.artifact != nil
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
