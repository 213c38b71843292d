// Package grade defines target metallurgical specifications.
// A grade names a per-element acceptable concentration range that a
// melt must land in before casting.
package grade

import "fmt"

// Range is an inclusive [Min, Max] concentration window in percent.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Midpoint returns the center of the range, the correction target used
// by the alloy recommendation model.
func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// Contains reports whether pct falls inside the range.
func (r Range) Contains(pct float64) bool {
	return pct >= r.Min && pct <= r.Max
}

// Spec is a named grade specification with per-element target ranges.
type Spec struct {
	ID          string           `json:"id" yaml:"id"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Ranges      map[string]Range `json:"composition_ranges" yaml:"composition_ranges"`
}

// Validate checks that the spec has an ID and well-ordered ranges.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("grade spec: id is required")
	}
	if len(s.Ranges) == 0 {
		return fmt.Errorf("grade %s: no composition ranges", s.ID)
	}
	for el, r := range s.Ranges {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("grade %s: element %s has invalid range [%.4f, %.4f]", s.ID, el, r.Min, r.Max)
		}
	}
	return nil
}
