// Package composition defines the measured melt composition domain type.
package composition

import (
	"fmt"
	"sort"
)

// RequiredElements is the fixed element set every spectrometer reading
// must carry. Concentrations are percentages by weight.
var RequiredElements = []string{"Fe", "C", "Si", "Mn", "P", "S"}

// Composition maps an element symbol to its measured concentration
// percentage. Values are conventionally within [0, 100]; no upper bound
// is enforced here. A Composition is immutable once handed to the
// analysis pipeline — callers supply a fresh one per request.
type Composition map[string]float64

// MissingElements returns the required elements absent from c, sorted.
func (c Composition) MissingElements() []string {
	var missing []string
	for _, el := range RequiredElements {
		if _, ok := c[el]; !ok {
			missing = append(missing, el)
		}
	}
	sort.Strings(missing)
	return missing
}

// Validate checks that all required elements are present and that no
// concentration is negative.
func (c Composition) Validate() error {
	if missing := c.MissingElements(); len(missing) > 0 {
		return fmt.Errorf("missing elements: %v", missing)
	}
	for el, pct := range c {
		if pct < 0 {
			return fmt.Errorf("element %s: negative concentration %.4f", el, pct)
		}
	}
	return nil
}

// Clone returns an independent copy of c.
func (c Composition) Clone() Composition {
	out := make(Composition, len(c))
	for el, pct := range c {
		out[el] = pct
	}
	return out
}
