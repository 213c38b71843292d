package grade

import "testing"

func TestRangeMidpointAndContains(t *testing.T) {
	r := Range{Min: 3.4, Max: 4.0}
	if got := r.Midpoint(); got != 3.7 {
		t.Errorf("Midpoint() = %v, want 3.7", got)
	}
	if !r.Contains(3.4) || !r.Contains(4.0) {
		t.Error("range bounds are inclusive")
	}
	if r.Contains(4.1) {
		t.Error("4.1 is outside the range")
	}
}

func TestSpecValidate(t *testing.T) {
	valid := Spec{
		ID: "SG-IRON",
		Ranges: map[string]Range{
			"C":  {Min: 3.4, Max: 3.9},
			"Si": {Min: 2.2, Max: 2.8},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid spec, got %v", err)
	}

	noID := valid
	noID.ID = ""
	if err := noID.Validate(); err == nil {
		t.Fatal("expected error for missing id")
	}

	empty := Spec{ID: "X"}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected error for empty ranges")
	}

	inverted := Spec{ID: "X", Ranges: map[string]Range{"C": {Min: 4.0, Max: 3.0}}}
	if err := inverted.Validate(); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
