package kin

import "fmt"

// ValidateJointOrder checks a delivered joint-name list against the expected
// order. Reordering is the feed's job; any difference is a mismatch.
func ValidateJointOrder(expected, got []string) error {
	if len(got) != len(expected) {
		return fmt.Errorf("%w: got %d joints, want %d", ErrJointOrderMismatch, len(got), len(expected))
	}
	want := make(map[string]struct{}, len(expected))
	for _, name := range expected {
		want[name] = struct{}{}
	}
	for _, name := range got {
		if _, ok := want[name]; !ok {
			return fmt.Errorf("%w: unexpected joint %q", ErrJointOrderMismatch, name)
		}
	}
	for i := range expected {
		if got[i] != expected[i] {
			return fmt.Errorf("%w: position %d is %q, want %q", ErrJointOrderMismatch, i, got[i], expected[i])
		}
	}
	return nil
}
