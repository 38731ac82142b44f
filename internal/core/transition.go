// AngelaMos | 2026
// transition.go

package core

import (
	"fmt"
)

// Transitions lists, for every target status, the statuses it may be
// entered from.
type Transitions[S ~string] map[S][]S

func (t Transitions[S]) Allowed(from, to S) bool {
	for _, prev := range t[to] {
		if prev == from {
			return true
		}
	}
	return false
}

func (t Transitions[S]) Check(from, to S) error {
	if _, known := t[to]; !known {
		return ValidationError(fmt.Sprintf("unknown status %q", to))
	}
	if !t.Allowed(from, to) {
		return ConflictError(fmt.Sprintf("cannot move from %q to %q", from, to))
	}
	return nil
}
