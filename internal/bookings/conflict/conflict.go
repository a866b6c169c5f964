// Package conflict decides whether a proposed time slot collides with
// existing reservations. It is deterministic and free of store or network
// dependencies so the rule can be tested in isolation.
package conflict

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether an existing interval collides with the proposed
// one. The three cases are independent disjuncts:
//
//  1. the existing interval is already running when the proposed one begins
//  2. the existing interval is still running when the proposed one ends
//  3. the existing interval is fully contained inside the proposed one
//
// The boundary comparisons are intentionally asymmetric between the cases:
// an existing slot that ends exactly when the proposed one starts (or
// starts exactly when it ends) does not overlap, so back-to-back bookings
// stay allowed. Do not collapse this into a single canonical overlap test.
func Overlaps(existing, proposed Interval) bool {
	// Case 1: existing.Start <= proposed.Start && existing.End > proposed.Start
	if !existing.Start.After(proposed.Start) && existing.End.After(proposed.Start) {
		return true
	}

	// Case 2: existing.Start < proposed.End && existing.End >= proposed.End
	if existing.Start.Before(proposed.End) && !existing.End.Before(proposed.End) {
		return true
	}

	// Case 3: existing.Start >= proposed.Start && existing.End <= proposed.End
	if !existing.Start.Before(proposed.Start) && !existing.End.After(proposed.End) {
		return true
	}

	return false
}

// AnyOverlap reports whether any member of existing overlaps the proposed
// interval. It short-circuits on the first match and is false for an empty
// slice.
func AnyOverlap(existing []Interval, proposed Interval) bool {
	for _, e := range existing {
		if Overlaps(e, proposed) {
			return true
		}
	}
	return false
}
