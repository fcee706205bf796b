package store

import "time"

// SortKeyStep is the gap used when a reordered note lands at either end of
// the list: one minute in milliseconds. Large enough that midpoints between
// freshly created notes stay distinct for a long time.
const SortKeyStep = 60_000

// SortKeyBetween computes a new sort key (unix milliseconds, stored in
// CreatedAt) placing a note strictly between two neighbors in a descending
// list. before/after are the keys of the display neighbors; 0 means "no
// neighbor on that side".
//
//   - Both neighbors: midpoint of the two keys.
//   - Only before (note moved to the tail): before - step.
//   - Only after (note moved to the head): after + step.
//   - Neither (empty list): now.
//
// There is no renormalization pass: repeated interpolation between the same
// two neighbors eventually exhausts millisecond precision and the midpoint
// collapses onto a bound. Display order stays stable because equal keys tie-
// break on ID, but the position may then be off by one slot.
func SortKeyBetween(before, after int64, now func() time.Time) int64 {
	switch {
	case before != 0 && after != 0:
		return before + (after-before)/2
	case before != 0:
		return before - SortKeyStep
	case after != 0:
		return after + SortKeyStep
	default:
		return now().UTC().UnixMilli()
	}
}
