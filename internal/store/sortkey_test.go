package store

import (
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestSortKeyBetween_Midpoint(t *testing.T) {
	got := SortKeyBetween(200, 100, fixedNow)
	if got != 150 {
		t.Fatalf("midpoint = %d, want 150", got)
	}
	// Order of bounds must not matter; the key is strictly between.
	got = SortKeyBetween(100, 200, fixedNow)
	if got != 150 {
		t.Fatalf("midpoint = %d, want 150", got)
	}
}

func TestSortKeyBetween_TailOfDescendingList(t *testing.T) {
	// Only a "before" neighbor: the note landed at the tail, so it gets a
	// smaller key than the neighbor above it.
	got := SortKeyBetween(100, 0, fixedNow)
	if got != 100-SortKeyStep {
		t.Fatalf("tail key = %d, want %d", got, 100-SortKeyStep)
	}
}

func TestSortKeyBetween_HeadOfDescendingList(t *testing.T) {
	got := SortKeyBetween(0, 500, fixedNow)
	if got != 500+SortKeyStep {
		t.Fatalf("head key = %d, want %d", got, 500+SortKeyStep)
	}
}

func TestSortKeyBetween_EmptyList(t *testing.T) {
	got := SortKeyBetween(0, 0, fixedNow)
	if got != fixedNow().UnixMilli() {
		t.Fatalf("empty-list key = %d, want now (%d)", got, fixedNow().UnixMilli())
	}
}

func TestSortKeyBetween_PrecisionCollapse(t *testing.T) {
	// Adjacent keys leave no space; the midpoint collapses onto the first
	// bound instead of crashing. Documented limitation (no renormalization).
	got := SortKeyBetween(101, 100, fixedNow)
	if got != 101 {
		t.Fatalf("collapsed key = %d, want 101", got)
	}
}
