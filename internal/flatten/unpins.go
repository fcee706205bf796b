package flatten

import "time"

// UnpinGrace is how long an unpinned note keeps its pinned position so it
// does not jump to the bottom of the list while the user is still looking
// at it.
const UnpinGrace = time.Second

// PendingUnpins remembers recently unpinned notes for a short grace period.
// Entries record the note's last PinnedAt so Project can keep using it as
// the effective pin key until the entry expires.
type PendingUnpins struct {
	entries map[string]unpinEntry
}

type unpinEntry struct {
	pinnedAt time.Time
	until    time.Time
}

func NewPendingUnpins() *PendingUnpins {
	return &PendingUnpins{entries: map[string]unpinEntry{}}
}

// Add records that a note was unpinned at now; pinnedAt is the value the
// note carried before the unpin.
func (p *PendingUnpins) Add(noteID string, pinnedAt, now time.Time) {
	p.entries[noteID] = unpinEntry{pinnedAt: pinnedAt, until: now.Add(UnpinGrace)}
}

// Lookup returns the remembered PinnedAt when the note still has a live
// grace entry. Expired entries are dropped on the way out.
func (p *PendingUnpins) Lookup(noteID string, now time.Time) (time.Time, bool) {
	e, ok := p.entries[noteID]
	if !ok {
		return time.Time{}, false
	}
	if now.After(e.until) {
		delete(p.entries, noteID)
		return time.Time{}, false
	}
	return e.pinnedAt, true
}

// Drop removes a note's entry immediately, e.g. when it is re-pinned.
func (p *PendingUnpins) Drop(noteID string) {
	delete(p.entries, noteID)
}
