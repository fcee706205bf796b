package mutate

import (
	"sort"
	"strings"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// CreateSource appends a source (taxonomy entry) at the end of the display
// order. Names are unique case-insensitively; a duplicate returns the
// existing entry.
func CreateSource(db *store.DB, s store.Store, name string, deps Deps) (*model.Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NotFoundError{Kind: "source name", ID: "(empty)"}
	}
	for i := range db.Sources {
		if strings.EqualFold(db.Sources[i].Name, name) {
			return &db.Sources[i], nil
		}
	}
	next := 0
	for _, src := range db.Sources {
		if src.Order >= next {
			next = src.Order + 1
		}
	}
	db.Sources = append(db.Sources, model.Source{
		ID:    s.NextID(db, "src"),
		Name:  name,
		Order: next,
	})
	return &db.Sources[len(db.Sources)-1], nil
}

func RenameSource(db *store.DB, sourceID, name string) error {
	src, ok := db.FindSource(strings.TrimSpace(sourceID))
	if !ok {
		return NotFoundError{Kind: "source", ID: sourceID}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return NotFoundError{Kind: "source name", ID: "(empty)"}
	}
	src.Name = name
	return nil
}

// ReorderSource moves a source to display position pos (0-based) and
// renumbers the whole list contiguously.
func ReorderSource(db *store.DB, sourceID string, pos int) error {
	sourceID = strings.TrimSpace(sourceID)
	if _, ok := db.FindSource(sourceID); !ok {
		return NotFoundError{Kind: "source", ID: sourceID}
	}
	sorted := make([]model.Source, len(db.Sources))
	copy(sorted, db.Sources)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	var moved model.Source
	rest := sorted[:0]
	for _, src := range sorted {
		if src.ID == sourceID {
			moved = src
			continue
		}
		rest = append(rest, src)
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(rest) {
		pos = len(rest)
	}
	merged := append(rest[:pos:pos], append([]model.Source{moved}, rest[pos:]...)...)
	for i := range merged {
		merged[i].Order = i
	}
	db.Sources = merged
	return nil
}

// DeleteSource removes the source and clears the reference from any note
// that used it.
func DeleteSource(db *store.DB, sourceID string, deps Deps) error {
	sourceID = strings.TrimSpace(sourceID)
	if _, ok := db.FindSource(sourceID); !ok {
		return NotFoundError{Kind: "source", ID: sourceID}
	}
	out := db.Sources[:0]
	for _, src := range db.Sources {
		if src.ID != sourceID {
			out = append(out, src)
		}
	}
	db.Sources = out

	now := deps.now()
	for i := range db.Notes {
		n := &db.Notes[i]
		if n.SourceID != nil && *n.SourceID == sourceID {
			n.SourceID = nil
			n.UpdatedAt = now
		}
	}
	return nil
}
