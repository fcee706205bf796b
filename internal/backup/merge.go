package backup

import (
	"strings"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/mutate"
	"memoline-cli/internal/store"
)

// dedupTolerance is how far apart two creation timestamps may be while
// still counting as the same record. Export/import round-trips through
// second-precision formats, so exact equality is too strict.
const dedupTolerance = time.Second

// MergeStats summarizes what a merge actually did.
type MergeStats struct {
	SourcesAdded    int
	SourcesMatched  int
	NotesAdded      int
	NotesMatched    int
	CommentsAdded   int
	CommentsSkipped int
}

// Merge folds the payload into db without duplicating existing content.
// It only mutates in memory; the caller persists the whole state
// afterwards, so a failure mid-merge leaves nothing half-written.
//
// Sources match by exact name, notes by exact title within 1s of creation
// time, comments by remapped parent + content within 1s. A matched note
// adopts the import's starred flag when the local copy is unstarred.
func Merge(db *store.DB, s store.Store, p Payload, deps mutate.Deps) (MergeStats, error) {
	var stats MergeStats
	now := time.Now().UTC()
	if deps.Now != nil {
		now = deps.Now()
	}

	// Taxonomy reconciliation: old source id -> local source id.
	sourceMap := map[string]string{}
	for _, in := range p.Sources {
		if local := findSourceByName(db, in.Name); local != nil {
			sourceMap[in.ID] = local.ID
			local.Order = in.Order
			stats.SourcesMatched++
			continue
		}
		id := s.NextID(db, "src")
		db.Sources = append(db.Sources, model.Source{ID: id, Name: in.Name, Order: in.Order})
		sourceMap[in.ID] = id
		stats.SourcesAdded++
	}

	// Note dedup: old note id -> local note id, whether matched or added.
	noteMap := map[string]string{}
	for _, in := range p.Logs {
		if local := findDuplicateNote(db, in); local != nil {
			noteMap[in.ID] = local.ID
			if in.Starred && !local.Starred {
				local.Starred = true
				local.UpdatedAt = now
			}
			stats.NotesMatched++
			continue
		}

		n := in
		n.ID = s.NextID(db, "note")
		// The format carries no folders; imported notes surface in home.
		n.FolderID = nil
		if n.SourceID != nil {
			if mapped, ok := sourceMap[*n.SourceID]; ok {
				n.SourceID = &mapped
			} else {
				n.SourceID = nil
			}
		}
		db.Notes = append(db.Notes, n)
		noteMap[in.ID] = n.ID
		stats.NotesAdded++
	}

	// Comments only land when their parent resolved through the id map.
	for _, in := range p.Comments {
		parent, ok := noteMap[in.NoteID]
		if !ok {
			stats.CommentsSkipped++
			continue
		}
		if hasDuplicateComment(db, parent, in) {
			stats.CommentsSkipped++
			continue
		}
		c := in
		c.ID = s.NextID(db, "cmt")
		c.NoteID = parent
		db.Comments = append(db.Comments, c)
		stats.CommentsAdded++
	}

	db.InvalidateIndexes()
	return stats, nil
}

func findSourceByName(db *store.DB, name string) *model.Source {
	name = strings.TrimSpace(name)
	for i := range db.Sources {
		if db.Sources[i].Name == name {
			return &db.Sources[i]
		}
	}
	return nil
}

func findDuplicateNote(db *store.DB, in model.Note) *model.Note {
	for i := range db.Notes {
		local := &db.Notes[i]
		if local.Title != in.Title {
			continue
		}
		if withinTolerance(local.CreatedAt, in.CreatedAt) {
			return local
		}
	}
	return nil
}

func hasDuplicateComment(db *store.DB, noteID string, in model.Comment) bool {
	for _, c := range db.Comments {
		if c.NoteID != noteID || c.Content != in.Content {
			continue
		}
		if withinTolerance(c.CreatedAt, in.CreatedAt) {
			return true
		}
	}
	return false
}

func withinTolerance(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= dedupTolerance
}
