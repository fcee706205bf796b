package mutate

import (
	"sort"
	"strings"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// NoteInput is the editable surface of a note.
type NoteInput struct {
	Title    string
	Content  string
	Tags     []string
	FolderID *string
	SourceID *string
}

// CreateNote inserts a new note. The store generates the id; CreatedAt is
// the wall clock until the note is first reordered.
func CreateNote(db *store.DB, s store.Store, in NoteInput, deps Deps) (*model.Note, error) {
	if folderID := deref(in.FolderID); folderID != "" {
		if _, ok := db.FindFolder(folderID); !ok {
			return nil, NotFoundError{Kind: "folder", ID: folderID}
		}
	}
	if sourceID := deref(in.SourceID); sourceID != "" {
		if _, ok := db.FindSource(sourceID); !ok {
			return nil, NotFoundError{Kind: "source", ID: sourceID}
		}
	}
	now := deps.now()
	n := model.Note{
		ID:        s.NextID(db, "note"),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Tags:      normalizeTags(in.Tags),
		FolderID:  in.FolderID,
		SourceID:  in.SourceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.Notes = append(db.Notes, n)
	db.InvalidateIndexes()
	return &db.Notes[len(db.Notes)-1], nil
}

// UpdateNote overwrites the editable fields. Structural fields (thread,
// pin, folder placement via drag) are untouched.
func UpdateNote(db *store.DB, noteID string, in NoteInput, deps Deps) error {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	if sourceID := deref(in.SourceID); sourceID != "" {
		if _, ok := db.FindSource(sourceID); !ok {
			return NotFoundError{Kind: "source", ID: sourceID}
		}
	}
	n.Title = strings.TrimSpace(in.Title)
	n.Content = in.Content
	n.Tags = normalizeTags(in.Tags)
	n.SourceID = in.SourceID
	n.UpdatedAt = deps.now()
	return nil
}

// PinNote sets PinnedAt to now; pinned notes dominate every sort mode.
func PinNote(db *store.DB, noteID string, deps Deps) error {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	now := deps.now()
	n.PinnedAt = &now
	n.UpdatedAt = now
	return nil
}

// UnpinNote clears the pin and reports the old PinnedAt so the caller can
// feed the projector's grace table.
func UnpinNote(db *store.DB, noteID string, deps Deps) (model.Note, error) {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return model.Note{}, NotFoundError{Kind: "note", ID: noteID}
	}
	prev := *n
	n.PinnedAt = nil
	n.UpdatedAt = deps.now()
	return prev, nil
}

func ToggleStar(db *store.DB, noteID string, deps Deps) error {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	n.Starred = !n.Starred
	n.UpdatedAt = deps.now()
	return nil
}

// SetStar sets the star flag explicitly (the non-toggle CLI form).
func SetStar(db *store.DB, noteID string, starred bool, deps Deps) error {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	if n.Starred == starred {
		return nil
	}
	n.Starred = starred
	n.UpdatedAt = deps.now()
	return nil
}

// MoveNoteToFolder is the named (non-drag) form of a folder move; it uses
// the same semantics as dropping the note on a folder row.
func MoveNoteToFolder(db *store.DB, noteID, folderID string, deps Deps) error {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	isHead := false
	if n.InThread() {
		members := db.NotesInThread(*n.ThreadID)
		isHead = len(members) > 0 && members[0].ID == n.ID
	}
	_, err := dragToFolder(db, n, folderID, isHead, deps)
	return err
}

// normalizeTags trims, dedups, and sorts; tags behave as a set.
func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
