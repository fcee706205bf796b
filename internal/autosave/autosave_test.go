package autosave

import (
	"fmt"
	"testing"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/mutate"
	"memoline-cli/internal/store"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// tickingDeps advances the clock by one interval per Now call so every
// tick lands at a distinct timestamp.
func tickingDeps() mutate.Deps {
	calls := 0
	return mutate.Deps{
		Now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * DefaultIntervalSeconds * time.Second)
		},
	}
}

func strPtr(s string) *string { return &s }

func existingNoteDB() *store.DB {
	return &store.DB{Notes: []model.Note{{
		ID: "note-5", Title: "Cat", Content: "purr", CreatedAt: base, UpdatedAt: base,
	}}}
}

func TestTick_UnchangedWritesNothing(t *testing.T) {
	db := existingNoteDB()
	s, err := NewSession(db, "note-5")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	cur := EditState{Title: "Cat", Content: "purr"}
	deps := tickingDeps()
	for i := 0; i < 5; i++ {
		if s.Tick(db, store.Store{}, cur, deps) {
			t.Fatalf("tick %d wrote a draft for unchanged state", i)
		}
	}
	if len(db.Drafts) != 0 {
		t.Fatalf("drafts = %d, want 0", len(db.Drafts))
	}
}

func TestTick_SingleDraftPerSession(t *testing.T) {
	// Several unchanged ticks, then changed ticks: exactly one draft row,
	// updated in place.
	db := existingNoteDB()
	s, _ := NewSession(db, "note-5")
	deps := tickingDeps()
	st := store.Store{}

	unchanged := EditState{Title: "Cat", Content: "purr"}
	for i := 0; i < 6; i++ {
		s.Tick(db, st, unchanged, deps)
	}
	if !s.Tick(db, st, EditState{Title: "Cat", Content: "meow"}, deps) {
		t.Fatalf("changed tick did not write")
	}
	if !s.Tick(db, st, EditState{Title: "Cat", Content: "meow meow"}, deps) {
		t.Fatalf("second changed tick did not write")
	}

	if len(db.Drafts) != 1 {
		t.Fatalf("drafts = %d, want exactly 1 for the whole session", len(db.Drafts))
	}
	d := db.Drafts[0]
	if d.OriginalID == nil || *d.OriginalID != "note-5" {
		t.Fatalf("draft original = %v, want note-5", d.OriginalID)
	}
	if d.Content != "meow meow" {
		t.Fatalf("draft content = %q, want the latest snapshot", d.Content)
	}
}

func TestTick_DraftIdempotence(t *testing.T) {
	db := existingNoteDB()
	s, _ := NewSession(db, "note-5")
	deps := tickingDeps()
	st := store.Store{}

	cur := EditState{Title: "Cat", Content: "meow"}
	first := s.Tick(db, st, cur, deps)
	second := s.Tick(db, st, cur, deps)
	if !first || second {
		t.Fatalf("writes = %v,%v; want exactly one for two identical ticks", first, second)
	}
}

func TestTick_TagOrderDoesNotCount(t *testing.T) {
	db := existingNoteDB()
	s, _ := NewSession(db, "note-5")
	deps := tickingDeps()
	st := store.Store{}

	s.Tick(db, st, EditState{Title: "Cat", Content: "purr", Tags: []string{"a", "b"}}, deps)
	if s.Tick(db, st, EditState{Title: "Cat", Content: "purr", Tags: []string{"b", "a"}}, deps) {
		t.Fatalf("tag reordering alone must not count as a change")
	}
}

func TestTick_AllEmptyNeverSnapshots(t *testing.T) {
	db := &store.DB{}
	s := NewSessionForNew()
	deps := tickingDeps()

	if s.Tick(db, store.Store{}, EditState{Title: "  ", Content: "\n"}, deps) {
		t.Fatalf("whitespace-only state wrote a draft")
	}
	if len(db.Drafts) != 0 {
		t.Fatalf("drafts = %d, want 0", len(db.Drafts))
	}
}

func TestSave_CommitsAndClearsDrafts(t *testing.T) {
	db := existingNoteDB()
	s, _ := NewSession(db, "note-5")
	deps := tickingDeps()
	st := store.Store{}

	cur := EditState{Title: "Cat", Content: "meow"}
	s.Tick(db, st, cur, deps)

	id, err := s.Save(db, st, cur, deps)
	if err != nil || id != "note-5" {
		t.Fatalf("save: id=%q err=%v", id, err)
	}
	n, _ := db.FindNote("note-5")
	if n.Content != "meow" {
		t.Fatalf("note content = %q, want committed edit", n.Content)
	}
	if len(db.Drafts) != 0 {
		t.Fatalf("drafts after save = %d, want 0", len(db.Drafts))
	}
	// The session is terminal: further ticks are ignored.
	if s.Tick(db, st, EditState{Title: "zombie"}, deps) {
		t.Fatalf("tick after save wrote a draft")
	}
}

func TestCancel_RetainsDraft(t *testing.T) {
	db := existingNoteDB()
	s, _ := NewSession(db, "note-5")
	deps := tickingDeps()

	s.Tick(db, store.Store{}, EditState{Title: "Cat", Content: "meow"}, deps)
	s.Cancel()
	if len(db.Drafts) != 1 {
		t.Fatalf("drafts after cancel = %d, want the draft retained", len(db.Drafts))
	}
}

func TestResume_ExistingNoteNeedsConfirm(t *testing.T) {
	db := existingNoteDB()
	db.Drafts = []model.Draft{{
		ID: "draft-1", OriginalID: strPtr("note-5"),
		Title: "Cat", Content: "meow", CreatedAt: base,
	}}

	st, needsConfirm, found := Resume(db, "note-5")
	if !found || !needsConfirm {
		t.Fatalf("found=%v needsConfirm=%v, want a confirm-gated draft", found, needsConfirm)
	}
	if st.Content != "meow" {
		t.Fatalf("resumed content = %q", st.Content)
	}
}

func TestResume_NewNoteLoadsAutomatically(t *testing.T) {
	db := &store.DB{Drafts: []model.Draft{{
		ID: "draft-1", Title: "Fresh", Content: "unsaved", CreatedAt: base,
	}}}

	st, needsConfirm, found := Resume(db, "")
	if !found || needsConfirm {
		t.Fatalf("found=%v needsConfirm=%v, want automatic load for a new note", found, needsConfirm)
	}
	if st.Title != "Fresh" {
		t.Fatalf("resumed title = %q", st.Title)
	}
}

func TestResume_MatchingDraftIsIgnored(t *testing.T) {
	db := existingNoteDB()
	db.Drafts = []model.Draft{{
		ID: "draft-1", OriginalID: strPtr("note-5"),
		Title: "Cat", Content: "purr", CreatedAt: base, // identical to committed
	}}
	if _, _, found := Resume(db, "note-5"); found {
		t.Fatalf("a draft equal to the committed note must not prompt")
	}
}

func TestPrune_KeepsTwentyNewest(t *testing.T) {
	db := &store.DB{}
	for i := 0; i < MaxDrafts+5; i++ {
		db.Drafts = append(db.Drafts, model.Draft{
			ID:        fmt.Sprintf("draft-%02d", i),
			Title:     "x",
			CreatedAt: base.Add(-time.Duration(i+1) * time.Minute),
		})
	}

	s := NewSessionForNew()
	deps := tickingDeps()
	s.Tick(db, store.Store{}, EditState{Title: "newest"}, deps)

	if len(db.Drafts) != MaxDrafts {
		t.Fatalf("drafts = %d, want pruned to %d", len(db.Drafts), MaxDrafts)
	}
	// The oldest ones are the casualties; the fresh session draft survives.
	fresh := false
	for _, d := range db.Drafts {
		if d.ID == "draft-24" || d.ID == "draft-23" {
			t.Fatalf("old draft %s survived pruning", d.ID)
		}
		if d.Title == "newest" {
			fresh = true
		}
	}
	if !fresh {
		t.Fatalf("session draft was pruned")
	}
}

func TestRecoverOrphans(t *testing.T) {
	db := &store.DB{Drafts: []model.Draft{
		{ID: "draft-1", Title: "Lost note", Content: "body", CreatedAt: base},
		{ID: "draft-2", Title: "", Content: "   ", CreatedAt: base}, // empty orphan
		{ID: "draft-3", OriginalID: strPtr("note-1"), Title: "x", CreatedAt: base},
	}}

	promoted, err := RecoverOrphans(db, store.Store{}, tickingDeps())
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("promoted = %d, want 1", promoted)
	}
	if len(db.Notes) != 1 || db.Notes[0].Title != "Lost note" {
		t.Fatalf("notes = %+v", db.Notes)
	}
	// Both orphans are gone either way; the attached draft stays.
	if len(db.Drafts) != 1 || db.Drafts[0].ID != "draft-3" {
		t.Fatalf("drafts = %+v, want only draft-3", db.Drafts)
	}
}
