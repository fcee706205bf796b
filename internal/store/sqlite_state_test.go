package store

import (
	"testing"
	"time"

	"memoline-cli/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestSQLiteStateStore_SaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("MEMOLINE_CONFIG_DIR", t.TempDir())
	dir := t.TempDir()
	s := Store{Dir: dir}

	now := time.Now().UTC().Truncate(time.Millisecond)
	pinned := now.Add(-time.Hour)
	db := &DB{
		Version: 1,
		Folders: []model.Folder{
			{ID: "fld-home", Name: "Home", IsHome: true, CreatedAt: now, UpdatedAt: now},
			{ID: "fld-work", Name: "Work", ParentID: strPtr("fld-home"), CreatedAt: now, UpdatedAt: now},
		},
		Notes: []model.Note{
			{
				ID: "note-a", Title: "A", Content: "alpha", Tags: []string{"x", "y"},
				FolderID: strPtr("fld-work"), SourceID: strPtr("src-1"),
				CreatedAt: now, UpdatedAt: now, PinnedAt: &pinned,
				ThreadID: strPtr("t-1"), ThreadOrder: intPtr(0), Starred: true,
			},
			{ID: "note-b", Title: "B", Content: "beta", CreatedAt: now.Add(time.Second), UpdatedAt: now},
		},
		Comments: []model.Comment{
			{ID: "cmt-1", NoteID: "note-a", Content: "hi", CreatedAt: now, UpdatedAt: now},
		},
		Sources: []model.Source{{ID: "src-1", Name: "Books", Order: 0}},
		Drafts: []model.Draft{
			{ID: "draft-1", OriginalID: strPtr("note-a"), Title: "A!", Content: "edited", CreatedAt: now},
		},
	}

	if err := s.Save(db); err != nil {
		t.Fatalf("save sqlite: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load sqlite: %v", err)
	}
	if len(got.Notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(got.Notes))
	}
	a, ok := got.FindNote("note-a")
	if !ok {
		t.Fatalf("note-a missing after round trip")
	}
	if a.PinnedAt == nil || !a.PinnedAt.Equal(pinned) {
		t.Fatalf("pinnedAt = %v, want %v", a.PinnedAt, pinned)
	}
	if !a.InThread() || *a.ThreadOrder != 0 {
		t.Fatalf("thread fields lost: %+v", a)
	}
	if len(a.Tags) != 2 || a.Tags[0] != "x" {
		t.Fatalf("tags = %v", a.Tags)
	}
	if len(got.Comments) != 1 || got.Comments[0].NoteID != "note-a" {
		t.Fatalf("comments = %+v", got.Comments)
	}
	if len(got.Sources) != 1 || got.Sources[0].Name != "Books" {
		t.Fatalf("sources = %+v", got.Sources)
	}
	if len(got.Drafts) != 1 || got.Drafts[0].OriginalID == nil {
		t.Fatalf("drafts = %+v", got.Drafts)
	}
}

func TestLoad_CreatesHomeFolderOnce(t *testing.T) {
	t.Setenv("MEMOLINE_CONFIG_DIR", t.TempDir())
	dir := t.TempDir()
	s := Store{Dir: dir}

	db, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	home, ok := db.HomeFolder()
	if !ok {
		t.Fatalf("fresh workspace has no home folder")
	}

	// A second load must reuse the same home folder, not mint another.
	db2, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	homes := 0
	for _, f := range db2.Folders {
		if f.IsHome {
			homes++
			if f.ID != home.ID {
				t.Fatalf("home folder id changed: %s -> %s", home.ID, f.ID)
			}
		}
	}
	if homes != 1 {
		t.Fatalf("home folders = %d, want 1", homes)
	}
}

func TestDB_ThreadAndCommentIndexes(t *testing.T) {
	now := time.Now().UTC()
	db := &DB{
		Notes: []model.Note{
			{ID: "note-2", ThreadID: strPtr("t"), ThreadOrder: intPtr(1), CreatedAt: now},
			{ID: "note-1", ThreadID: strPtr("t"), ThreadOrder: intPtr(0), CreatedAt: now},
			{ID: "note-3", CreatedAt: now},
		},
		Comments: []model.Comment{
			{ID: "cmt-2", NoteID: "note-3", CreatedAt: now.Add(time.Second)},
			{ID: "cmt-1", NoteID: "note-3", CreatedAt: now},
		},
	}

	members := db.NotesInThread("t")
	if len(members) != 2 || members[0].ID != "note-1" || members[1].ID != "note-2" {
		t.Fatalf("thread members out of order: %+v", members)
	}
	cs := db.CommentsForNote("note-3")
	if len(cs) != 2 || cs[0].ID != "cmt-1" {
		t.Fatalf("comments out of order: %+v", cs)
	}
	if got := db.CommentCounts()["note-3"]; got != 2 {
		t.Fatalf("comment count = %d, want 2", got)
	}
}
