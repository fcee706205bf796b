package mutate

import (
	"testing"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

func sourcesDB() *store.DB {
	return &store.DB{Sources: []model.Source{
		{ID: "src-a", Name: "Books", Order: 0},
		{ID: "src-b", Name: "Podcasts", Order: 1},
		{ID: "src-c", Name: "Articles", Order: 2},
	}}
}

func TestCreateSource_NameDedupIsCaseInsensitive(t *testing.T) {
	db := sourcesDB()
	s := store.Store{}
	src, err := CreateSource(db, s, "  books ", testDeps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if src.ID != "src-a" {
		t.Fatalf("duplicate name created a new source: %+v", src)
	}
	if len(db.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(db.Sources))
	}
}

func TestReorderSource_RenumbersContiguously(t *testing.T) {
	db := sourcesDB()
	if err := ReorderSource(db, "src-c", 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := map[string]int{"src-c": 0, "src-a": 1, "src-b": 2}
	for id, order := range want {
		src, _ := db.FindSource(id)
		if src.Order != order {
			t.Fatalf("%s order = %d, want %d", id, src.Order, order)
		}
	}
}

func TestDeleteSource_ClearsNoteReferences(t *testing.T) {
	db := sourcesDB()
	n := noteWithKey("note-1", 100)
	sid := "src-b"
	n.SourceID = &sid
	db.Notes = append(db.Notes, n)

	if err := DeleteSource(db, "src-b", testDeps()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := db.FindNote("note-1")
	if got.SourceID != nil {
		t.Fatalf("note still references the deleted source")
	}
	if len(db.Sources) != 2 {
		t.Fatalf("sources = %+v", db.Sources)
	}
}
