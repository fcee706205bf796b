package mutate

import (
	"errors"
	"testing"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

func folderDB() (*store.DB, store.Store) {
	db := &store.DB{Folders: []model.Folder{
		{ID: "fld-home", Name: "Home", IsHome: true},
	}}
	return db, store.Store{}
}

func TestCreateFolder_DepthLimit(t *testing.T) {
	db, s := folderDB()
	parent := "fld-home"
	for i := 0; i < MaxFolderDepth-1; i++ {
		f, err := CreateFolder(db, s, "level", parent, testDeps())
		if err != nil {
			t.Fatalf("create at depth %d: %v", i+2, err)
		}
		parent = f.ID
	}
	// One more would be level 6.
	_, err := CreateFolder(db, s, "too deep", parent, testDeps())
	var depth FolderDepthError
	if !errors.As(err, &depth) {
		t.Fatalf("err = %v, want FolderDepthError", err)
	}
}

func TestMoveFolder_RejectsCircular(t *testing.T) {
	db, s := folderDB()
	a, _ := CreateFolder(db, s, "a", "fld-home", testDeps())
	b, _ := CreateFolder(db, s, "b", a.ID, testDeps())

	err := MoveFolder(db, a.ID, b.ID, testDeps())
	var circ CircularMoveError
	if !errors.As(err, &circ) {
		t.Fatalf("err = %v, want CircularMoveError", err)
	}
	if err := MoveFolder(db, a.ID, a.ID, testDeps()); !errors.As(err, &circ) {
		t.Fatalf("moving a folder into itself: err = %v, want CircularMoveError", err)
	}
}

func TestMoveFolder_RejectsDepthOverflow(t *testing.T) {
	db, s := folderDB()
	// A chain home > c1 > c2 > c3 (depth 4) and a loose folder with one child
	// (height 2): moving it under c3 would need 6 levels.
	parent := "fld-home"
	for i := 0; i < 3; i++ {
		f, err := CreateFolder(db, s, "chain", parent, testDeps())
		if err != nil {
			t.Fatalf("chain: %v", err)
		}
		parent = f.ID
	}
	loose, _ := CreateFolder(db, s, "loose", "fld-home", testDeps())
	if _, err := CreateFolder(db, s, "leaf", loose.ID, testDeps()); err != nil {
		t.Fatalf("leaf: %v", err)
	}

	err := MoveFolder(db, loose.ID, parent, testDeps())
	var depth FolderDepthError
	if !errors.As(err, &depth) {
		t.Fatalf("err = %v, want FolderDepthError", err)
	}
}

func TestDeleteFolder_RejectsNonEmpty(t *testing.T) {
	db, s := folderDB()
	f, _ := CreateFolder(db, s, "full", "fld-home", testDeps())
	fid := f.ID
	db.Notes = append(db.Notes, model.Note{ID: "note-1", FolderID: &fid})

	err := DeleteFolder(db, fid)
	var full FolderNotEmptyError
	if !errors.As(err, &full) {
		t.Fatalf("err = %v, want FolderNotEmptyError", err)
	}
	if full.Notes != 1 {
		t.Fatalf("reported notes = %d, want 1", full.Notes)
	}

	// Empty it and the delete goes through.
	db.Notes = nil
	if err := DeleteFolder(db, fid); err != nil {
		t.Fatalf("delete empty folder: %v", err)
	}
}

func TestHomeFolderIsProtected(t *testing.T) {
	db, _ := folderDB()
	var prot ProtectedFolderError
	if err := DeleteFolder(db, "fld-home"); !errors.As(err, &prot) {
		t.Fatalf("delete home: err = %v, want ProtectedFolderError", err)
	}
	if err := RenameFolder(db, "fld-home", "Base", testDeps()); !errors.As(err, &prot) {
		t.Fatalf("rename home: err = %v, want ProtectedFolderError", err)
	}
	f, _ := CreateFolder(db, store.Store{}, "a", "fld-home", testDeps())
	if err := MoveFolder(db, "fld-home", f.ID, testDeps()); !errors.As(err, &prot) {
		t.Fatalf("move home: err = %v, want ProtectedFolderError", err)
	}
}
