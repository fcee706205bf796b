package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"memoline-cli/internal/model"
)

// DB is the whole workspace state. It is loaded and saved as a unit; every
// multi-step mutation therefore becomes one SQLite transaction on save.
type DB struct {
	Version  int             `json:"version"`
	Notes    []model.Note    `json:"notes"`
	Folders  []model.Folder  `json:"folders"`
	Comments []model.Comment `json:"comments"`
	Sources  []model.Source  `json:"sources"`
	Drafts   []model.Draft   `json:"drafts"`

	// Derived indexes for per-note lookups. Not persisted.
	idxBuilt          bool                       `json:"-"`
	idxCommentsByNote map[string][]model.Comment `json:"-"`
	idxNotesByThread  map[string][]model.Note    `json:"-"`
}

type Store struct {
	Dir string
}

// DiscoverDir walks up from start looking for a .memoline workspace dir.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, ".memoline")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	return filepath.Join(cwd, ".memoline"), nil
}

func WorkspaceDir(name string) (string, error) {
	name, err := NormalizeWorkspaceName(name)
	if err != nil {
		return "", err
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) Load() (*DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	db, err := s.LoadSQLite(context.Background())
	if err != nil {
		return nil, err
	}
	if ensureHomeFolder(db) {
		if err := s.Save(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (s Store) Save(db *DB) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	db.InvalidateIndexes()
	return s.SaveSQLite(context.Background(), db)
}

// ensureHomeFolder guarantees exactly one home folder exists. A fresh
// workspace gets one; duplicates (e.g. from hand-edited state) are demoted,
// keeping the oldest.
func ensureHomeFolder(db *DB) bool {
	changed := false
	var homes []int
	for i := range db.Folders {
		if db.Folders[i].IsHome {
			homes = append(homes, i)
		}
	}
	switch {
	case len(homes) == 0:
		id, err := newRandomID("fld")
		if err != nil {
			id = "fld-home"
		}
		now := nowUTC()
		db.Folders = append(db.Folders, model.Folder{
			ID:        id,
			Name:      "Home",
			IsHome:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		changed = true
	case len(homes) > 1:
		keep := homes[0]
		for _, i := range homes[1:] {
			if db.Folders[i].CreatedAt.Before(db.Folders[keep].CreatedAt) {
				keep = i
			}
		}
		for _, i := range homes {
			if i != keep && db.Folders[i].IsHome {
				db.Folders[i].IsHome = false
				changed = true
			}
		}
	}
	return changed
}

// NextID returns a fresh collision-checked id with the given prefix
// (note, fld, cmt, src, draft).
func (s Store) NextID(db *DB, prefix string) string {
	for i := 0; i < 10; i++ {
		id, err := newRandomID(prefix)
		if err != nil {
			break
		}
		if !idExists(db, id) {
			return id
		}
	}
	// Extremely unlikely fallback.
	n := len(db.Notes) + len(db.Folders) + len(db.Comments) + len(db.Sources) + len(db.Drafts)
	return fmt.Sprintf("%s-%d", prefix, n+1)
}

func (db *DB) FindNote(id string) (*model.Note, bool) {
	for i := range db.Notes {
		if db.Notes[i].ID == id {
			return &db.Notes[i], true
		}
	}
	return nil, false
}

func (db *DB) FindFolder(id string) (*model.Folder, bool) {
	for i := range db.Folders {
		if db.Folders[i].ID == id {
			return &db.Folders[i], true
		}
	}
	return nil, false
}

func (db *DB) FindSource(id string) (*model.Source, bool) {
	for i := range db.Sources {
		if db.Sources[i].ID == id {
			return &db.Sources[i], true
		}
	}
	return nil, false
}

func (db *DB) FindComment(id string) (*model.Comment, bool) {
	for i := range db.Comments {
		if db.Comments[i].ID == id {
			return &db.Comments[i], true
		}
	}
	return nil, false
}

func (db *DB) FindDraft(id string) (*model.Draft, bool) {
	for i := range db.Drafts {
		if db.Drafts[i].ID == id {
			return &db.Drafts[i], true
		}
	}
	return nil, false
}

// HomeFolder returns the workspace home folder.
func (db *DB) HomeFolder() (*model.Folder, bool) {
	for i := range db.Folders {
		if db.Folders[i].IsHome {
			return &db.Folders[i], true
		}
	}
	return nil, false
}

// InvalidateIndexes drops the derived lookup indexes; callers that mutate
// Notes or Comments directly must invalidate before the next indexed read.
func (db *DB) InvalidateIndexes() {
	db.idxBuilt = false
	db.idxCommentsByNote = nil
	db.idxNotesByThread = nil
}

func (db *DB) ensureIndexes() {
	if db == nil || db.idxBuilt {
		return
	}
	db.idxCommentsByNote = map[string][]model.Comment{}
	db.idxNotesByThread = map[string][]model.Note{}

	for _, c := range db.Comments {
		id := strings.TrimSpace(c.NoteID)
		if id == "" {
			continue
		}
		db.idxCommentsByNote[id] = append(db.idxCommentsByNote[id], c)
	}
	for id := range db.idxCommentsByNote {
		cs := db.idxCommentsByNote[id]
		sort.Slice(cs, func(i, j int) bool { return cs[i].CreatedAt.Before(cs[j].CreatedAt) })
		db.idxCommentsByNote[id] = cs
	}

	for _, n := range db.Notes {
		if !n.InThread() {
			continue
		}
		tid := *n.ThreadID
		db.idxNotesByThread[tid] = append(db.idxNotesByThread[tid], n)
	}
	for tid := range db.idxNotesByThread {
		ns := db.idxNotesByThread[tid]
		sort.Slice(ns, func(i, j int) bool { return threadOrderOf(ns[i]) < threadOrderOf(ns[j]) })
		db.idxNotesByThread[tid] = ns
	}

	db.idxBuilt = true
}

// CommentsForNote returns the note's comments, oldest first.
func (db *DB) CommentsForNote(noteID string) []model.Comment {
	if db == nil {
		return nil
	}
	db.ensureIndexes()
	return db.idxCommentsByNote[strings.TrimSpace(noteID)]
}

// NotesInThread returns the thread's members ordered by ThreadOrder.
func (db *DB) NotesInThread(threadID string) []model.Note {
	if db == nil {
		return nil
	}
	db.ensureIndexes()
	return db.idxNotesByThread[strings.TrimSpace(threadID)]
}

// CommentCounts returns noteID -> comment count for the projector's
// comment-count sort.
func (db *DB) CommentCounts() map[string]int {
	out := map[string]int{}
	for _, c := range db.Comments {
		out[c.NoteID]++
	}
	return out
}

func threadOrderOf(n model.Note) int {
	if n.ThreadOrder == nil {
		return 0
	}
	return *n.ThreadOrder
}
