package mutate

import (
	"strings"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// MaxFolderDepth caps folder nesting, home folder counted as level 1.
const MaxFolderDepth = 5

// CreateFolder adds a folder under parentID (empty = under home). Depth is
// checked before anything is written.
func CreateFolder(db *store.DB, s store.Store, name, parentID string, deps Deps) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NotFoundError{Kind: "folder name", ID: "(empty)"}
	}
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		if home, ok := db.HomeFolder(); ok {
			parentID = home.ID
		}
	}
	parent, ok := db.FindFolder(parentID)
	if !ok {
		return nil, NotFoundError{Kind: "folder", ID: parentID}
	}
	if folderDepth(db, parent.ID)+1 > MaxFolderDepth {
		return nil, FolderDepthError{FolderID: parent.ID, MaxDepth: MaxFolderDepth}
	}

	now := deps.now()
	pid := parent.ID
	f := model.Folder{
		ID:        s.NextID(db, "fld"),
		Name:      name,
		ParentID:  &pid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.Folders = append(db.Folders, f)
	return &db.Folders[len(db.Folders)-1], nil
}

// RenameFolder rejects the home folder; its name is fixed.
func RenameFolder(db *store.DB, folderID, name string, deps Deps) error {
	f, ok := db.FindFolder(strings.TrimSpace(folderID))
	if !ok {
		return NotFoundError{Kind: "folder", ID: folderID}
	}
	if f.IsHome {
		return ProtectedFolderError{FolderID: f.ID, Op: "rename"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return NotFoundError{Kind: "folder name", ID: "(empty)"}
	}
	f.Name = name
	f.UpdatedAt = deps.now()
	return nil
}

// MoveFolder re-parents a folder. Circular moves and depth overflow are
// rejected before mutation; the home folder never moves.
func MoveFolder(db *store.DB, folderID, newParentID string, deps Deps) error {
	f, ok := db.FindFolder(strings.TrimSpace(folderID))
	if !ok {
		return NotFoundError{Kind: "folder", ID: folderID}
	}
	if f.IsHome {
		return ProtectedFolderError{FolderID: f.ID, Op: "move"}
	}
	parent, ok := db.FindFolder(strings.TrimSpace(newParentID))
	if !ok {
		return NotFoundError{Kind: "folder", ID: newParentID}
	}
	if parent.ID == f.ID || isDescendant(db, parent.ID, f.ID) {
		return CircularMoveError{FolderID: f.ID, IntoID: parent.ID}
	}
	if folderDepth(db, parent.ID)+subtreeHeight(db, f.ID) > MaxFolderDepth {
		return FolderDepthError{FolderID: f.ID, MaxDepth: MaxFolderDepth}
	}
	pid := parent.ID
	f.ParentID = &pid
	f.UpdatedAt = deps.now()
	return nil
}

// DeleteFolder removes an empty folder. Non-empty folders and the home
// folder are rejected; nothing cascades here.
func DeleteFolder(db *store.DB, folderID string) error {
	folderID = strings.TrimSpace(folderID)
	f, ok := db.FindFolder(folderID)
	if !ok {
		return NotFoundError{Kind: "folder", ID: folderID}
	}
	if f.IsHome {
		return ProtectedFolderError{FolderID: f.ID, Op: "delete"}
	}

	notes, subs := 0, 0
	for _, n := range db.Notes {
		if n.FolderID != nil && *n.FolderID == folderID {
			notes++
		}
	}
	for _, sub := range db.Folders {
		if sub.ParentID != nil && *sub.ParentID == folderID {
			subs++
		}
	}
	if notes > 0 || subs > 0 {
		return FolderNotEmptyError{FolderID: folderID, Notes: notes, Folders: subs}
	}

	out := db.Folders[:0]
	for _, x := range db.Folders {
		if x.ID != folderID {
			out = append(out, x)
		}
	}
	db.Folders = out
	return nil
}

// folderDepth returns the folder's level: home (or any root) is 1.
func folderDepth(db *store.DB, folderID string) int {
	depth := 0
	id := folderID
	for id != "" && depth <= MaxFolderDepth+1 {
		f, ok := db.FindFolder(id)
		if !ok {
			break
		}
		depth++
		if f.ParentID == nil {
			break
		}
		id = *f.ParentID
	}
	return depth
}

// subtreeHeight is the number of levels in the folder's own subtree (>= 1).
func subtreeHeight(db *store.DB, folderID string) int {
	h := 1
	for _, f := range db.Folders {
		if f.ParentID != nil && *f.ParentID == folderID {
			if ch := 1 + subtreeHeight(db, f.ID); ch > h {
				h = ch
			}
		}
	}
	return h
}

// isDescendant reports whether candidate sits in ancestorID's subtree.
func isDescendant(db *store.DB, candidateID, ancestorID string) bool {
	id := candidateID
	for hops := 0; id != "" && hops <= len(db.Folders); hops++ {
		f, ok := db.FindFolder(id)
		if !ok || f.ParentID == nil {
			return false
		}
		if *f.ParentID == ancestorID {
			return true
		}
		id = *f.ParentID
	}
	return false
}
