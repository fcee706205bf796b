package model

import "time"

// Note is a single content entry. CreatedAt doubles as the mutable sort key:
// once a note has been manually reordered its CreatedAt is an interpolated
// position between its neighbors and no longer reflects wall-clock creation.
type Note struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	FolderID *string  `json:"folderId,omitempty"`
	SourceID *string  `json:"sourceId,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	PinnedAt  *time.Time `json:"pinnedAt,omitempty"`

	ThreadID    *string `json:"threadId,omitempty"`
	ThreadOrder *int    `json:"threadOrder,omitempty"`

	Starred bool `json:"isStarred"`
}

// InThread reports whether the note belongs to a thread.
func (n Note) InThread() bool {
	return n.ThreadID != nil && *n.ThreadID != ""
}

// Folder is a node in the folder tree. Exactly one folder has IsHome=true;
// the home folder cannot be deleted, renamed, or set read-only.
type Folder struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	ParentID                *string   `json:"parentId,omitempty"`
	IsHome                  bool      `json:"isHome"`
	IsReadOnly              bool      `json:"isReadOnly"`
	ExcludeFromGlobalSearch bool      `json:"excludeFromGlobalSearch"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// Comment is owned by exactly one note and cascade-deletes with it.
type Comment struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"noteId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentDraft is a nested unsaved comment edit inside a Draft.
type CommentDraft struct {
	CommentID *string `json:"commentId,omitempty"`
	Content   string  `json:"content"`
	IsNew     bool    `json:"isNew"`
}

// Draft is a periodically persisted snapshot of unsaved edit state.
// OriginalID is absent for a "new note" draft.
type Draft struct {
	ID           string        `json:"id"`
	OriginalID   *string       `json:"originalId,omitempty"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Tags         []string      `json:"tags,omitempty"`
	SourceID     *string       `json:"sourceId,omitempty"`
	CommentDraft *CommentDraft `json:"commentDraft,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Source is a user-defined classification attached to notes
// ("taxonomy" in the export format).
type Source struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}
