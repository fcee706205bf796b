package mutate

import (
	"strings"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// AddComment attaches a comment to a note. Comments live and die with
// their note.
func AddComment(db *store.DB, s store.Store, noteID, content string, deps Deps) (*model.Comment, error) {
	noteID = strings.TrimSpace(noteID)
	if _, ok := db.FindNote(noteID); !ok {
		return nil, NotFoundError{Kind: "note", ID: noteID}
	}
	now := deps.now()
	c := model.Comment{
		ID:        s.NextID(db, "cmt"),
		NoteID:    noteID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.Comments = append(db.Comments, c)
	db.InvalidateIndexes()
	return &db.Comments[len(db.Comments)-1], nil
}

func UpdateComment(db *store.DB, commentID, content string, deps Deps) error {
	c, ok := db.FindComment(strings.TrimSpace(commentID))
	if !ok {
		return NotFoundError{Kind: "comment", ID: commentID}
	}
	c.Content = content
	c.UpdatedAt = deps.now()
	db.InvalidateIndexes()
	return nil
}

func DeleteComment(db *store.DB, commentID string) error {
	commentID = strings.TrimSpace(commentID)
	if _, ok := db.FindComment(commentID); !ok {
		return NotFoundError{Kind: "comment", ID: commentID}
	}
	out := db.Comments[:0]
	for _, c := range db.Comments {
		if c.ID != commentID {
			out = append(out, c)
		}
	}
	db.Comments = out
	db.InvalidateIndexes()
	return nil
}
