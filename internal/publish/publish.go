// Package publish writes notes out as standalone markdown files, one page
// per note with its thread and comments inlined. The output is meant for
// sharing or static-site ingestion, not as a storage format; import goes
// through the backup payload instead.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

type WriteOptions struct {
	IncludeComments bool
	Overwrite       bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteNote renders one note to <dir>/notes/<id>.md. A thread member
// renders its whole thread on the head's page, so members are written
// under the head note's id.
func WriteNote(db *store.DB, noteID string, toDir string, opt WriteOptions) (WriteResult, error) {
	if db == nil {
		return WriteResult{}, errors.New("missing db")
	}
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return WriteResult{}, errors.New("missing noteID")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	n, ok := db.FindNote(noteID)
	if !ok {
		return WriteResult{}, errors.New("note not found: " + noteID)
	}
	pageID := pageNoteID(db, n)

	md, err := RenderNoteMarkdown(db, pageID, RenderOptions{IncludeComments: opt.IncludeComments})
	if err != nil {
		return WriteResult{}, err
	}

	outDir := filepath.Join(toDir, "notes")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	outPath := filepath.Join(outDir, pageID+".md")
	if err := writeFile(outPath, []byte(md), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}}, nil
}

// WriteFolder renders a folder to <dir>/folders/<id>/: an index.md listing
// plus one page per note. The home folder additionally covers notes with
// no folder at all, matching the sidebar scope.
func WriteFolder(db *store.DB, folderID string, toDir string, opt WriteOptions) (WriteResult, error) {
	if db == nil {
		return WriteResult{}, errors.New("missing db")
	}
	folderID = strings.TrimSpace(folderID)
	if folderID == "" {
		return WriteResult{}, errors.New("missing folderID")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	folder, ok := db.FindFolder(folderID)
	if !ok {
		return WriteResult{}, errors.New("folder not found: " + folderID)
	}
	notes := notesInFolder(db, folder)

	folderDir := filepath.Join(toDir, "folders", folder.ID)
	notesDir := filepath.Join(folderDir, "notes")
	if err := os.MkdirAll(notesDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexMD := RenderFolderIndexMarkdown(db, *folder, notes)
	indexPath := filepath.Join(folderDir, "index.md")
	if err := writeFile(indexPath, []byte(indexMD), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	written := []string{indexPath}
	for _, n := range notes {
		// Thread members render on their head's page.
		if n.InThread() && !isThreadHead(n) {
			continue
		}
		md, err := RenderNoteMarkdown(db, n.ID, RenderOptions{IncludeComments: opt.IncludeComments})
		if err != nil {
			return WriteResult{}, err
		}
		p := filepath.Join(notesDir, n.ID+".md")
		if err := writeFile(p, []byte(md), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		written = append(written, p)
	}

	return WriteResult{Written: written}, nil
}

// pageNoteID maps any thread member to its head, so the page covers the
// full thread exactly once.
func pageNoteID(db *store.DB, n *model.Note) string {
	if !n.InThread() {
		return n.ID
	}
	members := db.NotesInThread(*n.ThreadID)
	if len(members) > 0 {
		return members[0].ID
	}
	return n.ID
}

func isThreadHead(n model.Note) bool {
	return n.InThread() && n.ThreadOrder != nil && *n.ThreadOrder == 0
}

func notesInFolder(db *store.DB, folder *model.Folder) []model.Note {
	var out []model.Note
	for _, n := range db.Notes {
		switch {
		case n.FolderID != nil && *n.FolderID == folder.ID:
			out = append(out, n)
		case n.FolderID == nil && folder.IsHome:
			out = append(out, n)
		}
	}
	return out
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
