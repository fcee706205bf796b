package publish

import (
	"errors"
	"sort"
	"strings"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

type RenderOptions struct {
	IncludeComments bool
}

// RenderNoteMarkdown renders one note page. A thread head renders every
// member in thread order as its own section; comments attach to the note
// they belong to.
func RenderNoteMarkdown(db *store.DB, noteID string, opt RenderOptions) (string, error) {
	n, ok := db.FindNote(noteID)
	if !ok {
		return "", errors.New("note not found: " + noteID)
	}

	var b strings.Builder
	writeNoteSection(&b, db, *n, 1, opt)

	if n.InThread() {
		members := db.NotesInThread(*n.ThreadID)
		for _, m := range members {
			if m.ID == n.ID {
				continue
			}
			b.WriteString("\n---\n\n")
			writeNoteSection(&b, db, m, 2, opt)
		}
	}

	return b.String(), nil
}

// RenderFolderIndexMarkdown renders the folder's index page: a newest-first
// listing linking to each note page.
func RenderFolderIndexMarkdown(db *store.DB, folder model.Folder, notes []model.Note) string {
	sorted := make([]model.Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var b strings.Builder
	b.WriteString("# " + headingText(folder.Name) + "\n\n")
	for _, n := range sorted {
		if n.InThread() && !isThreadHead(n) {
			continue
		}
		title := headingText(n.Title)
		if title == "" {
			title = n.ID
		}
		b.WriteString("- [" + title + "](notes/" + n.ID + ".md)")
		if n.InThread() {
			b.WriteString(" (thread)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeNoteSection(b *strings.Builder, db *store.DB, n model.Note, level int, opt RenderOptions) {
	heading := strings.Repeat("#", level)
	title := headingText(n.Title)
	if title == "" {
		title = n.ID
	}
	b.WriteString(heading + " " + title + "\n\n")

	var meta []string
	meta = append(meta, n.CreatedAt.UTC().Format(time.RFC3339))
	if n.SourceID != nil {
		if s, ok := db.FindSource(*n.SourceID); ok {
			meta = append(meta, "source: "+s.Name)
		}
	}
	if len(n.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(n.Tags, ", "))
	}
	if n.Starred {
		meta = append(meta, "starred")
	}
	b.WriteString("> " + strings.Join(meta, " · ") + "\n\n")

	if content := strings.TrimSpace(n.Content); content != "" {
		b.WriteString(content + "\n")
	}

	if opt.IncludeComments {
		comments := db.CommentsForNote(n.ID)
		if len(comments) > 0 {
			b.WriteString("\n" + heading + "# Comments\n\n")
			for _, c := range comments {
				b.WriteString("- " + c.CreatedAt.UTC().Format("2006-01-02") + ": " + singleLine(c.Content) + "\n")
			}
		}
	}
}

// headingText flattens a title onto one line so it cannot break the
// markdown structure.
func headingText(s string) string {
	return singleLine(strings.TrimSpace(s))
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
