package tui

import (
	"fmt"
	"strings"

	"memoline-cli/internal/flatten"
	"memoline-cli/internal/model"

	"github.com/charmbracelet/x/ansi"
)

const minPreviewWidth = 40

func (m appModel) listWidth() int {
	if m.width <= 0 {
		return 80
	}
	if m.width < minPreviewWidth*2 {
		return m.width
	}
	return m.width / 2
}

func (m appModel) listHeight() int {
	if m.height <= 6 {
		return 20
	}
	// Header, mode line, status line.
	return m.height - 4
}

func (m appModel) renderRows() string {
	rows := m.rows
	cursor := m.cursor
	grabbed := ""
	if m.mode == modeMove {
		rows = m.moveRows
		cursor = -1
		grabbed = m.grabbedID
	}

	width := m.listWidth()
	height := m.listHeight()

	var lines []string
	if m.mode == modeMove {
		if g, ok := m.db.FindNote(grabbed); ok {
			lines = append(lines, styleGrabbed.Render("⇕ "+truncLine(g.Title, width-4)))
		}
	}
	for i, r := range rows {
		marker := "  "
		if m.mode == modeMove && i == m.movePos {
			marker = styleGrabbed.Render("▸ ")
		} else if i == cursor {
			marker = styleSelected.Render("> ")
		}
		line := marker + m.renderRow(r, width-2, i == cursor)
		lines = append(lines, line)
	}
	if m.mode == modeMove && m.movePos == len(rows) {
		lines = append(lines, styleGrabbed.Render("▸ (end)"))
	}
	if len(lines) == 0 {
		lines = append(lines, styleDim.Render("  (empty)"))
	}

	// Keep the cursor in view on short terminals.
	focus := cursor
	if m.mode == modeMove {
		focus = m.movePos
	}
	lines = window(lines, focus, height)
	return strings.Join(lines, "\n")
}

func (m appModel) renderRow(r flatten.Row, width int, selected bool) string {
	switch r.Kind {
	case flatten.RowFolderUp:
		return styleFolder.Render("⬑ ..")
	case flatten.RowFolder:
		return styleFolder.Render("▸ " + truncLine(r.Folder.Name, width-2))
	case flatten.RowThreadHeader:
		label := noteLabel(r.Note)
		suffix := styleDim.Render(fmt.Sprintf(" ⧉%d", r.MemberCount))
		return truncLine(label, width-4) + suffix
	case flatten.RowThreadChild:
		return "  " + styleDim.Render("·") + " " + truncLine(noteLabel(r.Note), width-4)
	default:
		return truncLine(noteLabel(r.Note), width)
	}
}

func noteLabel(n model.Note) string {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = firstLine(n.Content)
	}
	if title == "" {
		title = "(untitled)"
	}
	var prefix string
	if n.PinnedAt != nil {
		prefix += stylePin.Render("⚲ ")
	}
	if n.Starred {
		prefix += styleStar.Render("★ ")
	}
	out := prefix + title
	if len(n.Tags) > 0 {
		out += " " + styleDim.Render("#"+strings.Join(n.Tags, " #"))
	}
	return out
}

func (m appModel) renderPreview() string {
	if m.width < minPreviewWidth*2 {
		return ""
	}
	r, ok := m.selectedRow()
	if !ok || !r.IsNoteRow() {
		return ""
	}
	width := m.width - m.listWidth() - 2

	var b strings.Builder
	b.WriteString(styleTitle.Render(truncLine(r.Note.Title, width)))
	b.WriteString("\n")
	meta := r.Note.CreatedAt.Local().Format("2006-01-02 15:04")
	if name := m.sourceName(r.Note.SourceID); name != "" {
		meta += " · " + name
	}
	b.WriteString(styleDim.Render(meta) + "\n\n")
	b.WriteString(renderMarkdown(r.Note.Content, width))

	lines := strings.Split(b.String(), "\n")
	if h := m.listHeight(); len(lines) > h {
		lines = lines[:h]
	}
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n")
}

func (m appModel) sourceName(id *string) string {
	if id == nil {
		return ""
	}
	if s, ok := m.db.FindSource(*id); ok {
		return s.Name
	}
	return ""
}

// truncLine truncates a styled line to the display width, ANSI-aware so
// escape sequences never count against the budget or get cut in half.
func truncLine(s string, width int) string {
	if width < 1 {
		return ""
	}
	s = firstLine(s)
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// window slices lines to height, keeping focus visible.
func window(lines []string, focus, height int) []string {
	if len(lines) <= height || height <= 0 {
		return lines
	}
	start := 0
	if focus >= height {
		start = focus - height + 1
	}
	if start+height > len(lines) {
		start = len(lines) - height
	}
	return lines[start : start+height]
}
