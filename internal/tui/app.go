package tui

import (
	"fmt"
	"strings"
	"time"

	"memoline-cli/internal/autosave"
	"memoline-cli/internal/flatten"
	"memoline-cli/internal/mutate"
	"memoline-cli/internal/store"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeMove
	modeEdit
	modeConfirmHeadDelete
	modeConfirmResume
)

type autosaveTickMsg struct{}

type clearStatusMsg struct{}

type appModel struct {
	store     store.Store
	db        *store.DB
	workspace string

	width  int
	height int

	mode mode

	rows           []flatten.Row
	cursor         int
	activeFolderID string
	sortMode       flatten.SortMode
	starredOnly    bool
	query          string
	expanded       map[string]bool
	unpins         *flatten.PendingUnpins

	searchInput textinput.Model

	// Move mode: one grabbed note at a time; the drop produces a single
	// normalized DragResult for the engine.
	grabbedID     string
	grabbedIsHead bool
	moveRows      []flatten.Row
	movePos       int

	// Head-delete choice point.
	pendingDeleteID string

	editor  editorModel
	session *autosave.Session

	// Resume prompt for an existing note with a differing draft.
	resumeNoteID string
	resumeState  autosave.EditState

	status string
}

func newAppModel(s store.Store, db *store.DB, workspace string) appModel {
	search := textinput.New()
	search.Placeholder = "search (tag: matches tags/sources)"
	search.CharLimit = 120

	m := appModel{
		store:     s,
		db:        db,
		workspace: workspace,
		sortMode:  flatten.SortDateDesc,
		expanded:  map[string]bool{},
		unpins:    flatten.NewPendingUnpins(),

		searchInput: search,
	}
	if cfg, err := store.LoadConfig(); err == nil && cfg.TUI != nil && cfg.TUI.DefaultSort != "" {
		m.sortMode = flatten.SortMode(cfg.TUI.DefaultSort)
	}
	if home, ok := db.HomeFolder(); ok {
		m.activeFolderID = home.ID
	}
	m.refresh()
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

func (m *appModel) refresh() {
	m.rows = flatten.Project(flatten.Input{
		Notes:           m.db.Notes,
		Folders:         m.db.Folders,
		Sources:         m.db.Sources,
		CommentCounts:   m.db.CommentCounts(),
		ActiveFolderID:  m.activeFolderID,
		ExpandedThreads: m.expanded,
		Sort:            m.sortMode,
		StarredOnly:     m.starredOnly,
		Query:           m.query,
		Unpins:          m.unpins,
		Now:             time.Now().UTC(),
	})
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) persist() {
	if err := m.store.Save(m.db); err != nil {
		m.status = "save failed: " + err.Error()
		return
	}
	m.refresh()
}

func (m *appModel) setStatus(s string) tea.Cmd {
	m.status = s
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m appModel) selectedRow() (flatten.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return flatten.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.resize(msg.Width, msg.Height)
		return m, nil

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case autosaveTickMsg:
		if m.mode != modeEdit || m.session == nil {
			return m, nil
		}
		if m.session.Tick(m.db, m.store, m.editor.state(), mutate.Deps{}) {
			m.persist()
		}
		return m, autosaveTick()

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeMove:
			return m.updateMove(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirmHeadDelete:
			return m.updateHeadDelete(msg)
		case modeConfirmResume:
			return m.updateResume(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "enter":
		r, ok := m.selectedRow()
		if !ok {
			break
		}
		switch r.Kind {
		case flatten.RowFolderUp, flatten.RowFolder:
			m.activeFolderID = r.Folder.ID
			m.cursor = 0
			m.refresh()
		case flatten.RowThreadHeader:
			m.expanded[r.ThreadID] = !m.expanded[r.ThreadID]
			m.refresh()
		}

	case "tab":
		if r, ok := m.selectedRow(); ok && r.ThreadID != "" {
			m.expanded[r.ThreadID] = !m.expanded[r.ThreadID]
			m.refresh()
		}

	case "/":
		m.mode = modeSearch
		m.searchInput.SetValue(m.query)
		m.searchInput.Focus()

	case "o":
		m.sortMode = nextSortMode(m.sortMode)
		m.refresh()
		return m, m.setStatus("sort: " + string(m.sortMode))

	case "f":
		m.starredOnly = !m.starredOnly
		m.refresh()

	case "*":
		if r, ok := m.selectedRow(); ok && r.IsNoteRow() {
			if err := mutate.ToggleStar(m.db, r.Note.ID, mutate.Deps{}); err == nil {
				m.persist()
			}
		}

	case "p":
		r, ok := m.selectedRow()
		if !ok || !r.IsNoteRow() {
			break
		}
		if r.Note.PinnedAt == nil {
			if err := mutate.PinNote(m.db, r.Note.ID, mutate.Deps{}); err == nil {
				m.unpins.Drop(r.Note.ID)
				m.persist()
			}
			break
		}
		// Unpinning feeds the grace table so the row does not jump away
		// under the cursor.
		prev, err := mutate.UnpinNote(m.db, r.Note.ID, mutate.Deps{})
		if err == nil && prev.PinnedAt != nil {
			m.unpins.Add(r.Note.ID, *prev.PinnedAt, time.Now().UTC())
			m.persist()
		}

	case "m":
		r, ok := m.selectedRow()
		if !ok || !r.IsNoteRow() {
			break
		}
		m.mode = modeMove
		m.grabbedID = r.Note.ID
		m.grabbedIsHead = r.Kind == flatten.RowThreadHeader
		m.moveRows = rowsWithout(m.rows, m.grabbedID, m.grabbedIsHead)
		m.movePos = clampInt(m.cursor, 0, len(m.moveRows))

	case "d":
		r, ok := m.selectedRow()
		if !ok || !r.IsNoteRow() {
			break
		}
		err := mutate.DeleteNote(m.db, r.Note.ID, mutate.Deps{})
		if _, isChoice := err.(mutate.ThreadHeadChoiceError); isChoice {
			m.mode = modeConfirmHeadDelete
			m.pendingDeleteID = r.Note.ID
			break
		}
		if err != nil {
			return m, m.setStatus(err.Error())
		}
		m.persist()

	case "e":
		r, ok := m.selectedRow()
		if !ok || !r.IsNoteRow() {
			break
		}
		return m.startEdit(r.Note.ID)

	case "n":
		return m.startNew()

	case "y":
		if r, ok := m.selectedRow(); ok && r.IsNoteRow() {
			if err := copyToClipboard(r.Note.Content); err != nil {
				return m, m.setStatus("clipboard: " + err.Error())
			}
			return m, m.setStatus("copied")
		}

	case "r":
		// Reload from disk (so CLI commands in another terminal show up).
		if db, err := m.store.Load(); err == nil {
			m.db = db
			m.refresh()
		}
	}
	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.query = strings.TrimSpace(m.searchInput.Value())
		m.mode = modeList
		m.cursor = 0
		m.refresh()
		return m, nil
	case "esc":
		m.mode = modeList
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m appModel) updateMove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.grabbedID = ""
		return m, nil

	case "up", "k":
		if m.movePos > 0 {
			m.movePos--
		}
	case "down", "j":
		if m.movePos < len(m.moveRows) {
			m.movePos++
		}

	case "enter":
		res := mutate.DragResult{
			SourceID:         m.grabbedID,
			DestinationIndex: m.movePos,
			DroppableID:      mutate.DroppableNotes,
			SourceIsHead:     m.grabbedIsHead,
		}
		// Dropping onto a folder row targets the folder itself.
		if m.movePos < len(m.moveRows) {
			if r := m.moveRows[m.movePos]; r.Kind == flatten.RowFolder || r.Kind == flatten.RowFolderUp {
				res.DroppableID = r.Folder.ID
			}
		}
		return m.applyDrag(res)

	case "c":
		// Combine with the note row at the insertion point.
		if m.movePos < len(m.moveRows) && m.moveRows[m.movePos].IsNoteRow() {
			return m.applyDrag(mutate.DragResult{
				SourceID:         m.grabbedID,
				DestinationIndex: -1,
				DroppableID:      mutate.DroppableNotes,
				CombineTargetID:  m.moveRows[m.movePos].Note.ID,
				SourceIsHead:     m.grabbedIsHead,
			})
		}
	}
	return m, nil
}

func (m appModel) applyDrag(res mutate.DragResult) (tea.Model, tea.Cmd) {
	changed, err := mutate.ApplyDrag(m.db, m.rows, res, mutate.Deps{})
	m.mode = modeList
	m.grabbedID = ""
	if err != nil {
		return m, m.setStatus(err.Error())
	}
	if changed {
		m.persist()
	}
	return m, nil
}

func (m appModel) updateHeadDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		if err := mutate.DeleteNoteOnly(m.db, m.pendingDeleteID, mutate.Deps{}); err == nil {
			m.persist()
		}
	case "t":
		if err := mutate.DeleteThread(m.db, m.pendingDeleteID, mutate.Deps{}); err == nil {
			m.persist()
		}
	case "esc":
	default:
		return m, nil
	}
	m.mode = modeList
	m.pendingDeleteID = ""
	return m, nil
}

func (m appModel) startEdit(noteID string) (tea.Model, tea.Cmd) {
	// A differing retained draft needs explicit confirmation before it
	// shadows the committed note.
	if st, needsConfirm, found := autosave.Resume(m.db, noteID); found && needsConfirm {
		m.mode = modeConfirmResume
		m.resumeNoteID = noteID
		m.resumeState = st
		return m, nil
	}
	return m.openEditor(noteID, nil)
}

func (m appModel) updateResume(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		st := m.resumeState
		id := m.resumeNoteID
		m.resumeNoteID = ""
		return m.openEditor(id, &st)
	case "n", "esc":
		id := m.resumeNoteID
		m.resumeNoteID = ""
		return m.openEditor(id, nil)
	}
	return m, nil
}

func (m appModel) openEditor(noteID string, override *autosave.EditState) (tea.Model, tea.Cmd) {
	session, err := autosave.NewSession(m.db, noteID)
	if err != nil {
		return m, m.setStatus(err.Error())
	}
	n, _ := m.db.FindNote(noteID)
	st := autosave.EditState{Title: n.Title, Content: n.Content, Tags: n.Tags, SourceID: n.SourceID}
	if override != nil {
		st = *override
	}
	m.session = session
	m.editor = newEditor(st, m.width, m.height)
	m.mode = modeEdit
	return m, autosaveTick()
}

func (m appModel) startNew() (tea.Model, tea.Cmd) {
	m.session = autosave.NewSessionForNew()
	st := autosave.EditState{}
	// A retained new-note draft loads automatically; nothing to clobber.
	if resumed, _, found := autosave.Resume(m.db, ""); found {
		st = resumed
	}
	m.editor = newEditor(st, m.width, m.height)
	m.mode = modeEdit
	return m, autosaveTick()
}

func (m appModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		wasNew := m.session.OriginalID == nil
		id, err := m.session.Save(m.db, m.store, m.editor.state(), mutate.Deps{})
		m.mode = modeList
		m.session = nil
		if err != nil {
			return m, m.setStatus(err.Error())
		}
		// New notes land in the active folder.
		if wasNew && m.activeFolderID != "" {
			if n, ok := m.db.FindNote(id); ok {
				fid := m.activeFolderID
				n.FolderID = &fid
			}
		}
		m.persist()
		return m, m.setStatus("saved " + id)

	case "esc":
		// Cancel keeps the draft: it is recoverable, not a crash artifact.
		m.session.Cancel()
		m.session = nil
		m.mode = modeList
		m.persist()
		return m, m.setStatus("cancelled (draft retained)")
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.update(msg)
	return m, cmd
}

func autosaveTick() tea.Cmd {
	return tea.Tick(autosave.DefaultIntervalSeconds*time.Second, func(time.Time) tea.Msg {
		return autosaveTickMsg{}
	})
}

func nextSortMode(s flatten.SortMode) flatten.SortMode {
	order := []flatten.SortMode{
		flatten.SortDateDesc, flatten.SortDateAsc, flatten.SortTitle,
		flatten.SortSourceAsc, flatten.SortSourceDesc,
		flatten.SortCommentsDesc, flatten.SortStarred,
	}
	for i, v := range order {
		if v == s {
			return order[(i+1)%len(order)]
		}
	}
	return flatten.SortDateDesc
}

// rowsWithout mirrors the engine's view of the list with the grabbed block
// removed, so movePos maps 1:1 to DestinationIndex.
func rowsWithout(rows []flatten.Row, sourceID string, isHead bool) []flatten.Row {
	out := make([]flatten.Row, 0, len(rows))
	dropThread := ""
	for _, r := range rows {
		if r.IsNoteRow() && r.Note.ID == sourceID {
			if isHead && r.Kind == flatten.RowThreadHeader {
				dropThread = r.ThreadID
			}
			continue
		}
		if dropThread != "" && r.Kind == flatten.RowThreadChild && r.ThreadID == dropThread {
			continue
		}
		out = append(out, r)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m appModel) View() string {
	if m.mode == modeEdit {
		return m.editor.view(m.statusLine())
	}

	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")

	switch m.mode {
	case modeSearch:
		b.WriteString("/" + m.searchInput.View() + "\n")
	case modeConfirmHeadDelete:
		b.WriteString(styleStatus.Render("this note heads a thread: delete [n]ote only, whole [t]hread, or esc") + "\n")
	case modeConfirmResume:
		b.WriteString(styleStatus.Render("a newer draft exists for this note: load it? [y/n]") + "\n")
	}

	left := m.renderRows()
	right := m.renderPreview()
	if right != "" {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(left)
	}

	b.WriteString("\n" + m.statusLine())
	return b.String()
}

func (m appModel) headerLine() string {
	name := "memoline"
	if m.workspace != "" {
		name += " · " + m.workspace
	}
	parts := []string{styleTitle.Render(name), styleDim.Render("sort:" + string(m.sortMode))}
	if m.starredOnly {
		parts = append(parts, styleStar.Render("starred-only"))
	}
	if m.query != "" {
		parts = append(parts, styleDim.Render("search:"+m.query))
	}
	return strings.Join(parts, "  ")
}

func (m appModel) statusLine() string {
	if m.status != "" {
		return styleStatus.Render(m.status)
	}
	switch m.mode {
	case modeMove:
		return styleHelp.Render("move: j/k position · enter drop · c combine · esc cancel")
	case modeEdit:
		return styleHelp.Render("edit: ctrl+s save · esc cancel (draft kept) · tab switch field")
	}
	return styleHelp.Render(fmt.Sprintf("%d rows · j/k move · enter open · m grab · e edit · n new · p pin · * star · / search · o sort · q quit", len(m.rows)))
}
