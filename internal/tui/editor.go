package tui

import (
	"strings"

	"memoline-cli/internal/autosave"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type editorField int

const (
	fieldTitle editorField = iota
	fieldContent
	fieldTags
)

// editorModel is the edit surface the autosave session watches. It holds
// the SourceID and comment draft it was opened with; only title, content
// and tags are editable here.
type editorModel struct {
	title   textinput.Model
	content textarea.Model
	tags    textinput.Model

	base  autosave.EditState
	focus editorField
}

func newEditor(st autosave.EditState, width, height int) editorModel {
	title := textinput.New()
	title.Placeholder = "title"
	title.CharLimit = 200
	title.SetValue(st.Title)
	title.Focus()

	content := textarea.New()
	content.Placeholder = "write…"
	content.SetValue(st.Content)

	tags := textinput.New()
	tags.Placeholder = "tags, comma separated"
	tags.SetValue(strings.Join(st.Tags, ", "))

	e := editorModel{title: title, content: content, tags: tags, base: st}
	e.resize(width, height)
	return e
}

func (e *editorModel) resize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	e.title.Width = width - 4
	e.tags.Width = width - 4
	e.content.SetWidth(width - 2)
	e.content.SetHeight(max(3, height-8))
}

func (e editorModel) state() autosave.EditState {
	st := e.base
	st.Title = e.title.Value()
	st.Content = e.content.Value()
	st.Tags = splitTags(e.tags.Value())
	return st
}

func (e editorModel) update(msg tea.KeyMsg) (editorModel, tea.Cmd) {
	if msg.String() == "tab" && e.focus != fieldContent {
		return e.cycleFocus(), nil
	}
	if msg.String() == "shift+tab" {
		return e.cycleFocus(), nil
	}

	var cmd tea.Cmd
	switch e.focus {
	case fieldTitle:
		if msg.String() == "enter" {
			return e.cycleFocus(), nil
		}
		e.title, cmd = e.title.Update(msg)
	case fieldContent:
		e.content, cmd = e.content.Update(msg)
	case fieldTags:
		e.tags, cmd = e.tags.Update(msg)
	}
	return e, cmd
}

func (e editorModel) cycleFocus() editorModel {
	e.title.Blur()
	e.content.Blur()
	e.tags.Blur()
	switch e.focus {
	case fieldTitle:
		e.focus = fieldContent
		e.content.Focus()
	case fieldContent:
		e.focus = fieldTags
		e.tags.Focus()
	default:
		e.focus = fieldTitle
		e.title.Focus()
	}
	return e
}

func (e editorModel) view(status string) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("edit") + "\n\n")
	b.WriteString("  " + e.title.View() + "\n\n")
	b.WriteString(e.content.View() + "\n\n")
	b.WriteString("  " + e.tags.View() + "\n\n")
	b.WriteString(status)
	return b.String()
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
