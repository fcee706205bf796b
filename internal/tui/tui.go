package tui

import (
	"memoline-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

func Run(s store.Store, db *store.DB) error {
	return RunWithWorkspace(s, db, "")
}

func RunWithWorkspace(s store.Store, db *store.DB, workspace string) error {
	m := newAppModel(s, db, workspace)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
