package cli

import (
	"fmt"
	"os"
	"strings"

	"memoline-cli/internal/autosave"
	"memoline-cli/internal/format"
	"memoline-cli/internal/mutate"
	"memoline-cli/internal/store"
	"memoline-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Workspace  string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "memoline",
		Short:        "Memoline (local-first notes) CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  memoline

  # Scriptable commands
  memoline notes list

  # Add a quick note
  memoline notes add --title "Groceries" --content "eggs, milk"

  # Direct note lookup (shortcut for: memoline notes show <note-id>)
  memoline note-vth4kq2a
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("MEMOLINE_DIR", ""), "Path to store dir (advanced: overrides workspace resolution; use only when explicitly told or for fixtures/tests)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("MEMOLINE_WORKSPACE", ""), "Workspace name (default: 'default'; use only when explicitly selecting a non-default workspace)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("MEMOLINE_FORMAT", "json"), "Output format (json|text)")

	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newFoldersCmd(app))
	cmd.AddCommand(newSourcesCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newDraftsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newWorkspaceCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(app *App) error {
	db, s, err := loadDB(app)
	if err != nil {
		return err
	}
	return tui.RunWithWorkspace(s, db, app.Workspace)
}

func loadDB(app *App) (*store.DB, store.Store, error) {
	dir := app.Dir
	if dir == "" {
		// Workspace-first:
		// 1) --workspace
		// 2) ~/.memoline/config.json currentWorkspace
		// 3) default workspace ("default")
		if app.Workspace != "" {
			d, err := store.WorkspaceDir(app.Workspace)
			if err != nil {
				return nil, store.Store{}, err
			}
			dir = d
		} else if cfg, err := store.LoadConfig(); err == nil && cfg.CurrentWorkspace != "" {
			d, err := store.WorkspaceDir(cfg.CurrentWorkspace)
			if err != nil {
				return nil, store.Store{}, err
			}
			app.Workspace = cfg.CurrentWorkspace
			dir = d
		} else {
			// Create/use the implicit default workspace.
			app.Workspace = "default"
			d, err := store.WorkspaceDir(app.Workspace)
			if err != nil {
				return nil, store.Store{}, err
			}
			dir = d
		}
		app.Dir = dir
	}

	s := store.Store{Dir: dir}
	db, err := s.Load()
	if err != nil {
		return nil, s, err
	}

	// Startup orphan recovery: abandoned new-note drafts become notes.
	if promoted, err := autosave.RecoverOrphans(db, s, mutate.Deps{}); err == nil && promoted > 0 {
		if err := s.Save(db); err != nil {
			return nil, s, err
		}
	}
	return db, s, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
