package cli

import (
	"errors"
	"strconv"

	"memoline-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newSourcesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Source (taxonomy) commands",
	}
	cmd.AddCommand(newSourcesAddCmd(app))
	cmd.AddCommand(newSourcesListCmd(app))
	cmd.AddCommand(newSourcesRenameCmd(app))
	cmd.AddCommand(newSourcesReorderCmd(app))
	cmd.AddCommand(newSourcesDeleteCmd(app))
	return cmd
}

func newSourcesReorderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <source-id> <position>",
		Short: "Move a source to a display position (0-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 0 {
				return writeErr(cmd, errors.New("position must be a non-negative integer"))
			}
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.ReorderSource(db, args[0], pos); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": db.Sources})
		},
	}
	return cmd
}

func newSourcesAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a source (no-op if the name exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			src, err := mutate.CreateSource(db, s, args[0], mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": src})
		},
	}
	return cmd
}

func newSourcesListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sources in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": db.Sources})
		},
	}
	return cmd
}

func newSourcesRenameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <source-id> <name>",
		Short: "Rename a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RenameSource(db, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			src, _ := db.FindSource(args[0])
			return writeOut(cmd, app, map[string]any{"data": src})
		},
	}
	return cmd
}

func newSourcesDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <source-id>",
		Short: "Delete a source and clear it from notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.DeleteSource(db, args[0], mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}
	return cmd
}
