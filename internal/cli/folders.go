package cli

import (
	"sort"

	"memoline-cli/internal/model"
	"memoline-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newFoldersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Folder commands",
	}
	cmd.AddCommand(newFoldersAddCmd(app))
	cmd.AddCommand(newFoldersListCmd(app))
	cmd.AddCommand(newFoldersRenameCmd(app))
	cmd.AddCommand(newFoldersMoveCmd(app))
	cmd.AddCommand(newFoldersDeleteCmd(app))
	return cmd
}

func newFoldersAddCmd(app *App) *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder (max nesting depth 5)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			f, err := mutate.CreateFolder(db, s, args[0], parentID, mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": f})
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "Parent folder id (default: home)")
	return cmd
}

func newFoldersListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders with note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			counts := map[string]int{}
			for _, n := range db.Notes {
				if n.FolderID != nil {
					counts[*n.FolderID]++
				}
			}
			type folderRow struct {
				model.Folder
				Notes int `json:"noteCount"`
			}
			out := make([]folderRow, 0, len(db.Folders))
			for _, f := range db.Folders {
				out = append(out, folderRow{Folder: f, Notes: counts[f.ID]})
			}
			sort.Slice(out, func(i, j int) bool {
				if out[i].IsHome != out[j].IsHome {
					return out[i].IsHome
				}
				return out[i].Name < out[j].Name
			})
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	return cmd
}

func newFoldersRenameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <folder-id> <name>",
		Short: "Rename a folder (home is protected)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RenameFolder(db, args[0], args[1], mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			f, _ := db.FindFolder(args[0])
			return writeOut(cmd, app, map[string]any{"data": f})
		},
	}
	return cmd
}

func newFoldersMoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <folder-id> <new-parent-id>",
		Short: "Re-parent a folder (circular moves and depth >5 rejected)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.MoveFolder(db, args[0], args[1], mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			f, _ := db.FindFolder(args[0])
			return writeOut(cmd, app, map[string]any{"data": f})
		},
	}
	return cmd
}

func newFoldersDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete an empty folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.DeleteFolder(db, args[0]); err != nil {
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
