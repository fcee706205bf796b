package cli

import (
	"errors"
	"time"

	"memoline-cli/internal/backup"
	"memoline-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var out, password, folderID string
	var noteIDs []string
	var starred bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the workspace to a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p := backup.BuildPayload(db, backup.ExportOptions{
				FolderID:    folderID,
				StarredOnly: starred,
				NoteIDs:     noteIDs,
			}, time.Now())
			if err := backup.WriteFile(out, p, password); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"path":      out,
				"notes":     len(p.Logs),
				"sources":   len(p.Sources),
				"comments":  len(p.Comments),
				"encrypted": password != "",
			}})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file path")
	cmd.Flags().StringVar(&password, "password", "", "Encrypt the backup with this password")
	cmd.Flags().StringVar(&folderID, "folder", "", "Export only this folder's notes")
	cmd.Flags().StringSliceVar(&noteIDs, "notes", nil, "Export only these note ids (comma separated or repeated)")
	cmd.Flags().BoolVar(&starred, "starred", false, "Export only starred notes")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a backup file into the workspace (dedup, one transaction)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := backup.ReadFile(args[0], password)
			if errors.Is(err, backup.ErrPasswordRequired) || errors.Is(err, backup.ErrInvalidPassword) {
				// Distinguishable from a malformed file: the user should
				// retry with (another) --password.
				return writeErr(cmd, err)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			stats, err := backup.Merge(db, s, p, mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": stats})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password for an encrypted backup")
	return cmd
}
