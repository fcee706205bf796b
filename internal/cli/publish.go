package cli

import (
	"memoline-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newPublishCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write notes out as markdown files",
	}
	cmd.AddCommand(newPublishNoteCmd(app))
	cmd.AddCommand(newPublishFolderCmd(app))
	return cmd
}

func newPublishNoteCmd(app *App) *cobra.Command {
	var toDir string
	var comments, overwrite bool
	cmd := &cobra.Command{
		Use:   "note <note-id>",
		Short: "Publish one note (a thread member publishes the whole thread)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.WriteNote(db, args[0], toDir, publish.WriteOptions{
				IncludeComments: comments,
				Overwrite:       overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory (required)")
	cmd.Flags().BoolVar(&comments, "comments", false, "Include comments")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPublishFolderCmd(app *App) *cobra.Command {
	var toDir string
	var comments, overwrite bool
	cmd := &cobra.Command{
		Use:   "folder <folder-id>",
		Short: "Publish a folder: index page plus one page per note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.WriteFolder(db, args[0], toDir, publish.WriteOptions{
				IncludeComments: comments,
				Overwrite:       overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory (required)")
	cmd.Flags().BoolVar(&comments, "comments", false, "Include comments")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
