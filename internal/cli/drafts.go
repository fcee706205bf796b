package cli

import (
	"errors"

	"memoline-cli/internal/autosave"
	"memoline-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newDraftsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Autosave draft commands",
	}
	cmd.AddCommand(newDraftsListCmd(app))
	cmd.AddCommand(newDraftsShowCmd(app))
	cmd.AddCommand(newDraftsResumeCmd(app))
	cmd.AddCommand(newDraftsDeleteCmd(app))
	cmd.AddCommand(newDraftsRecoverCmd(app))
	return cmd
}

func newDraftsResumeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [note-id]",
		Short: "Show the draft state that would resume for a note (no id: new-note draft)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			noteID := ""
			if len(args) == 1 {
				noteID = args[0]
			}
			st, needsConfirm, found := autosave.Resume(db, noteID)
			if !found {
				return writeErr(cmd, errors.New("no differing draft"))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"state":        st,
				"needsConfirm": needsConfirm,
			}})
		},
	}
	return cmd
}

func newDraftsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List retained drafts (newest kept, max 20)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": db.Drafts})
		},
	}
	return cmd
}

func newDraftsShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			d, ok := db.FindDraft(args[0])
			if !ok {
				return writeErr(cmd, mutate.NotFoundError{Kind: "draft", ID: args[0]})
			}
			return writeOut(cmd, app, map[string]any{"data": d})
		},
	}
	return cmd
}

func newDraftsDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <draft-id>",
		Aliases: []string{"discard"},
		Short:   "Discard a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, ok := db.FindDraft(args[0]); !ok {
				return writeErr(cmd, mutate.NotFoundError{Kind: "draft", ID: args[0]})
			}
			out := db.Drafts[:0]
			for _, d := range db.Drafts {
				if d.ID != args[0] {
					out = append(out, d)
				}
			}
			db.Drafts = out
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}
	return cmd
}

func newDraftsRecoverCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover <note-id>",
		Short: "Apply a note's retained draft to the note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, _, found := autosave.Resume(db, args[0])
			if !found {
				return writeErr(cmd, errors.New("no differing draft for "+args[0]))
			}
			// The CLI invocation itself is the explicit confirmation the
			// resume flow requires for existing notes.
			if err := mutate.UpdateNote(db, args[0], mutate.NoteInput{
				Title:    st.Title,
				Content:  st.Content,
				Tags:     st.Tags,
				SourceID: st.SourceID,
			}, mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			n, _ := db.FindNote(args[0])
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}
	return cmd
}
