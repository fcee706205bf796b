package cli

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"memoline-cli/internal/flatten"
	"memoline-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Note commands",
	}
	cmd.AddCommand(newNotesAddCmd(app))
	cmd.AddCommand(newNotesListCmd(app))
	cmd.AddCommand(newNotesShowCmd(app))
	cmd.AddCommand(newNotesEditCmd(app))
	cmd.AddCommand(newNotesDeleteCmd(app))
	cmd.AddCommand(newNotesPinCmd(app))
	cmd.AddCommand(newNotesUnpinCmd(app))
	cmd.AddCommand(newNotesStarCmd(app))
	cmd.AddCommand(newNotesUnstarCmd(app))
	cmd.AddCommand(newNotesMoveCmd(app))
	cmd.AddCommand(newNotesReorderCmd(app))
	cmd.AddCommand(newNotesThreadCmd(app))
	return cmd
}

func newNotesAddCmd(app *App) *cobra.Command {
	var title, content, folderID, sourceID string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			in := mutate.NoteInput{
				Title:   title,
				Content: content,
				Tags:    tags,
			}
			if folderID != "" {
				in.FolderID = &folderID
			}
			if sourceID != "" {
				in.SourceID = &sourceID
			}
			n, err := mutate.CreateNote(db, s, in, mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&content, "content", "", "Note content (markdown)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&folderID, "folder", "", "Folder id")
	cmd.Flags().StringVar(&sourceID, "source", "", "Source id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newNotesListCmd(app *App) *cobra.Command {
	var folderID, query, sortMode string
	var starred bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes in display order (threads grouped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			scope := folderID
			if scope == "" {
				if home, ok := db.HomeFolder(); ok {
					scope = home.ID
				}
			}
			// Expand everything: the CLI has no interactive collapse state.
			expanded := map[string]bool{}
			for _, n := range db.Notes {
				if n.InThread() {
					expanded[*n.ThreadID] = true
				}
			}
			rows := flatten.Project(flatten.Input{
				Notes:           db.Notes,
				Folders:         db.Folders,
				Sources:         db.Sources,
				CommentCounts:   db.CommentCounts(),
				ActiveFolderID:  scope,
				ExpandedThreads: expanded,
				Sort:            flatten.SortMode(sortMode),
				StarredOnly:     starred,
				Query:           query,
				Now:             nowUTC(),
			})
			return writeOut(cmd, app, map[string]any{"data": rowsPayload(rows)})
		},
	}

	cmd.Flags().StringVar(&folderID, "folder", "", "Folder id (default: home)")
	cmd.Flags().StringVar(&query, "query", "", "Search query (tag: prefix matches tags/sources)")
	cmd.Flags().StringVar(&sortMode, "sort", string(flatten.SortDateDesc), "Sort mode (date-desc|date-asc|title|source-asc|source-desc|comments-desc|starred)")
	cmd.Flags().BoolVar(&starred, "starred", false, "Only starred notes")
	return cmd
}

// rowsPayload converts projector rows into a JSON-friendly shape with an
// explicit kind discriminant.
func rowsPayload(rows []flatten.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		switch r.Kind {
		case flatten.RowFolderUp:
			out = append(out, map[string]any{"kind": "folder-up", "folder": r.Folder})
		case flatten.RowFolder:
			out = append(out, map[string]any{"kind": "folder", "folder": r.Folder})
		case flatten.RowThreadHeader:
			out = append(out, map[string]any{
				"kind": "thread-header", "note": r.Note,
				"threadId": r.ThreadID, "memberCount": r.MemberCount,
			})
		case flatten.RowThreadChild:
			out = append(out, map[string]any{"kind": "thread-child", "note": r.Note, "threadId": r.ThreadID})
		default:
			out = append(out, map[string]any{"kind": "note", "note": r.Note})
		}
	}
	return out
}

func newNotesShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <note-id>",
		Short: "Show a note with its thread and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, ok := db.FindNote(args[0])
			if !ok {
				return writeErr(cmd, mutate.NotFoundError{Kind: "note", ID: args[0]})
			}
			out := map[string]any{
				"data":     n,
				"comments": db.CommentsForNote(n.ID),
			}
			if n.InThread() {
				out["thread"] = db.NotesInThread(*n.ThreadID)
			}
			return writeOut(cmd, app, out)
		},
	}
	return cmd
}

func newNotesEditCmd(app *App) *cobra.Command {
	var title, content, sourceID string
	var tags []string

	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Update a note's editable fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, ok := db.FindNote(args[0])
			if !ok {
				return writeErr(cmd, mutate.NotFoundError{Kind: "note", ID: args[0]})
			}

			in := mutate.NoteInput{
				Title:    n.Title,
				Content:  n.Content,
				Tags:     n.Tags,
				SourceID: n.SourceID,
			}
			if cmd.Flags().Changed("title") {
				in.Title = title
			}
			if cmd.Flags().Changed("content") {
				in.Content = content
			}
			if cmd.Flags().Changed("tag") {
				in.Tags = tags
			}
			if cmd.Flags().Changed("source") {
				if sourceID == "" {
					in.SourceID = nil
				} else {
					in.SourceID = &sourceID
				}
			}
			if err := mutate.UpdateNote(db, n.ID, in, mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			n, _ = db.FindNote(args[0])
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replace tags (repeatable)")
	cmd.Flags().StringVar(&sourceID, "source", "", "Source id (empty clears)")
	return cmd
}

func newNotesDeleteCmd(app *App) *cobra.Command {
	var noteOnly, wholeThread bool

	cmd := &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note (head deletes need --note-only or --thread)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := args[0]
			switch {
			case noteOnly:
				err = mutate.DeleteNoteOnly(db, id, mutate.Deps{})
			case wholeThread:
				err = mutate.DeleteThread(db, id, mutate.Deps{})
			default:
				err = mutate.DeleteNote(db, id, mutate.Deps{})
			}
			var choice mutate.ThreadHeadChoiceError
			if errors.As(err, &choice) {
				return writeErr(cmd, errors.New(choice.Error()+" (use --note-only or --thread)"))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": id}})
		},
	}

	cmd.Flags().BoolVar(&noteOnly, "note-only", false, "Delete just this note, promoting the next thread member")
	cmd.Flags().BoolVar(&wholeThread, "thread", false, "Delete the entire thread")
	cmd.MarkFlagsMutuallyExclusive("note-only", "thread")
	return cmd
}

func newNotesPinCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <note-id>",
		Short: "Pin a note to the top of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.PinNote(db, args[0], mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			n, _ := db.FindNote(args[0])
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}
}

func newNotesUnpinCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <note-id>",
		Short: "Unpin a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := mutate.UnpinNote(db, args[0], mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			n, _ := db.FindNote(args[0])
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}
}

func newNotesStarCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "star <note-id>",
		Short: "Star a note",
		Args:  cobra.ExactArgs(1),
		RunE:  starRunE(app, true),
	}
}

func newNotesUnstarCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unstar <note-id>",
		Short: "Remove a note's star",
		Args:  cobra.ExactArgs(1),
		RunE:  starRunE(app, false),
	}
}

func starRunE(app *App, starred bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, s, err := loadDB(app)
		if err != nil {
			return writeErr(cmd, err)
		}
		if err := mutate.SetStar(db, args[0], starred, mutate.Deps{}); err != nil {
			return writeErr(cmd, err)
		}
		if err := s.Save(db); err != nil {
			return writeErr(cmd, err)
		}
		n, _ := db.FindNote(args[0])
		return writeOut(cmd, app, map[string]any{"data": n})
	}
}

func newNotesReorderCmd(app *App) *cobra.Command {
	var folderID string

	cmd := &cobra.Command{
		Use:   "reorder <note-id> <position>",
		Short: "Move a note to a position in the list (pulls it out of any thread)",
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
			scope := folderID
			if scope == "" {
				if home, ok := db.HomeFolder(); ok {
					scope = home.ID
				}
			}
			rows := flatten.Project(flatten.Input{
				Notes:          db.Notes,
				Folders:        db.Folders,
				Sources:        db.Sources,
				CommentCounts:  db.CommentCounts(),
				ActiveFolderID: scope,
				Sort:           flatten.SortDateDesc,
				Now:            nowUTC(),
			})
			changed, err := mutate.ApplyDrag(db, rows, mutate.DragResult{
				SourceID:         args[0],
				DestinationIndex: pos,
				DroppableID:      mutate.DroppableNotes,
			}, mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if changed {
				if err := s.Save(db); err != nil {
					return writeErr(cmd, err)
				}
			}
			n, _ := db.FindNote(args[0])
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}

	cmd.Flags().StringVar(&folderID, "folder", "", "Folder scope (default: home)")
	return cmd
}

func newNotesMoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <note-id> <folder-id>",
		Short: "Move a note into a folder (a thread head carries its thread)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.MoveNoteToFolder(db, args[0], args[1], mutate.Deps{}); err != nil {
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

func newNotesThreadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Thread commands",
	}
	cmd.AddCommand(newThreadFormCmd(app))
	cmd.AddCommand(newThreadExtendCmd(app))
	cmd.AddCommand(newThreadExtractCmd(app))
	cmd.AddCommand(newThreadReorderCmd(app))
	return cmd
}

func newThreadFormCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "form <note-id> <note-id> [note-id...]",
		Aliases: []string{"add-bulk"},
		Short:   "Group notes into a new thread, ordered as given (first id heads it)",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tid, err := mutate.AddAsThread(db, args, mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"threadId": tid,
				"members":  db.NotesInThread(tid),
			}})
		},
	}
	return cmd
}

func newThreadExtendCmd(app *App) *cobra.Command {
	var prepend bool

	cmd := &cobra.Command{
		Use:   "extend <anchor-note-id> <note-id>",
		Short: "Add a note to the anchor's thread (forming one if needed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tid, err := mutate.ExtendThread(db, args[0], args[1], prepend, mutate.Deps{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"threadId": tid,
				"members":  db.NotesInThread(tid),
			}})
		},
	}

	cmd.Flags().BoolVar(&prepend, "prepend", false, "Make the note the new head instead of appending")
	return cmd
}

func newThreadExtractCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <note-id>",
		Short: "Pull a note out of its thread as a standalone note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.ExtractFromThread(db, args[0], mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			n, _ := db.FindNote(args[0])
			return writeOut(cmd, app, map[string]any{"data": n})
		},
	}
}

func newThreadReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <note-id> <position>",
		Short: "Move a member to a position within its thread (0 = head)",
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
			if err := mutate.ReorderInThread(db, args[0], pos, mutate.Deps{}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Save(db); err != nil {
				return writeErr(cmd, err)
			}
			n, _ := db.FindNote(args[0])
			tid := ""
			if n.InThread() {
				tid = *n.ThreadID
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"threadId": tid,
				"members":  db.NotesInThread(tid),
			}})
		},
	}
}

// LooksLikeNoteID reports whether an argv token is a direct note id
// (note-xxxxxxxx), used by main to rewrite `memoline note-x` into
// `memoline notes show note-x`.
func LooksLikeNoteID(arg string) bool {
	return strings.HasPrefix(arg, "note-") && len(arg) > len("note-")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
