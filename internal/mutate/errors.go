package mutate

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ThreadHeadChoiceError signals that deleting a thread head with surviving
// members needs an explicit decision: DeleteNoteOnly or DeleteThread.
type ThreadHeadChoiceError struct {
	NoteID   string
	ThreadID string
	Members  int
}

func (e ThreadHeadChoiceError) Error() string {
	return fmt.Sprintf("note %s heads a thread with %d other members; delete the note only or the whole thread", e.NoteID, e.Members-1)
}

type FolderDepthError struct {
	FolderID string
	MaxDepth int
}

func (e FolderDepthError) Error() string {
	return fmt.Sprintf("folder nesting deeper than %d levels", e.MaxDepth)
}

type CircularMoveError struct {
	FolderID string
	IntoID   string
}

func (e CircularMoveError) Error() string {
	return fmt.Sprintf("cannot move folder %s into its own subtree (%s)", e.FolderID, e.IntoID)
}

type FolderNotEmptyError struct {
	FolderID string
	Notes    int
	Folders  int
}

func (e FolderNotEmptyError) Error() string {
	return fmt.Sprintf("folder %s is not empty (%d notes, %d subfolders)", e.FolderID, e.Notes, e.Folders)
}

// ProtectedFolderError covers operations the home folder rejects.
type ProtectedFolderError struct {
	FolderID string
	Op       string
}

func (e ProtectedFolderError) Error() string {
	return fmt.Sprintf("cannot %s the home folder", e.Op)
}
