package mutate

import (
	"strings"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// Deps carries the injected collaborators every structural mutation needs:
// a clock and a thread-id generator. Tests pin both.
type Deps struct {
	Now         func() time.Time
	NewThreadID func() string
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d Deps) newThreadID() string {
	if d.NewThreadID != nil {
		return d.NewThreadID()
	}
	return store.NewThreadID()
}

// threadMemberIDs returns the thread's member note ids in ThreadOrder.
func threadMemberIDs(db *store.DB, threadID string) []string {
	members := db.NotesInThread(threadID)
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

// setThread assigns thread membership and order on the notes named by ids,
// in the given sequence. Every member ends up with order 0..n-1.
func setThread(db *store.DB, threadID string, ids []string, now time.Time) {
	for i, id := range ids {
		n, ok := db.FindNote(id)
		if !ok {
			continue
		}
		tid := threadID
		order := i
		n.ThreadID = &tid
		n.ThreadOrder = &order
		n.UpdatedAt = now
	}
	db.InvalidateIndexes()
}

// clearThread removes thread membership from a single note.
func clearThread(n *model.Note, now time.Time) {
	n.ThreadID = nil
	n.ThreadOrder = nil
	n.UpdatedAt = now
}

// reindexThread closes order gaps after a member left. A thread reduced to
// one member is dissolved: a thread of one is just a note.
func reindexThread(db *store.DB, threadID string, now time.Time) {
	ids := threadMemberIDs(db, threadID)
	if len(ids) == 1 {
		if n, ok := db.FindNote(ids[0]); ok {
			clearThread(n, now)
		}
		db.InvalidateIndexes()
		return
	}
	setThread(db, threadID, ids, now)
}

// detachFromThread pulls a note out of its thread (if any) and repairs the
// remainder.
func detachFromThread(db *store.DB, n *model.Note, now time.Time) {
	if !n.InThread() {
		return
	}
	tid := *n.ThreadID
	clearThread(n, now)
	db.InvalidateIndexes()
	reindexThread(db, tid, now)
}

// AddAsThread groups the given notes into one new thread, ordered as given,
// in a single step. Notes already threaded elsewhere are pulled out first.
func AddAsThread(db *store.DB, noteIDs []string, deps Deps) (string, error) {
	if len(noteIDs) < 2 {
		return "", nil
	}
	now := deps.now()
	for _, id := range noteIDs {
		if _, ok := db.FindNote(id); !ok {
			return "", NotFoundError{Kind: "note", ID: id}
		}
	}
	oldThreads := map[string]bool{}
	for _, id := range noteIDs {
		n, _ := db.FindNote(id)
		if n.InThread() {
			oldThreads[*n.ThreadID] = true
		}
	}

	tid := deps.newThreadID()
	setThread(db, tid, noteIDs, now)
	for old := range oldThreads {
		reindexThread(db, old, now)
	}
	return tid, nil
}

// ExtendThread adds a note to the thread the anchor note belongs to. An
// unthreaded anchor gets a fresh thread first. Prepend makes the note the
// new head; otherwise it appends after the existing members.
func ExtendThread(db *store.DB, anchorID, noteID string, prepend bool, deps Deps) (string, error) {
	anchorID = strings.TrimSpace(anchorID)
	noteID = strings.TrimSpace(noteID)
	if anchorID == noteID {
		return "", NotFoundError{Kind: "note", ID: noteID}
	}
	anchor, ok := db.FindNote(anchorID)
	if !ok {
		return "", NotFoundError{Kind: "note", ID: anchorID}
	}
	n, ok := db.FindNote(noteID)
	if !ok {
		return "", NotFoundError{Kind: "note", ID: noteID}
	}
	now := deps.now()

	srcThread := ""
	if n.InThread() {
		srcThread = *n.ThreadID
	}

	var tid string
	var members []string
	if anchor.InThread() {
		tid = *anchor.ThreadID
		if tid == srcThread {
			return tid, nil
		}
		members = threadMemberIDs(db, tid)
	} else {
		tid = deps.newThreadID()
		members = []string{anchorID}
	}

	var merged []string
	if prepend {
		merged = append([]string{noteID}, members...)
	} else {
		merged = append(members, noteID)
	}
	setThread(db, tid, merged, now)

	// The note follows the head's folder.
	if head, ok := db.FindNote(merged[0]); ok {
		n.FolderID = head.FolderID
	}

	if srcThread != "" && srcThread != tid {
		reindexThread(db, srcThread, now)
	}
	db.InvalidateIndexes()
	return tid, nil
}

// ExtractFromThread pulls a note out of its thread as a standalone note; the
// remainder is reindexed (and dissolved if only one member is left).
func ExtractFromThread(db *store.DB, noteID string, deps Deps) error {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	if !n.InThread() {
		return nil
	}
	detachFromThread(db, n, deps.now())
	return nil
}

// ReorderInThread splices a member to position pos (0 = head) within its
// own thread and reindexes contiguously.
func ReorderInThread(db *store.DB, noteID string, pos int, deps Deps) error {
	noteID = strings.TrimSpace(noteID)
	n, ok := db.FindNote(noteID)
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	if !n.InThread() {
		return NotFoundError{Kind: "thread", ID: noteID}
	}
	tid := *n.ThreadID

	ids := threadMemberIDs(db, tid)
	rest := make([]string, 0, len(ids)-1)
	for _, id := range ids {
		if id != noteID {
			rest = append(rest, id)
		}
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(rest) {
		pos = len(rest)
	}
	merged := append(rest[:pos:pos], append([]string{noteID}, rest[pos:]...)...)
	setThread(db, tid, merged, deps.now())
	return nil
}

// DeleteNote removes a note and its comments. Deleting a thread head that
// still has other members is a choice point: the call fails with
// ThreadHeadChoiceError and the caller resolves it via DeleteNoteOnly or
// DeleteThread.
func DeleteNote(db *store.DB, noteID string, deps Deps) error {
	noteID = strings.TrimSpace(noteID)
	n, ok := db.FindNote(noteID)
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	if n.InThread() {
		members := db.NotesInThread(*n.ThreadID)
		if len(members) > 1 && members[0].ID == noteID {
			return ThreadHeadChoiceError{NoteID: noteID, ThreadID: *n.ThreadID, Members: len(members)}
		}
	}
	return DeleteNoteOnly(db, noteID, deps)
}

// DeleteNoteOnly removes exactly this note. If it headed a thread, the next
// member is promoted to order 0 and its title now represents the thread.
func DeleteNoteOnly(db *store.DB, noteID string, deps Deps) error {
	noteID = strings.TrimSpace(noteID)
	n, ok := db.FindNote(noteID)
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	now := deps.now()
	tid := ""
	if n.InThread() {
		tid = *n.ThreadID
	}

	removeNoteRows(db, map[string]bool{noteID: true})
	if tid != "" {
		reindexThread(db, tid, now)
	}
	return nil
}

// DeleteThread removes every member of the note's thread, comments included.
// On an unthreaded note it behaves like DeleteNoteOnly.
func DeleteThread(db *store.DB, noteID string, deps Deps) error {
	noteID = strings.TrimSpace(noteID)
	n, ok := db.FindNote(noteID)
	if !ok {
		return NotFoundError{Kind: "note", ID: noteID}
	}
	if !n.InThread() {
		return DeleteNoteOnly(db, noteID, deps)
	}
	doomed := map[string]bool{}
	for _, id := range threadMemberIDs(db, *n.ThreadID) {
		doomed[id] = true
	}
	removeNoteRows(db, doomed)
	return nil
}

// removeNoteRows drops the notes, their comments, and their drafts in one
// in-memory sweep; the caller's save makes it one transaction.
func removeNoteRows(db *store.DB, ids map[string]bool) {
	notes := db.Notes[:0]
	for _, n := range db.Notes {
		if !ids[n.ID] {
			notes = append(notes, n)
		}
	}
	db.Notes = notes

	comments := db.Comments[:0]
	for _, c := range db.Comments {
		if !ids[c.NoteID] {
			comments = append(comments, c)
		}
	}
	db.Comments = comments

	drafts := db.Drafts[:0]
	for _, d := range db.Drafts {
		if d.OriginalID != nil && ids[*d.OriginalID] {
			continue
		}
		drafts = append(drafts, d)
	}
	db.Drafts = drafts

	db.InvalidateIndexes()
}

func orderOrZero(n *model.Note) int {
	if n == nil || n.ThreadOrder == nil {
		return 0
	}
	return *n.ThreadOrder
}
