package mutate

import (
	"strings"
	"time"

	"memoline-cli/internal/flatten"
	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// DroppableNotes is the DroppableID of the main note list; anything else is
// a folder row id.
const DroppableNotes = "notes"

// DragResult is a normalized drag gesture as the UI reports it. The engine
// never sees raw pointer events.
type DragResult struct {
	SourceID string

	// DestinationIndex is the insertion index in the visible row list with
	// the source row removed; -1 means the drag was cancelled.
	DestinationIndex int

	// DroppableID is DroppableNotes for the list itself or a folder id when
	// the note was dropped onto a folder row.
	DroppableID string

	// CombineTargetID is the note the source was dropped directly onto;
	// empty for plain reorders. The combine highlight itself is UI-only and
	// never persisted.
	CombineTargetID string

	// SourceIsHead records whether the drag started on a thread header row.
	// Detected from the drag origin, not from content: a head drag moves
	// the whole thread.
	SourceIsHead bool
}

// ApplyDrag classifies the drag (first match wins) and applies the
// corresponding mutations to db in memory. rows must be the projected row
// list the gesture happened in. The caller persists the whole state
// afterwards, so the operation lands as one transaction.
//
// Classification order: folder drop, combine, in-thread reorder, generic
// reorder/extraction.
func ApplyDrag(db *store.DB, rows []flatten.Row, res DragResult, deps Deps) (bool, error) {
	sourceID := strings.TrimSpace(res.SourceID)
	if db == nil || sourceID == "" {
		return false, nil
	}
	if res.DestinationIndex < 0 && res.CombineTargetID == "" {
		return false, nil // cancelled
	}
	src, ok := db.FindNote(sourceID)
	if !ok {
		return false, NotFoundError{Kind: "note", ID: sourceID}
	}

	if res.DroppableID != "" && res.DroppableID != DroppableNotes {
		return dragToFolder(db, src, res.DroppableID, res.SourceIsHead, deps)
	}
	if target := strings.TrimSpace(res.CombineTargetID); target != "" {
		return dragCombine(db, rows, src.ID, target, res.SourceIsHead, deps)
	}

	remaining := rowsWithoutSource(rows, src.ID, res.SourceIsHead)
	if tid, pos, ok := threadBodyAt(db, remaining, res.DestinationIndex, src); ok {
		return dragIntoThread(db, src.ID, tid, pos, deps)
	}
	return dragReorder(db, remaining, src.ID, res.DestinationIndex, deps)
}

// dragToFolder moves the source into the target folder. A head drag carries
// the entire thread with membership intact; any other note leaves its
// thread behind.
func dragToFolder(db *store.DB, src *model.Note, folderID string, isHead bool, deps Deps) (bool, error) {
	folderID = strings.TrimSpace(folderID)
	if _, ok := db.FindFolder(folderID); !ok {
		return false, NotFoundError{Kind: "folder", ID: folderID}
	}
	now := deps.now()

	if src.InThread() && isHead {
		for _, id := range threadMemberIDs(db, *src.ThreadID) {
			if m, ok := db.FindNote(id); ok {
				fid := folderID
				m.FolderID = &fid
				m.UpdatedAt = now
			}
		}
		db.InvalidateIndexes()
		return true, nil
	}

	detachFromThread(db, src, now)
	fid := folderID
	src.FolderID = &fid
	src.UpdatedAt = now
	return true, nil
}

// dragCombine handles thread formation and extension. Dropping on a header
// row (or an unthreaded note) splices the source block before the existing
// members; dropping on a body row appends it after them.
func dragCombine(db *store.DB, rows []flatten.Row, sourceID, targetID string, isHead bool, deps Deps) (bool, error) {
	if targetID == sourceID {
		return false, nil
	}
	target, ok := db.FindNote(targetID)
	if !ok {
		return false, NotFoundError{Kind: "note", ID: targetID}
	}
	src, _ := db.FindNote(sourceID)
	now := deps.now()

	// The source block: a head drag carries the whole thread, preserving
	// relative order; anything else moves just the one note.
	var block []string
	srcThread := ""
	if src.InThread() {
		srcThread = *src.ThreadID
	}
	if srcThread != "" && isHead {
		block = threadMemberIDs(db, srcThread)
	} else {
		block = []string{sourceID}
	}
	for _, id := range block {
		if id == targetID {
			return false, nil // combining a thread with its own member
		}
	}

	// Target side: existing members, minus anything from the source block.
	var members []string
	tid := ""
	if target.InThread() {
		tid = *target.ThreadID
		if tid == srcThread && isHead {
			return false, nil
		}
		members = threadMemberIDs(db, tid)
	} else {
		tid = deps.newThreadID()
		members = []string{targetID}
	}
	members = without(members, block)

	prepend := !target.InThread() || orderOrZero(target) == 0
	if r, ok := rowFor(rows, targetID); ok {
		prepend = r.Kind != flatten.RowThreadChild
	}

	var merged []string
	if prepend {
		merged = append(append(merged, block...), members...)
	} else {
		merged = append(append(merged, members...), block...)
	}
	setThread(db, tid, merged, now)

	// Thread membership implies folder membership of the head's folder.
	if head, ok := db.FindNote(merged[0]); ok {
		for _, id := range merged[1:] {
			if m, ok := db.FindNote(id); ok {
				m.FolderID = head.FolderID
			}
		}
	}

	if srcThread != "" && srcThread != tid && !isHead {
		reindexThread(db, srcThread, now)
	}
	db.InvalidateIndexes()
	return true, nil
}

// dragIntoThread re-splices the source at position pos inside the thread
// and reindexes contiguously from 0.
func dragIntoThread(db *store.DB, sourceID, threadID string, pos int, deps Deps) (bool, error) {
	now := deps.now()
	src, _ := db.FindNote(sourceID)

	srcThread := ""
	if src.InThread() {
		srcThread = *src.ThreadID
	}

	ids := without(threadMemberIDs(db, threadID), []string{sourceID})
	if pos < 0 {
		pos = 0
	}
	if pos > len(ids) {
		pos = len(ids)
	}
	ids = append(ids[:pos:pos], append([]string{sourceID}, ids[pos:]...)...)
	setThread(db, threadID, ids, now)

	if srcThread != "" && srcThread != threadID {
		reindexThread(db, srcThread, now)
	}
	return true, nil
}

// dragReorder is the generic case: the source leaves any thread and gets a
// fresh sort key interpolated between its standalone neighbors at the
// destination.
func dragReorder(db *store.DB, remaining []flatten.Row, sourceID string, destIndex int, deps Deps) (bool, error) {
	src, _ := db.FindNote(sourceID)
	now := deps.now()

	before, after := neighborKeys(remaining, destIndex)
	key := store.SortKeyBetween(before, after, deps.now)

	detachFromThread(db, src, now)
	src.CreatedAt = msToTime(key)
	src.UpdatedAt = now
	db.InvalidateIndexes()
	return true, nil
}

// threadBodyAt reports whether inserting at destIndex lands inside an
// existing thread's body: strictly between two rows of the same thread, or
// adjacent to the source's own thread.
func threadBodyAt(db *store.DB, remaining []flatten.Row, destIndex int, src *model.Note) (string, int, bool) {
	above, aok := rowAt(remaining, destIndex-1)
	below, bok := rowAt(remaining, destIndex)

	aThread := ""
	if aok && above.IsNoteRow() {
		aThread = above.ThreadID
	}
	bThread := ""
	if bok && below.Kind == flatten.RowThreadChild {
		bThread = below.ThreadID
	}

	srcThread := ""
	if src.InThread() {
		srcThread = *src.ThreadID
	}

	// Strictly inside a thread block: the row below is a child of the same
	// thread the row above belongs to.
	if aThread != "" && aThread == bThread {
		return aThread, positionAfter(db, above, src.ID), true
	}
	// Adjacent to its own thread while already a member.
	if srcThread != "" && aThread == srcThread {
		return srcThread, positionAfter(db, above, src.ID), true
	}
	if srcThread != "" && bok && below.IsNoteRow() && below.ThreadID == srcThread {
		return srcThread, 0, true
	}
	return "", 0, false
}

// positionAfter computes the splice position directly after the given row's
// note, in the thread member list with the source removed.
func positionAfter(db *store.DB, above flatten.Row, sourceID string) int {
	ids := without(threadMemberIDs(db, above.ThreadID), []string{sourceID})
	for i, id := range ids {
		if id == above.Note.ID {
			return i + 1
		}
	}
	return len(ids)
}

// neighborKeys finds the sort keys around the insertion point: the nearest
// standalone or header row above and below. Thread children are skipped;
// they have no place in the global order.
func neighborKeys(remaining []flatten.Row, destIndex int) (before, after int64) {
	for i := destIndex - 1; i >= 0; i-- {
		r := remaining[i]
		if r.Kind == flatten.RowNote || r.Kind == flatten.RowThreadHeader {
			before = r.Note.CreatedAt.UTC().UnixMilli()
			break
		}
		if !r.IsNoteRow() && r.Kind != flatten.RowThreadChild {
			break // folder rows end the sortable region
		}
	}
	for i := destIndex; i < len(remaining); i++ {
		r := remaining[i]
		if r.Kind == flatten.RowNote || r.Kind == flatten.RowThreadHeader {
			after = r.Note.CreatedAt.UTC().UnixMilli()
			break
		}
	}
	return before, after
}

// rowsWithoutSource drops the source's own row (and, for a head drag, its
// whole thread block) so indexes line up with the list the user saw while
// dragging.
func rowsWithoutSource(rows []flatten.Row, sourceID string, isHead bool) []flatten.Row {
	out := make([]flatten.Row, 0, len(rows))
	dropThread := ""
	for _, r := range rows {
		if r.IsNoteRow() && r.Note.ID == sourceID {
			if isHead && r.Kind == flatten.RowThreadHeader {
				dropThread = r.ThreadID
			}
			continue
		}
		if dropThread != "" && r.Kind == flatten.RowThreadChild && r.ThreadID == dropThread {
			continue
		}
		out = append(out, r)
	}
	return out
}

func rowAt(rows []flatten.Row, i int) (flatten.Row, bool) {
	if i < 0 || i >= len(rows) {
		return flatten.Row{}, false
	}
	return rows[i], true
}

func rowFor(rows []flatten.Row, noteID string) (flatten.Row, bool) {
	for _, r := range rows {
		if r.IsNoteRow() && r.Note.ID == noteID {
			return r, true
		}
	}
	return flatten.Row{}, false
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func without(ids []string, drop []string) []string {
	skip := map[string]bool{}
	for _, id := range drop {
		skip[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}
