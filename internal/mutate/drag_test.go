package mutate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"memoline-cli/internal/flatten"
	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testDeps() Deps {
	seq := 0
	return Deps{
		Now: func() time.Time { return base },
		NewThreadID: func() string {
			seq++
			return fmt.Sprintf("thread-%d", seq)
		},
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func noteWithKey(id string, keyMs int64) model.Note {
	t := time.UnixMilli(keyMs).UTC()
	return model.Note{ID: id, Title: id, CreatedAt: t, UpdatedAt: t}
}

func threadNote(id, tid string, order int, keyMs int64) model.Note {
	n := noteWithKey(id, keyMs)
	n.ThreadID = strPtr(tid)
	n.ThreadOrder = intPtr(order)
	return n
}

func projectFor(db *store.DB, expanded ...string) []flatten.Row {
	exp := map[string]bool{}
	for _, tid := range expanded {
		exp[tid] = true
	}
	return flatten.Project(flatten.Input{
		Notes:           db.Notes,
		Folders:         db.Folders,
		ExpandedThreads: exp,
		Now:             base,
	})
}

// checkThreadInvariants asserts that every thread's orders are exactly
// {0..n-1}: no gaps, no duplicates, one head.
func checkThreadInvariants(t *testing.T, db *store.DB) {
	t.Helper()
	byThread := map[string][]int{}
	for _, n := range db.Notes {
		if n.InThread() {
			if n.ThreadOrder == nil {
				t.Fatalf("threaded note %s has no order", n.ID)
			}
			byThread[*n.ThreadID] = append(byThread[*n.ThreadID], *n.ThreadOrder)
		}
	}
	for tid, orders := range byThread {
		seen := map[int]bool{}
		for _, o := range orders {
			if o < 0 || o >= len(orders) || seen[o] {
				t.Fatalf("thread %s has orders %v, want exactly 0..%d", tid, orders, len(orders)-1)
			}
			seen[o] = true
		}
	}
}

func TestApplyDrag_ReorderClearsThreadAndInterpolates(t *testing.T) {
	// Descending list: N2 (key 200) above N1 (key 100). Dragging N1 just
	// below N2 keeps it at the tail, so it needs a key below 100.
	db := &store.DB{Notes: []model.Note{
		noteWithKey("note-1", 100),
		noteWithKey("note-2", 200),
	}}
	n1, _ := db.FindNote("note-1")
	n1.ThreadID = strPtr("stale")
	n1.ThreadOrder = intPtr(0)

	rows := projectFor(db)
	changed, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-1",
		DestinationIndex: 1,
		DroppableID:      DroppableNotes,
	}, testDeps())
	if err != nil || !changed {
		t.Fatalf("drag: changed=%v err=%v", changed, err)
	}

	n1, _ = db.FindNote("note-1")
	if n1.InThread() {
		t.Fatalf("generic reorder must clear thread membership")
	}
	if got := n1.CreatedAt.UnixMilli(); got >= 100 {
		t.Fatalf("reordered key = %d, want < 100", got)
	}
}

func TestApplyDrag_CombineFormsThread(t *testing.T) {
	// Dropping N1 onto un-threaded N2's row makes N1 the head.
	db := &store.DB{Notes: []model.Note{
		noteWithKey("note-1", 100),
		noteWithKey("note-2", 200),
	}}
	rows := projectFor(db)
	changed, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-1",
		DestinationIndex: -1,
		DroppableID:      DroppableNotes,
		CombineTargetID:  "note-2",
	}, testDeps())
	if err != nil || !changed {
		t.Fatalf("combine: changed=%v err=%v", changed, err)
	}

	n1, _ := db.FindNote("note-1")
	n2, _ := db.FindNote("note-2")
	if !n1.InThread() || !n2.InThread() || *n1.ThreadID != *n2.ThreadID {
		t.Fatalf("combine did not form a shared thread: %+v %+v", n1, n2)
	}
	if *n1.ThreadOrder != 0 || *n2.ThreadOrder != 1 {
		t.Fatalf("orders = %d,%d, want source at 0 and target at 1", *n1.ThreadOrder, *n2.ThreadOrder)
	}
	checkThreadInvariants(t, db)
}

func TestApplyDrag_CombineOnBodyAppends(t *testing.T) {
	db := &store.DB{Notes: []model.Note{
		threadNote("note-a", "t-1", 0, 300),
		threadNote("note-b", "t-1", 1, 200),
		noteWithKey("note-c", 100),
	}}
	rows := projectFor(db, "t-1")
	changed, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-c",
		DestinationIndex: -1,
		DroppableID:      DroppableNotes,
		CombineTargetID:  "note-b", // body row, not the header
	}, testDeps())
	if err != nil || !changed {
		t.Fatalf("combine: changed=%v err=%v", changed, err)
	}

	c, _ := db.FindNote("note-c")
	if !c.InThread() || *c.ThreadID != "t-1" || *c.ThreadOrder != 2 {
		t.Fatalf("body combine should append: %+v", c)
	}
	a, _ := db.FindNote("note-a")
	if *a.ThreadOrder != 0 {
		t.Fatalf("head displaced: %+v", a)
	}
	checkThreadInvariants(t, db)
}

func TestApplyDrag_CombineOnHeaderPrepends(t *testing.T) {
	db := &store.DB{Notes: []model.Note{
		threadNote("note-a", "t-1", 0, 300),
		threadNote("note-b", "t-1", 1, 200),
		noteWithKey("note-c", 100),
	}}
	rows := projectFor(db, "t-1")
	changed, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-c",
		DestinationIndex: -1,
		DroppableID:      DroppableNotes,
		CombineTargetID:  "note-a", // header row
	}, testDeps())
	if err != nil || !changed {
		t.Fatalf("combine: changed=%v err=%v", changed, err)
	}

	c, _ := db.FindNote("note-c")
	if *c.ThreadOrder != 0 {
		t.Fatalf("header combine should make the source the new head: %+v", c)
	}
	a, _ := db.FindNote("note-a")
	b, _ := db.FindNote("note-b")
	if *a.ThreadOrder != 1 || *b.ThreadOrder != 2 {
		t.Fatalf("existing members should shift down: a=%d b=%d", *a.ThreadOrder, *b.ThreadOrder)
	}
	checkThreadInvariants(t, db)
}

func TestApplyDrag_HeadCombineMovesWholeThread(t *testing.T) {
	db := &store.DB{Notes: []model.Note{
		threadNote("note-a", "t-1", 0, 500),
		threadNote("note-b", "t-1", 1, 400),
		threadNote("note-x", "t-2", 0, 300),
		threadNote("note-y", "t-2", 1, 200),
	}}
	rows := projectFor(db, "t-1", "t-2")
	changed, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-a",
		DestinationIndex: -1,
		DroppableID:      DroppableNotes,
		CombineTargetID:  "note-y", // body of t-2: block goes after
		SourceIsHead:     true,
	}, testDeps())
	if err != nil || !changed {
		t.Fatalf("combine: changed=%v err=%v", changed, err)
	}

	wantOrder := map[string]int{"note-x": 0, "note-y": 1, "note-a": 2, "note-b": 3}
	for id, want := range wantOrder {
		n, _ := db.FindNote(id)
		if !n.InThread() || *n.ThreadID != "t-2" || *n.ThreadOrder != want {
			t.Fatalf("%s = %+v, want t-2 order %d", id, n, want)
		}
	}
	checkThreadInvariants(t, db)
}

func TestApplyDrag_InThreadReorder(t *testing.T) {
	db := &store.DB{Notes: []model.Note{
		threadNote("note-a", "t-1", 0, 400),
		threadNote("note-b", "t-1", 1, 300),
		threadNote("note-c", "t-1", 2, 200),
	}}
	rows := projectFor(db, "t-1")
	// rows: header a, child b, child c. Drag c between a and b: with c's
	// row removed the list is [a b], so insertion index 1.
	changed, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-c",
		DestinationIndex: 1,
		DroppableID:      DroppableNotes,
	}, testDeps())
	if err != nil || !changed {
		t.Fatalf("reorder: changed=%v err=%v", changed, err)
	}

	wantOrder := map[string]int{"note-a": 0, "note-c": 1, "note-b": 2}
	for id, want := range wantOrder {
		n, _ := db.FindNote(id)
		if *n.ThreadOrder != want {
			t.Fatalf("%s order = %d, want %d", id, *n.ThreadOrder, want)
		}
	}
	checkThreadInvariants(t, db)
}

func TestApplyDrag_DropOnFolderRow(t *testing.T) {
	home := model.Folder{ID: "fld-home", Name: "Home", IsHome: true}
	work := model.Folder{ID: "fld-work", Name: "Work", ParentID: strPtr("fld-home")}
	db := &store.DB{
		Folders: []model.Folder{home, work},
		Notes: []model.Note{
			threadNote("note-a", "t-1", 0, 400),
			threadNote("note-b", "t-1", 1, 300),
			threadNote("note-c", "t-1", 2, 200),
		},
	}

	// Head drop carries the whole thread, membership intact.
	rows := projectFor(db, "t-1")
	if _, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-a",
		DestinationIndex: 0,
		DroppableID:      "fld-work",
		SourceIsHead:     true,
	}, testDeps()); err != nil {
		t.Fatalf("head folder drop: %v", err)
	}
	for _, id := range []string{"note-a", "note-b", "note-c"} {
		n, _ := db.FindNote(id)
		if n.FolderID == nil || *n.FolderID != "fld-work" {
			t.Fatalf("%s folder = %v, want fld-work", id, n.FolderID)
		}
		if !n.InThread() {
			t.Fatalf("head move must keep the thread intact, %s lost membership", id)
		}
	}

	// A non-head member dropped on a folder leaves the thread behind.
	rows = projectFor(db, "t-1")
	if _, err := ApplyDrag(db, rows, DragResult{
		SourceID:         "note-b",
		DestinationIndex: 0,
		DroppableID:      "fld-home",
	}, testDeps()); err != nil {
		t.Fatalf("member folder drop: %v", err)
	}
	b, _ := db.FindNote("note-b")
	if b.InThread() {
		t.Fatalf("non-head folder move must clear thread membership")
	}
	if b.FolderID == nil || *b.FolderID != "fld-home" {
		t.Fatalf("note-b folder = %v, want fld-home", b.FolderID)
	}
	checkThreadInvariants(t, db)
}

func TestApplyDrag_Cancelled(t *testing.T) {
	db := &store.DB{Notes: []model.Note{noteWithKey("note-1", 100)}}
	changed, err := ApplyDrag(db, projectFor(db), DragResult{
		SourceID:         "note-1",
		DestinationIndex: -1,
		DroppableID:      DroppableNotes,
	}, testDeps())
	if err != nil || changed {
		t.Fatalf("cancelled drag must be a no-op, changed=%v err=%v", changed, err)
	}
}

func TestApplyDrag_UnknownSource(t *testing.T) {
	db := &store.DB{}
	_, err := ApplyDrag(db, nil, DragResult{
		SourceID:         "note-missing",
		DestinationIndex: 0,
		DroppableID:      DroppableNotes,
	}, testDeps())
	var nf NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}
