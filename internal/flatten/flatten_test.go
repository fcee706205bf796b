package flatten

import (
	"testing"
	"time"

	"memoline-cli/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func noteAt(id, title string, offset time.Duration) model.Note {
	return model.Note{ID: id, Title: title, CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset)}
}

func noteIDs(rows []Row) []string {
	var out []string
	for _, r := range rows {
		if r.IsNoteRow() {
			out = append(out, r.Note.ID)
		}
	}
	return out
}

func TestProject_HomeIncludesFolderlessNotes(t *testing.T) {
	folders := []model.Folder{
		{ID: "fld-home", Name: "Home", IsHome: true},
		{ID: "fld-work", Name: "Work", ParentID: strPtr("fld-home")},
	}
	loose := noteAt("note-loose", "Loose", 0)
	homed := noteAt("note-homed", "Homed", time.Minute)
	homed.FolderID = strPtr("fld-home")
	filed := noteAt("note-filed", "Filed", 2*time.Minute)
	filed.FolderID = strPtr("fld-work")

	rows := Project(Input{
		Notes:          []model.Note{loose, homed, filed},
		Folders:        folders,
		ActiveFolderID: "fld-home",
		Now:            base,
	})

	ids := noteIDs(rows)
	if len(ids) != 2 {
		t.Fatalf("home rows = %v, want loose+homed only", ids)
	}
	for _, id := range ids {
		if id == "note-filed" {
			t.Fatalf("note in a subfolder leaked into the home listing")
		}
	}
	// The subfolder itself shows as a navigation row, before any notes.
	if rows[0].Kind != RowFolder || rows[0].Folder.ID != "fld-work" {
		t.Fatalf("first row = %+v, want the Work folder row", rows[0])
	}
}

func TestProject_SubfolderGetsUpRow(t *testing.T) {
	folders := []model.Folder{
		{ID: "fld-home", Name: "Home", IsHome: true},
		{ID: "fld-work", Name: "Work", ParentID: strPtr("fld-home")},
	}
	rows := Project(Input{
		Folders:        folders,
		ActiveFolderID: "fld-work",
		Now:            base,
	})
	if len(rows) == 0 || rows[0].Kind != RowFolderUp {
		t.Fatalf("subfolder view must start with an up row, got %+v", rows)
	}
	if rows[0].Folder.ID != "fld-home" {
		t.Fatalf("up row points at %q, want fld-home", rows[0].Folder.ID)
	}
}

func TestProject_PinnedDominatesEverySort(t *testing.T) {
	pinA := base.Add(-time.Hour)
	pinB := base.Add(-2 * time.Hour)

	a := noteAt("note-a", "zzz", 0)
	a.PinnedAt = &pinA
	b := noteAt("note-b", "aaa", time.Minute)
	b.PinnedAt = &pinB
	c := noteAt("note-c", "mmm", 2*time.Minute) // newest, unpinned

	for _, mode := range []SortMode{SortDateDesc, SortDateAsc, SortTitle, SortCommentsDesc, SortStarred} {
		rows := Project(Input{
			Notes: []model.Note{c, b, a},
			Sort:  mode,
			Now:   base,
		})
		ids := noteIDs(rows)
		if ids[0] != "note-a" || ids[1] != "note-b" {
			t.Fatalf("sort %q: order = %v, want pinned notes first (newest pin first)", mode, ids)
		}
		if ids[2] != "note-c" {
			t.Fatalf("sort %q: unpinned note not last: %v", mode, ids)
		}
	}
}

func TestProject_UnpinGraceKeepsPosition(t *testing.T) {
	pinnedAt := base.Add(-time.Hour)
	a := noteAt("note-a", "Old", -24*time.Hour) // would sink without the pin
	b := noteAt("note-b", "New", 0)

	unpins := NewPendingUnpins()
	unpins.Add("note-a", pinnedAt, base)

	rows := Project(Input{
		Notes:  []model.Note{a, b},
		Sort:   SortDateDesc,
		Unpins: unpins,
		Now:    base.Add(500 * time.Millisecond),
	})
	if ids := noteIDs(rows); ids[0] != "note-a" {
		t.Fatalf("within grace: order = %v, want note-a still on top", ids)
	}

	rows = Project(Input{
		Notes:  []model.Note{a, b},
		Sort:   SortDateDesc,
		Unpins: unpins,
		Now:    base.Add(2 * time.Second),
	})
	if ids := noteIDs(rows); ids[0] != "note-b" {
		t.Fatalf("after grace: order = %v, want note-a to have sunk", ids)
	}
}

func TestProject_ThreadMovesAsUnit(t *testing.T) {
	head := noteAt("note-head", "Head", 0)
	head.ThreadID = strPtr("t-1")
	head.ThreadOrder = intPtr(0)
	child := noteAt("note-child", "Child", time.Hour) // newer than head
	child.ThreadID = strPtr("t-1")
	child.ThreadOrder = intPtr(1)
	single := noteAt("note-single", "Single", 30*time.Minute)

	in := Input{
		Notes: []model.Note{single, child, head},
		Sort:  SortDateDesc,
		Now:   base,
	}

	// Collapsed: only the header row, ranked by the thread's newest member.
	rows := Project(in)
	ids := noteIDs(rows)
	if len(ids) != 2 || ids[0] != "note-head" || ids[1] != "note-single" {
		t.Fatalf("collapsed rows = %v, want [note-head note-single]", ids)
	}
	if rows[0].Kind != RowThreadHeader || rows[0].MemberCount != 2 {
		t.Fatalf("header row = %+v", rows[0])
	}

	// Expanded: children follow the header immediately, not sort-interleaved.
	in.ExpandedThreads = map[string]bool{"t-1": true}
	rows = Project(in)
	ids = noteIDs(rows)
	if len(ids) != 3 || ids[0] != "note-head" || ids[1] != "note-child" || ids[2] != "note-single" {
		t.Fatalf("expanded rows = %v, want thread block then single", ids)
	}
	if rows[1].Kind != RowThreadChild {
		t.Fatalf("second row kind = %v, want thread child", rows[1].Kind)
	}
}

func TestProject_SearchKeepsWholeThread(t *testing.T) {
	head := noteAt("note-head", "Groceries", 0)
	head.ThreadID = strPtr("t-1")
	head.ThreadOrder = intPtr(0)
	child := noteAt("note-child", "Unrelated", time.Minute)
	child.ThreadID = strPtr("t-1")
	child.ThreadOrder = intPtr(1)
	other := noteAt("note-other", "Nothing here", 2*time.Minute)

	rows := Project(Input{
		Notes:           []model.Note{head, child, other},
		ExpandedThreads: map[string]bool{"t-1": true},
		Query:           "grocer",
		Now:             base,
	})
	ids := noteIDs(rows)
	if len(ids) != 2 || ids[0] != "note-head" || ids[1] != "note-child" {
		t.Fatalf("rows = %v, want full thread (match on one member) and nothing else", ids)
	}
}

func TestProject_TagQueryMatchesTagsAndSource(t *testing.T) {
	tagged := noteAt("note-tagged", "A", 0)
	tagged.Tags = []string{"reading"}
	sourced := noteAt("note-sourced", "B", time.Minute)
	sourced.SourceID = strPtr("src-1")
	plain := noteAt("note-plain", "reading list", 2*time.Minute) // title only

	rows := Project(Input{
		Notes:   []model.Note{tagged, sourced, plain},
		Sources: []model.Source{{ID: "src-1", Name: "Reading Group"}},
		Query:   "tag:reading",
		Now:     base,
	})
	ids := noteIDs(rows)
	if len(ids) != 2 {
		t.Fatalf("tag query rows = %v, want tagged+sourced only", ids)
	}
	for _, id := range ids {
		if id == "note-plain" {
			t.Fatalf("tag: query must not match titles")
		}
	}
}

func TestProject_SortModes(t *testing.T) {
	a := noteAt("note-a", "banana", 0)
	a.SourceID = strPtr("src-2")
	b := noteAt("note-b", "apple", time.Minute)
	b.SourceID = strPtr("src-1")
	b.Starred = true
	c := noteAt("note-c", "cherry", 2*time.Minute)

	sources := []model.Source{
		{ID: "src-1", Name: "Alpha"},
		{ID: "src-2", Name: "Beta"},
	}
	counts := map[string]int{"note-a": 3, "note-b": 1}

	cases := []struct {
		mode SortMode
		want []string
	}{
		{SortDateDesc, []string{"note-c", "note-b", "note-a"}},
		{SortDateAsc, []string{"note-a", "note-b", "note-c"}},
		{SortTitle, []string{"note-b", "note-a", "note-c"}},
		{SortSourceAsc, []string{"note-c", "note-b", "note-a"}}, // unset source sorts first
		{SortCommentsDesc, []string{"note-a", "note-b", "note-c"}},
		{SortStarred, []string{"note-b", "note-c", "note-a"}},
	}
	for _, tc := range cases {
		rows := Project(Input{
			Notes:         []model.Note{a, b, c},
			Sources:       sources,
			CommentCounts: counts,
			Sort:          tc.mode,
			Now:           base,
		})
		ids := noteIDs(rows)
		for i, want := range tc.want {
			if ids[i] != want {
				t.Fatalf("sort %q: order = %v, want %v", tc.mode, ids, tc.want)
			}
		}
	}
}

func TestProject_StarredOnlyFilter(t *testing.T) {
	a := noteAt("note-a", "A", 0)
	a.Starred = true
	b := noteAt("note-b", "B", time.Minute)

	rows := Project(Input{
		Notes:       []model.Note{a, b},
		StarredOnly: true,
		Now:         base,
	})
	ids := noteIDs(rows)
	if len(ids) != 1 || ids[0] != "note-a" {
		t.Fatalf("starred-only rows = %v, want just note-a", ids)
	}
}
