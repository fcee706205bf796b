// Package flatten turns store state plus view filters into the single
// ordered row sequence the sidebar displays. Project is a pure function:
// it never mutates its input and is recomputed whenever state or filters
// change.
package flatten

import (
	"sort"
	"strings"
	"time"

	"memoline-cli/internal/model"
)

type SortMode string

const (
	SortDateDesc     SortMode = "date-desc"
	SortDateAsc      SortMode = "date-asc"
	SortTitle        SortMode = "title"
	SortSourceAsc    SortMode = "source-asc"
	SortSourceDesc   SortMode = "source-desc"
	SortCommentsDesc SortMode = "comments-desc"
	SortStarred      SortMode = "starred"
)

type RowKind int

const (
	RowFolderUp RowKind = iota
	RowFolder
	RowThreadHeader
	RowThreadChild
	RowNote
)

// Row is one display row. Kind is the discriminant; each variant carries
// only the fields its rendering needs.
type Row struct {
	Kind RowKind

	// Set for RowFolderUp / RowFolder.
	Folder model.Folder

	// Set for RowThreadHeader / RowThreadChild / RowNote.
	Note     model.Note
	ThreadID string

	// Set for RowThreadHeader.
	MemberCount int
}

// IsNoteRow reports whether the row represents a note (of any thread role).
func (r Row) IsNoteRow() bool {
	return r.Kind == RowThreadHeader || r.Kind == RowThreadChild || r.Kind == RowNote
}

type Input struct {
	Notes   []model.Note
	Folders []model.Folder
	Sources []model.Source

	// CommentCounts is noteID -> count, for the comments-desc sort.
	CommentCounts map[string]int

	// ActiveFolderID scopes the listing. The home folder additionally
	// includes notes with no folder at all.
	ActiveFolderID string

	ExpandedThreads map[string]bool
	Sort            SortMode
	StarredOnly     bool
	Query           string

	// Unpins is the time-bounded pending-transition table for notes that
	// were just unpinned; a live entry keeps the note's old position for
	// the grace period instead of letting it jump mid-glance.
	Unpins *PendingUnpins

	Now time.Time
}

// Project computes the ordered row list: folder navigation rows first, then
// thread groups and standalone notes under the active sort with pinned rows
// dominating everything.
func Project(in Input) []Row {
	var out []Row

	active, activeOK := findFolder(in.Folders, in.ActiveFolderID)
	isHome := activeOK && active.IsHome

	// Folder navigation rows.
	if activeOK && !active.IsHome {
		parent := model.Folder{}
		if active.ParentID != nil {
			if p, ok := findFolder(in.Folders, *active.ParentID); ok {
				parent = p
			}
		}
		out = append(out, Row{Kind: RowFolderUp, Folder: parent})
	}
	for _, f := range childFolders(in.Folders, in.ActiveFolderID) {
		out = append(out, Row{Kind: RowFolder, Folder: f})
	}

	// Scope notes to the active folder.
	scoped := make([]model.Note, 0, len(in.Notes))
	for _, n := range in.Notes {
		if in.ActiveFolderID == "" {
			scoped = append(scoped, n)
			continue
		}
		if n.FolderID != nil && *n.FolderID == in.ActiveFolderID {
			scoped = append(scoped, n)
			continue
		}
		if isHome && (n.FolderID == nil || *n.FolderID == "") {
			scoped = append(scoped, n)
		}
	}

	// Partition threaded vs standalone.
	threads := map[string][]model.Note{}
	var singles []model.Note
	for _, n := range scoped {
		if n.InThread() {
			threads[*n.ThreadID] = append(threads[*n.ThreadID], n)
		} else {
			singles = append(singles, n)
		}
	}

	match := matcher(in)

	var kept []model.Note
	for _, n := range singles {
		if match(n) {
			kept = append(kept, n)
		}
	}

	// A thread is included when any member matches; once included, all its
	// members are shown. Filtering never splits a thread.
	type threadGroup struct {
		id      string
		members []model.Note
	}
	var groups []threadGroup
	for tid, members := range threads {
		included := false
		for _, n := range members {
			if match(n) {
				included = true
				break
			}
		}
		if !included {
			continue
		}
		sortThreadMembers(members)
		groups = append(groups, threadGroup{id: tid, members: members})
	}

	// One sortable entry per group/single so threads move as a unit.
	type entry struct {
		head     model.Note // representative for pin/star/source/title
		dateKey  time.Time  // newest member creation time
		comments int        // summed over thread members
		group    *threadGroup
		single   model.Note
		isThread bool
	}
	entries := make([]entry, 0, len(kept)+len(groups))
	for i := range groups {
		g := &groups[i]
		newest := g.members[0].CreatedAt
		comments := 0
		for _, m := range g.members {
			if m.CreatedAt.After(newest) {
				newest = m.CreatedAt
			}
			comments += in.CommentCounts[m.ID]
		}
		entries = append(entries, entry{head: g.members[0], dateKey: newest, comments: comments, group: g, isThread: true})
	}
	for _, n := range kept {
		entries = append(entries, entry{head: n, dateKey: n.CreatedAt, comments: in.CommentCounts[n.ID], single: n})
	}

	sourceName := sourceNameLookup(in.Sources)
	effectivePin := func(n model.Note) *time.Time {
		if n.PinnedAt != nil {
			return n.PinnedAt
		}
		if in.Unpins != nil {
			if at, ok := in.Unpins.Lookup(n.ID, in.Now); ok {
				return &at
			}
		}
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]

		// Pinned rows dominate every sort mode.
		ap, bp := effectivePin(a.head), effectivePin(b.head)
		if ap != nil && bp != nil {
			if !ap.Equal(*bp) {
				return ap.After(*bp)
			}
		} else if ap != nil {
			return true
		} else if bp != nil {
			return false
		}

		switch in.Sort {
		case SortDateAsc:
			if !a.dateKey.Equal(b.dateKey) {
				return a.dateKey.Before(b.dateKey)
			}
		case SortTitle:
			at := strings.ToLower(a.head.Title)
			bt := strings.ToLower(b.head.Title)
			if at != bt {
				return at < bt
			}
		case SortSourceAsc, SortSourceDesc:
			an := sourceName(a.head.SourceID)
			bn := sourceName(b.head.SourceID)
			if an != bn {
				if in.Sort == SortSourceAsc {
					return an < bn
				}
				return an > bn
			}
		case SortCommentsDesc:
			if a.comments != b.comments {
				return a.comments > b.comments
			}
		case SortStarred:
			if a.head.Starred != b.head.Starred {
				return a.head.Starred
			}
		}

		// Default and universal fallback: newest first, then ID for a
		// deterministic order under equal keys.
		if !a.dateKey.Equal(b.dateKey) {
			return a.dateKey.After(b.dateKey)
		}
		return a.head.ID < b.head.ID
	})

	for _, e := range entries {
		if e.isThread {
			g := e.group
			out = append(out, Row{
				Kind:        RowThreadHeader,
				Note:        g.members[0],
				ThreadID:    g.id,
				MemberCount: len(g.members),
			})
			if in.ExpandedThreads[g.id] {
				for _, m := range g.members[1:] {
					out = append(out, Row{Kind: RowThreadChild, Note: m, ThreadID: g.id})
				}
			}
			continue
		}
		out = append(out, Row{Kind: RowNote, Note: e.single})
	}
	return out
}

// sortThreadMembers orders a thread for display: ThreadOrder ascending with
// the head at 0. Members without an order (legacy imports) fall back to
// creation time descending behind the ordered ones.
func sortThreadMembers(members []model.Note) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		ao, aok := orderOf(a)
		bo, bok := orderOf(b)
		if aok && bok {
			if ao != bo {
				return ao < bo
			}
			return a.ID < b.ID
		}
		if aok != bok {
			return aok
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func orderOf(n model.Note) (int, bool) {
	if n.ThreadOrder == nil {
		return 0, false
	}
	return *n.ThreadOrder, true
}

func matcher(in Input) func(model.Note) bool {
	q := strings.ToLower(strings.TrimSpace(in.Query))
	sourceName := sourceNameLookup(in.Sources)
	return func(n model.Note) bool {
		if in.StarredOnly && !n.Starred {
			return false
		}
		if q == "" {
			return true
		}
		if tagQ, ok := strings.CutPrefix(q, "tag:"); ok {
			tagQ = strings.TrimSpace(tagQ)
			if tagQ == "" {
				return true
			}
			for _, t := range n.Tags {
				if strings.Contains(strings.ToLower(t), tagQ) {
					return true
				}
			}
			return strings.Contains(strings.ToLower(sourceName(n.SourceID)), tagQ)
		}
		if strings.Contains(strings.ToLower(n.Title), q) {
			return true
		}
		if strings.Contains(strings.ToLower(n.Content), q) {
			return true
		}
		for _, t := range n.Tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	}
}

func sourceNameLookup(sources []model.Source) func(*string) string {
	byID := make(map[string]string, len(sources))
	for _, s := range sources {
		byID[s.ID] = s.Name
	}
	return func(id *string) string {
		if id == nil {
			return ""
		}
		return byID[*id]
	}
}

func findFolder(folders []model.Folder, id string) (model.Folder, bool) {
	for _, f := range folders {
		if f.ID == id {
			return f, true
		}
	}
	return model.Folder{}, false
}

func childFolders(folders []model.Folder, parentID string) []model.Folder {
	var out []model.Folder
	for _, f := range folders {
		if f.IsHome {
			continue
		}
		pid := ""
		if f.ParentID != nil {
			pid = *f.ParentID
		}
		if pid == parentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
