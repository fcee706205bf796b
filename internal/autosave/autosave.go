// Package autosave is the per-session draft manager: a fixed-interval tick
// snapshots unsaved edits into a Draft row, one row per session, and
// reconciles drafts against the committed note on save/cancel/resume.
package autosave

import (
	"sort"
	"strings"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/mutate"
	"memoline-cli/internal/store"
)

// DefaultIntervalSeconds is the autosave tick interval. The timer itself
// lives with the caller (TUI tick or test); the session only reacts to
// Tick calls.
const DefaultIntervalSeconds = 7

// MaxDrafts is the global retention cap; older drafts are pruned after
// every draft write.
const MaxDrafts = 20

// EditState is the in-memory edit surface the session watches.
type EditState struct {
	Title        string
	Content      string
	Tags         []string
	SourceID     *string
	CommentDraft *model.CommentDraft
}

// Session tracks one editing session. OriginalID nil means a brand-new
// note. The session is terminal after Save; Cancel leaves the draft in
// place on purpose (recoverable later, not just crash insurance).
type Session struct {
	OriginalID *string

	draftID string
	last    EditState
	done    bool
}

// NewSession starts a session against an existing note, baselining the
// snapshot comparison on the note's committed state.
func NewSession(db *store.DB, noteID string) (*Session, error) {
	n, ok := db.FindNote(strings.TrimSpace(noteID))
	if !ok {
		return nil, mutate.NotFoundError{Kind: "note", ID: noteID}
	}
	id := n.ID
	return &Session{
		OriginalID: &id,
		last: EditState{
			Title:    n.Title,
			Content:  n.Content,
			Tags:     n.Tags,
			SourceID: n.SourceID,
		},
	}, nil
}

// NewSessionForNew starts a session for a note that does not exist yet;
// the baseline is empty.
func NewSessionForNew() *Session {
	return &Session{}
}

// Tick is one autosave interval. Unchanged or all-empty state writes
// nothing. The first real change creates the session's single draft row;
// later changes update that same row. Reports whether a draft was written.
func (s *Session) Tick(db *store.DB, st store.Store, cur EditState, deps mutate.Deps) bool {
	if s.done {
		return false
	}
	if statesEqual(cur, s.last) {
		return false
	}
	if isEmpty(cur) {
		return false
	}
	now := time.Now().UTC()
	if deps.Now != nil {
		now = deps.Now()
	}

	if s.draftID == "" {
		// Stale drafts from an earlier session on the same note would
		// shadow this one; clear them first.
		if s.OriginalID != nil {
			deleteDraftsFor(db, *s.OriginalID)
		}
		d := model.Draft{
			ID:         st.NextID(db, "draft"),
			OriginalID: s.OriginalID,
			CreatedAt:  now,
		}
		applyState(&d, cur)
		db.Drafts = append(db.Drafts, d)
		s.draftID = d.ID
	} else {
		d, ok := db.FindDraft(s.draftID)
		if !ok {
			// Pruned or externally removed; recreate on the next tick.
			s.draftID = ""
			return s.Tick(db, st, cur, deps)
		}
		applyState(d, cur)
	}

	pruneDrafts(db)
	s.last = cur
	return true
}

// Save commits the edit state to the canonical note (creating it when the
// session is for a new note), deletes every draft for it, and ends the
// session. Returns the note id.
func (s *Session) Save(db *store.DB, st store.Store, cur EditState, deps mutate.Deps) (string, error) {
	in := mutate.NoteInput{
		Title:    cur.Title,
		Content:  cur.Content,
		Tags:     cur.Tags,
		SourceID: cur.SourceID,
	}
	var noteID string
	if s.OriginalID != nil {
		noteID = *s.OriginalID
		if err := mutate.UpdateNote(db, noteID, in, deps); err != nil {
			return "", err
		}
	} else {
		n, err := mutate.CreateNote(db, st, in, deps)
		if err != nil {
			return "", err
		}
		noteID = n.ID
	}

	deleteDraftsFor(db, noteID)
	if s.draftID != "" {
		deleteDraft(db, s.draftID)
	}
	s.done = true
	return noteID, nil
}

// Cancel ends the session and leaves any draft behind.
func (s *Session) Cancel() {
	s.done = true
}

// Resume looks for a recoverable draft when (re)entering edit mode.
// A draft for a brand-new note loads automatically (there is nothing to
// clobber); a draft differing from an existing committed note is returned
// with needsConfirm set, and the caller must ask before applying it.
func Resume(db *store.DB, noteID string) (EditState, bool, bool) {
	noteID = strings.TrimSpace(noteID)
	d, ok := latestDraftFor(db, noteID)
	if !ok {
		return EditState{}, false, false
	}
	cur := draftState(d)

	if noteID == "" {
		return cur, false, true
	}
	n, ok := db.FindNote(noteID)
	if !ok {
		return cur, false, true
	}
	committed := EditState{Title: n.Title, Content: n.Content, Tags: n.Tags, SourceID: n.SourceID}
	if statesEqual(cur, committed) {
		return EditState{}, false, false
	}
	return cur, true, true
}

// RecoverOrphans promotes startup leftovers: drafts with no original note
// and non-empty content become real notes; empty orphans are dropped
// silently. Returns how many notes were created.
func RecoverOrphans(db *store.DB, st store.Store, deps mutate.Deps) (int, error) {
	var orphans []model.Draft
	for _, d := range db.Drafts {
		if d.OriginalID == nil || strings.TrimSpace(*d.OriginalID) == "" {
			orphans = append(orphans, d)
		}
	}
	promoted := 0
	for _, d := range orphans {
		if strings.TrimSpace(d.Title) != "" || strings.TrimSpace(d.Content) != "" {
			if _, err := mutate.CreateNote(db, st, mutate.NoteInput{
				Title:    d.Title,
				Content:  d.Content,
				Tags:     d.Tags,
				SourceID: d.SourceID,
			}, deps); err != nil {
				return promoted, err
			}
			promoted++
		}
		deleteDraft(db, d.ID)
	}
	return promoted, nil
}

// statesEqual is the structural comparison driving tick no-ops: tag order
// is irrelevant, the nested comment draft counts.
func statesEqual(a, b EditState) bool {
	if a.Title != b.Title || a.Content != b.Content {
		return false
	}
	if !tagSetsEqual(a.Tags, b.Tags) {
		return false
	}
	if derefStr(a.SourceID) != derefStr(b.SourceID) {
		return false
	}
	return commentDraftsEqual(a.CommentDraft, b.CommentDraft)
}

func tagSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, t := range a {
		set[t]++
	}
	for _, t := range b {
		set[t]--
		if set[t] < 0 {
			return false
		}
	}
	return true
}

func commentDraftsEqual(a, b *model.CommentDraft) bool {
	if a == nil || b == nil {
		return a == b
	}
	return derefStr(a.CommentID) == derefStr(b.CommentID) &&
		a.Content == b.Content && a.IsNew == b.IsNew
}

func isEmpty(st EditState) bool {
	return strings.TrimSpace(st.Title) == "" &&
		strings.TrimSpace(st.Content) == "" &&
		len(st.Tags) == 0 &&
		st.CommentDraft == nil
}

func applyState(d *model.Draft, st EditState) {
	d.Title = st.Title
	d.Content = st.Content
	d.Tags = st.Tags
	d.SourceID = st.SourceID
	d.CommentDraft = st.CommentDraft
}

func draftState(d model.Draft) EditState {
	return EditState{
		Title:        d.Title,
		Content:      d.Content,
		Tags:         d.Tags,
		SourceID:     d.SourceID,
		CommentDraft: d.CommentDraft,
	}
}

// latestDraftFor returns the newest draft for the note id; empty id means
// new-note drafts.
func latestDraftFor(db *store.DB, noteID string) (model.Draft, bool) {
	var best model.Draft
	found := false
	for _, d := range db.Drafts {
		oid := ""
		if d.OriginalID != nil {
			oid = *d.OriginalID
		}
		if oid != noteID {
			continue
		}
		if !found || d.CreatedAt.After(best.CreatedAt) {
			best = d
			found = true
		}
	}
	return best, found
}

func deleteDraftsFor(db *store.DB, noteID string) {
	out := db.Drafts[:0]
	for _, d := range db.Drafts {
		if d.OriginalID != nil && *d.OriginalID == noteID {
			continue
		}
		out = append(out, d)
	}
	db.Drafts = out
}

func deleteDraft(db *store.DB, draftID string) {
	out := db.Drafts[:0]
	for _, d := range db.Drafts {
		if d.ID != draftID {
			out = append(out, d)
		}
	}
	db.Drafts = out
}

// pruneDrafts keeps the MaxDrafts newest drafts globally.
func pruneDrafts(db *store.DB) {
	if len(db.Drafts) <= MaxDrafts {
		return
	}
	sort.SliceStable(db.Drafts, func(i, j int) bool {
		return db.Drafts[i].CreatedAt.After(db.Drafts[j].CreatedAt)
	})
	db.Drafts = db.Drafts[:MaxDrafts]
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
