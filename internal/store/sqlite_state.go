package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"memoline-cli/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "index.sqlite"

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// Single local writer; serialize access instead of juggling SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// LoadSQLite loads the workspace state from .memoline/index.sqlite.
func (s Store) LoadSQLite(ctx context.Context) (*DB, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := migrateSQLiteState(ctx, db); err != nil {
		return nil, err
	}
	return loadStateFromSQLite(ctx, db)
}

// SaveSQLite writes the whole state in one transaction (replace-all). The
// state is small enough that rewriting it wholesale is cheaper than tracking
// per-row dirtiness, and it guarantees no intermediate state is observable.
func (s Store) SaveSQLite(ctx context.Context, st *DB) error {
	if st == nil {
		return errors.New("nil db")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrateSQLiteState(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveStateTx(ctx, tx, st); err != nil {
		return err
	}
	return tx.Commit()
}

func saveStateTx(ctx context.Context, tx *sql.Tx, st *DB) error {
	version := st.Version
	if version == 0 {
		version = 1
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, "version", strconv.Itoa(version)); err != nil {
		return err
	}

	for _, t := range []string{"notes", "folders", "comments", "sources", "drafts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}

	nowMs := time.Now().UTC().UnixMilli()

	for _, n := range st.Notes {
		raw, _ := json.Marshal(n)
		folderID := ""
		if n.FolderID != nil {
			folderID = strings.TrimSpace(*n.FolderID)
		}
		sourceID := ""
		if n.SourceID != nil {
			sourceID = strings.TrimSpace(*n.SourceID)
		}
		threadID := ""
		if n.ThreadID != nil {
			threadID = strings.TrimSpace(*n.ThreadID)
		}
		threadOrder := -1
		if n.ThreadOrder != nil {
			threadOrder = *n.ThreadOrder
		}
		var pinnedMs any
		if n.PinnedAt != nil {
			pinnedMs = n.PinnedAt.UTC().UnixMilli()
		}
		tagsJSON, _ := json.Marshal(n.Tags)
		if _, err := tx.ExecContext(ctx, `INSERT INTO notes(
			id, folder_id, source_id, thread_id, thread_order,
			title, starred, pinned_at_unixms,
			created_at_unixms, tags_json,
			json, updated_at_unixms
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, folderID, sourceID, threadID, threadOrder,
			n.Title, boolToInt(n.Starred), pinnedMs,
			n.CreatedAt.UTC().UnixMilli(), string(tagsJSON),
			string(raw), nowMs,
		); err != nil {
			return err
		}
	}
	for _, f := range st.Folders {
		raw, _ := json.Marshal(f)
		parent := ""
		if f.ParentID != nil {
			parent = strings.TrimSpace(*f.ParentID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO folders(id, parent_id, name, is_home, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
			f.ID, parent, f.Name, boolToInt(f.IsHome), string(raw), nowMs); err != nil {
			return err
		}
	}
	for _, c := range st.Comments {
		raw, _ := json.Marshal(c)
		if _, err := tx.ExecContext(ctx, `INSERT INTO comments(id, note_id, created_at_unixms, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
			c.ID, c.NoteID, c.CreatedAt.UTC().UnixMilli(), string(raw), nowMs); err != nil {
			return err
		}
	}
	for _, src := range st.Sources {
		raw, _ := json.Marshal(src)
		if _, err := tx.ExecContext(ctx, `INSERT INTO sources(id, name, display_order, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
			src.ID, src.Name, src.Order, string(raw), nowMs); err != nil {
			return err
		}
	}
	for _, d := range st.Drafts {
		raw, _ := json.Marshal(d)
		orig := ""
		if d.OriginalID != nil {
			orig = strings.TrimSpace(*d.OriginalID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO drafts(id, original_id, created_at_unixms, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
			d.ID, orig, d.CreatedAt.UTC().UnixMilli(), string(raw), nowMs); err != nil {
			return err
		}
	}
	return nil
}

func migrateSQLiteState(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			folder_id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			thread_order INTEGER NOT NULL,
			title TEXT NOT NULL,
			starred INTEGER NOT NULL,
			pinned_at_unixms INTEGER,
			created_at_unixms INTEGER NOT NULL,
			tags_json TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_thread ON notes(thread_id, thread_order);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at_unixms);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title);`,
		`CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY,
			parent_id TEXT NOT NULL,
			name TEXT NOT NULL,
			is_home INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_note ON comments(note_id, created_at_unixms);`,
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			display_order INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sources_name ON sources(name);`,
		`CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			original_id TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_original ON drafts(original_id);`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_created ON drafts(created_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func loadStateFromSQLite(ctx context.Context, db *sql.DB) (*DB, error) {
	out := &DB{Version: 1}

	var v string
	_ = db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, "version").Scan(&v)
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		out.Version = n
	}

	if xs, err := readJSONRows[model.Note](ctx, db, `SELECT json FROM notes ORDER BY created_at_unixms`); err == nil {
		out.Notes = xs
	} else {
		return nil, err
	}
	if xs, err := readJSONRows[model.Folder](ctx, db, `SELECT json FROM folders`); err == nil {
		out.Folders = xs
	} else {
		return nil, err
	}
	if xs, err := readJSONRows[model.Comment](ctx, db, `SELECT json FROM comments ORDER BY created_at_unixms`); err == nil {
		out.Comments = xs
	} else {
		return nil, err
	}
	if xs, err := readJSONRows[model.Source](ctx, db, `SELECT json FROM sources ORDER BY display_order`); err == nil {
		out.Sources = xs
	} else {
		return nil, err
	}
	if xs, err := readJSONRows[model.Draft](ctx, db, `SELECT json FROM drafts ORDER BY created_at_unixms`); err == nil {
		out.Drafts = xs
	} else {
		return nil, err
	}

	// Nil slices become empty for stable callers.
	if out.Notes == nil {
		out.Notes = []model.Note{}
	}
	if out.Folders == nil {
		out.Folders = []model.Folder{}
	}
	if out.Comments == nil {
		out.Comments = []model.Comment{}
	}
	if out.Sources == nil {
		out.Sources = []model.Source{}
	}
	if out.Drafts == nil {
		out.Drafts = []model.Draft{}
	}
	return out, nil
}

func readJSONRows[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
