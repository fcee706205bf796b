package backup

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

func exportDB() *store.DB {
	fid := "fld-work"
	return &store.DB{
		Notes: []model.Note{
			{ID: "note-1", Title: "A", CreatedAt: base, FolderID: &fid, Starred: true},
			{ID: "note-2", Title: "B", CreatedAt: base},
		},
		Sources:  []model.Source{{ID: "src-1", Name: "Books"}},
		Comments: []model.Comment{{ID: "cmt-1", NoteID: "note-1", Content: "hi", CreatedAt: base}},
	}
}

func TestBuildPayload_PartialExport(t *testing.T) {
	db := exportDB()

	p := BuildPayload(db, ExportOptions{FolderID: "fld-work"}, base)
	if len(p.Logs) != 1 || p.Logs[0].ID != "note-1" {
		t.Fatalf("folder export logs = %+v", p.Logs)
	}
	// Comments of excluded notes stay out; sources always travel whole.
	if len(p.Comments) != 1 || len(p.Sources) != 1 {
		t.Fatalf("comments=%d sources=%d", len(p.Comments), len(p.Sources))
	}

	p = BuildPayload(db, ExportOptions{StarredOnly: true}, base)
	if len(p.Logs) != 1 || p.Logs[0].ID != "note-1" {
		t.Fatalf("starred export logs = %+v", p.Logs)
	}
}

func TestWriteRead_PlaintextRoundTrip(t *testing.T) {
	db := exportDB()
	path := filepath.Join(t.TempDir(), "backup.json")

	if err := WriteFile(path, BuildPayload(db, ExportOptions{}, base), ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := ReadFile(path, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.Version != PayloadVersion || len(p.Logs) != 2 || len(p.Comments) != 1 {
		t.Fatalf("round trip payload = %+v", p)
	}
	if p.Timestamp != base.Format(time.RFC3339) {
		t.Fatalf("timestamp = %q", p.Timestamp)
	}
}

func TestWriteRead_EncryptedRoundTrip(t *testing.T) {
	db := exportDB()
	path := filepath.Join(t.TempDir(), "backup.json")

	if err := WriteFile(path, BuildPayload(db, ExportOptions{}, base), "hunter2"); err != nil {
		t.Fatalf("write: %v", err)
	}

	// No password: the caller is told to prompt, not that the file is bad.
	if _, err := ReadFile(path, ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("err = %v, want ErrPasswordRequired", err)
	}
	// Wrong password: distinguishable from a malformed file.
	if _, err := ReadFile(path, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("err = %v, want ErrInvalidPassword", err)
	}

	p, err := ReadFile(path, "hunter2")
	if err != nil {
		t.Fatalf("read with password: %v", err)
	}
	if len(p.Logs) != 2 {
		t.Fatalf("decrypted logs = %d, want 2", len(p.Logs))
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	if _, err := Parse([]byte(`{"logs": [{}]}`), ""); err == nil {
		t.Fatalf("payload without version accepted")
	}
	if _, err := Parse([]byte(`not json`), ""); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt([]byte("secret body"), "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	plain, err := Decrypt(sealed, "pw")
	if err != nil || string(plain) != "secret body" {
		t.Fatalf("decrypt: %q err=%v", plain, err)
	}
	if _, err := Decrypt(sealed, "other"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password err = %v", err)
	}
	// Same plaintext never produces the same envelope (fresh salt/nonce).
	again, _ := Encrypt([]byte("secret body"), "pw")
	if again == sealed {
		t.Fatalf("envelope is deterministic")
	}
}
