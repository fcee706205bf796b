// Package backup implements export/import of workspace state and the
// dedup-merge of an imported payload into the local store.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"memoline-cli/internal/model"
	"memoline-cli/internal/store"
)

// PayloadVersion is the current export format version.
const PayloadVersion = 1

// Payload is the plaintext export format. Notes travel under the legacy
// "logs" key and sources under "sources"; folders are deliberately not
// part of the format, so imported notes land in the home folder.
type Payload struct {
	Version   int             `json:"version"`
	Timestamp string          `json:"timestamp"`
	Logs      []model.Note    `json:"logs"`
	Sources   []model.Source  `json:"sources"`
	Comments  []model.Comment `json:"comments"`
}

// envelope wraps an encrypted payload on disk.
type envelope struct {
	Version          int    `json:"version"`
	IsEncrypted      bool   `json:"isEncrypted"`
	EncryptedContent string `json:"encryptedContent"`
}

// ExportOptions narrows a partial export. Zero value exports everything.
type ExportOptions struct {
	// FolderID limits notes to one folder (not its subtree).
	FolderID string
	// StarredOnly keeps only starred notes.
	StarredOnly bool
	// NoteIDs, when non-empty, limits the export to exactly these notes.
	NoteIDs []string
}

// BuildPayload snapshots the store into an export payload. Comments follow
// their notes; sources are always complete so references stay resolvable.
func BuildPayload(db *store.DB, opts ExportOptions, now time.Time) Payload {
	p := Payload{
		Version:   PayloadVersion,
		Timestamp: now.UTC().Format(time.RFC3339),
		Logs:      []model.Note{},
		Sources:   append([]model.Source{}, db.Sources...),
		Comments:  []model.Comment{},
	}
	wanted := map[string]bool{}
	for _, id := range opts.NoteIDs {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = true
		}
	}

	included := map[string]bool{}
	for _, n := range db.Notes {
		if len(wanted) > 0 && !wanted[n.ID] {
			continue
		}
		if opts.FolderID != "" {
			if n.FolderID == nil || *n.FolderID != opts.FolderID {
				continue
			}
		}
		if opts.StarredOnly && !n.Starred {
			continue
		}
		p.Logs = append(p.Logs, n)
		included[n.ID] = true
	}
	for _, c := range db.Comments {
		if included[c.NoteID] {
			p.Comments = append(p.Comments, c)
		}
	}
	return p
}

// WriteFile writes the payload to path, optionally sealed with a password.
func WriteFile(path string, p Payload, password string) error {
	plain, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	out := plain
	if password != "" {
		sealed, err := Encrypt(plain, password)
		if err != nil {
			return err
		}
		out, err = json.MarshalIndent(envelope{
			Version:          p.Version,
			IsEncrypted:      true,
			EncryptedContent: sealed,
		}, "", "  ")
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o600)
}

// ErrPasswordRequired distinguishes "this file is encrypted" from a
// malformed file so the caller can prompt.
var ErrPasswordRequired = errors.New("backup is encrypted; password required")

// ReadFile loads a payload from path, unwrapping the encryption envelope
// when present.
func ReadFile(path, password string) (Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, err
	}
	return Parse(raw, password)
}

// Parse decodes an export payload from raw bytes.
func Parse(raw []byte, password string) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.IsEncrypted {
		if password == "" {
			return Payload{}, ErrPasswordRequired
		}
		plain, err := Decrypt(env.EncryptedContent, password)
		if err != nil {
			return Payload{}, err
		}
		raw = plain
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("malformed backup: %w", err)
	}
	if err := validate(p); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// validate rejects structurally broken payloads before any merge work
// starts; a failed import must leave zero partial writes.
func validate(p Payload) error {
	if p.Version < 1 {
		return errors.New("malformed backup: missing version")
	}
	for _, n := range p.Logs {
		if strings.TrimSpace(n.ID) == "" {
			return errors.New("malformed backup: note without id")
		}
	}
	for _, s := range p.Sources {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Name) == "" {
			return errors.New("malformed backup: source without id/name")
		}
	}
	for _, c := range p.Comments {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.NoteID) == "" {
			return errors.New("malformed backup: comment without id/noteId")
		}
	}
	return nil
}
