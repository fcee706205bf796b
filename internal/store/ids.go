package store

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32 (lowercase, no padding).
// 8 chars base32 ~= 40 bits (~1 trillion) of space.
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	suffix := strings.ToLower(enc.EncodeToString(b[:]))
	return prefix + "-" + suffix, nil
}

// NewThreadID returns an opaque thread identifier.
//
// Thread ids are UUIDs rather than prefix-ids so that threads formed on
// different devices never collide when backups are merged.
func NewThreadID() string {
	return uuid.NewString()
}

func idExists(db *DB, id string) bool {
	for _, n := range db.Notes {
		if n.ID == id {
			return true
		}
	}
	for _, f := range db.Folders {
		if f.ID == id {
			return true
		}
	}
	for _, c := range db.Comments {
		if c.ID == id {
			return true
		}
	}
	for _, s := range db.Sources {
		if s.ID == id {
			return true
		}
	}
	for _, d := range db.Drafts {
		if d.ID == id {
			return true
		}
	}
	return false
}
