package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidPassword reports a decryption failure on a well-formed
// envelope; callers re-prompt instead of treating the file as corrupt.
var ErrInvalidPassword = errors.New("invalid password")

const (
	pbkdf2Iterations = 100_000
	saltLen          = 16
	nonceLen         = 12
	keyLen           = 32
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
}

// Encrypt seals the plaintext with a password-derived AES-256-GCM key and
// returns base64(salt || nonce || ciphertext).
func Encrypt(plaintext []byte, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	buf := make([]byte, 0, saltLen+nonceLen+len(sealed))
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt. A failed GCM open is reported as
// ErrInvalidPassword: with an authenticated cipher a bad password and a
// tampered payload are indistinguishable, and the password is the likely
// cause.
func Decrypt(envelope, password string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("malformed encrypted payload: %w", err)
	}
	if len(raw) < saltLen+nonceLen+1 {
		return nil, errors.New("malformed encrypted payload: too short")
	}
	salt := raw[:saltLen]
	nonce := raw[saltLen : saltLen+nonceLen]
	sealed := raw[saltLen+nonceLen:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}
