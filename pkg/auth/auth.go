// Package auth hashes and verifies account passwords.
//
// Hashes are stored as "<hex key>.<hex salt>" where the key is a 64 byte
// scrypt derivation (N=16384, r=8, p=1) of the password and salt.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	keyLen  = 64
	saltLen = 16

	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// ErrMalformedHash is returned by ComparePasswords for stored values that are
// not in "<hex key>.<hex salt>" form.
var ErrMalformedHash = errors.New("malformed password hash")

// HashPassword derives a storable hash from plaintext with a fresh random salt.
// It satisfies storage.PasswordHasher.
func HashPassword(plaintext string) (string, error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	key, err := derive(plaintext, salt)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + "." + salt, nil
}

// ComparePasswords reports whether supplied matches the stored hash.
func ComparePasswords(supplied, stored string) (bool, error) {
	hashHex, salt, ok := strings.Cut(stored, ".")
	if !ok || salt == "" {
		return false, ErrMalformedHash
	}

	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) != keyLen {
		return false, ErrMalformedHash
	}

	got, err := derive(supplied, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// The salt is used in its hex form, not decoded.
func derive(password, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}
