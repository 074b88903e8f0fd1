package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gosimple/slug"
)

// NewSecretToken returns a random 32-byte hex token and its SHA-256 digest.
// Only the digest is stored; the raw token goes out by email.
func NewSecretToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Slugify derives the URL slug of a tour name.
func Slugify(name string) string {
	return slug.Make(name)
}
