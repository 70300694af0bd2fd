package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const rawTokenBytes = 32

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewRawToken returns rawTokenBytes random bytes, hex encoded.
func NewRawToken() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
