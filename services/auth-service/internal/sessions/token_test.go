package sessions

import (
	"testing"
	"time"
)

func TestNewRawTokenIsRandomHex(t *testing.T) {
	a, err := NewRawToken()
	if err != nil {
		t.Fatalf("NewRawToken: %v", err)
	}
	b, _ := NewRawToken()
	if len(a) != 2*rawTokenBytes || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("hash must be deterministic and distinguish inputs")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatalf("expected hex sha256, got %q", HashToken("abc"))
	}
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.Usable(now) {
		t.Fatal("fresh token should be usable")
	}
	if tok.Usable(now.Add(2 * time.Hour)) {
		t.Fatal("expired token should not be usable")
	}
	tok.RevokedAt = &now
	if tok.Usable(now) {
		t.Fatal("revoked token should not be usable")
	}
}
