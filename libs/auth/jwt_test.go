package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef-test"

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner(testSecret, "turnos-auth", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, exp, err := s.Sign("user-1", "recepcion@clinica.test", RoleStaff)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry should be in the future: %v", exp)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != RoleStaff || claims.Email != "recepcion@clinica.test" {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	other, _ := NewSigner("another-secret-value", "turnos-auth", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestVerifyRejectsExpiredAndWrongIssuer(t *testing.T) {
	s, _ := NewSigner(testSecret, "turnos-auth", time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	token, _, err := s.Sign("user-2", "", RoleAdmin)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := s.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	s2, _ := NewSigner(testSecret, "someone-else", time.Minute)
	s2.now = func() time.Time { return base }
	if _, err := s2.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected issuer mismatch to fail, got %v", err)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	s, _ := NewSigner(testSecret, "", time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.Verify(token); err == nil {
		t.Fatal("alg none must be rejected")
	}
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	if _, err := NewSigner("short", "", time.Hour); err == nil {
		t.Fatal("expected short secret error")
	}
}

func TestRequireRole(t *testing.T) {
	s, _ := NewSigner(testSecret, "", time.Hour)
	staffToken, _, _ := s.Sign("user-3", "", RoleStaff)

	var gotSub string
	h := RequireRole(s, RoleAdmin, RoleStaff)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFromContext(r.Context())
		gotSub = c.Subject
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + staffToken, http.StatusUnauthorized},
		{"ok", "Bearer " + staffToken, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/turnos", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
	if gotSub != "user-3" {
		t.Fatalf("claims not propagated, got %q", gotSub)
	}

	adminOnly := RequireRole(s, RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodPut, "/api/v1/turnos/horarios", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff on admin route, got %d", rec.Code)
	}
}
