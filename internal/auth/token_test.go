package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, err := NewTokenService("test-secret", WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	user := &User{ID: "user-1", Role: RoleLawyer}
	token, expiresAt, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(24 * time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Role != RoleLawyer {
		t.Fatalf("role = %q, want lawyer", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id claim")
	}
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, err := NewTokenService("test-secret", WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := svc.Issue(&User{ID: "user-1", Role: RoleClient})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(24*time.Hour + time.Minute)
	if _, err := svc.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Verify after expiry = %v, want ErrExpiredToken", err)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokenService("secret-a")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	verifier, err := NewTokenService("secret-b")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := issuer.Issue(&User{ID: "user-1", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	for _, token := range []string{"", "   ", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestTokenRejectsForeignIssuer(t *testing.T) {
	issuer, err := NewTokenService("test-secret", WithIssuer("other-app"))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	verifier, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := issuer.Issue(&User{ID: "user-1", Role: RoleClient})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify with foreign issuer = %v, want ErrInvalidToken", err)
	}
}

func TestTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestTokenTTLOverride(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, err := NewTokenService("test-secret",
		WithTokenTTL(15*time.Minute),
		WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	if svc.TTL() != 15*time.Minute {
		t.Fatalf("TTL = %v, want 15m", svc.TTL())
	}

	token, expiresAt, err := svc.Issue(&User{ID: "user-1", Role: RoleClient})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(15 * time.Minute); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}

	now = now.Add(16 * time.Minute)
	if _, err := svc.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Verify after short TTL = %v, want ErrExpiredToken", err)
	}
}
