package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", 0)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if issuer.TTL() != 7*24*time.Hour {
		t.Fatalf("default ttl = %v", issuer.TTL())
	}

	now := time.Now()
	token, expiresAt, err := issuer.Issue("user-1", "田中太郎", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got := expiresAt.Sub(now.UTC()); got != 7*24*time.Hour {
		t.Fatalf("expiry offset = %v", got)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Name != "田中太郎" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestIssueUniquePerCall(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Hour)

	// Two logins in the same second must still yield distinct tokens, or
	// replacing the session row would leave the older token usable.
	now := time.Now()
	first, _, err := issuer.Issue("user-1", "x", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, _, err := issuer.Issue("user-1", "x", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatalf("same-second tokens are identical")
	}
	if HashToken(first) == HashToken(second) {
		t.Fatalf("session hashes collide")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret-a", time.Hour)
	other, _ := NewTokenIssuer("secret-b", time.Hour)

	token, _, err := issuer.Issue("user-1", "x", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Minute)
	token, _, err := issuer.Issue("user-1", "x", time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Minute)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := issuer.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestHashTokenIsStableAndOpaque(t *testing.T) {
	h1 := HashToken("token")
	h2 := HashToken("token")
	if h1 != h2 {
		t.Fatalf("hash not deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(h1))
	}
	if HashToken("other") == h1 {
		t.Fatalf("distinct tokens collide")
	}
}
