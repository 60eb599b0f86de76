package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/wuwenbin0122/studybot/internal/auth"
)

func TestIssueAndVerifyToken(t *testing.T) {
	svc, err := auth.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	token, expiresAt, err := svc.IssueToken("u1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected expiry in the future, got %s", expiresAt)
	}

	subject, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if subject != "u1" {
		t.Fatalf("expected subject u1, got %s", subject)
	}
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	issuer, _ := auth.NewService("secret-a", time.Hour)
	verifier, _ := auth.NewService("secret-b", time.Hour)

	token, _, err := issuer.IssueToken("u1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := verifier.VerifyToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, err := verifier.VerifyToken("not-a-jwt"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected invalid token error for garbage, got %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := auth.NewService("  ", time.Hour); !errors.Is(err, auth.ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	svc, _ := auth.NewService("test-secret", time.Hour)
	if _, _, err := svc.IssueToken(""); !errors.Is(err, auth.ErrSubjectRequired) {
		t.Fatalf("expected ErrSubjectRequired, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  xyz ": "xyz",
		"Basic abc":    "",
		"":             "",
	}
	for header, want := range cases {
		if got := auth.BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
