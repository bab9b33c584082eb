package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func writeToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(signed+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTokenProviderCurrent(t *testing.T) {
	secret := []byte("test-secret")
	path := writeToken(t, secret, Claims{
		Email:            "Ann@X.com",
		Name:             "Ann Shrestha",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})

	p := NewTokenProvider(path, secret)
	id, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if id.UID != "u1" {
		t.Errorf("uid = %q, want u1", id.UID)
	}
	if id.Email != "ann@x.com" {
		t.Errorf("email = %q, want lowercased ann@x.com", id.Email)
	}
	if id.DisplayName != "Ann Shrestha" {
		t.Errorf("name = %q", id.DisplayName)
	}
}

func TestTokenProviderWrongSecret(t *testing.T) {
	path := writeToken(t, []byte("right"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})

	p := NewTokenProvider(path, []byte("wrong"))
	if _, err := p.Current(context.Background()); err == nil {
		t.Error("Current() expected error for bad signature")
	}
}

func TestTokenProviderMissingFile(t *testing.T) {
	p := NewTokenProvider(filepath.Join(t.TempDir(), "absent"), []byte("s"))
	_, err := p.Current(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Current() error = %v, want ErrNoToken", err)
	}
}

func TestTokenProviderNoSubject(t *testing.T) {
	secret := []byte("s")
	path := writeToken(t, secret, Claims{Email: "a@x.com"})

	p := NewTokenProvider(path, secret)
	if _, err := p.Current(context.Background()); err == nil {
		t.Error("Current() expected error for missing subject")
	}
}
