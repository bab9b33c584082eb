package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when the session token file is missing or empty.
var ErrNoToken = errors.New("no identity token")

// Claims carried by the identity token issued at sign-in.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenProvider reads a signed identity token from the session token file
// and validates it with the shared secret. The token subject is the uid.
type TokenProvider struct {
	path   string
	secret []byte

	mu     sync.Mutex
	cached *Identity
}

// NewTokenProvider creates a provider for the given token file and secret.
func NewTokenProvider(path string, secret []byte) *TokenProvider {
	return &TokenProvider{path: path, secret: secret}
}

// Current parses and validates the token, caching the result for the
// lifetime of the process. Expiry is enforced at parse time only: a daemon
// already running keeps its identity until restart.
func (p *TokenProvider) Current(_ context.Context) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return *p.cached, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Identity{}, ErrNoToken
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("parse identity token: %w", err)
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("identity token has no subject")
	}

	id := Identity{
		UID:         claims.Subject,
		Email:       strings.ToLower(claims.Email),
		DisplayName: claims.Name,
	}
	p.cached = &id
	return id, nil
}
