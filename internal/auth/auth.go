// Package auth resolves API tokens to users for the HTTP layer.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// Authenticator resolves a request credential to a user id. Implementations
// return core.ErrUnauthorized for unknown or missing credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (storage.User, error)
}

// UserStore is the lookup the token authenticator needs.
type UserStore interface {
	GetUserByToken(ctx context.Context, token string) (storage.User, error)
}

// TokenAuthenticator authenticates bearer tokens against the user table.
type TokenAuthenticator struct {
	users UserStore
}

func NewTokenAuthenticator(users UserStore) *TokenAuthenticator {
	return &TokenAuthenticator{users: users}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context, r *http.Request) (storage.User, error) {
	token := BearerToken(r)
	if token == "" {
		return storage.User{}, core.ErrUnauthorized
	}
	user, err := a.users.GetUserByToken(ctx, token)
	if err != nil {
		return storage.User{}, err
	}
	// the stored token must match the presented one byte for byte,
	// independent of column collation
	if subtle.ConstantTimeCompare([]byte(user.APIToken), []byte(token)) != 1 {
		return storage.User{}, core.ErrUnauthorized
	}
	return user, nil
}

// BearerToken extracts the token from the Authorization header. The scheme
// comparison is case-insensitive per RFC 7235.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
