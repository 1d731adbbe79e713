// Package auth guards cache administration endpoints with a static bearer token.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	papertrail "github.com/eugener/papertrail/internal"
)

// TokenAuth validates "Authorization: Bearer <token>" headers.
// Only the SHA-256 of the configured token is kept in memory.
type TokenAuth struct {
	hash [sha256.Size]byte
}

// NewTokenAuth returns an authenticator for token, or nil when token is
// empty (administration left open).
func NewTokenAuth(token string) *TokenAuth {
	if token == "" {
		return nil
	}
	return &TokenAuth{hash: sha256.Sum256([]byte(token))}
}

// Authenticate returns ErrUnauthorized unless r carries the configured token.
func (a *TokenAuth) Authenticate(r *http.Request) error {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return papertrail.ErrUnauthorized
	}
	got := sha256.Sum256([]byte(raw))
	if subtle.ConstantTimeCompare(got[:], a.hash[:]) != 1 {
		return papertrail.ErrUnauthorized
	}
	return nil
}
