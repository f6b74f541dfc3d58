// Package tokenstore persists the last successful login response per
// account so process restarts can skip a fresh login until the token
// expires.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no cached login exists for an account.
var ErrNotFound = errors.New("no cached login for account")

// Record is the cached login response for one account.
type Record struct {
	Email     string    `json:"email"`
	UserID    string    `json:"user_id"`
	Nickname  string    `json:"nick_name,omitempty"`
	Country   string    `json:"country,omitempty"`
	Token     string    `json:"auth_token"`
	GToken    string    `json:"gtoken"`
	ExpiresAt time.Time `json:"token_expires_at"`
	SavedAt   time.Time `json:"saved_at"`
}

// Valid reports whether the cached token is still usable at the given time
// with the given safety margin before expiry.
func (r Record) Valid(now time.Time, margin time.Duration) bool {
	return r.Token != "" && now.Add(margin).Before(r.ExpiresAt)
}

// Store is the persistence boundary for cached logins. Fingerprint lets the
// session detect the cache changing out from under its in-memory token.
type Store interface {
	Load(ctx context.Context, account string) (Record, error)
	Save(ctx context.Context, account string, rec Record) error
	Delete(ctx context.Context, account string) error
	Fingerprint(account string) string
}
