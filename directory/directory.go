// Package directory defines the user source of truth consulted by the session gate
// on cache misses and at login.
package directory

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when no user matches the lookup key.
var ErrNotFound = errors.New("directory: user not found")

// User is the directory record. PasswordHash is only read by login.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	Verified     bool
	Active       bool
}

// Directory looks users up by identifier or email. Implementations return
// ErrNotFound for a missing user and a wrapped error for infrastructure failures.
type Directory interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// NormalizeEmail is the canonical form used for email lookups and keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
