package middleware

import (
	"net/http"
	"slices"

	goGate "github.com/MrEthical07/goGate"
)

// RequireVerified admits users whose email is verified. It must run after
// Require.
func RequireVerified() func(http.Handler) http.Handler {
	return policy(func(r *http.Request, u goGate.User) error {
		if !u.Verified {
			return goGate.ErrEmailNotVerified
		}
		return nil
	})
}

// RequireOwnership admits a request only when the named path value (or, when
// the route has none, query parameter) equals the authenticated user's id.
func RequireOwnership(param string) func(http.Handler) http.Handler {
	return policy(func(r *http.Request, u goGate.User) error {
		owner := r.PathValue(param)
		if owner == "" {
			owner = r.URL.Query().Get(param)
		}
		if owner == "" {
			return goGate.ErrOwnerRequired
		}
		if owner != u.ID {
			return goGate.ErrAccessDenied
		}
		return nil
	})
}

// RequireRole admits users holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return policy(func(r *http.Request, u goGate.User) error {
		if !slices.Contains(roles, u.Role) {
			return goGate.ErrInsufficientRole
		}
		return nil
	})
}

func policy(check func(*http.Request, goGate.User) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				writeRejection(w, goGate.ErrTokenRequired)
				return
			}
			if err := check(r, u); err != nil {
				writeRejection(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
