package middleware

import (
	"context"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
)

// HeaderNewToken carries a renewed credential back to the client.
const HeaderNewToken = "X-New-Token"

// Authenticator is the part of *goGate.Engine the guards need.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, opts goGate.AuthOptions) (*goGate.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result attached by Require or Optional.
func AuthResultFromContext(ctx context.Context) (*goGate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goGate.AuthResult)
	return res, ok && res != nil
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (goGate.User, bool) {
	res, ok := AuthResultFromContext(ctx)
	if !ok {
		return goGate.User{}, false
	}
	return res.User, true
}

// Require rejects requests without a valid bearer credential. Credentials close
// to expiry are renewed and the replacement is sent in X-New-Token.
func Require(auth Authenticator) func(http.Handler) http.Handler {
	return guard(auth, false)
}

// Optional attaches the identity when a credential is present and lets
// anonymous requests through. A credential that is present but rejected still
// fails the request.
func Optional(auth Authenticator) func(http.Handler) http.Handler {
	return guard(auth, true)
}

func guard(auth Authenticator, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				writeRejection(w, goGate.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok && optional {
				next.ServeHTTP(w, r)
				return
			}

			res, err := auth.Authenticate(r.Context(), token, goGate.AuthOptions{Renew: true})
			if err != nil {
				writeRejection(w, err)
				return
			}
			if res.NewToken != "" {
				w.Header().Set(HeaderNewToken, res.NewToken)
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
