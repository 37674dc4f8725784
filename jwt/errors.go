package jwt

import (
	"errors"
	"fmt"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// ErrorKind is the closed set of credential failure categories.
type ErrorKind int

const (
	// KindNone is returned by KindOf for nil or foreign errors.
	KindNone ErrorKind = iota
	// KindExpired means the signature and bindings are valid but exp has passed.
	KindExpired
	// KindInvalidSignature covers malformed tokens, bad signatures and unexpected algorithms.
	KindInvalidSignature
	// KindAudienceMismatch means issuer or audience do not match the configured binding.
	KindAudienceMismatch
	// KindUnrefreshable is returned by Refresh when the old token cannot be trusted.
	KindUnrefreshable
)

func (k ErrorKind) String() string {
	switch k {
	case KindExpired:
		return "expired"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindAudienceMismatch:
		return "audience_mismatch"
	case KindUnrefreshable:
		return "unrefreshable"
	default:
		return "none"
	}
}

// Error carries a failure kind and the underlying parser error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "credential " + e.Kind.String()
	}
	return fmt.Sprintf("credential %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

var (
	ErrExpired          = &Error{Kind: KindExpired}
	ErrInvalidSignature = &Error{Kind: KindInvalidSignature}
	ErrAudienceMismatch = &Error{Kind: KindAudienceMismatch}
	ErrUnrefreshable    = &Error{Kind: KindUnrefreshable}
)

// KindOf extracts the ErrorKind from err, or KindNone.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

func newError(kind ErrorKind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// classify maps golang-jwt parse failures onto the closed kind set. Binding
// mismatches win over expiry: an expired token from another issuer is foreign
// first.
func classify(err error) error {
	switch {
	case errors.Is(err, gjwt.ErrTokenMalformed),
		errors.Is(err, gjwt.ErrTokenSignatureInvalid),
		errors.Is(err, gjwt.ErrTokenUnverifiable):
		return newError(KindInvalidSignature, err)
	case errors.Is(err, gjwt.ErrTokenInvalidIssuer),
		errors.Is(err, gjwt.ErrTokenInvalidAudience):
		return newError(KindAudienceMismatch, err)
	case errors.Is(err, gjwt.ErrTokenExpired):
		return newError(KindExpired, err)
	default:
		return newError(KindInvalidSignature, err)
	}
}
