package goGate

import (
	"errors"
	"net/http"
)

// Machine-readable rejection codes.
const (
	CodeTokenRequired        = "TOKEN_REQUIRED"
	CodeTokenRevoked         = "TOKEN_REVOKED"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeAccountDeactivated   = "ACCOUNT_DEACTIVATED"
	CodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeInsufficientRole     = "INSUFFICIENT_ROLE"
	CodeOwnerRequired        = "OWNER_REQUIRED"
	CodeLoginRateLimited     = "LOGIN_RATE_LIMITED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeDirectoryUnavailable = "DIRECTORY_UNAVAILABLE"
)

// Rejection is a request-terminal failure with an HTTP status and a stable code.
// Message is safe to show to clients; it never carries internal detail.
type Rejection struct {
	Status  int
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Is matches any *Rejection with the same Code, so the sentinels below work with
// errors.Is regardless of message.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Code == r.Code
}

var (
	ErrTokenRequired        = &Rejection{Status: http.StatusUnauthorized, Code: CodeTokenRequired, Message: "Access token required"}
	ErrTokenRevoked         = &Rejection{Status: http.StatusUnauthorized, Code: CodeTokenRevoked, Message: "Token has been revoked"}
	ErrTokenExpired         = &Rejection{Status: http.StatusUnauthorized, Code: CodeTokenExpired, Message: "Token has expired"}
	ErrInvalidToken         = &Rejection{Status: http.StatusUnauthorized, Code: CodeInvalidToken, Message: "Invalid token"}
	ErrUserNotFound         = &Rejection{Status: http.StatusUnauthorized, Code: CodeUserNotFound, Message: "User not found"}
	ErrAccountDeactivated   = &Rejection{Status: http.StatusUnauthorized, Code: CodeAccountDeactivated, Message: "Account is deactivated"}
	ErrEmailNotVerified     = &Rejection{Status: http.StatusForbidden, Code: CodeEmailNotVerified, Message: "Email verification required"}
	ErrAccessDenied         = &Rejection{Status: http.StatusForbidden, Code: CodeAccessDenied, Message: "Access denied"}
	ErrInsufficientRole     = &Rejection{Status: http.StatusForbidden, Code: CodeInsufficientRole, Message: "Insufficient role"}
	ErrOwnerRequired        = &Rejection{Status: http.StatusBadRequest, Code: CodeOwnerRequired, Message: "Resource owner identifier required"}
	ErrLoginRateLimited     = &Rejection{Status: http.StatusTooManyRequests, Code: CodeLoginRateLimited, Message: "Too many login attempts"}
	ErrInvalidCredentials   = &Rejection{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "Invalid email or password"}
	ErrDirectoryUnavailable = &Rejection{Status: http.StatusServiceUnavailable, Code: CodeDirectoryUnavailable, Message: "Service temporarily unavailable"}
)

var (
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrDirectoryRequired is returned by Build without a user directory.
	ErrDirectoryRequired = errors.New("user directory required")
	// ErrRevocationUnavailable is returned by Build when Security.RequireRevocation
	// is set and the cache failed its startup probe.
	ErrRevocationUnavailable = errors.New("revocation required but cache is unavailable")
	// ErrInvalidUser is returned by Issue for a user without an id.
	ErrInvalidUser = errors.New("user id is required")
)

// RejectionOf extracts the *Rejection in err's chain.
func RejectionOf(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
