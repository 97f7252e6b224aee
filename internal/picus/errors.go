package picus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the token lifecycle. Callers match with errors.Is.
var (
	// ErrInvalidRecord means a loaded record has no refresh token or still
	// carries the placeholder value.
	ErrInvalidRecord = errors.New("record has no usable refresh token")

	// ErrNoRefreshToken means authenticate was attempted without a usable
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrNoAccessToken means probe was attempted without an access token.
	ErrNoAccessToken = errors.New("no access token available")

	// ErrNoAccessTokenReturned means the auth endpoint answered 2xx but the
	// response carried no token.
	ErrNoAccessTokenReturned = errors.New("authentication response contained no access token")

	// ErrTimeout means a request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrConnectionFailed means the endpoint could not be reached at all.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrTokenExpiredOrInvalid means the probe was rejected with 401.
	ErrTokenExpiredOrInvalid = errors.New("access token expired or invalid")

	// ErrInsufficientPermission means the probe was rejected with 403.
	ErrInsufficientPermission = errors.New("insufficient permission for endpoint")
)

// AuthError is returned for non-2xx responses from the token endpoint. The
// status and body are kept for user-facing guidance: 401 usually means the
// refresh token is invalid or expired, 403 means it lacks permission.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected with status %d: %s", e.StatusCode, e.Body)
}

// ProbeError is returned for non-2xx probe responses other than 401/403.
type ProbeError struct {
	StatusCode int
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe rejected with status %d", e.StatusCode)
}
