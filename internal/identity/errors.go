package identity

import "errors"

var (
	// ErrInvalidInput marks an assertion rejected before any network call.
	ErrInvalidInput = errors.New("identity: invalid input")
	// ErrInvalidCredentials marks an explicit rejection by the backend.
	// The backend's own message travels alongside via RejectedError.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrServiceUnavailable marks a transport failure, timeout or
	// malformed response from the backend.
	ErrServiceUnavailable = errors.New("identity: backend unavailable")
	// ErrUnauthorized marks a session that lacks a usable backend token.
	ErrUnauthorized = errors.New("identity: unauthorized")
	// ErrMissingToken marks a request that required a session but
	// presented none.
	ErrMissingToken = errors.New("identity: missing session token")
)

// RejectedError carries the backend's rejection message verbatim so the
// sign-in form can surface it unchanged. It matches ErrInvalidCredentials
// under errors.Is.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrInvalidCredentials.Error()
	}
	return e.Message
}

func (e *RejectedError) Unwrap() error { return ErrInvalidCredentials }
