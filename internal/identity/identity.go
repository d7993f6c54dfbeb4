// Package identity defines the assertion and verified-identity types shared
// by the sign-in paths. An assertion is unverified proof presented at
// sign-in; a Verified identity is the backend-authoritative result of
// checking one. Assertions are transient and never persisted.
package identity

import "strings"

// Role is the closed set of permission levels the backend assigns to users.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a backend-reported role. Unknown or empty values
// collapse to RoleUser so a malformed backend response can never widen
// permissions.
func ParseRole(raw string) Role {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// PasswordAssertion is an email/password pair submitted at the sign-in form.
type PasswordAssertion struct {
	Email    string
	Password string
}

// Validate rejects structurally incomplete assertions before any network
// call is made.
func (a PasswordAssertion) Validate() error {
	if strings.TrimSpace(a.Email) == "" || a.Password == "" {
		return ErrInvalidInput
	}
	return nil
}

// ExternalProfileAssertion is the profile returned by a completed identity
// provider handshake. Subject is the provider-scoped identifier ("sub") and
// must never be used as an internal user id.
type ExternalProfileAssertion struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// Validate ensures the provider returned the claims the backend sync
// endpoint requires.
func (a ExternalProfileAssertion) Validate() error {
	if strings.TrimSpace(a.Subject) == "" || strings.TrimSpace(a.Email) == "" {
		return ErrInvalidInput
	}
	return nil
}

// Verified is the normalized identity produced after a successful check
// against the backend of record. UserID is always the backend's own
// identifier, regardless of which sign-in path produced it, so ownership
// checks elsewhere stay correct. BackendToken is the opaque credential
// replayed on later backend calls.
type Verified struct {
	UserID       string
	Name         string
	Email        string
	AvatarURL    string
	Role         Role
	BackendToken string
}
