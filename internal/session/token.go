// Package session owns the signed, time-limited session token and its
// projection into the request-scoped view consumed by application code.
// No other package constructs tokens directly.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prepdeck/authbridge/internal/identity"
)

const (
	defaultIssuer = "authbridge"
	defaultMaxAge = 30 * 24 * time.Hour

	minSecretLen = 32
	clockSkew    = 5 * time.Second
)

// ErrInvalidToken indicates the token failed signature or claim validation.
var ErrInvalidToken = errors.New("session: invalid token")

// Token is the durable encoding of a verified identity plus an expiry.
// Unknown claim fields are rejected at the JSON layer; nothing is bolted on
// at runtime.
type Token struct {
	Role         string `json:"role"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	BackendToken string `json:"backend_token,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs, refreshes and validates session tokens with HS256.
type Issuer struct {
	secret []byte
	issuer string
	maxAge time.Duration
	now    func() time.Time
}

// IssuerOption configures Issuer behavior.
type IssuerOption func(*Issuer)

// WithIssuerName overrides the iss claim.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		if strings.TrimSpace(name) != "" {
			i.issuer = strings.TrimSpace(name)
		}
	}
}

// WithMaxAge configures the session lifetime.
func WithMaxAge(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		if d > 0 {
			i.maxAge = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer from the session-signing secret.
func NewIssuer(secret string, opts ...IssuerOption) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("session: signing secret must be at least %d bytes", minSecretLen)
	}
	iss := &Issuer{
		secret: []byte(secret),
		issuer: defaultIssuer,
		maxAge: defaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// MaxAge reports the configured session lifetime.
func (i *Issuer) MaxAge() time.Duration { return i.maxAge }

// Issue mints a fresh token from a verified identity. Every identity field
// is copied from the single verification result; nothing else contributes.
func (i *Issuer) Issue(v identity.Verified) (*Token, error) {
	if strings.TrimSpace(v.UserID) == "" {
		return nil, fmt.Errorf("session: verified identity missing user id")
	}
	now := i.now().UTC()
	return &Token{
		Role:         string(v.Role),
		Name:         v.Name,
		Email:        v.Email,
		AvatarURL:    v.AvatarURL,
		BackendToken: v.BackendToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   v.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.maxAge)),
			ID:        uuid.NewString(),
		},
	}, nil
}

// Embed decides which token a request carries forward. A fresh verified
// identity (initial sign-in) mints a new token; otherwise the existing
// token passes through untouched. Fields from two different verifications
// are never combined.
func (i *Issuer) Embed(verified *identity.Verified, existing *Token) (*Token, error) {
	if verified != nil {
		return i.Issue(*verified)
	}
	if existing == nil {
		return nil, identity.ErrMissingToken
	}
	return existing, nil
}

// Refresh re-issues an equivalent token with an extended expiry. Identity
// fields are copied verbatim from the presented token; only iat, exp and
// jti change.
func (i *Issuer) Refresh(t *Token) (*Token, error) {
	if t == nil {
		return nil, identity.ErrMissingToken
	}
	now := i.now().UTC()
	next := *t
	next.IssuedAt = jwt.NewNumericDate(now)
	next.ExpiresAt = jwt.NewNumericDate(now.Add(i.maxAge))
	next.ID = uuid.NewString()
	return &next, nil
}

// Sign serializes the token into its signed wire form.
func (i *Issuer) Sign(t *Token) (string, error) {
	if t == nil {
		return "", identity.ErrMissingToken
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, t).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// ParseAndValidate verifies the signature and required claims.
func (i *Issuer) ParseAndValidate(signed string) (*Token, error) {
	signed = strings.TrimSpace(signed)
	if signed == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(signed, &Token{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	token, ok := parsed.Claims.(*Token)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := i.validate(token); err != nil {
		return nil, ErrInvalidToken
	}
	return token, nil
}

func (i *Issuer) validate(t *Token) error {
	if t.Issuer != i.issuer {
		return fmt.Errorf("unexpected issuer: %s", t.Issuer)
	}
	if strings.TrimSpace(t.Subject) == "" {
		return errors.New("subject missing")
	}
	if t.ExpiresAt == nil || t.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := i.now().UTC()
	if now.After(t.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	if t.IssuedAt.Time.After(now.Add(clockSkew)) {
		return errors.New("token issued in the future")
	}
	if t.ExpiresAt.Time.Before(t.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
