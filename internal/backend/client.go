// Package backend is the JSON client for the first-party REST backend that
// owns user records. It is the only component allowed to turn an identity
// assertion into a verified identity.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prepdeck/authbridge/internal/identity"
)

const (
	loginPath  = "/v1/auth/login"
	syncPath   = "/v1/auth/oauth-sync"
	healthPath = "/healthz"

	defaultTimeout = 10 * time.Second

	healthRetries      = 3
	healthRetryBackoff = 250 * time.Millisecond
)

// Client talks to the backend of record.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every outbound call. Calls that exceed it fail with
// identity.ErrServiceUnavailable rather than hanging.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New constructs a Client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Image string `json:"image,omitempty"`
}

type authResponse struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type syncRequest struct {
	ProviderSubjectID string `json:"providerSubjectId"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Image             string `json:"image,omitempty"`
}

// Login exchanges an email/password pair for a verified identity. The call
// is never retried: a duplicate submission could trip lockout policies on
// the backend side.
func (c *Client) Login(ctx context.Context, assertion identity.PasswordAssertion) (identity.Verified, error) {
	if err := assertion.Validate(); err != nil {
		return identity.Verified{}, err
	}
	body := loginRequest{
		Email:    strings.TrimSpace(strings.ToLower(assertion.Email)),
		Password: assertion.Password,
	}
	return c.postAuth(ctx, loginPath, body)
}

// SyncProfile finds or creates the backend user matching an external
// provider profile and returns the backend's identity for that person.
// Create is not idempotent, so this is never retried either.
func (c *Client) SyncProfile(ctx context.Context, assertion identity.ExternalProfileAssertion) (identity.Verified, error) {
	if err := assertion.Validate(); err != nil {
		return identity.Verified{}, err
	}
	body := syncRequest{
		ProviderSubjectID: assertion.Subject,
		Email:             strings.TrimSpace(strings.ToLower(assertion.Email)),
		Name:              assertion.Name,
		Image:             assertion.AvatarURL,
	}
	return c.postAuth(ctx, syncPath, body)
}

// Health pings the backend. The GET is idempotent, so a short bounded retry
// is applied before reporting the backend unreachable.
func (c *Client) Health(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < healthRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", identity.ErrServiceUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * healthRetryBackoff):
			}
		}
		lastErr = c.healthOnce(ctx)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Client) healthOnce(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", identity.ErrServiceUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", identity.ErrServiceUnavailable, err)
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", identity.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) postAuth(ctx context.Context, path string, body any) (identity.Verified, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return identity.Verified{}, fmt.Errorf("%w: encode request: %v", identity.ErrServiceUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return identity.Verified{}, fmt.Errorf("%w: %v", identity.ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return identity.Verified{}, fmt.Errorf("%w: %v", identity.ErrServiceUnavailable, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeVerified(resp.Body)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var rejection errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil || rejection.Message == "" {
			return identity.Verified{}, fmt.Errorf("%w: status %d without message", identity.ErrServiceUnavailable, resp.StatusCode)
		}
		return identity.Verified{}, &identity.RejectedError{Message: rejection.Message}
	}
	return identity.Verified{}, fmt.Errorf("%w: status %d", identity.ErrServiceUnavailable, resp.StatusCode)
}

func decodeVerified(r io.Reader) (identity.Verified, error) {
	var body authResponse
	dec := json.NewDecoder(r)
	if err := dec.Decode(&body); err != nil {
		return identity.Verified{}, fmt.Errorf("%w: decode response: %v", identity.ErrServiceUnavailable, err)
	}
	if strings.TrimSpace(body.User.ID) == "" || strings.TrimSpace(body.Token) == "" {
		return identity.Verified{}, fmt.Errorf("%w: response missing user id or token", identity.ErrServiceUnavailable)
	}
	return identity.Verified{
		UserID:       body.User.ID,
		Name:         body.User.Name,
		Email:        body.User.Email,
		AvatarURL:    body.User.Image,
		Role:         identity.ParseRole(body.User.Role),
		BackendToken: body.Token,
	}, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
