// Package httpapi is the HTTP surface of the session bridge.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prepdeck/authbridge/internal/backend"
	"github.com/prepdeck/authbridge/internal/obs"
	"github.com/prepdeck/authbridge/internal/oidc"
	"github.com/prepdeck/authbridge/internal/session"
)

// ReadyProbe reports whether the backend of record is reachable.
type ReadyProbe struct {
	Backend *backend.Client
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Backend == nil {
		return nil
	}
	return rp.Backend.Health(ctx)
}

// API wires handlers, middleware and dependencies.
type API struct {
	mux      *http.ServeMux
	backend  *backend.Client
	issuer   *session.Issuer
	codec    *session.Codec
	provider *oidc.Provider // nil disables the external sign-in path
	probe    ReadyProbe
	limiter  *signinLimiter
	origins  []string
	version  string
}

// Option configures the API.
type Option func(*API)

// WithProvider enables the external OIDC sign-in path.
func WithProvider(p *oidc.Provider) Option {
	return func(a *API) { a.provider = p }
}

// WithSigninRate overrides the per-IP sign-in rate limit.
func WithSigninRate(burst, perSec int) Option {
	return func(a *API) { a.limiter = newSigninLimiter(burst, perSec) }
}

// WithAllowedOrigins sets the CORS origin allowlist.
func WithAllowedOrigins(origins []string) Option {
	return func(a *API) { a.origins = origins }
}

// New constructs the API.
func New(bc *backend.Client, issuer *session.Issuer, codec *session.Codec, version string, opts ...Option) *API {
	a := &API{
		mux:     http.NewServeMux(),
		backend: bc,
		issuer:  issuer,
		codec:   codec,
		probe:   ReadyProbe{Backend: bc},
		limiter: newSigninLimiter(0, 0),
		version: version,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/v1/session", a.handleSession)
	a.mux.HandleFunc("/v1/oauth/login", a.handleOAuthLogin)
	a.mux.HandleFunc("/v1/oauth/callback", a.handleOAuthCallback)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withSession(h)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authbridge",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.probe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
