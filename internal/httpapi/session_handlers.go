package httpapi

import (
	"errors"
	"net/http"

	"github.com/prepdeck/authbridge/internal/audit"
	"github.com/prepdeck/authbridge/internal/identity"
	"github.com/prepdeck/authbridge/internal/obs"
	"github.com/prepdeck/authbridge/internal/session"
)

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.signin(w, r)
	case http.MethodGet:
		a.currentSession(w, r)
	case http.MethodDelete:
		a.signout(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet, http.MethodDelete)
	}
}

// signin is the password path: assertion -> backend verification -> token.
func (a *API) signin(w http.ResponseWriter, r *http.Request) {
	if !a.limiter.allow(r) {
		tooManyRequests(w, r)
		return
	}

	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	assertion := identity.PasswordAssertion{Email: req.Email, Password: req.Password}
	if err := assertion.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	verified, err := a.backend.Login(r.Context(), assertion)
	if err != nil {
		a.rejectSignin(w, r, "password", err)
		return
	}

	a.establishSession(w, r, "password", verified)
}

func (a *API) currentSession(w http.ResponseWriter, r *http.Request) {
	view, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) signout(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.ViewFromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), "session.revoked", nil)
	}
	a.codec.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// establishSession mints a token from a single verified identity, sets the
// cookie and returns the materialized view. Shared by both sign-in paths.
func (a *API) establishSession(w http.ResponseWriter, r *http.Request, method string, verified identity.Verified) {
	token, err := a.issuer.Embed(&verified, nil)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session error")
		return
	}
	signed, err := a.issuer.Sign(token)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session error")
		return
	}
	if err := a.codec.Set(w, signed, token.ExpiresAt.Time); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session error")
		return
	}

	view, err := session.Materialize(token)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session error")
		return
	}

	obs.ObserveSignin(method, "success")
	obs.ObserveSessionIssued()
	_ = audit.LogEvent(r.Context(), "session.issued", map[string]any{
		"method":  method,
		"user_id": view.User.ID,
	})

	writeJSON(w, http.StatusCreated, view)
}

// rejectSignin maps verification errors onto responses. Backend rejection
// messages pass through verbatim; transport detail never does.
func (a *API) rejectSignin(w http.ResponseWriter, r *http.Request, method string, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		obs.ObserveSignin(method, "rejected")
		writeError(w, r, http.StatusBadRequest, "email and password are required")
	case errors.Is(err, identity.ErrInvalidCredentials):
		obs.ObserveSignin(method, "rejected")
		_ = audit.LogEvent(r.Context(), "signin.rejected", map[string]any{"method": method})
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrServiceUnavailable):
		obs.ObserveSignin(method, "unavailable")
		writeError(w, r, http.StatusServiceUnavailable, "sign-in is temporarily unavailable, please try again")
	default:
		obs.ObserveSignin(method, "unavailable")
		writeError(w, r, http.StatusInternalServerError, "sign-in failed")
	}
}
