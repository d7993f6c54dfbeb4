package httpapi

import (
	"errors"
	"net/http"

	"github.com/prepdeck/authbridge/internal/audit"
	"github.com/prepdeck/authbridge/internal/identity"
	"github.com/prepdeck/authbridge/internal/obs"
)

func (a *API) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.provider == nil {
		writeError(w, r, http.StatusNotFound, "external sign-in is not configured")
		return
	}

	state := generateState(w)
	_, challenge := generatePKCE(w)

	http.Redirect(w, r, a.provider.AuthCodeURL(state, challenge), http.StatusFound)
}

// handleOAuthCallback finishes the provider handshake and syncs the profile
// with the backend. The sync is fail-closed: without a backend identity and
// access token no session is minted.
func (a *API) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.provider == nil {
		writeError(w, r, http.StatusNotFound, "external sign-in is not configured")
		return
	}
	if !a.limiter.allow(r) {
		tooManyRequests(w, r)
		return
	}

	clearHandshakeCookie(w, stateCookieName)
	clearHandshakeCookie(w, pkceCookieName)

	if !validateState(r) {
		obs.ObserveSignin("oauth", "rejected")
		writeError(w, r, http.StatusUnauthorized, "invalid state")
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		obs.ObserveSignin("oauth", "rejected")
		_ = audit.LogEvent(r.Context(), "signin.rejected", map[string]any{
			"method": "oauth",
			"error":  errParam,
		})
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "missing authorization code")
		return
	}
	verifier := pkceVerifier(r)
	if verifier == "" {
		writeError(w, r, http.StatusUnauthorized, "missing pkce verifier")
		return
	}

	assertion, err := a.provider.Exchange(r.Context(), code, verifier)
	if err != nil {
		obs.ObserveSignin("oauth", "rejected")
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}

	verified, err := a.backend.SyncProfile(r.Context(), assertion)
	if err != nil {
		// The provider vouched for the person, but without the backend's
		// identifier and token the session would violate the provenance
		// invariant. Fail the sign-in.
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			obs.ObserveSignin("oauth", "rejected")
			writeError(w, r, http.StatusUnauthorized, err.Error())
		default:
			obs.ObserveSignin("oauth", "unavailable")
			writeError(w, r, http.StatusServiceUnavailable, "sign-in is temporarily unavailable, please try again")
		}
		return
	}

	a.establishSession(w, r, "oauth", verified)
}
