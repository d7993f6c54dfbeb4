package httpapi

import (
	"errors"
	"net/http"

	"github.com/prepdeck/authbridge/internal/identity"
	"github.com/prepdeck/authbridge/internal/obs"
	"github.com/prepdeck/authbridge/internal/session"
)

// withSession decodes the session cookie, passes the token through the
// embedder unchanged, projects the view into the request context and rolls
// the cookie with an extended expiry. Requests without a usable cookie
// proceed unauthenticated; protected handlers decide whether that is fatal.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signed, err := a.codec.Read(r)
		if err != nil {
			if errors.Is(err, session.ErrInvalidToken) {
				// Tampered or stale-key cookie: clear so the browser
				// stops replaying it.
				a.codec.Clear(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := a.issuer.ParseAndValidate(signed)
		if err != nil {
			a.codec.Clear(w)
			next.ServeHTTP(w, r)
			return
		}

		// Subsequent request: no fresh verified identity, the token passes
		// through as-is. Identity fields cannot drift here.
		token, err = a.issuer.Embed(nil, token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		view, err := session.Materialize(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if refreshed, err := a.issuer.Refresh(token); err == nil {
			if signed, err := a.issuer.Sign(refreshed); err == nil {
				if err := a.codec.Set(w, signed, refreshed.ExpiresAt.Time); err == nil {
					obs.ObserveSessionRefreshed()
				}
			}
		}

		ctx := session.ContextWithToken(r.Context(), token)
		ctx = session.ContextWithView(ctx, view)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession is used by handlers that cannot serve unauthenticated
// requests.
func requireSession(w http.ResponseWriter, r *http.Request) (session.View, bool) {
	view, ok := session.ViewFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", `Session realm="authbridge"`)
		writeError(w, r, http.StatusUnauthorized, identity.ErrMissingToken.Error())
		return session.View{}, false
	}
	return view, true
}
