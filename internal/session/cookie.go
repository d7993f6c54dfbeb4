package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/prepdeck/authbridge/internal/identity"
)

// CookieName uses the __Host- prefix so browsers refuse it unless it is
// Secure, Path=/ and host-scoped.
const CookieName = "__Host-session"

// Codec writes the signed session token into an encrypted, authenticated
// cookie. Encryption keeps the token opaque to client-side code; the JWT
// signature alone would leave the payload readable.
type Codec struct {
	sc *securecookie.SecureCookie
}

// NewCodec constructs a Codec. hashKey authenticates the cookie and must be
// at least 32 bytes; blockKey enables AES encryption and must be 16, 24 or
// 32 bytes.
func NewCodec(hashKey, blockKey []byte, maxAge time.Duration) (*Codec, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("session: cookie hash key must be at least 32 bytes")
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("session: cookie block key must be 16, 24 or 32 bytes")
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge / time.Second))
	return &Codec{sc: sc}, nil
}

// Set issues the session cookie carrying the signed token.
func (c *Codec) Set(w http.ResponseWriter, signed string, expires time.Time) error {
	encoded, err := c.sc.Encode(CookieName, signed)
	if err != nil {
		return fmt.Errorf("session: encode cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read extracts the signed token from the request cookie. A missing cookie
// is identity.ErrMissingToken; a cookie that fails authentication or
// decryption is ErrInvalidToken.
func (c *Codec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", identity.ErrMissingToken
	}
	var signed string
	if err := c.sc.Decode(CookieName, cookie.Value, &signed); err != nil {
		return "", ErrInvalidToken
	}
	return signed, nil
}

// Clear removes the session cookie from the client.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
