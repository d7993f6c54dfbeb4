// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every runtime knob for the service. The OIDC block is
// optional as a whole: when the issuer is unset the external sign-in path
// is disabled and only password sign-in is served.
type Config struct {
	ListenAddr string `env:"AUTHBRIDGE_ADDR" envDefault:":8080"`

	BackendBaseURL string        `env:"AUTHBRIDGE_BACKEND_URL,required"`
	BackendTimeout time.Duration `env:"AUTHBRIDGE_BACKEND_TIMEOUT" envDefault:"10s"`

	SessionSecret  string        `env:"AUTHBRIDGE_SESSION_SECRET,required"`
	CookieHashKey  string        `env:"AUTHBRIDGE_COOKIE_HASH_KEY,required"`
	CookieBlockKey string        `env:"AUTHBRIDGE_COOKIE_BLOCK_KEY,required"`
	SessionMaxAge  time.Duration `env:"AUTHBRIDGE_SESSION_MAX_AGE" envDefault:"720h"`

	OIDCIssuerURL    string `env:"AUTHBRIDGE_OIDC_ISSUER"`
	OIDCClientID     string `env:"AUTHBRIDGE_OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"AUTHBRIDGE_OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `env:"AUTHBRIDGE_OIDC_REDIRECT_URL"`

	AllowedOrigins []string `env:"AUTHBRIDGE_ALLOWED_ORIGINS" envSeparator:","`

	RateBurst  int `env:"AUTHBRIDGE_RATE_BURST" envDefault:"10"`
	RatePerSec int `env:"AUTHBRIDGE_RATE_PER_SEC" envDefault:"5"`
}

// Load parses and validates configuration, failing fast on anything that
// would otherwise surface as a confusing runtime error.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("config: AUTHBRIDGE_SESSION_SECRET must be at least 32 bytes")
	}
	if len(c.CookieHashKey) < 32 {
		return errors.New("config: AUTHBRIDGE_COOKIE_HASH_KEY must be at least 32 bytes")
	}
	switch len(c.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return errors.New("config: AUTHBRIDGE_COOKIE_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	if c.SessionMaxAge <= 0 {
		return errors.New("config: AUTHBRIDGE_SESSION_MAX_AGE must be positive")
	}
	if c.OIDCEnabled() {
		if c.OIDCClientID == "" || c.OIDCClientSecret == "" || c.OIDCRedirectURL == "" {
			return errors.New("config: OIDC issuer set but client id, secret or redirect URL missing")
		}
	}
	return nil
}

// OIDCEnabled reports whether the external sign-in path is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuerURL != ""
}
