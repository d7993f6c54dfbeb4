package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepdeck/authbridge/internal/backend"
	"github.com/prepdeck/authbridge/internal/config"
	"github.com/prepdeck/authbridge/internal/httpapi"
	"github.com/prepdeck/authbridge/internal/obs"
	"github.com/prepdeck/authbridge/internal/oidc"
	"github.com/prepdeck/authbridge/internal/session"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bc, err := backend.New(cfg.BackendBaseURL, backend.WithTimeout(cfg.BackendTimeout))
	if err != nil {
		log.Fatalf("backend client: %v", err)
	}

	issuer, err := session.NewIssuer(cfg.SessionSecret, session.WithMaxAge(cfg.SessionMaxAge))
	if err != nil {
		log.Fatalf("session issuer: %v", err)
	}

	codec, err := session.NewCodec([]byte(cfg.CookieHashKey), []byte(cfg.CookieBlockKey), cfg.SessionMaxAge)
	if err != nil {
		log.Fatalf("session codec: %v", err)
	}

	opts := []httpapi.Option{
		httpapi.WithSigninRate(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithAllowedOrigins(cfg.AllowedOrigins),
	}
	if cfg.OIDCEnabled() {
		discoverCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		provider, err := oidc.New(discoverCtx, cfg.OIDCIssuerURL, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		cancel()
		if err != nil {
			log.Fatalf("oidc provider: %v", err)
		}
		opts = append(opts, httpapi.WithProvider(provider))
	}

	api := httpapi.New(bc, issuer, codec, version, opts...)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authbridge %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
