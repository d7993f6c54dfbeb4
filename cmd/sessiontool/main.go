// sessiontool mints and inspects session tokens for operators debugging
// live sessions. It shares the signing configuration with the service via
// the same environment variables.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prepdeck/authbridge/internal/identity"
	"github.com/prepdeck/authbridge/internal/session"
)

func main() {
	var (
		mint    = flag.Bool("mint", false, "mint a token for the given identity flags")
		inspect = flag.String("inspect", "", "decode and validate a signed token")
		userID  = flag.String("user", "", "backend user id (mint)")
		email   = flag.String("email", "", "user email (mint)")
		name    = flag.String("name", "", "display name (mint)")
		role    = flag.String("role", "user", "role (mint)")
		maxAge  = flag.Duration("max-age", 30*24*time.Hour, "session lifetime (mint)")
	)
	flag.Parse()

	secret := os.Getenv("AUTHBRIDGE_SESSION_SECRET")
	issuer, err := session.NewIssuer(secret, session.WithMaxAge(*maxAge))
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}

	switch {
	case *mint:
		if *userID == "" {
			log.Fatal("mint: -user is required")
		}
		token, err := issuer.Issue(identity.Verified{
			UserID: *userID,
			Email:  *email,
			Name:   *name,
			Role:   identity.ParseRole(*role),
		})
		if err != nil {
			log.Fatalf("issue: %v", err)
		}
		signed, err := issuer.Sign(token)
		if err != nil {
			log.Fatalf("sign: %v", err)
		}
		fmt.Println(signed)

	case *inspect != "":
		token, err := issuer.ParseAndValidate(*inspect)
		if err != nil {
			log.Fatalf("inspect: %v", err)
		}
		view, err := session.Materialize(token)
		if err != nil {
			log.Fatalf("materialize: %v", err)
		}
		out, err := json.MarshalIndent(map[string]any{
			"view":       view,
			"issued_at":  token.IssuedAt.Time.UTC().Format(time.RFC3339),
			"expires_at": token.ExpiresAt.Time.UTC().Format(time.RFC3339),
			"jti":        token.ID,
		}, "", "  ")
		if err != nil {
			log.Fatalf("encode: %v", err)
		}
		fmt.Println(string(out))

	default:
		flag.Usage()
		os.Exit(2)
	}
}
