// Package oidc wraps the external identity-provider handshake. It returns
// profile facts only; deciding which backend user those facts map to is the
// backend sync call's job.
package oidc

import (
	"context"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/prepdeck/authbridge/internal/identity"
)

// Provider performs the authorization-code flow against one OIDC issuer.
type Provider struct {
	oauth    *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// New discovers the issuer configuration and prepares the flow.
func New(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*Provider, error) {
	if issuerURL == "" || clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("oidc: issuer, client id, client secret and redirect URL are required")
	}

	discovered, err := gooidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc: discover issuer: %w", err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     discovered.Endpoint(),
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
		},
		verifier: discovered.Verifier(&gooidc.Config{ClientID: clientID}),
	}, nil
}

// AuthCodeURL builds the authorization URL with state and PKCE parameters.
func (p *Provider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange redeems the authorization code, verifies the returned ID token
// and normalizes its claims into a profile assertion.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (identity.ExternalProfileAssertion, error) {
	token, err := p.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return identity.ExternalProfileAssertion{}, fmt.Errorf("oidc: code exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return identity.ExternalProfileAssertion{}, errors.New("oidc: provider did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return identity.ExternalProfileAssertion{}, fmt.Errorf("oidc: verify id_token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return identity.ExternalProfileAssertion{}, fmt.Errorf("oidc: parse id_token claims: %w", err)
	}

	assertion := identity.ExternalProfileAssertion{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}
	if err := assertion.Validate(); err != nil {
		return identity.ExternalProfileAssertion{}, errors.New("oidc: id_token missing required claims")
	}
	return assertion, nil
}
