package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/sakif/profilesync/internal/model"
)

const oidcProviderName = "oidc"

// OIDCProvider signs users in against any OpenID Connect issuer using
// discovery. It returns identity facts only.
type OIDCProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// oidcClaims are the ID token claims we map onto model.Identity.
type oidcClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

// NewOIDCProvider runs discovery against issuer and builds the provider.
// issuer is the base URL serving /.well-known/openid-configuration.
func NewOIDCProvider(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*OIDCProvider, error) {
	if issuer == "" || clientID == "" || redirectURL == "" {
		return nil, errors.New("auth: oidc config missing required fields")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc discovery for %s: %w", issuer, err)
	}

	return &OIDCProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Name implements Provider.
func (p *OIDCProvider) Name() string {
	return oidcProviderName
}

// AuthURL implements Provider.
func (p *OIDCProvider) AuthURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for tokens, verifies the ID token and maps its
// claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("auth: oidc provider did not return an id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc id_token verification: %w", err)
	}

	var c oidcClaims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("auth: parsing oidc claims: %w", err)
	}

	return identityFromClaims(p.Name(), c)
}

// identityFromClaims maps ID token claims. A missing email is not an error
// here; synchronization decides what to do about it.
func identityFromClaims(provider string, c oidcClaims) (*model.Identity, error) {
	if c.Subject == "" {
		return nil, errors.New("auth: oidc id_token has no subject")
	}

	var emails []string
	if c.Email != "" {
		emails = []string{c.Email}
	}

	return &model.Identity{
		ID:        provider + ":" + c.Subject,
		Provider:  provider,
		Emails:    emails,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
		Username:  c.PreferredUsername,
		ImageURL:  c.Picture,
	}, nil
}
