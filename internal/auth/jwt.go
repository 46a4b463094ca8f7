// Package auth holds everything between the identity provider and the core:
// provider clients, the signed session token, the principal context, and the
// route guard.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /sign-in/{provider} → redirected to the provider
//  2. Provider calls back /sign-in/{provider}/callback with a code
//  3. Server exchanges the code for a model.Identity
//  4. Server issues a session JWT carrying that identity in an HttpOnly cookie
//     and redirects to /welcome, which runs the user synchronization once
//  5. On every later request, Guard validates the cookie and puts the
//     identity in the request context
//
// WHY PUT THE IDENTITY IN THE TOKEN?
// The core needs both "who is calling" and "what does the provider say about
// them". Carrying the provider's attributes in the signed token means no
// session table and no provider call per request; they refresh on each login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/profilesync/internal/model"
)

const (
	tokenIssuer = "profilesync"

	// DefaultSessionTTL is used when NewTokenService gets a zero TTL.
	DefaultSessionTTL = 24 * time.Hour
)

// TokenService handles session JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. Subject is the identity id; the rest mirrors
// model.Identity.
type claims struct {
	jwt.RegisteredClaims
	Provider  string   `json:"prv,omitempty"`
	Emails    []string `json:"emails,omitempty"`
	FirstName string   `json:"given_name,omitempty"`
	LastName  string   `json:"family_name,omitempty"`
	Username  string   `json:"preferred_username,omitempty"`
	ImageURL  string   `json:"picture,omitempty"`
}

// Generate signs a session token for identity with the service TTL.
func (s *TokenService) Generate(identity *model.Identity) (string, error) {
	return s.GenerateWithDuration(identity, s.ttl)
}

// GenerateWithDuration signs a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(identity *model.Identity, d time.Duration) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", errors.New("auth: cannot sign a token without an identity id")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
		Provider:  identity.Provider,
		Emails:    identity.Emails,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Username:  identity.Username,
		ImageURL:  identity.ImageURL,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token and returns the identity it
// carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Validate(tokenStr string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &model.Identity{
		ID:        c.Subject,
		Provider:  c.Provider,
		Emails:    c.Emails,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		ImageURL:  c.ImageURL,
	}, nil
}
