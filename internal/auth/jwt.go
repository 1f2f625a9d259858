// Package auth holds the identity side of the portal: who the visitor is
// according to an identity provider, and how that identity survives between
// requests.
//
// SIGN-IN FLOW OVERVIEW:
//  1. Visitor presses the sign-in button → POST /auth/{entry}/start
//  2. Server redirects to the provider with state + PKCE challenge
//  3. Provider redirects back to /auth/callback/{provider} with a code
//  4. Server exchanges the code for a Principal (Provider.Exchange)
//  5. Server issues a session token (TokenService.Issue) in an HttpOnly cookie
//  6. On later requests the session package reads the cookie, validates the
//     token and makes the Principal ambient for the request
//
// SESSION TOKEN STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<subject>","jti":"<xid>","name":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The token carries the whole principal so reading it needs no store lookup.
// The jti lets a single token be revoked on sign-out.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const tokenIssuer = "kanal"

// ErrTokenExpired is returned by Parse for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies session tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// SessionClaims is the session token payload: the principal plus the
// registered claims. Subject ("sub") is the principal's subject and ID
// ("jti") names this particular token.
type SessionClaims struct {
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Provider      string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// Principal rebuilds the identity carried by the token.
func (c *SessionClaims) Principal() *Principal {
	return &Principal{
		Subject:       c.Subject,
		DisplayName:   c.Name,
		Email:         c.Email,
		PhotoURL:      c.Picture,
		EmailVerified: c.EmailVerified,
		Provider:      c.Provider,
	}
}

// Issue signs a session token for p that expires after ttl. The returned
// claims carry the generated jti and the expiry.
func (s *TokenService) Issue(p *Principal, ttl time.Duration) (string, *SessionClaims, error) {
	if p == nil || p.Subject == "" {
		return "", nil, errors.New("auth: cannot issue a token without a subject")
	}

	now := time.Now()
	c := &SessionClaims{
		Name:          p.DisplayName,
		Email:         p.Email,
		Picture:       p.PhotoURL,
		EmailVerified: p.EmailVerified,
		Provider:      p.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   p.Subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, c, nil
}

// Parse verifies a session token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and an expiry is present at all
//   - Issuer is "kanal"
//   - Algorithm is HS256, so a token claiming "none" is rejected
func (s *TokenService) Parse(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
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
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, errors.New("auth: token has no id")
	}
	return c, nil
}
