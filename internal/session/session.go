// Package session makes a signed-in identity ambient across requests.
//
// The principal lives in a signed token inside an HttpOnly cookie (see
// auth.TokenService). A Context is bound to one HTTP request/response pair:
// reading the current principal parses the request cookie, signing in or
// out writes Set-Cookie on the response.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jogjaantibully/kanal/internal/auth"
)

const (
	CookieName = "session"
	DefaultTTL = 7 * 24 * time.Hour
)

// Context is the ambient-session capability the sign-in flow depends on.
//
// Current never blocks on the provider. SignIn makes p the principal for
// this and every later request from the same browser. SignOut ends the
// session and is a no-op when nobody is signed in.
type Context interface {
	Current(ctx context.Context) (*auth.Principal, bool)
	SignIn(ctx context.Context, p *auth.Principal) error
	SignOut(ctx context.Context) error
}

type Options struct {
	TTL time.Duration
	// Secure marks the cookie Secure. Turn it off only for plain-HTTP
	// local development.
	Secure bool
}

// Manager issues request-bound session contexts.
type Manager struct {
	tokens  *auth.TokenService
	revoked RevocationStore
	ttl     time.Duration
	secure  bool
	logger  *slog.Logger
}

func NewManager(tokens *auth.TokenService, revoked RevocationStore, opts Options, logger *slog.Logger) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		tokens:  tokens,
		revoked: revoked,
		ttl:     ttl,
		secure:  opts.Secure,
		logger:  logger,
	}
}

type requestSessionKey struct{}

// For binds a Context to one request. Behind Middleware it returns the
// session already resolved for r, rebound to w so cookies go through the
// writer the caller was handed. The returned value is not safe for use by more than
// one goroutine.
func (m *Manager) For(w http.ResponseWriter, r *http.Request) *RequestSession {
	if s, ok := r.Context().Value(requestSessionKey{}).(*RequestSession); ok && s.m == m {
		s.w = w
		s.r = r
		return s
	}
	return &RequestSession{m: m, w: w, r: r}
}

// Middleware resolves the session cookie once per request and, when it
// holds a live token, stores the principal in the request context for
// auth.PrincipalFromContext. Anonymous requests pass through untouched.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.For(w, r)
		ctx := context.WithValue(r.Context(), requestSessionKey{}, s)
		if p, ok := s.Current(ctx); ok {
			ctx = auth.WithPrincipal(ctx, p)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestSession is the cookie-backed Context for a single request.
type RequestSession struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request

	resolved  bool
	principal *auth.Principal
	claims    *auth.SessionClaims
}

var _ Context = (*RequestSession)(nil)

func (s *RequestSession) Current(ctx context.Context) (*auth.Principal, bool) {
	s.resolve(ctx)
	return s.principal, s.principal != nil
}

func (s *RequestSession) SignIn(ctx context.Context, p *auth.Principal) error {
	s.resolve(ctx)

	token, claims, err := s.m.tokens.Issue(p, s.m.ttl)
	if err != nil {
		return fmt.Errorf("session: signing in: %w", err)
	}

	// a browser holds one session at a time; retire the token it replaces
	if s.claims != nil {
		if err := s.m.revoked.Revoke(ctx, s.claims.ID, s.claims.ExpiresAt.Time); err != nil {
			s.m.logger.Warn("failed to revoke replaced session", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		MaxAge:   int(s.m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.principal = claims.Principal()
	s.claims = claims
	return nil
}

func (s *RequestSession) SignOut(ctx context.Context) error {
	s.resolve(ctx)

	if s.claims != nil {
		if err := s.m.revoked.Revoke(ctx, s.claims.ID, s.claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("session: signing out: %w", err)
		}
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.principal = nil
	s.claims = nil
	return nil
}

// resolve reads the request cookie the first time it is needed. Any
// failure leaves the session anonymous.
func (s *RequestSession) resolve(ctx context.Context) {
	if s.resolved {
		return
	}
	s.resolved = true

	cookie, err := s.r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return
	}

	claims, err := s.m.tokens.Parse(cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrTokenExpired) {
			s.m.logger.Debug("rejected session cookie", slog.String("error", err.Error()))
		}
		return
	}

	revoked, err := s.m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.m.logger.Warn("revocation check failed, treating session as signed out",
			slog.String("error", err.Error()),
		)
		return
	}
	if revoked {
		return
	}

	s.principal = claims.Principal()
	s.claims = claims
}
