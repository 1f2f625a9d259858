package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sort"
)

// Provider is the contract every identity provider implements.
//
// The interactive sign-in is split across two HTTP requests: AuthCodeURL
// sends the visitor away, Exchange runs when the provider redirects back
// with a code. Implementations return identity facts only. They never
// touch the profile store or the session.
type Provider interface {
	// Name is the identifier used in routes, e.g. "google".
	Name() string

	// AuthCodeURL builds the authorization URL. state and the PKCE
	// challenge are generated by the caller.
	AuthCodeURL(state, codeChallenge string) string

	// Exchange trades the authorization code for the visitor's identity.
	Exchange(ctx context.Context, code, codeVerifier string) (*Principal, error)
}

// Registry holds the configured providers, looked up by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("auth: unknown identity provider %q", name)
	}
	return p, nil
}

// Names lists the registered providers in a stable order, for rendering
// one sign-in button per provider.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPKCE returns a fresh code verifier and its S256 challenge (RFC 7636).
func NewPKCE() (verifier, challenge string, err error) {
	verifier, err = randomToken(32)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// NewState returns an unguessable value for the OAuth state parameter. The
// callback must present the same value or the round trip is rejected.
func NewState() (string, error) {
	return randomToken(24)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
