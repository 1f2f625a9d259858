package auth

import "context"

// Principal is the identity asserted by an identity provider for the
// current visitor. It is provider-owned: nothing here comes from the
// application's own store.
type Principal struct {
	Subject       string `json:"sub"`
	DisplayName   string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	PhotoURL      string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Provider      string `json:"provider"`
}

// contextKey is unexported so no other package can read or shadow the
// principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal placed by WithPrincipal.
// Returns (nil, false) for anonymous requests.
//
// Usage in handlers:
//
//	p, ok := auth.PrincipalFromContext(r.Context())
//	if !ok {
//	    // anonymous visitor
//	}
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil && p.Subject != ""
}
