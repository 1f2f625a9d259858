// Package captcha checks the human-verification token submitted with the
// registration form.
package captcha

import (
	"context"
	"strings"

	"github.com/jogjaantibully/kanal/internal/apperror"
)

// Verifier decides whether a submitted widget token is acceptable.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// PresenceVerifier accepts any non-blank token. The widget has already run
// its challenge in the browser; the token is not re-checked with the
// captcha vendor.
type PresenceVerifier struct{}

func (PresenceVerifier) Verify(_ context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperror.VerificationIncomplete()
	}
	return nil
}
