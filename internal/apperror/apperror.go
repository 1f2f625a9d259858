// Package apperror defines the error taxonomy shared by every layer.
//
// Services return these errors; handlers translate them. A service never
// knows about HTTP status codes or localized strings, it only says WHICH
// kind of failure happened. errors.Is() against the sentinels below is the
// only contract callers rely on.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrUnauthorized means no authenticated principal is present.
	ErrUnauthorized = errors.New("unauthorized")

	// Auth-Gate failures. All of them are recoverable: the visitor stays on
	// the page and may retry with a fresh action.
	ErrAuthCancelled          = errors.New("sign-in cancelled")
	ErrAuthProvider           = errors.New("identity provider error")
	ErrProfilePersistence     = errors.New("profile persistence error")
	ErrVerificationIncomplete = errors.New("human verification incomplete")
)

type AppError struct {
	Err     error  // sentinel the error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure (transport, SQL, ...)
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is works for
// either of them.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when an operation needs an ambient principal.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// AuthCancelled reports that the visitor (or the provider on their behalf)
// declined the interactive sign-in. reason is the provider's error code,
// e.g. "access_denied".
func AuthCancelled(reason string) *AppError {
	return &AppError{
		Err:     ErrAuthCancelled,
		Message: fmt.Sprintf("sign-in cancelled (%s)", reason),
	}
}

// AuthProvider wraps a transport or configuration failure of the identity
// provider.
func AuthProvider(provider string, cause error) *AppError {
	return &AppError{
		Err:     ErrAuthProvider,
		Message: fmt.Sprintf("identity provider %s failed", provider),
		Cause:   cause,
	}
}

// ProfilePersistence wraps a document-store read or write failure while
// provisioning or reading a profile.
func ProfilePersistence(subject string, cause error) *AppError {
	return &AppError{
		Err:     ErrProfilePersistence,
		Message: fmt.Sprintf("profile %s could not be persisted", subject),
		Cause:   cause,
	}
}

// VerificationIncomplete blocks registration before the human-verification
// challenge has produced a token.
func VerificationIncomplete() *AppError {
	return &AppError{
		Err:     ErrVerificationIncomplete,
		Message: "human verification has not been completed",
		Field:   "captcha",
	}
}
