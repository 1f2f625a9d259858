package handler

// RESPONSE HELPERS:
// Every JSON answer goes through writeJSON, every failure through writeError,
// so the frontend always sees the same error shape (apperror.Response):
//
//	{"error": "validation_error", "message": "Caption dan gambar harus diisi!"}
//
// "error" is machine-readable and stable. "message" is localized for the
// visitor (see internal/i18n) and safe to show as-is.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/i18n"
)

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; after that they are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error to an HTTP status, a machine-readable kind
// and the i18n key of the message to show.
//
// Validation messages raised by the services are already i18n keys; any
// that are not fall through i18n.T unchanged.
func classify(err error) (status int, kind, msgKey string) {
	var appErr *apperror.AppError
	hasAppErr := errors.As(err, &appErr)

	switch {
	case errors.Is(err, apperror.ErrValidation):
		msg := ""
		if hasAppErr {
			msg = appErr.Message
		}
		return http.StatusBadRequest, "validation_error", msg
	case errors.Is(err, apperror.ErrVerificationIncomplete):
		return http.StatusBadRequest, "verification_incomplete", i18n.MsgVerifyNotRobot
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", i18n.MsgNotFound
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", i18n.MsgSignInRequired
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", i18n.MsgAdminOnly
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", i18n.MsgInternal
	case errors.Is(err, apperror.ErrAuthCancelled):
		return http.StatusOK, "auth_cancelled", i18n.MsgSignInCancelled
	case errors.Is(err, apperror.ErrAuthProvider):
		return http.StatusBadGateway, "auth_provider_error", i18n.MsgLoginFailed
	case errors.Is(err, apperror.ErrProfilePersistence):
		return http.StatusInternalServerError, "profile_persistence_error", i18n.MsgProfileUnavailable
	}
	return http.StatusInternalServerError, "internal_error", i18n.MsgInternal
}

// writeError sends err as a localized apperror.Response. Unknown errors become
// a generic 500: their text may carry SQL or file paths and is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, key := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	tag, _ := i18n.ResolveTag(r)
	writeJSON(w, status, apperror.Response{
		Error:   kind,
		Message: i18n.T(tag, key),
	})
}
