package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/i18n"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/service"
)

// isAPI reports whether the request expects a JSON answer rather than a page.
func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// RequireAuth lets a request through only when the session middleware put a
// principal in its context. Pages redirect to the login page; API calls get
// 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		if isAPI(r) {
			writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", i18n.MsgSignInRequired)
			return
		}
		http.Redirect(w, r, service.RouteLogin, http.StatusSeeOther)
	})
}

// RequireRole loads the signed-in visitor's profile and lets the request
// through only when it carries role. A visitor without a profile has no
// role. Pages send everyone else to the community page; API calls get 403.
//
// Use it behind RequireAuth; an anonymous request is treated like one
// from a visitor without the role.
func RequireRole(users repository.UserRepository, role model.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var profile *model.UserProfile
			if p, ok := auth.PrincipalFromContext(r.Context()); ok {
				var err error
				profile, err = users.GetProfile(r.Context(), p.Subject)
				if err != nil && !errors.Is(err, apperror.ErrNotFound) {
					logger.Error("role check: profile read failed",
						slog.String("subject", p.Subject),
						slog.String("error", err.Error()),
					)
					writeJSONError(w, r, http.StatusInternalServerError, "internal_error", i18n.MsgInternal)
					return
				}
			}

			if profile != nil && profile.Role == role {
				next.ServeHTTP(w, r)
				return
			}
			if isAPI(r) {
				writeJSONError(w, r, http.StatusForbidden, "forbidden", i18n.MsgAdminOnly)
				return
			}
			http.Redirect(w, r, service.RouteChat, http.StatusSeeOther)
		})
	}
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, kind, msgKey string) {
	tag, _ := i18n.ResolveTag(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apperror.Response{
		Error:   kind,
		Message: i18n.T(tag, msgKey),
	})
}
