package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/i18n"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/service"
	"github.com/jogjaantibully/kanal/internal/session"
)

// Cookies that carry one sign-in attempt from the start request to the
// provider callback. They are scoped to /auth and live ten minutes.
const (
	stateCookie   = "oauth_state"
	pkceCookie    = "oauth_pkce"
	entryCookie   = "oauth_entry"
	flowCookieTTL = 10 * time.Minute

	// captchaField is the form field the reCAPTCHA widget fills in.
	captchaField = "g-recaptcha-response"
)

type AuthOptions struct {
	CaptchaSiteKey string
	SecureCookies  bool
}

// AuthHandler serves the three sign-in pages and drives the provider round
// trip. The sign-in rules themselves live in service.GateService.
//
// ROUTES:
//   - GET  /login, /admin-login, /register → sign-in page (or redirect)
//   - POST /auth/{entry}/start             → button press
//   - GET  /auth/callback/{provider}       → provider redirect target
//   - POST /auth/logout                    → sign out
//   - GET  /api/me                         → current principal + profile
type AuthHandler struct {
	gate      *service.GateService
	sessions  *session.Manager
	providers *auth.Registry
	users     repository.UserRepository
	pages     *Renderer
	opts      AuthOptions
	logger    *slog.Logger
}

func NewAuthHandler(
	gate *service.GateService,
	sessions *session.Manager,
	providers *auth.Registry,
	users repository.UserRepository,
	pages *Renderer,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		gate:      gate,
		sessions:  sessions,
		providers: providers,
		users:     users,
		pages:     pages,
		opts:      opts,
		logger:    logger,
	}
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.signInPage(w, r, service.EntryLogin)
}

func (h *AuthHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.signInPage(w, r, service.EntryAdminLogin)
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.signInPage(w, r, service.EntryRegister)
}

// signInPage renders the sign-in button, unless the visitor is already
// signed in, in which case the page is never shown and they are routed on.
//
// The login page also reports the result of a registration via
// ?registered=new|existing.
func (h *AuthHandler) signInPage(w http.ResponseWriter, r *http.Request, entry service.Entry) {
	tag := pageLanguage(w, r)

	decision, err := h.gate.OnMount(r.Context(), h.sessions.For(w, r), entry)
	if decision.Kind == service.Redirect {
		http.Redirect(w, r, decision.Target, http.StatusSeeOther)
		return
	}

	data := h.signInData(tag, entry)
	switch {
	case err != nil:
		data.Message, data.MessageKind = i18n.T(tag, i18n.MsgProfileUnavailable), "error"
	case entry == service.EntryLogin:
		switch r.URL.Query().Get("registered") {
		case "new":
			data.Message, data.MessageKind = i18n.T(tag, i18n.MsgRegisteredNew), "success"
		case "existing":
			data.Message, data.MessageKind = i18n.T(tag, i18n.MsgRegisteredExisting), "success"
		}
	}

	h.pages.render(w, http.StatusOK, pageSignIn, data)
}

// HandleStart handles a press of the sign-in button.
//
// HTTP: POST /auth/{entry}/start  (form: provider, g-recaptcha-response)
//
// A fresh state and PKCE verifier are stored in short-lived cookies before
// redirecting to the provider. When the visitor is already signed in (a
// retry after provisioning failed) the gate finishes immediately and the
// redirect goes to the landing page instead.
func (h *AuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	entry, err := service.ParseEntry(chi.URLParam(r, "entry"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	tag := pageLanguage(w, r)

	if err := r.ParseForm(); err != nil {
		h.renderFailure(w, tag, entry, http.StatusBadRequest, i18n.MsgInvalidSignInAttempt)
		return
	}

	name := r.PostFormValue("provider")
	if name == "" {
		name = auth.ProviderGoogle
	}
	provider, err := h.providers.Get(name)
	if err != nil {
		h.logger.Warn("sign-in start: unknown provider", slog.String("provider", name))
		h.renderFailure(w, tag, entry, http.StatusBadRequest, i18n.MsgUnknownProvider)
		return
	}

	state, err := auth.NewState()
	if err != nil {
		h.fail(w, tag, entry, err)
		return
	}
	verifier, challenge, err := auth.NewPKCE()
	if err != nil {
		h.fail(w, tag, entry, err)
		return
	}

	out, err := h.gate.Start(r.Context(), h.sessions.For(w, r), entry, r.PostFormValue(captchaField), provider, state, challenge)
	if err != nil {
		h.fail(w, tag, entry, err)
		return
	}

	if out.State == service.StateAuthenticating {
		h.setFlowCookie(w, stateCookie, state)
		h.setFlowCookie(w, pkceCookie, verifier)
		h.setFlowCookie(w, entryCookie, string(entry))
	}
	http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
}

// HandleCallback completes the provider round trip.
//
// HTTP: GET /auth/callback/{provider}?code=...&state=...
//
//	or  GET /auth/callback/{provider}?error=access_denied&state=...
//
// The state must match the cookie set by HandleStart, otherwise the request
// did not start here and nothing is signed in. Failures re-render the page
// the attempt started from with an inline message.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	tag := pageLanguage(w, r)
	q := r.URL.Query()

	entry := service.EntryLogin
	if c, err := r.Cookie(entryCookie); err == nil {
		if e, err := service.ParseEntry(c.Value); err == nil {
			entry = e
		}
	}

	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		h.renderFailure(w, tag, entry, http.StatusBadRequest, i18n.MsgUnknownProvider)
		return
	}

	stateC, err := r.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || q.Get("state") != stateC.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", provider.Name()))
		h.renderFailure(w, tag, entry, http.StatusBadRequest, i18n.MsgInvalidSignInAttempt)
		return
	}

	var verifier string
	if c, err := r.Cookie(pkceCookie); err == nil {
		verifier = c.Value
	}
	h.clearFlowCookies(w)

	out, err := h.gate.HandleCallback(r.Context(), h.sessions.For(w, r), entry, provider, service.Callback{
		Code:     q.Get("code"),
		Error:    q.Get("error"),
		Verifier: verifier,
	})
	if err != nil {
		h.fail(w, tag, entry, err)
		return
	}
	http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
}

// HandleLogout ends the session. POST only: a GET logout could be
// triggered by any page linking to it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.For(w, r).SignOut(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, service.RouteLogin, http.StatusSeeOther)
}

type meResponse struct {
	Principal *auth.Principal    `json:"principal"`
	Profile   *model.UserProfile `json:"profile"`
}

// HandleMe returns the signed-in principal and their profile, or a null
// profile when none has been provisioned yet. Requires RequireAuth.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized("not signed in"))
		return
	}

	profile, err := h.users.GetProfile(r.Context(), p.Subject)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Principal: p, Profile: profile})
}

func (h *AuthHandler) signInData(tag language.Tag, entry service.Entry) pageData {
	data := pageData{
		Lang:        tag.String(),
		Entry:       string(entry),
		Providers:   h.providers.Names(),
		ButtonLabel: i18n.T(tag, i18n.LabelSignInButton),
	}
	switch entry {
	case service.EntryAdminLogin:
		data.Title = i18n.T(tag, i18n.LabelAdminLogin)
	case service.EntryRegister:
		data.Title = i18n.T(tag, i18n.LabelRegister)
		data.ButtonLabel = i18n.T(tag, i18n.LabelRegisterBtn)
		data.CaptchaSiteKey = h.opts.CaptchaSiteKey
	default:
		data.Title = i18n.T(tag, i18n.LabelLogin)
	}
	return data
}

// fail shows a sign-in error inline on the page the attempt started from.
// Provider and provisioning failures during registration get the
// registration wording.
func (h *AuthHandler) fail(w http.ResponseWriter, tag language.Tag, entry service.Entry, err error) {
	status, kind, key := classify(err)
	if entry == service.EntryRegister &&
		(errors.Is(err, apperror.ErrAuthProvider) || errors.Is(err, apperror.ErrProfilePersistence)) {
		key = i18n.MsgRegisterFailed
	}
	h.logger.Info("sign-in attempt failed",
		slog.String("entry", string(entry)),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
	h.renderFailure(w, tag, entry, status, key)
}

func (h *AuthHandler) renderFailure(w http.ResponseWriter, tag language.Tag, entry service.Entry, status int, msgKey string) {
	data := h.signInData(tag, entry)
	data.Message, data.MessageKind = i18n.T(tag, msgKey), "error"
	h.pages.render(w, status, pageSignIn, data)
}

func (h *AuthHandler) setFlowCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   int(flowCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearFlowCookies makes the state single-use.
func (h *AuthHandler) clearFlowCookies(w http.ResponseWriter) {
	for _, name := range []string{stateCookie, pkceCookie, entryCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/auth",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.opts.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
