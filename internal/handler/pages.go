package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/i18n"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/service"
)

// PageHandler renders the two landing pages the sign-in gate routes to.
// Both sit behind RequireAuth; the dashboard also behind RequireRole.
type PageHandler struct {
	users  repository.UserRepository
	quotes *service.QuoteService
	gelar  *service.GelarService
	pages  *Renderer
	logger *slog.Logger
}

func NewPageHandler(
	users repository.UserRepository,
	quotes *service.QuoteService,
	gelar *service.GelarService,
	pages *Renderer,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		users:  users,
		quotes: quotes,
		gelar:  gelar,
		pages:  pages,
		logger: logger,
	}
}

// HandleChat renders /ruang-bincang with the approved gallery posts.
func (h *PageHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	tag := pageLanguage(w, r)
	data, ok := h.landingData(w, r)
	if !ok {
		return
	}
	data.Title = "Ruang Bincang"
	data.Lang = tag.String()

	posts, err := h.gelar.ListApproved(r.Context(), 0, 0)
	if err != nil {
		h.logger.Error("chat page: listing posts failed", slog.String("error", err.Error()))
		data.Message, data.MessageKind = i18n.T(tag, i18n.MsgInternal), "error"
	}
	data.Posts = posts

	h.pages.render(w, http.StatusOK, pageChat, data)
}

// HandleDashboard renders /dashboard-admin with the quote list.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	tag := pageLanguage(w, r)
	data, ok := h.landingData(w, r)
	if !ok {
		return
	}
	data.Title = "Dashboard Admin"
	data.Lang = tag.String()

	quotes, err := h.quotes.List(r.Context(), 0, 0)
	if err != nil {
		h.logger.Error("dashboard: listing quotes failed", slog.String("error", err.Error()))
		data.Message, data.MessageKind = i18n.T(tag, i18n.MsgInternal), "error"
	}
	data.Quotes = quotes

	h.pages.render(w, http.StatusOK, pageDashboard, data)
}

// landingData loads the visitor's profile. A visitor who has a session but
// no profile yet is shown the provider identity with the usual
// placeholders.
func (h *PageHandler) landingData(w http.ResponseWriter, r *http.Request) (pageData, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, service.RouteLogin, http.StatusSeeOther)
		return pageData{}, false
	}

	profile, err := h.users.GetProfile(r.Context(), p.Subject)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		profile = &model.UserProfile{
			ID:             p.Subject,
			Name:           p.DisplayName,
			ProfilePicture: p.PhotoURL,
		}
		if profile.Name == "" {
			profile.Name = model.DefaultProfileName
		}
		if profile.ProfilePicture == "" {
			profile.ProfilePicture = model.DefaultProfilePicture
		}
	default:
		h.logger.Error("landing: profile read failed",
			slog.String("subject", p.Subject),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return pageData{}, false
	}

	return pageData{Principal: p, Profile: profile}, true
}
