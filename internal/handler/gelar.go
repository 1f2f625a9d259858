package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/service"
)

// GelarHandler serves the Gelar Karya gallery API.
//
//	GET /api/gelar-posts                → approved posts (public)
//	POST /api/gelar-posts               → submit, multipart (signed in)
//	PUT /api/gelar-posts/{id}/approve   → approve (admin)
type GelarHandler struct {
	svc    *service.GelarService
	logger *slog.Logger
}

func NewGelarHandler(svc *service.GelarService, logger *slog.Logger) *GelarHandler {
	return &GelarHandler{svc: svc, logger: logger}
}

func (h *GelarHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	posts, err := h.svc.ListApproved(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if posts == nil {
		posts = []model.GelarPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *GelarHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized("not signed in"))
		return
	}

	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	img, file, err := formImage(r, "image")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	post, err := h.svc.Submit(r.Context(), p.Subject, service.Submission{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		Category: r.FormValue("category"),
		Image:    img,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *GelarHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
