package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/service"
)

// QuoteHandler serves the quotes API.
//
//	GET    /api/quotes       → list (public)
//	GET    /api/quotes/{id}  → one quote (public)
//	POST   /api/quotes       → create, multipart caption + image (admin)
//	PUT    /api/quotes/{id}  → update, image optional (admin)
//	DELETE /api/quotes/{id}  → delete (admin)
type QuoteHandler struct {
	svc    *service.QuoteService
	logger *slog.Logger
}

func NewQuoteHandler(svc *service.QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{svc: svc, logger: logger}
}

func (h *QuoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	quotes, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{} // [] rather than null
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (h *QuoteHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	quote, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	quote, err := h.svc.Create(r.Context(), r.FormValue("caption"), img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quote)
}

func (h *QuoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	quote, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), r.FormValue("caption"), img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
