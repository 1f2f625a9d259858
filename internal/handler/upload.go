package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/i18n"
	"github.com/jogjaantibully/kanal/internal/service"
)

// maxFormSize caps a multipart body: one image plus the text fields.
const maxFormSize = service.MaxImageSize + 1<<20

// parseMultipart reads a multipart form of at most maxFormSize bytes. An
// oversized body is reported as an oversized image, the only field that
// can realistically get there.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperror.ValidationFailed("image", i18n.MsgImageTooLarge)
		}
		return apperror.ValidationFailed("form", "malformed multipart form")
	}
	return nil
}

// formImage returns the uploaded file in field, or nil when none was sent.
// The caller closes the returned file.
func formImage(r *http.Request, field string) (*service.ImageUpload, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperror.ValidationFailed(field, "unreadable upload")
	}
	return &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

// pageParams reads ?limit= and ?offset=. Bad values fall back to zero and
// the service applies its defaults.
func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
