// Package service contains the business logic layer of the portal.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the document store
//
// Services take repository interfaces, never a concrete *sqlite.DB, and know
// nothing about HTTP. They return apperror values; handlers translate those
// into status codes and localized messages.
package service

import (
	"io"
	"strings"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/i18n"
)

const (
	// MaxImageSize is the largest image accepted for quotes and gelar posts.
	MaxImageSize = 2 << 20 // 2 MiB

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ImageUpload is an image file received from a form, detached from HTTP.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// validateImage enforces the size and type rules shared by every upload.
func validateImage(img *ImageUpload) error {
	if img.Size > MaxImageSize {
		return apperror.ValidationFailed("image", i18n.MsgImageTooLarge)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return apperror.ValidationFailed("image", i18n.MsgImageType)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
