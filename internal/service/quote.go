package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/blob"
	"github.com/jogjaantibully/kanal/internal/i18n"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

// QuoteService manages the motivational quotes shown on the admin dashboard.
// Every quote is a caption plus an image stored in the blob store.
type QuoteService struct {
	repo   repository.QuoteRepository
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewQuoteService(repo repository.QuoteRepository, blobs blob.Store, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		repo:   repo,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// Create uploads the image, then stores the quote pointing at it. Both a
// caption and an image are required.
func (s *QuoteService) Create(ctx context.Context, caption string, img *ImageUpload) (*model.Quote, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" || img == nil {
		return nil, apperror.ValidationFailed("caption", i18n.MsgCaptionImageRequired)
	}
	if err := validateImage(img); err != nil {
		return nil, err
	}

	url, err := s.upload(ctx, img)
	if err != nil {
		return nil, err
	}

	quote := &model.Quote{Caption: caption, Image: url}
	if err := s.repo.Create(ctx, quote); err != nil {
		s.logger.Error("failed to create quote", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating quote: %w", err)
	}

	s.logger.Info("quote created", slog.String("id", quote.ID))
	return quote, nil
}

func (s *QuoteService) GetByID(ctx context.Context, id string) (*model.Quote, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "quote ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *QuoteService) List(ctx context.Context, limit, offset int) ([]model.Quote, error) {
	limit, offset = clampPage(limit, offset)

	quotes, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list quotes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	return quotes, nil
}

// Update changes the caption and, when img is non-nil, replaces the image.
// Without a new upload the existing image URL is kept.
func (s *QuoteService) Update(ctx context.Context, id, caption string, img *ImageUpload) (*model.Quote, error) {
	quote, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		return nil, apperror.ValidationFailed("caption", i18n.MsgCaptionImageRequired)
	}
	quote.Caption = caption

	if img != nil {
		if err := validateImage(img); err != nil {
			return nil, err
		}
		url, err := s.upload(ctx, img)
		if err != nil {
			return nil, err
		}
		quote.Image = url
	}

	if err := s.repo.Update(ctx, quote); err != nil {
		s.logger.Error("failed to update quote",
			slog.String("id", quote.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating quote: %w", err)
	}

	s.logger.Info("quote updated", slog.String("id", quote.ID))
	return quote, nil
}

// Delete removes the quote record. The image object is left in the bucket.
func (s *QuoteService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "quote ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("quote deleted", slog.String("id", id))
	return nil
}

func (s *QuoteService) upload(ctx context.Context, img *ImageUpload) (string, error) {
	key := blob.Key("quotes", img.Filename, s.now())
	url, err := s.blobs.Put(ctx, key, img.ContentType, img.Body, img.Size)
	if err != nil {
		s.logger.Error("failed to upload quote image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("uploading quote image: %w", err)
	}
	return url, nil
}
