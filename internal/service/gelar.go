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

// GelarService runs "Gelar Karya", the gallery where members submit their
// own work. Submissions stay hidden until an admin approves them.
type GelarService struct {
	repo   repository.GelarPostRepository
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewGelarService(repo repository.GelarPostRepository, blobs blob.Store, logger *slog.Logger) *GelarService {
	return &GelarService{
		repo:   repo,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// Submission is the member-supplied part of a post.
type Submission struct {
	Title    string
	Content  string
	Category string
	Image    *ImageUpload // optional
}

// Submit stores a new post as unapproved with zero likes.
func (s *GelarService) Submit(ctx context.Context, authorID string, sub Submission) (*model.GelarPost, error) {
	post := &model.GelarPost{
		Title:    strings.TrimSpace(sub.Title),
		Content:  strings.TrimSpace(sub.Content),
		Category: strings.TrimSpace(sub.Category),
		AuthorID: authorID,
	}
	if post.Title == "" || post.Content == "" || post.Category == "" {
		return nil, apperror.ValidationFailed("title", i18n.MsgGelarFieldsRequired)
	}

	if sub.Image != nil {
		if err := validateImage(sub.Image); err != nil {
			return nil, err
		}
		key := blob.Key("gelar", sub.Image.Filename, s.now())
		url, err := s.blobs.Put(ctx, key, sub.Image.ContentType, sub.Image.Body, sub.Image.Size)
		if err != nil {
			return nil, fmt.Errorf("uploading gelar image: %w", err)
		}
		post.ImageURL = url
	}

	if err := s.repo.Create(ctx, post); err != nil {
		s.logger.Error("failed to create gelar post", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating gelar post: %w", err)
	}

	s.logger.Info("gelar post submitted",
		slog.String("id", post.ID),
		slog.String("author", authorID),
	)
	return post, nil
}

// ListApproved returns only posts an admin has approved.
func (s *GelarService) ListApproved(ctx context.Context, limit, offset int) ([]model.GelarPost, error) {
	limit, offset = clampPage(limit, offset)

	posts, err := s.repo.ListApproved(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing gelar posts: %w", err)
	}
	return posts, nil
}

func (s *GelarService) Approve(ctx context.Context, id string) (*model.GelarPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	if err := s.repo.SetApproved(ctx, id, true); err != nil {
		return nil, err
	}
	s.logger.Info("gelar post approved", slog.String("id", id))
	return s.repo.GetByID(ctx, id)
}
