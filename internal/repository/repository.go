// Package repository declares the storage contracts the services depend on.
//
// Each interface mirrors one collection of the document store: "users",
// "quotes" and "gelarPosts". Implementations live in the sqlite and postgres
// sub-packages; services only ever see these interfaces.
package repository

import (
	"context"

	"github.com/jogjaantibully/kanal/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the get/set contract on the "users" collection.
//
// SetProfile is a whole-document write keyed by profile ID: a second write
// for the same ID replaces the first (last write wins), it never produces a
// second record. GetProfile returns apperror.ErrNotFound when absent.
type UserRepository interface {
	GetProfile(ctx context.Context, id string) (*model.UserProfile, error)
	SetProfile(ctx context.Context, profile *model.UserProfile) error
}

type QuoteRepository interface {
	Create(ctx context.Context, quote *model.Quote) error
	GetByID(ctx context.Context, id string) (*model.Quote, error)
	List(ctx context.Context, opts ListOptions) ([]model.Quote, error)
	Update(ctx context.Context, quote *model.Quote) error
	Delete(ctx context.Context, id string) error
}

type GelarPostRepository interface {
	Create(ctx context.Context, post *model.GelarPost) error
	GetByID(ctx context.Context, id string) (*model.GelarPost, error)
	ListApproved(ctx context.Context, opts ListOptions) ([]model.GelarPost, error)
	SetApproved(ctx context.Context, id string, approved bool) error
}

// Store bundles every repository a backend provides.
type Store interface {
	Users() UserRepository
	Quotes() QuoteRepository
	GelarPosts() GelarPostRepository
	Close() error
}
