// Package repository stores posts and categories in the relational schema
// of internal/db.
package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type PostRepository interface {
	List(ctx context.Context, f model.PostFilter) ([]model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	ListByCategorySlug(ctx context.Context, slug string, published *bool) ([]model.Post, error)

	Create(ctx context.Context, in model.PostInput) (*model.Post, error)
	Update(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, id int64) error

	// Watch calls notify with the slugs of posts changed since the last poll
	// until ctx is done.
	Watch(ctx context.Context, notify func(slug string))
}

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)

	Create(ctx context.Context, in model.CategoryInput) (*model.Category, error)
	Update(ctx context.Context, id int64, patch model.CategoryPatch) (*model.Category, error)
	Delete(ctx context.Context, id int64) error
}
