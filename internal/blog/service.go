// Package blog is the post and category service behind the RPC layer, the
// web pages and the CLI. It validates input, applies defaults and paging
// limits, and retries reads against the repositories.
package blog

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/repository"
	"github.com/debemdeboas/postly/internal/retry"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var blogLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	blogLogger = l
}

type Service struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository

	validate *validator.Validate
	policy   retry.Policy
}

type Option func(*Service)

// WithRetryPolicy replaces the read retry policy. Its Retryable is always
// overridden so that not-found and validation errors fail fast.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

func NewService(posts repository.PostRepository, categories repository.CategoryRepository, opts ...Option) *Service {
	s := &Service{
		posts:      posts,
		categories: categories,
		validate:   newValidator(),
		policy:     retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.policy.Retryable = retryable
	return s
}

func retryable(err error) bool {
	return !apperr.IsNotFound(err) &&
		!apperr.IsValidation(err) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// ClampFilter applies the default page size and caps it at MaxLimit.
func ClampFilter(f model.PostFilter) model.PostFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// Page sets the filter's offset for a 1-based page number.
func Page(f model.PostFilter, page int) model.PostFilter {
	f = ClampFilter(f)
	f.Offset = (max(page, 1) - 1) * f.Limit
	return f
}

func (s *Service) ListPosts(ctx context.Context, f model.PostFilter) ([]model.Post, error) {
	f = ClampFilter(f)
	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]model.Post, error) {
		return s.posts.List(ctx, f)
	})
}

// GetPostBySlug returns a published post. includeDrafts also returns
// unpublished ones.
func (s *Service) GetPostBySlug(ctx context.Context, slug string, includeDrafts bool) (*model.Post, error) {
	p, err := retry.Value(ctx, s.policy, func(ctx context.Context) (*model.Post, error) {
		return s.posts.GetBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	if !p.Published && !includeDrafts {
		return nil, apperr.NewNotFound("post", slug)
	}
	return p, nil
}

func (s *Service) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (*model.Post, error) {
		return s.posts.GetByID(ctx, id)
	})
}

func (s *Service) ListPostsByCategory(ctx context.Context, slug string, published *bool) ([]model.Post, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]model.Post, error) {
		return s.posts.ListByCategorySlug(ctx, slug, published)
	})
}

func (s *Service) CreatePost(ctx context.Context, in model.PostInput) (*model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Image = strings.TrimSpace(in.Image)
	if strings.TrimSpace(in.Content) == "" {
		in.Content = ""
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	if in.Author == "" {
		in.Author = model.DefaultAuthor
	}
	if in.Image == "" {
		in.Image = model.DefaultImage
	}

	p, err := s.posts.Create(ctx, in)
	if err != nil {
		blogLogger.Error().Err(err).Str("title", in.Title).Msg("Failed to create post")
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	if patch.Title != nil {
		patch.Title = trimmed(*patch.Title)
	}
	if patch.Author != nil {
		patch.Author = trimmed(*patch.Author)
	}
	if patch.Image != nil {
		patch.Image = trimmed(*patch.Image)
		if *patch.Image == "" {
			patch.Image = trimmed(model.DefaultImage)
		}
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		patch.Content = trimmed("")
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationError(err)
	}
	if patch.Author != nil && *patch.Author == "" {
		patch.Author = trimmed(model.DefaultAuthor)
	}

	p, err := s.posts.Update(ctx, id, patch)
	if err != nil && !apperr.IsNotFound(err) {
		blogLogger.Error().Err(err).Int64("post_id", id).Msg("Failed to update post")
	}
	return p, err
}

func (s *Service) DeletePost(ctx context.Context, id int64) error {
	return s.posts.Delete(ctx, id)
}

// SubmitPost and ListCategories let the composer submit straight to the
// service when it runs in-process.
func (s *Service) SubmitPost(ctx context.Context, in model.PostInput) (*model.Post, error) {
	return s.CreatePost(ctx, in)
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return retry.Value(ctx, s.policy, s.categories.List)
}

func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (*model.Category, error) {
		return s.categories.GetBySlug(ctx, slug)
	})
}

func (s *Service) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	return s.categories.Create(ctx, in)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, patch model.CategoryPatch) (*model.Category, error) {
	if patch.Name != nil {
		patch.Name = trimmed(*patch.Name)
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationError(err)
	}
	return s.categories.Update(ctx, id, patch)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}

func trimmed(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
