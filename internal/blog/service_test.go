package blog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/repository"
	"github.com/debemdeboas/postly/internal/retry"
)

var fastRetry = retry.Policy{Attempts: 3, Base: time.Millisecond}

func newService(t *testing.T) (*Service, *repository.DBPostRepository) {
	t.Helper()
	database := db.NewSQLite(db.MemoryPath)
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	posts := repository.NewDBPostRepository(database)
	return NewService(posts, repository.NewDBCategoryRepository(database), WithRetryPolicy(fastRetry)), posts
}

func ptr[T any](v T) *T { return &v }

func TestCreatePostValidation(t *testing.T) {
	s, _ := newService(t)
	valid := model.PostInput{Title: "Title", Content: "Body"}

	tests := []struct {
		name    string
		modify  func(in *model.PostInput)
		field   string
		message string
	}{
		{"empty title", func(in *model.PostInput) { in.Title = "" }, "title", "Title is required"},
		{"blank title", func(in *model.PostInput) { in.Title = "   " }, "title", "Title is required"},
		{"long title", func(in *model.PostInput) { in.Title = strings.Repeat("é", 201) }, "title", "Title must be at most 200 characters"},
		{"blank content", func(in *model.PostInput) { in.Content = " \n " }, "content", "Content is required"},
		{"long content", func(in *model.PostInput) { in.Content = strings.Repeat("a", 50001) }, "content", "Content must be at most 50000 characters"},
		{"long author", func(in *model.PostInput) { in.Author = strings.Repeat("a", 101) }, "author", "Author must be at most 100 characters"},
		{"bad image scheme", func(in *model.PostInput) { in.Image = "ftp://example.com/a.png" }, "image", "Image must be a valid URL"},
		{"relative image", func(in *model.PostInput) { in.Image = "a.png" }, "image", "Image must be a valid URL"},
		{"zero category", func(in *model.PostInput) { in.CategoryIDs = []int64{0} }, "categoryIds", "Category IDs must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)

			_, err := s.CreatePost(context.Background(), in)
			if !apperr.IsValidation(err) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if got := apperr.Field(err); got != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, got)
			}
			if got := apperr.Message(err); got != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, got)
			}
		})
	}
}

func TestCreatePostDefaults(t *testing.T) {
	s, _ := newService(t)

	p, err := s.CreatePost(context.Background(), model.PostInput{Title: "  Hello  ", Content: "Body", Author: " "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Title != "Hello" {
		t.Errorf("Expected trimmed title, got %q", p.Title)
	}
	if p.Author != model.DefaultAuthor {
		t.Errorf("Expected %q, got %q", model.DefaultAuthor, p.Author)
	}
	if p.Image != model.DefaultImage {
		t.Errorf("Expected %q, got %q", model.DefaultImage, p.Image)
	}
	if p.Published {
		t.Error("Expected post to be unpublished by default")
	}

	for _, image := range []string{"https://example.com/a.png", "/uploads/a.png"} {
		if _, err := s.CreatePost(context.Background(), model.PostInput{Title: image, Content: "x", Image: image}); err != nil {
			t.Errorf("Expected image %q to be accepted, got %v", image, err)
		}
	}
}

func TestGetPostBySlugHidesDrafts(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	s.CreatePost(ctx, model.PostInput{Title: "Secret", Content: "x"})

	if _, err := s.GetPostBySlug(ctx, "secret", false); !apperr.IsNotFound(err) {
		t.Errorf("Expected unpublished post to be hidden, got %v", err)
	}
	p, err := s.GetPostBySlug(ctx, "secret", true)
	if err != nil {
		t.Fatalf("Expected draft for the dashboard, got %v", err)
	}
	if p.Title != "Secret" {
		t.Errorf("Expected 'Secret', got %q", p.Title)
	}
}

func TestUpdatePost(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	p, _ := s.CreatePost(ctx, model.PostInput{Title: "Before", Content: "x", Author: "Ann"})

	if _, err := s.UpdatePost(ctx, p.ID, model.PostPatch{Title: ptr("  ")}); apperr.Field(err) != "title" {
		t.Errorf("Expected title validation error, got %v", err)
	}
	if _, err := s.UpdatePost(ctx, p.ID, model.PostPatch{Content: ptr("")}); apperr.Field(err) != "content" {
		t.Errorf("Expected content validation error, got %v", err)
	}

	got, err := s.UpdatePost(ctx, p.ID, model.PostPatch{Title: ptr("After"), Author: ptr("")})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Slug != "after" || got.Author != model.DefaultAuthor {
		t.Errorf("Expected new slug and default author, got %+v", got)
	}

	if _, err := s.UpdatePost(ctx, 999, model.PostPatch{Title: ptr("x")}); !apperr.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestUpdatePostNormalizesLikeCreate(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	p, _ := s.CreatePost(ctx, model.PostInput{Title: "Post", Content: "x", Image: "/uploads/a.png"})

	if _, err := s.UpdatePost(ctx, p.ID, model.PostPatch{Content: ptr(" \n\t ")}); apperr.Field(err) != "content" {
		t.Errorf("Expected content validation error for blank content, got %v", err)
	}

	got, err := s.UpdatePost(ctx, p.ID, model.PostPatch{Image: ptr("  /uploads/b.png  ")})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Image != "/uploads/b.png" {
		t.Errorf("Expected trimmed image, got %q", got.Image)
	}

	got, err = s.UpdatePost(ctx, p.ID, model.PostPatch{Image: ptr(" ")})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Image != model.DefaultImage {
		t.Errorf("Expected %q, got %q", model.DefaultImage, got.Image)
	}
	if got.Content != "x" {
		t.Errorf("Expected content to be untouched, got %q", got.Content)
	}
}

func TestCategoryValidation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	if _, err := s.CreateCategory(ctx, model.CategoryInput{Name: " "}); apperr.Field(err) != "name" {
		t.Errorf("Expected name validation error, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, model.CategoryInput{Name: strings.Repeat("n", 51)}); apperr.Field(err) != "name" {
		t.Errorf("Expected name length error, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, model.CategoryInput{Name: "ok", Description: strings.Repeat("d", 501)}); apperr.Field(err) != "description" {
		t.Errorf("Expected description length error, got %v", err)
	}

	c, err := s.CreateCategory(ctx, model.CategoryInput{Name: " Go "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if c.Name != "Go" || c.Slug != "go" {
		t.Errorf("Expected trimmed name and slug, got %+v", c)
	}
	if _, err := s.UpdateCategory(ctx, c.ID, model.CategoryPatch{Name: ptr("")}); apperr.Field(err) != "name" {
		t.Errorf("Expected name validation error on update, got %v", err)
	}
}

func TestClampFilter(t *testing.T) {
	tests := []struct {
		name       string
		in         model.PostFilter
		page       int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", model.PostFilter{}, 1, 10, 0},
		{"capped", model.PostFilter{Limit: 500}, 1, 100, 0},
		{"negative", model.PostFilter{Limit: -1}, 0, 10, 0},
		{"third page", model.PostFilter{Limit: 20}, 3, 20, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Page(tt.in, tt.page)
			if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset {
				t.Errorf("Expected limit %d offset %d, got limit %d offset %d", tt.wantLimit, tt.wantOffset, got.Limit, got.Offset)
			}
		})
	}
}

type flakyPosts struct {
	repository.PostRepository

	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyPosts) List(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, apperr.Database("list posts", errors.New("database is locked"))
	}
	return f.PostRepository.List(ctx, filter)
}

func (f *flakyPosts) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.PostRepository.GetBySlug(ctx, slug)
}

func TestReadsAreRetried(t *testing.T) {
	_, posts := newService(t)

	t.Run("transient failures", func(t *testing.T) {
		flaky := &flakyPosts{PostRepository: posts, failures: 2}
		s := NewService(flaky, nil, WithRetryPolicy(fastRetry))

		if _, err := s.ListPosts(context.Background(), model.PostFilter{}); err != nil {
			t.Fatalf("Expected success on third attempt, got %v", err)
		}
		if flaky.calls != 3 {
			t.Errorf("Expected 3 calls, got %d", flaky.calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		flaky := &flakyPosts{PostRepository: posts, failures: 5}
		s := NewService(flaky, nil, WithRetryPolicy(fastRetry))

		if _, err := s.ListPosts(context.Background(), model.PostFilter{}); !apperr.IsDatabase(err) {
			t.Errorf("Expected DatabaseError, got %v", err)
		}
		if flaky.calls != 3 {
			t.Errorf("Expected 3 calls, got %d", flaky.calls)
		}
	})

	t.Run("not found fails fast", func(t *testing.T) {
		flaky := &flakyPosts{PostRepository: posts}
		s := NewService(flaky, nil, WithRetryPolicy(fastRetry))

		if _, err := s.GetPostBySlug(context.Background(), "missing", true); !apperr.IsNotFound(err) {
			t.Errorf("Expected NotFoundError, got %v", err)
		}
		if flaky.calls != 1 {
			t.Errorf("Expected 1 call, got %d", flaky.calls)
		}
	})
}

func TestView(t *testing.T) {
	v := View(model.Post{Content: "# Title\n\nSome **bold** words ![pic](/a.png)", Image: "javascript:x"})

	if v.ReadingTime != "1 min read" {
		t.Errorf("Expected '1 min read', got %q", v.ReadingTime)
	}
	if v.Excerpt != "Title Some bold words" {
		t.Errorf("Expected plain excerpt, got %q", v.Excerpt)
	}
	if v.ImageURL != model.DefaultImage {
		t.Errorf("Expected fallback image, got %q", v.ImageURL)
	}

	if got := View(model.Post{}).ReadingTime; got != "< 1 min read" {
		t.Errorf("Expected '< 1 min read', got %q", got)
	}
}
