package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/model"
)

// Error is a failure reported by the server.
type Error struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the matching apperr type so apperr.IsValidation and
// apperr.IsNotFound work on client errors.
func (e *Error) Unwrap() error {
	switch e.Code {
	case apperr.CodeBadRequest:
		return &apperr.ValidationError{Field: e.Field, Message: e.Message}
	case apperr.CodeNotFound:
		return &apperr.NotFoundError{Resource: "resource", ID: e.Message}
	}
	return nil
}

// Client calls the procedures of a Server. It satisfies the composer's
// Submitter and Updater.
type Client struct {
	base string
	http *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the server at baseURL, e.g.
// "http://localhost:12600".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base: strings.TrimSuffix(baseURL, "/") + PathPrefix,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) query(ctx context.Context, name string, in, out any) error {
	u := c.base + name
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s input: %w", name, err)
		}
		u += "?input=" + url.QueryEscape(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, name, out)
}

func (c *Client) mutate(ctx context.Context, name string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s input: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+name, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, name, out)
}

func (c *Client) do(req *http.Request, name string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", name, err)
	}
	defer resp.Body.Close()

	var env struct {
		Result json.RawMessage `json:"result"`
		Error  *errorBody      `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &Error{Status: resp.StatusCode, Code: apperr.StatusCode(resp.StatusCode), Message: "malformed response: " + err.Error()}
	}
	if env.Error != nil {
		return &Error{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message, Field: env.Error.Field}
	}
	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Code: apperr.StatusCode(resp.StatusCode), Message: resp.Status}
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", name, err)
	}
	return nil
}

func (c *Client) ListPosts(ctx context.Context, in GetAllInput) ([]model.Post, error) {
	var out []model.Post
	return out, c.query(ctx, PostsGetAll, in, &out)
}

func (c *Client) GetPostBySlug(ctx context.Context, slug string, includeDrafts bool) (*model.Post, error) {
	var out model.Post
	if err := c.query(ctx, PostsGetBySlug, SlugInput{Slug: slug, IncludeDrafts: includeDrafts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	var out model.Post
	if err := c.query(ctx, PostsGetByID, IDInput{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPostsByCategory(ctx context.Context, slug string) ([]model.Post, error) {
	var out []model.Post
	return out, c.query(ctx, PostsGetByCategory, SlugInput{Slug: slug}, &out)
}

func (c *Client) CreatePost(ctx context.Context, in model.PostInput) (*model.Post, error) {
	var out model.Post
	if err := c.mutate(ctx, PostsCreate, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitPost creates a post on behalf of the composer.
func (c *Client) SubmitPost(ctx context.Context, in model.PostInput) (*model.Post, error) {
	return c.CreatePost(ctx, in)
}

func (c *Client) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	var out model.Post
	if err := c.mutate(ctx, PostsUpdate, UpdatePostInput{ID: id, PostPatch: patch}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.mutate(ctx, PostsDelete, IDInput{ID: id}, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	return out, c.query(ctx, CategoriesGetAll, nil, &out)
}

func (c *Client) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	var out model.Category
	if err := c.mutate(ctx, CategoriesCreate, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, patch model.CategoryPatch) (*model.Category, error) {
	var out model.Category
	if err := c.mutate(ctx, CategoriesUpdate, UpdateCategoryInput{ID: id, CategoryPatch: patch}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.mutate(ctx, CategoriesDelete, IDInput{ID: id}, nil)
}
