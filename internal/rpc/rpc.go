// Package rpc exposes the blog service as JSON procedures over HTTP.
// Queries are GET /rpc/{procedure}?input=<json>; mutations are
// POST /rpc/{procedure} with a JSON body. Every response is either
// {"result": ...} or {"error": {"code", "message", "field"}}.
package rpc

import (
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/model"
)

const (
	PathPrefix = "/rpc/"

	CodeMethodNotSupported = "METHOD_NOT_SUPPORTED"
)

var rpcLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	rpcLogger = l
}

const (
	PostsGetAll        = "posts.getAll"
	PostsGetBySlug     = "posts.getBySlug"
	PostsGetByID       = "posts.getById"
	PostsGetByCategory = "posts.getByCategorySlug"
	PostsCreate        = "posts.create"
	PostsUpdate        = "posts.update"
	PostsDelete        = "posts.delete"
	CategoriesGetAll   = "categories.getAll"
	CategoriesCreate   = "categories.create"
	CategoriesUpdate   = "categories.update"
	CategoriesDelete   = "categories.delete"
)

type envelope struct {
	Result any        `json:"result,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// GetAllInput filters posts.getAll. Published defaults to true when absent.
type GetAllInput struct {
	Published    *bool  `json:"published,omitempty"`
	Search       string `json:"search,omitempty"`
	CategorySlug string `json:"categorySlug,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

type SlugInput struct {
	Slug          string `json:"slug"`
	IncludeDrafts bool   `json:"includeDrafts,omitempty"`
	Published     *bool  `json:"published,omitempty"`
}

type IDInput struct {
	ID int64 `json:"id"`
}

type UpdatePostInput struct {
	ID int64 `json:"id"`
	model.PostPatch
}

type UpdateCategoryInput struct {
	ID int64 `json:"id"`
	model.CategoryPatch
}

type DeleteResult struct {
	Success bool `json:"success"`
}
