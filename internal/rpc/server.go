package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/model"
)

const maxBodyBytes = 1 << 20

type procedure struct {
	mutation bool
	call     func(ctx context.Context, input []byte) (any, error)
}

type Server struct {
	procedures map[string]procedure
}

// handle builds a procedure that decodes its input into In.
func handle[In any](mutation bool, fn func(ctx context.Context, in In) (any, error)) procedure {
	return procedure{
		mutation: mutation,
		call: func(ctx context.Context, input []byte) (any, error) {
			var in In
			if len(input) > 0 {
				if err := json.Unmarshal(input, &in); err != nil {
					return nil, apperr.NewValidation("", "Invalid input: "+err.Error())
				}
			}
			return fn(ctx, in)
		},
	}
}

func NewServer(svc *blog.Service) *Server {
	return &Server{procedures: map[string]procedure{
		PostsGetAll: handle(false, func(ctx context.Context, in GetAllInput) (any, error) {
			published := true
			if in.Published != nil {
				published = *in.Published
			}
			return svc.ListPosts(ctx, model.PostFilter{
				Published:    &published,
				Search:       in.Search,
				CategorySlug: in.CategorySlug,
				Limit:        in.Limit,
				Offset:       in.Offset,
			})
		}),
		PostsGetBySlug: handle(false, func(ctx context.Context, in SlugInput) (any, error) {
			return svc.GetPostBySlug(ctx, in.Slug, in.IncludeDrafts)
		}),
		PostsGetByID: handle(false, func(ctx context.Context, in IDInput) (any, error) {
			return svc.GetPostByID(ctx, in.ID)
		}),
		PostsGetByCategory: handle(false, func(ctx context.Context, in SlugInput) (any, error) {
			published := true
			if in.Published != nil {
				published = *in.Published
			}
			return svc.ListPostsByCategory(ctx, in.Slug, &published)
		}),
		PostsCreate: handle(true, func(ctx context.Context, in model.PostInput) (any, error) {
			return svc.CreatePost(ctx, in)
		}),
		PostsUpdate: handle(true, func(ctx context.Context, in UpdatePostInput) (any, error) {
			return svc.UpdatePost(ctx, in.ID, in.PostPatch)
		}),
		PostsDelete: handle(true, func(ctx context.Context, in IDInput) (any, error) {
			if err := svc.DeletePost(ctx, in.ID); err != nil {
				return nil, err
			}
			return DeleteResult{Success: true}, nil
		}),
		CategoriesGetAll: handle(false, func(ctx context.Context, _ struct{}) (any, error) {
			return svc.ListCategories(ctx)
		}),
		CategoriesCreate: handle(true, func(ctx context.Context, in model.CategoryInput) (any, error) {
			return svc.CreateCategory(ctx, in)
		}),
		CategoriesUpdate: handle(true, func(ctx context.Context, in UpdateCategoryInput) (any, error) {
			return svc.UpdateCategory(ctx, in.ID, in.CategoryPatch)
		}),
		CategoriesDelete: handle(true, func(ctx context.Context, in IDInput) (any, error) {
			if err := svc.DeleteCategory(ctx, in.ID); err != nil {
				return nil, err
			}
			return DeleteResult{Success: true}, nil
		}),
	}}
}

// IsMutation reports whether the request targets a procedure that changes
// data. Middleware uses it to rate limit writes only.
func (s *Server) IsMutation(r *http.Request) bool {
	p, ok := s.procedures[procedureName(r)]
	return ok && p.mutation
}

func procedureName(r *http.Request) string {
	if name := r.PathValue("procedure"); name != "" {
		return name
	}
	return strings.TrimPrefix(r.URL.Path, PathPrefix)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := procedureName(r)
	p, ok := s.procedures[name]
	if !ok {
		writeError(w, http.StatusNotFound, apperr.CodeNotFound, "No procedure found on path \""+name+"\"", "")
		return
	}

	var input []byte
	switch {
	case !p.mutation && r.Method == http.MethodGet:
		input = []byte(r.URL.Query().Get("input"))
	case p.mutation && r.Method == http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, apperr.CodeBadRequest, "Request body too large", "")
			return
		}
		input = body
	default:
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotSupported, "Unsupported "+r.Method+" request to "+name, "")
		return
	}

	result, err := p.call(r.Context(), input)
	if err != nil {
		status := apperr.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			rpcLogger.Error().Err(err).Str("procedure", name).Msg("Procedure failed")
		}
		writeError(w, status, apperr.Code(err), apperr.Message(err), apperr.Field(err))
		return
	}

	writeJSON(w, http.StatusOK, envelope{Result: result})
}

func writeError(w http.ResponseWriter, status int, code, message, field string) {
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message, Field: field}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rpcLogger.Error().Err(err).Msg("Failed to encode response")
	}
}
