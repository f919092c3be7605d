// Package web serves the reading pages, the dashboard and the theme
// endpoints from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/cache"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/sse"
	"github.com/debemdeboas/postly/internal/util"
)

//go:embed templates/*.html static/*
var content embed.FS

var webLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	webLogger = l
}

var pages = []string{
	config.TemplateIndex,
	config.TemplatePost,
	config.TemplateCategory,
	config.TemplateDashboard,
	config.TemplateCategories,
	config.TemplateComposer,
	config.TemplateError,
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"isoDate": func(t time.Time) string { return t.Format(time.RFC3339) },
	"add":     func(a, b int) int { return a + b },
}

// Templates holds one parsed template set per page, each combined with the
// layout.
type Templates struct {
	sets map[string]*template.Template
}

func ParseTemplates() (*Templates, error) {
	t := &Templates{sets: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		set, err := template.New(page).Funcs(funcs).ParseFS(content,
			config.TemplatesLocalDir+"/"+config.TemplateLayout,
			config.TemplatesLocalDir+"/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", page, err)
		}
		t.sets[page] = set
	}
	return t, nil
}

// Render executes page into a buffer first so a template error never
// leaves a half-written response.
func (t *Templates) Render(w http.ResponseWriter, page string, status int, data any) {
	set, ok := t.sets[page]
	if !ok {
		webLogger.Error().Str("page", page).Msg("Unknown template")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, config.TemplateLayout, data); err != nil {
		webLogger.Error().Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML+"; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

type errorPage struct {
	*model.PageData
	Status  int
	Message string
}

// Error renders the error page for err with its HTTP status.
func (t *Templates) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		webLogger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	t.Render(w, config.TemplateError, status, errorPage{
		PageData: model.NewPageData(r, http.StatusText(status)),
		Status:   status,
		Message:  apperr.Message(err),
	})
}

// Static returns the embedded static assets.
func Static() fs.FS {
	static, err := fs.Sub(content, config.StaticLocalDir)
	if err != nil {
		panic(err)
	}
	return static
}

// RecordStaticHashes stores a content hash per static asset, used as its
// ETag.
func RecordStaticHashes() error {
	static := Static()
	return fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return err
		}
		cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash(data))
		return nil
	})
}

// Handler serves the reading pages and the dashboard.
type Handler struct {
	svc          *blog.Service
	clients      *sse.SSEClients
	tmpl         *Templates
	postsPerPage int
}

func NewHandler(svc *blog.Service, clients *sse.SSEClients, tmpl *Templates) *Handler {
	perPage := blog.DefaultLimit
	if config.AppConfig != nil && config.AppConfig.Content.PostsPerPage > 0 {
		perPage = config.AppConfig.Content.PostsPerPage
	}
	return &Handler{
		svc:          svc,
		clients:      clients,
		tmpl:         tmpl,
		postsPerPage: perPage,
	}
}

// PathID parses the {id} path value. A malformed id is reported as a
// missing resource.
func PathID(r *http.Request, resource string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewNotFound(resource, r.PathValue("id"))
	}
	return id, nil
}
