package web

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/render"
	"github.com/debemdeboas/postly/internal/routes"
	"github.com/debemdeboas/postly/internal/theme"
	"github.com/debemdeboas/postly/internal/util"
)

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.RootPath, h.serveIndex)
	mux.HandleFunc("GET "+routes.PostPage, h.servePost)
	mux.HandleFunc("GET "+routes.CategoryPage, h.serveCategory)
	mux.HandleFunc("GET "+routes.SSEPath, h.clients.Handler)

	mux.HandleFunc("GET "+routes.Dashboard, h.serveDashboard)
	mux.HandleFunc("POST "+routes.DashboardDeletePost, h.deletePost)
	mux.HandleFunc("POST "+routes.DashboardPublishPost, h.togglePublished)
	mux.HandleFunc("GET "+routes.DashboardCategories, h.serveCategories)
	mux.HandleFunc("POST "+routes.DashboardCategories, h.createCategory)
	mux.HandleFunc("POST "+routes.DashboardCategory, h.changeCategory)

	mux.HandleFunc("GET "+routes.ThemeOppositeIcon, serveOppositeIcon)
	mux.HandleFunc("POST "+routes.ThemeToggle, serveThemeToggle)
	mux.HandleFunc("POST "+routes.SyntaxThemeSet, serveSyntaxThemeSet)
	mux.HandleFunc("GET "+routes.SyntaxThemeGet, serveSyntaxTheme)

	static := http.FileServer(http.FS(Static()))
	mux.Handle("GET "+config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, static))
	mux.HandleFunc("GET "+model.DefaultImage, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, Static(), strings.TrimPrefix(model.DefaultImage, "/"))
	})
	mux.HandleFunc("GET "+routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.Write([]byte("User-agent: *\nDisallow: /dashboard\nDisallow: /posts/new\n"))
	})
}

type listPage struct {
	*model.PageData
	Posts      []blog.PostView
	Categories []model.Category
	Query      string
	Category   string
	Page       int
	PrevURL    string
	NextURL    string
}

// pageURL builds a home feed link that keeps the current filters.
func pageURL(q, category string, page int) string {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if category != "" {
		v.Set("category", category)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	page = max(page, 1)

	published := true
	filter := blog.Page(model.PostFilter{
		Published:    &published,
		Search:       q,
		CategorySlug: category,
		Limit:        h.postsPerPage,
	}, page)
	perPage := filter.Limit
	// One extra row tells whether a next page exists
	filter.Limit++

	posts, err := h.svc.ListPosts(r.Context(), filter)
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	data := listPage{
		PageData:   model.NewPageData(r, ""),
		Categories: categories,
		Query:      q,
		Category:   category,
		Page:       page,
	}
	if len(posts) > perPage {
		posts = posts[:perPage]
		data.NextURL = pageURL(q, category, page+1)
	}
	if page > 1 {
		data.PrevURL = pageURL(q, category, page-1)
	}
	data.Posts = blog.Views(posts)

	h.tmpl.Render(w, config.TemplateIndex, http.StatusOK, data)
}

type categoryPage struct {
	*model.PageData
	Category *model.Category
	Posts    []blog.PostView
}

func (h *Handler) serveCategory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	category, err := h.svc.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	published := true
	posts, err := h.svc.ListPostsByCategory(r.Context(), slug, &published)
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	h.tmpl.Render(w, config.TemplateCategory, http.StatusOK, categoryPage{
		PageData: model.NewPageData(r, category.Name),
		Category: category,
		Posts:    blog.Views(posts),
	})
}

type postPage struct {
	*model.PageData
	Post blog.PostView
	Body template.HTML
}

func (h *Handler) servePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPostBySlug(r.Context(), r.PathValue("slug"), false)
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	data := postPage{
		PageData: model.NewPageData(r, post.Title),
		Post:     blog.View(*post),
	}
	data.Body = render.Post(post, data.SyntaxTheme)

	h.tmpl.Render(w, config.TemplatePost, http.StatusOK, data)
}

func serveOppositeIcon(w http.ResponseWriter, r *http.Request) {
	currTheme := r.URL.Query().Get("theme")
	if currTheme == "" {
		http.Error(w, "theme required", http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Write([]byte(template.HTMLEscapeString(theme.GetThemeIcon(currTheme))))
}

func serveThemeToggle(w http.ResponseWriter, r *http.Request) {
	newTheme := theme.Toggle(theme.GetThemeFromRequest(r))

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieTheme,
		Value:    newTheme,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	syntaxTheme := theme.GetDefaultSyntaxTheme(newTheme)
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil && theme.IsSyntaxTheme(cookie.Value) {
		syntaxTheme = cookie.Value
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.Write([]byte(`{"theme":"` + newTheme + `","syntaxTheme":"` + syntaxTheme + `","icon":"` + theme.GetThemeIcon(newTheme) + `"}`))
}

func serveSyntaxThemeSet(w http.ResponseWriter, r *http.Request) {
	currTheme := r.FormValue("syntax-theme")
	if !theme.IsSyntaxTheme(currTheme) {
		http.Error(w, "unknown syntax theme", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    currTheme,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeSyntaxCSS(w, currTheme)
}

func serveSyntaxTheme(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("theme"), ".css")
	if !theme.IsSyntaxTheme(name) {
		http.NotFound(w, r)
		return
	}
	writeSyntaxCSS(w, name)
}

func writeSyntaxCSS(w http.ResponseWriter, name string) {
	css := []byte(theme.GenerateSyntaxCSS(name))
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, `"`+util.ContentHash(css)+`"`)
	w.Write(css)
}
