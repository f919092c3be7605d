package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/cache"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/repository"
	"github.com/debemdeboas/postly/internal/retry"
	"github.com/debemdeboas/postly/internal/sse"
)

type fixture struct {
	svc     *blog.Service
	clients *sse.SSEClients
	mux     *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewSQLite(db.MemoryPath)
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	svc := blog.NewService(
		repository.NewDBPostRepository(database),
		repository.NewDBCategoryRepository(database),
		blog.WithRetryPolicy(retry.Policy{Attempts: 1, Base: time.Millisecond}),
	)
	tmpl, err := ParseTemplates()
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}

	f := &fixture{svc: svc, clients: sse.NewSSEClients(), mux: http.NewServeMux()}
	NewHandler(svc, f.clients, tmpl).Register(f.mux)
	return f
}

func (f *fixture) post(t *testing.T, in model.PostInput) *model.Post {
	t.Helper()
	p, err := f.svc.CreatePost(context.Background(), in)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return p
}

func (f *fixture) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestParseTemplates(t *testing.T) {
	tmpl, err := ParseTemplates()
	if err != nil {
		t.Fatalf("Expected templates to parse, got %v", err)
	}
	for _, page := range pages {
		if _, ok := tmpl.sets[page]; !ok {
			t.Errorf("Expected a template set for %s", page)
		}
	}
}

func TestIndexListsPublishedPosts(t *testing.T) {
	f := newFixture(t)
	f.post(t, model.PostInput{Title: "Visible post", Content: "Hello", Published: true})
	f.post(t, model.PostInput{Title: "Hidden draft", Content: "Secret"})

	rec := f.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Visible post") {
		t.Error("Expected the published post on the front page")
	}
	if strings.Contains(body, "Hidden draft") {
		t.Error("Expected unpublished posts to stay off the front page")
	}
	if !strings.Contains(body, "<title>Postly</title>") {
		t.Error("Expected the site name as the document title")
	}
}

func TestIndexPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < blog.DefaultLimit+2; i++ {
		f.post(t, model.PostInput{Title: "Post", Content: "Body", Published: true})
	}

	first := f.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(first, `href="/?page=2"`) {
		t.Error("Expected a link to the second page")
	}
	if strings.Contains(first, "Newer") {
		t.Error("Expected no link back from the first page")
	}

	second := f.do(http.MethodGet, "/?page=2", nil).Body.String()
	if strings.Contains(second, "Older") {
		t.Error("Expected the last page to have no next link")
	}
	if got := strings.Count(second, `class="post-card"`); got != 2 {
		t.Errorf("Expected 2 posts on the second page, got %d", got)
	}
}

func TestIndexSearch(t *testing.T) {
	f := newFixture(t)
	f.post(t, model.PostInput{Title: "Go generics", Content: "Type parameters", Published: true})
	f.post(t, model.PostInput{Title: "Gardening", Content: "Tomatoes", Published: true})

	body := f.do(http.MethodGet, "/?q=generics", nil).Body.String()
	if !strings.Contains(body, "Go generics") || strings.Contains(body, "Gardening") {
		t.Error("Expected only the matching post")
	}
	if !strings.Contains(body, `value="generics"`) {
		t.Error("Expected the search box to keep the query")
	}
}

func TestPostPage(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, model.PostInput{Title: "Rendered", Content: "Some **bold** text", Published: true})

	rec := f.do(http.MethodGet, p.Path(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Error("Expected the markdown to be rendered")
	}
	if !strings.Contains(body, `content="`+p.Slug+`"`) {
		t.Error("Expected the slug for live reload")
	}
	if !strings.Contains(body, model.DefaultImage) {
		t.Error("Expected the placeholder cover image")
	}
}

func TestPostPageHidesDrafts(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, model.PostInput{Title: "Not yet", Content: "Body"})

	rec := f.do(http.MethodGet, p.Path(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "post not found") {
		t.Error("Expected the error page")
	}
}

func TestCategoryPage(t *testing.T) {
	f := newFixture(t)
	cat, err := f.svc.CreateCategory(context.Background(), model.CategoryInput{Name: "Go Tips", Description: "Small things"})
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	f.post(t, model.PostInput{Title: "In category", Content: "x", Published: true, CategoryIDs: []int64{cat.ID}})
	f.post(t, model.PostInput{Title: "Elsewhere", Content: "y", Published: true})

	rec := f.do(http.MethodGet, "/categories/"+cat.Slug, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "In category") || strings.Contains(body, "Elsewhere") {
		t.Error("Expected only the category's posts")
	}

	if rec := f.do(http.MethodGet, "/categories/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown category, got %d", rec.Code)
	}
}

func TestDashboardPublishToggle(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, model.PostInput{Title: "Unreleased", Content: "Body"})

	if body := f.do(http.MethodGet, "/dashboard", nil).Body.String(); !strings.Contains(body, "Unreleased") {
		t.Error("Expected the dashboard to list unpublished posts")
	}

	rec := f.do(http.MethodPost, "/dashboard/posts/"+itoa(p.ID)+"/publish", url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rec.Code)
	}
	got, err := f.svc.GetPostByID(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Published {
		t.Error("Expected the post to be published")
	}
}

func TestDashboardDelete(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, model.PostInput{Title: "Doomed", Content: "Body"})

	rec := f.do(http.MethodPost, "/dashboard/posts/"+itoa(p.ID)+"/delete", url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rec.Code)
	}
	if _, err := f.svc.GetPostByID(context.Background(), p.ID); err == nil {
		t.Error("Expected the post to be gone")
	}

	if rec := f.do(http.MethodPost, "/dashboard/posts/abc/delete", url.Values{}); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a malformed id, got %d", rec.Code)
	}
}

func TestDashboardCategories(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/dashboard/categories", url.Values{"name": {"  "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty name, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `data-field="name"`) {
		t.Error("Expected the form error to name the field")
	}

	rec = f.do(http.MethodPost, "/dashboard/categories", url.Values{"name": {"Rust"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rec.Code)
	}
	cats, _ := f.svc.ListCategories(context.Background())
	if len(cats) != 1 {
		t.Fatalf("Expected 1 category, got %d", len(cats))
	}

	target := "/dashboard/categories/" + itoa(cats[0].ID)
	f.do(http.MethodPost, target, url.Values{"action": {"update"}, "name": {"Rustacean"}, "description": {"Crabs"}})
	cats, _ = f.svc.ListCategories(context.Background())
	if cats[0].Name != "Rustacean" || cats[0].Description != "Crabs" {
		t.Errorf("Expected the category to be renamed, got %+v", cats[0])
	}

	f.do(http.MethodPost, target, url.Values{"action": {"delete"}})
	if cats, _ = f.svc.ListCategories(context.Background()); len(cats) != 0 {
		t.Errorf("Expected no categories, got %d", len(cats))
	}
}

func TestThemeToggle(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/theme/toggle", nil)
	req.AddCookie(&http.Cookie{Name: config.CookieTheme, Value: config.LightTheme})
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != config.DarkTheme {
		t.Fatalf("Expected the dark theme cookie, got %v", cookies)
	}
	if !strings.Contains(rec.Body.String(), `"theme":"`+config.DarkTheme+`"`) {
		t.Errorf("Expected the new theme in the body, got %s", rec.Body.String())
	}
}

func TestSyntaxThemeEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/syntax-theme/monokai.css", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(config.HCType) != config.CTypeCSS {
		t.Errorf("Expected CSS, got %q", rec.Header().Get(config.HCType))
	}

	if rec := f.do(http.MethodGet, "/syntax-theme/nope.css", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown style, got %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/syntax-theme/set", url.Values{"syntax-theme": {"dracula"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].Value != "dracula" {
		t.Errorf("Expected the syntax theme cookie, got %v", c)
	}
}

func TestStaticAndRobots(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/robots.txt", nil); !strings.Contains(rec.Body.String(), "Disallow: /dashboard") {
		t.Errorf("Expected robots rules, got %q", rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/static/app.css", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected the stylesheet, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, model.DefaultImage, nil); rec.Code != http.StatusOK {
		t.Errorf("Expected the placeholder image, got %d", rec.Code)
	}
}

func TestRecordStaticHashes(t *testing.T) {
	if err := RecordStaticHashes(); err != nil {
		t.Fatalf("Expected hashes to be recorded, got %v", err)
	}
	if hash, ok := cache.GetStaticHash(config.StaticUrlPath + "app.js"); !ok || hash == "" {
		t.Error("Expected a hash for app.js")
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
