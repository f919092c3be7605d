package model

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/theme"
)

// PageData is what the layout template needs on every page.
type PageData struct {
	SiteName string
	Tagline  string
	Title    string

	PageURL string

	Theme          string
	ThemeIcon      string
	AllowSwitching bool

	SyntaxCSS    template.CSS
	SyntaxTheme  string
	SyntaxThemes []string

	ShowToolbar    *bool
	IsComposerPage *bool
}

func NewPageData(r *http.Request, title string) *PageData {
	syntaxtheme := theme.GetSyntaxThemeFromRequest(r)
	pageTheme := theme.GetThemeFromRequest(r)

	site := config.Default().Site
	allow := true
	if config.AppConfig != nil {
		site = config.AppConfig.Site
		allow = config.AppConfig.Theme.AllowSwitching
	}

	return &PageData{
		SiteName:       site.Name,
		Tagline:        site.Tagline,
		Title:          title,
		PageURL:        r.URL.Path,
		Theme:          pageTheme,
		ThemeIcon:      theme.GetThemeIcon(pageTheme),
		AllowSwitching: allow,
		SyntaxTheme:    syntaxtheme,
		SyntaxThemes:   theme.GetSyntaxThemes(),
		SyntaxCSS:      theme.GenerateSyntaxCSS(syntaxtheme),
	}
}

// FullTitle is the document title: the page title followed by the site name.
func (pd *PageData) FullTitle() string {
	if pd.Title == "" {
		return pd.SiteName
	}
	return pd.Title + " · " + pd.SiteName
}

func (pd *PageData) IsPost() bool {
	if pd.ShowToolbar == nil {
		return strings.HasPrefix(pd.PageURL, config.PostsUrlPath) && !pd.IsComposer()
	}
	return *pd.ShowToolbar
}

func (pd *PageData) IsComposer() bool {
	if pd.IsComposerPage == nil {
		return pd.PageURL == "/posts/new" || strings.HasSuffix(pd.PageURL, "/edit")
	}
	return *pd.IsComposerPage
}
