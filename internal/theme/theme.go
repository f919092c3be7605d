// Package theme handles theme management, syntax highlighting, and CSS generation.
package theme

import (
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/debemdeboas/postly/internal/cache"
	"github.com/debemdeboas/postly/internal/config"
)

func defaultTheme() string {
	if config.AppConfig == nil {
		return config.DefaultTheme
	}
	return config.ThemeClass(config.AppConfig.Theme.Default)
}

// GetThemeFromRequest returns the page theme class from the theme cookie,
// falling back to the configured default.
func GetThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieTheme); err == nil && cookie.Value != "" {
		return config.ThemeClass(cookie.Value)
	}
	return defaultTheme()
}

func GetDefaultSyntaxTheme(theme string) string {
	syntax := config.SyntaxConfig{
		DefaultDark:  config.DefaultDarkSyntaxTheme,
		DefaultLight: config.DefaultLightSyntaxTheme,
	}
	if config.AppConfig != nil {
		syntax = config.AppConfig.Theme.SyntaxHighlighting
	}
	return map[string]string{
		config.LightTheme: syntax.DefaultLight,
		config.DarkTheme:  syntax.DefaultDark,
	}[theme]
}

// GetSyntaxThemeFromRequest returns the chroma style named by the syntax
// theme cookie, or the default for the page theme. Unknown styles are
// ignored.
func GetSyntaxThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil && IsSyntaxTheme(cookie.Value) {
		return cookie.Value
	}
	return GetDefaultSyntaxTheme(GetThemeFromRequest(r))
}

func GetSyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func IsSyntaxTheme(name string) bool {
	_, ok := styles.Registry[name]
	return ok
}

func GetFormatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(true),
		html.WrapLongLines(true),
	)
}

// GenerateSyntaxCSS returns the stylesheet for a chroma style, generated once
// per style name. Unknown names get the fallback style.
func GenerateSyntaxCSS(theme string) template.CSS {
	return cache.SyntaxCSS(theme, func() template.CSS {
		var buf strings.Builder
		style := styles.Get(theme)

		bg := style.Get(chroma.Background)
		if !bg.Colour.IsSet() {
			// Pick a readable text colour when the style only sets a background
			luminance := (0.299*float64(bg.Background.Red()) +
				0.587*float64(bg.Background.Green()) +
				0.114*float64(bg.Background.Blue())) / 255
			if luminance > 0.5 {
				buf.WriteString(".chroma { color: #181818; }\n")
			}
		}

		if err := GetFormatter().WriteCSS(&buf, style); err != nil {
			return ""
		}
		return template.CSS(buf.String())
	})
}

// GetThemeIcon returns the icon of the theme a toggle would switch to.
func GetThemeIcon(theme string) string {
	if config.ThemeClass(theme) == config.LightTheme {
		return config.DarkThemeIcon
	}
	return config.LightThemeIcon
}

// Toggle returns the theme opposite to theme.
func Toggle(theme string) string {
	if config.ThemeClass(theme) == config.DarkTheme {
		return config.LightTheme
	}
	return config.DarkTheme
}
