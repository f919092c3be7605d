package cache

import "html/template"

var (
	staticCache = NewCache[string, string]()
	syntaxCache = NewCache[string, template.CSS]()
)

// GetStaticHash returns the ETag recorded for a static asset URL path.
func GetStaticHash(path string) (string, bool) {
	return staticCache.Get(path)
}

func SetStaticHash(path, hash string) {
	staticCache.Set(path, hash)
}

func GetSyntaxCSS(theme string) (template.CSS, bool) {
	return syntaxCache.Get(theme)
}

func SetSyntaxCSS(theme string, css template.CSS) {
	syntaxCache.Set(theme, css)
}

// SyntaxCSS returns the stylesheet for theme, generating it on first use.
func SyntaxCSS(theme string, generate func() template.CSS) template.CSS {
	return syntaxCache.GetOrSet(theme, generate)
}
