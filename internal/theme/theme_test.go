package theme

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/debemdeboas/postly/internal/cache"
	"github.com/debemdeboas/postly/internal/config"
)

func setupMockConfig(t *testing.T) {
	t.Helper()
	original := config.AppConfig
	config.AppConfig = config.Default()
	t.Cleanup(func() { config.AppConfig = original })
}

func TestGenerateSyntaxCSS(t *testing.T) {
	testCases := []struct {
		name  string
		theme string
	}{
		{"Valid Theme - Monokai", "monokai"},
		{"Valid Theme - Github", "github"},
		{"Valid Theme - Gruvbox", "gruvbox"},
		{"Non-existent Theme - Fallback", "nonexistent-theme-12345"},
		{"Empty Theme Name", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			css := GenerateSyntaxCSS(tc.theme)
			if css == "" {
				t.Fatal("Expected CSS content, but got empty")
			}
			if !strings.Contains(string(css), ".chroma") {
				t.Errorf("Expected CSS to contain '.chroma' class")
			}

			cached, found := cache.GetSyntaxCSS(tc.theme)
			if !found {
				t.Fatal("Expected CSS to be in cache, but it wasn't")
			}
			if cached != css {
				t.Error("Expected cached CSS to match generated CSS")
			}
			if again := GenerateSyntaxCSS(tc.theme); again != css {
				t.Error("Expected second call to return the cached CSS")
			}
		})
	}
}

func TestGetSyntaxThemes(t *testing.T) {
	themes := GetSyntaxThemes()
	for i := 1; i < len(themes); i++ {
		if themes[i-1] > themes[i] {
			t.Errorf("Themes are not sorted: %s > %s", themes[i-1], themes[i])
		}
	}
	for _, name := range []string{"github", "monokai", "gruvbox"} {
		if !IsSyntaxTheme(name) {
			t.Errorf("Expected common theme %s to be available", name)
		}
	}
	if IsSyntaxTheme("nope-nope") {
		t.Error("Expected unknown theme to be rejected")
	}
}

func TestGetThemeFromRequest(t *testing.T) {
	setupMockConfig(t)

	testCases := []struct {
		name          string
		cookieValue   string
		hasCookie     bool
		expectedTheme string
	}{
		{"No cookie - use default", "", false, config.DarkTheme},
		{"Light cookie", "light", true, config.LightTheme},
		{"Class cookie", config.LightTheme, true, config.LightTheme},
		{"Custom theme cookie", "custom", true, config.DefaultTheme},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.hasCookie {
				req.AddCookie(&http.Cookie{Name: config.CookieTheme, Value: tc.cookieValue})
			}
			if got := GetThemeFromRequest(req); got != tc.expectedTheme {
				t.Errorf("Expected theme %s, got %s", tc.expectedTheme, got)
			}
		})
	}
}

func TestGetSyntaxThemeFromRequest(t *testing.T) {
	setupMockConfig(t)

	testCases := []struct {
		name          string
		themeCookie   string
		syntaxCookie  string
		expectedTheme string
	}{
		{"No cookies", "", "", "gruvbox"},
		{"Only theme cookie", "light", "", "catppuccin-latte"},
		{"Both cookies", "dark", "monokai", "monokai"},
		{"Unknown syntax cookie", "dark", "<script>", "gruvbox"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.themeCookie != "" {
				req.AddCookie(&http.Cookie{Name: config.CookieTheme, Value: tc.themeCookie})
			}
			if tc.syntaxCookie != "" {
				req.AddCookie(&http.Cookie{Name: config.CookieSyntaxTheme, Value: tc.syntaxCookie})
			}
			if got := GetSyntaxThemeFromRequest(req); got != tc.expectedTheme {
				t.Errorf("Expected syntax theme %s, got %s", tc.expectedTheme, got)
			}
		})
	}
}

func TestThemeIconAndToggle(t *testing.T) {
	testCases := []struct {
		theme  string
		icon   string
		toggle string
	}{
		{config.LightTheme, config.DarkThemeIcon, config.DarkTheme},
		{config.DarkTheme, config.LightThemeIcon, config.LightTheme},
		{"unknown", config.LightThemeIcon, config.LightTheme},
	}

	for _, tc := range testCases {
		t.Run(tc.theme, func(t *testing.T) {
			if got := GetThemeIcon(tc.theme); got != tc.icon {
				t.Errorf("Expected icon %s, got %s", tc.icon, got)
			}
			if got := Toggle(tc.theme); got != tc.toggle {
				t.Errorf("Expected toggle to %s, got %s", tc.toggle, got)
			}
		})
	}
}
