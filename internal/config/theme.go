package config

import "strings"

const (
	LightTheme string = "light-theme"
	DarkTheme  string = "dark-theme"

	LightThemeIcon string = "☀"
	DarkThemeIcon  string = "☾"

	DefaultDarkSyntaxTheme  string = "gruvbox"
	DefaultLightSyntaxTheme string = "catppuccin-latte"

	DefaultTheme string = DarkTheme
)

// ThemeClass maps a configured or cookie theme name ("light", "dark",
// "light-theme", ...) onto the body class. Unknown names fall back to
// DefaultTheme.
func ThemeClass(name string) string {
	switch strings.TrimSuffix(strings.ToLower(name), "-theme") {
	case "light":
		return LightTheme
	case "dark":
		return DarkTheme
	}
	return DefaultTheme
}
