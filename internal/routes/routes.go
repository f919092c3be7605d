// Package routes defines HTTP route constants for the application.
package routes

// Reading pages
const (
	RobotsPath   = "/robots.txt"
	RootPath     = "/{$}"
	PostPage     = "/posts/{slug}"
	CategoryPage = "/categories/{slug}"
	SSEPath      = "/sse"
)

// Theme
const (
	ThemeOppositeIcon = "/theme/opposite-icon"
	ThemeToggle       = "/theme/toggle"
	SyntaxThemeSet    = "/syntax-theme/set"
	SyntaxThemeGet    = "/syntax-theme/{theme}"
)

// Dashboard
const (
	Dashboard            = "/dashboard"
	DashboardCategories  = "/dashboard/categories"
	DashboardDeletePost  = "/dashboard/posts/{id}/delete"
	DashboardPublishPost = "/dashboard/posts/{id}/publish"
	DashboardCategory    = "/dashboard/categories/{id}"
)

// Composer
const (
	NewPost              = "/posts/new"
	EditPost             = "/posts/{id}/edit"
	PartialsDraftPreview = "/partials/draft/preview"
	APIDrafts            = "/api/drafts/{key}"
	APIImages            = "/api/images"
)

// RPC
const (
	RPCProcedure = "/rpc/{procedure}"
)
