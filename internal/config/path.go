package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	PostsUrlPath      = "/posts/"
	CategoriesUrlPath = "/categories/"

	TemplatesLocalDir = "templates"

	TemplateLayout     = "layout.html"
	TemplateIndex      = "index.html"
	TemplatePost       = "post.html"
	TemplateCategory   = "category.html"
	TemplateDashboard  = "dashboard.html"
	TemplateCategories = "categories.html"
	TemplateComposer   = "composer.html"
	TemplateError      = "error.html"
)
