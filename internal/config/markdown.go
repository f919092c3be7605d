package config

import "regexp"

// Markdown renderers selectable with content.markdown_renderer.
const (
	RendererMmark   = "mmark"
	RendererClassic = "classic"
)

var (
	RegexCallout = regexp.MustCompile(`//\s*<<(\d+)>>`)
)
