// Package validation cleans HTML before it is served as a post body.
package validation

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var droppedElements = "script, style, iframe, frame, frameset, object, embed, applet, form, input, button, textarea, select, meta, link, base"

var urlAttributes = []string{"href", "src", "action", "formaction", "xlink:href", "poster"}

// SanitizeHTML removes active content from a rendered HTML fragment:
// scripting elements, event handler attributes and javascript:, vbscript:
// or non-image data: URLs. Links opening a new tab get rel="noopener
// noreferrer".
func SanitizeHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find(droppedElements).Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		var remove []string
		for _, a := range node.Attr {
			name := strings.ToLower(a.Key)
			if strings.HasPrefix(name, "on") || name == "style" && strings.Contains(strings.ToLower(a.Val), "expression(") {
				remove = append(remove, a.Key)
			}
		}
		for _, name := range urlAttributes {
			if v, ok := s.Attr(name); ok && !safeURL(v, node.Data == "img" && name == "src") {
				remove = append(remove, name)
			}
		}
		for _, name := range remove {
			s.RemoveAttr(name)
		}
	})

	doc.Find(`a[target="_blank"]`).SetAttr("rel", "noopener noreferrer")

	return doc.Find("body").Html()
}

func safeURL(v string, image bool) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	switch {
	case strings.HasPrefix(v, "javascript:"), strings.HasPrefix(v, "vbscript:"):
		return false
	case strings.HasPrefix(v, "data:"):
		return image && strings.HasPrefix(v, "data:image/") && !strings.HasPrefix(v, "data:image/svg")
	}
	return true
}

// FirstImage returns the src of the first image in an HTML fragment, or "".
func FirstImage(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}
