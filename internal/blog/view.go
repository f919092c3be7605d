package blog

import (
	"strings"

	"github.com/debemdeboas/postly/internal/editor/codec"
	"github.com/debemdeboas/postly/internal/images"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/util"
)

// PostView is a post with the derived fields the reading pages show.
type PostView struct {
	model.Post
	ReadingTime string
	Excerpt     string
	ImageURL    string
}

func View(p model.Post) PostView {
	plain := PlainText(p.Content)
	return PostView{
		Post:        p,
		ReadingTime: util.ReadingTime(plain),
		Excerpt:     util.Excerpt(plain, util.ExcerptLength),
		ImageURL:    images.ImageOrFallback(p.Image),
	}
}

func Views(posts []model.Post) []PostView {
	out := make([]PostView, len(posts))
	for i, p := range posts {
		out[i] = View(p)
	}
	return out
}

// PlainText strips markdown syntax from content, leaving the words a reader
// sees.
func PlainText(markdown string) string {
	text := codec.ToDisplay(markdown).PlainText()
	return strings.ReplaceAll(text, "\uFFFC", " ")
}
