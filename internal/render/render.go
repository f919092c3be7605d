// Package render turns post markdown into reading-view HTML with highlighted
// code blocks. Output is sanitized and cached by content hash and syntax
// theme.
package render

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/cache"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/theme"
	"github.com/debemdeboas/postly/internal/util"
	"github.com/debemdeboas/postly/internal/validation"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	style := styles.Get(highlightTheme)
	formatter := theme.GetFormatter()
	err = formatter.Format(&buf, style, iterator)
	if err != nil {
		return code
	}

	res := html.UnescapeString(buf.String())
	res = config.RegexCallout.ReplaceAllString(res, "<span class=\"callout\">$1</span>")
	return res
}

func rendererName() string {
	if config.AppConfig == nil {
		return config.RendererMmark
	}
	return config.AppConfig.Content.MarkdownRenderer
}

// RenderMarkdown renders md with the configured renderer. The second result
// is the mmark title block, if any.
func RenderMarkdown(md []byte, highlightTheme string) ([]byte, any) {
	switch rendererName() {
	case config.RendererClassic:
		return RenderMarkdownClassic(md, highlightTheme), nil
	default:
		return RenderMarkdownMmark(md, highlightTheme)
	}
}

// Mutex to protect the check-render-set operation in RenderMarkdownCached
var renderCacheMutex sync.Mutex

// RenderMarkdownCached renders and sanitizes md, reusing a previous result
// for the same content hash and syntax theme.
func RenderMarkdownCached(md []byte, contentHash, highlightTheme string) ([]byte, any) {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		out, extra := RenderMarkdown(md, highlightTheme)
		return sanitize(out), extra
	}

	if cached, found := cache.GetRenderedMarkdown(contentHash, highlightTheme); found {
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered markdown")
		return cached.HTML, cached.Extra
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	// Another goroutine may have rendered it while we waited
	if cached, found := cache.GetRenderedMarkdown(contentHash, highlightTheme); found {
		return cached.HTML, cached.Extra
	}

	renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered markdown")
	out, extra := RenderMarkdown(md, highlightTheme)
	out = sanitize(out)
	cache.SetRenderedMarkdown(contentHash, highlightTheme, out, extra)

	return out, extra
}

func sanitize(out []byte) []byte {
	clean, err := validation.SanitizeHTML(string(out))
	if err != nil {
		renderLogger.Error().Err(err).Msg("Failed to sanitize rendered markdown, escaping it")
		return []byte(html.EscapeString(string(out)))
	}
	return []byte(clean)
}

// Post renders a post body for the reading view.
func Post(p *model.Post, highlightTheme string) template.HTML {
	out, _ := RenderMarkdownCached([]byte(p.Content), util.ContentHashString(p.Content), highlightTheme)
	return template.HTML(out)
}

func codeBlockHook(highlightTheme string) func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	return func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
		code, ok := node.(*ast.CodeBlock)
		if !ok || !entering {
			return ast.GoToNext, false
		}
		var lang string
		if info := code.Info; info != nil {
			lang = string(info)
		}
		highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
		fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
		return ast.GoToNext, true
	}
}

func RenderMarkdownClassic(md []byte, highlightTheme string) []byte {
	codeBlock := codeBlockHook(highlightTheme)
	opts := md_html.RendererOptions{
		Flags:    md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, handled := codeBlock(w, node, entering); handled {
				return status, true
			}

			if callout, ok := node.(*ast.Callout); ok && entering {
				fmt.Fprintf(w, "<span class=\"callout\">%s</span>", callout.ID)
				return ast.GoToNext, true
			}

			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
			parser.HeadingIDs | parser.BackslashLineBreak | parser.SuperSubscript | parser.DefinitionLists |
			parser.AutoHeadingIDs | parser.Footnotes | parser.OrderedListStart | parser.NonBlockingSpace,
	).Parse(markdown.NormalizeNewlines(md))

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

func RenderMarkdownMmark(md []byte, highlightTheme string) ([]byte, *mast.TitleData) {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)

	init := mparser.NewInitial("")
	var info *mast.TitleData

	p.Opts = parser.Options{
		ParserHook: func(data []byte) (ast.Node, []byte, int) {
			node, data, consumed := mparser.Hook(data)
			if t, ok := node.(*mast.Title); ok {
				info = t.TitleData
			}
			return node, data, consumed
		},
		ReadIncludeFn: init.ReadInclude,
		Flags:         parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)

	mparser.AddIndex(doc)

	// info.Language may be unset without a title block
	if info == nil {
		info = &mast.TitleData{
			Title:    "Untitled",
			Language: "en",
		}
	}

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(info.Language),
	}

	codeBlock := codeBlockHook(highlightTheme)
	opts := md_html.RendererOptions{
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, handled := codeBlock(w, node, entering); handled {
				return status, true
			}
			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
	}

	return markdown.Render(doc, md_html.NewRenderer(opts)), info
}

// WarmCache renders posts in the background so the first reader hits the
// cache.
func WarmCache(posts []model.Post, highlightTheme string) {
	go func() {
		for i := range posts {
			Post(&posts[i], highlightTheme)
		}
		renderLogger.Debug().Int("posts", len(posts)).Str("highlightTheme", highlightTheme).Msg("Cache warming completed")
	}()
}
