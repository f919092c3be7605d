package codec

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/debemdeboas/postly/internal/editor/content"
)

// RenderHTML renders the tree as the HTML shown on the rich editing surface.
// An empty block holds a single <br> so it keeps its height.
func RenderHTML(doc content.Document) string {
	var buf bytes.Buffer
	for i := 0; i < len(doc.Blocks); i++ {
		blk := doc.Blocks[i]
		if blk.Kind == content.BlockListItem {
			list := element(atom.Ul)
			if blk.Ordered {
				list = element(atom.Ol)
			}
			for ; i < len(doc.Blocks) && doc.Blocks[i].SameList(blk); i++ {
				li := element(atom.Li)
				appendInlines(li, doc.Blocks[i].Inlines)
				list.AppendChild(li)
			}
			i--
			html.Render(&buf, list)
			continue
		}

		var n *html.Node
		switch blk.Kind {
		case content.BlockHeading:
			n = element(headingAtom(blk.Level))
		case content.BlockQuote:
			n = element(atom.Blockquote)
		default:
			n = element(atom.P)
		}
		appendInlines(n, blk.Inlines)
		if n.FirstChild == nil {
			n.AppendChild(element(atom.Br))
		}
		html.Render(&buf, n)
	}
	return buf.String()
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func headingAtom(level int) atom.Atom {
	switch level {
	case 1:
		return atom.H1
	case 2:
		return atom.H2
	}
	return atom.H3
}

func appendInlines(parent *html.Node, nodes []content.Node) {
	for _, n := range nodes {
		var el *html.Node
		switch n.Kind {
		case content.KindText:
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
			continue
		case content.KindCode:
			el = element(atom.Code)
			el.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
		case content.KindLineBreak:
			el = element(atom.Br)
		case content.KindImage:
			el = element(atom.Img,
				html.Attribute{Key: "src", Val: n.Src},
				html.Attribute{Key: "alt", Val: n.Alt})
		case content.KindLink:
			el = element(atom.A, html.Attribute{Key: "href", Val: n.Href})
		case content.KindBold:
			el = element(atom.Strong)
		case content.KindItalic:
			el = element(atom.Em)
		case content.KindUnderline:
			el = element(atom.U)
		default:
			continue
		}
		appendInlines(el, n.Children)
		parent.AppendChild(el)
	}
}

// ParseHTML reads the editing surface back into a tree. Unknown elements are
// unwrapped, script and style are dropped, and trailing <br>s are trimmed
// from every block.
func ParseHTML(src string) content.Document {
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return content.NewDocument(content.NewParagraph(content.NewText(src)))
	}

	r := &htmlReader{}
	for _, n := range nodes {
		r.walk(n)
	}
	r.flush()
	return content.NewDocument(r.blocks...)
}

type htmlReader struct {
	blocks  []content.Block
	pending []content.Node
}

func (r *htmlReader) flush() {
	inlines := trimBreaks(r.pending)
	r.pending = nil
	if strings.TrimSpace(content.PlainText(inlines)) == "" && !hasAtom(inlines) {
		return
	}
	r.blocks = append(r.blocks, content.NewParagraph(inlines...))
}

func (r *htmlReader) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.pending = append(r.pending, content.NewText(flattenSpace(n.Data)))
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Template:
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer:
		r.flush()
		before := len(r.blocks)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
		r.flush()
		if len(r.blocks) == before {
			r.blocks = append(r.blocks, content.NewParagraph())
		}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		r.flush()
		level, _ := strconv.Atoi(n.Data[1:])
		r.blocks = append(r.blocks, content.NewHeading(level, trimBreaks(inlinesOf(n))...))
	case atom.Blockquote:
		r.flush()
		sub := &htmlReader{}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			sub.walk(c)
		}
		sub.flush()
		for _, blk := range sub.blocks {
			r.blocks = append(r.blocks, content.NewQuote(blk.Inlines...))
		}
		if len(sub.blocks) == 0 {
			r.blocks = append(r.blocks, content.NewQuote())
		}
	case atom.Ul, atom.Ol:
		r.flush()
		ordered := n.DataAtom == atom.Ol
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				r.blocks = append(r.blocks, content.NewListItem(ordered, trimBreaks(inlinesOf(c))...))
			}
		}
	case atom.Li:
		r.flush()
		r.blocks = append(r.blocks, content.NewListItem(false, trimBreaks(inlinesOf(n))...))
	case atom.Hr:
		r.flush()
	default:
		r.pending = append(r.pending, inlineNode(n)...)
	}
}

func inlinesOf(n *html.Node) []content.Node {
	var out []content.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlockElement(c) && len(out) > 0 && out[len(out)-1].Kind != content.KindLineBreak {
			out = append(out, content.NewLineBreak())
		}
		out = append(out, inlineNode(c)...)
	}
	return out
}

func inlineNode(n *html.Node) []content.Node {
	switch n.Type {
	case html.TextNode:
		return []content.Node{content.NewText(flattenSpace(n.Data))}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template:
		return nil
	case atom.Br:
		return []content.Node{content.NewLineBreak()}
	case atom.Img:
		return []content.Node{content.NewImage(attr(n, "src"), attr(n, "alt"))}
	case atom.Code:
		return []content.Node{content.NewCode(flattenSpace(textOf(n)))}
	case atom.Strong, atom.B:
		return []content.Node{content.NewSpan(content.KindBold, inlinesOf(n)...)}
	case atom.Em, atom.I:
		return []content.Node{content.NewSpan(content.KindItalic, inlinesOf(n)...)}
	case atom.U:
		return []content.Node{content.NewSpan(content.KindUnderline, inlinesOf(n)...)}
	case atom.A:
		if href := attr(n, "href"); href != "" {
			return []content.Node{content.NewLink(href, inlinesOf(n)...)}
		}
	}
	return inlinesOf(n)
}

func isBlockElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.Div, atom.Blockquote, atom.Ul, atom.Ol, atom.Li,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}

var spaceFlattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func flattenSpace(s string) string { return spaceFlattener.Replace(s) }

func trimBreaks(nodes []content.Node) []content.Node {
	nodes = content.Normalize(nodes)
	for len(nodes) > 0 && nodes[len(nodes)-1].Kind == content.KindLineBreak {
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}

func hasAtom(nodes []content.Node) bool {
	for _, n := range nodes {
		if n.Kind == content.KindImage || (n.IsContainer() && hasAtom(n.Children)) {
			return true
		}
	}
	return false
}
