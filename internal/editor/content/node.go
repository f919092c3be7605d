// Package content holds the editable document tree behind the post composer:
// blocks of inline nodes, their plain-text projection, caret bookkeeping and
// the operations the toolbar and keyboard shortcuts apply to it.
package content

import (
	"strings"
	"unicode/utf8"
)

type Kind uint8

const (
	KindText Kind = iota
	KindBold
	KindItalic
	KindUnderline
	KindCode
	KindLink
	KindImage
	KindLineBreak
)

var kindNames = [...]string{"text", "bold", "italic", "underline", "code", "link", "image", "linebreak"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

const (
	// Placeholder fills a freshly toggled empty format span so the caret has
	// somewhere to sit. Typing replaces it.
	Placeholder = '\u00A0'

	// ObjectReplacement stands in for an image in the plain-text projection.
	ObjectReplacement = '\uFFFC'
)

// Node is an inline element. Text and Code carry Text; Link carries Href and
// Children; Image carries Src and Alt; Bold, Italic and Underline only carry
// Children.
type Node struct {
	Kind     Kind
	Text     string
	Href     string
	Src      string
	Alt      string
	Children []Node
}

func NewText(s string) Node { return Node{Kind: KindText, Text: s} }

func NewCode(s string) Node { return Node{Kind: KindCode, Text: s} }

func NewSpan(k Kind, children ...Node) Node { return Node{Kind: k, Children: children} }

func NewLink(href string, children ...Node) Node {
	return Node{Kind: KindLink, Href: href, Children: children}
}

func NewImage(src, alt string) Node { return Node{Kind: KindImage, Src: src, Alt: alt} }

func NewLineBreak() Node { return Node{Kind: KindLineBreak} }

func (n Node) IsContainer() bool {
	switch n.Kind {
	case KindBold, KindItalic, KindUnderline, KindLink:
		return true
	}
	return false
}

func (n Node) isLeafText() bool { return n.Kind == KindText || n.Kind == KindCode }

// Len is the node's length in the plain-text projection, in runes.
func (n Node) Len() int {
	switch n.Kind {
	case KindText, KindCode:
		return utf8.RuneCountInString(n.Text)
	case KindImage, KindLineBreak:
		return 1
	}
	return inlineLen(n.Children)
}

func (n Node) writePlain(b *strings.Builder) {
	switch n.Kind {
	case KindText, KindCode:
		b.WriteString(n.Text)
	case KindImage:
		b.WriteRune(ObjectReplacement)
	case KindLineBreak:
		b.WriteByte('\n')
	default:
		for _, c := range n.Children {
			c.writePlain(b)
		}
	}
}

// shallow returns the node without its children, which is how format paths
// are carried around.
func (n Node) shallow() Node {
	c := n
	c.Children = nil
	return c
}

func (n Node) sameFormat(o Node) bool { return n.Kind == o.Kind && n.Href == o.Href }

func (n Node) clone() Node {
	c := n
	c.Children = cloneNodes(n.Children)
	return c
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}

func inlineLen(nodes []Node) int {
	total := 0
	for _, n := range nodes {
		total += n.Len()
	}
	return total
}

// PlainText projects inline nodes to text.
func PlainText(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		n.writePlain(&b)
	}
	return b.String()
}

// Normalize drops empty spans and empty text, merges adjacent text and code
// leaves, and merges adjacent spans of the same format. An empty result is nil.
func Normalize(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		if n.IsContainer() {
			n.Children = Normalize(n.Children)
			if len(n.Children) == 0 {
				continue
			}
		} else if n.isLeafText() && n.Text == "" {
			continue
		}

		if k := len(out); k > 0 {
			prev := &out[k-1]
			if n.isLeafText() && prev.Kind == n.Kind {
				prev.Text += n.Text
				continue
			}
			if n.IsContainer() && prev.sameFormat(n) {
				merged := make([]Node, 0, len(prev.Children)+len(n.Children))
				merged = append(merged, prev.Children...)
				merged = append(merged, n.Children...)
				prev.Children = Normalize(merged)
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

// splitAt cuts nodes at a plain-text offset. Spans straddling the cut are
// duplicated on both sides; empty halves are left for Normalize to drop.
func splitAt(nodes []Node, off int) (left, right []Node) {
	for _, n := range nodes {
		l := n.Len()
		switch {
		case off <= 0:
			right = append(right, n)
		case off >= l:
			left = append(left, n)
		case n.isLeafText():
			r := []rune(n.Text)
			ln, rn := n, n
			ln.Text, rn.Text = string(r[:off]), string(r[off:])
			left = append(left, ln)
			right = append(right, rn)
		default:
			cl, cr := splitAt(n.Children, off)
			ln, rn := n, n
			ln.Children, rn.Children = cl, cr
			left = append(left, ln)
			right = append(right, rn)
		}
		off -= l
	}
	return left, right
}

func slice3(nodes []Node, start, end int) (left, mid, right []Node) {
	left, rest := splitAt(nodes, start)
	mid, right = splitAt(rest, end-start)
	return left, mid, right
}

func concat(parts ...[]Node) []Node {
	var out []Node
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// locate returns the index path to the leaf that holds off, and the offset
// inside that leaf. With left affinity a caret between two leaves belongs to
// the one before it; at offset zero it belongs to the first leaf either way.
func locate(nodes []Node, off int, leftAffinity bool) ([]int, int) {
	for i, n := range nodes {
		l := n.Len()
		if off < l || (off == l && (leftAffinity || i == len(nodes)-1)) {
			if n.IsContainer() {
				sub, rem := locate(n.Children, off, leftAffinity)
				return append([]int{i}, sub...), rem
			}
			return []int{i}, off
		}
		off -= l
	}
	return nil, 0
}

// pathFormats lists the spans along path, outermost first. A code leaf at the
// end of the path is reported as a trailing KindCode entry.
func pathFormats(nodes []Node, path []int) []Node {
	var out []Node
	for _, i := range path {
		if i >= len(nodes) {
			break
		}
		n := nodes[i]
		switch {
		case n.IsContainer():
			out = append(out, n.shallow())
			nodes = n.Children
		case n.Kind == KindCode:
			out = append(out, Node{Kind: KindCode})
		}
	}
	return out
}

// wrapText builds a text leaf nested inside formats.
func wrapText(formats []Node, text string) Node {
	leaf := NewText(text)
	outer := formats
	if k := len(formats); k > 0 && formats[k-1].Kind == KindCode {
		leaf = NewCode(text)
		outer = formats[:k-1]
	}
	for i := len(outer) - 1; i >= 0; i-- {
		c := outer[i].shallow()
		c.Children = []Node{leaf}
		leaf = c
	}
	return leaf
}
