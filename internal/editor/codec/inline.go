package codec

import (
	"strings"
	"unicode"

	"github.com/debemdeboas/postly/internal/editor/content"
)

const (
	closeBold      = "**"
	closeItalic    = "*"
	closeUnderline = "</u>"
	closeLinkText  = "]"
)

type memoKey struct {
	pos    int
	closer string
}

type memoResult struct {
	nodes []content.Node
	end   int
	ok    bool
}

// inlineParser is a recursive-descent parser over the runes of one block.
// Each (position, closer) attempt is parsed at most once.
type inlineParser struct {
	src  []rune
	memo map[memoKey]memoResult
	last map[string]int
}

func parseInlines(s string) []content.Node {
	p := &inlineParser{
		src:  []rune(s),
		memo: make(map[memoKey]memoResult),
		last: make(map[string]int),
	}
	for _, c := range []string{closeBold, closeItalic, closeUnderline, closeLinkText} {
		p.last[c] = lastRuneIndex(s, c)
	}
	nodes, _, _ := p.parse(0, "")
	return nodes
}

func lastRuneIndex(s, sub string) int {
	i := strings.LastIndex(s, sub)
	if i < 0 {
		return -1
	}
	return len([]rune(s[:i]))
}

// parse reads inline content from pos until closer. With an empty closer it
// consumes the rest of the input and always succeeds. It returns the position
// just past the closer.
func (p *inlineParser) parse(pos int, closer string) ([]content.Node, int, bool) {
	key := memoKey{pos, closer}
	if r, ok := p.memo[key]; ok {
		return r.nodes, r.end, r.ok
	}
	nodes, end, ok := p.parseUncached(pos, closer)
	p.memo[key] = memoResult{nodes, end, ok}
	return nodes, end, ok
}

func (p *inlineParser) parseUncached(pos int, closer string) ([]content.Node, int, bool) {
	if closer != "" && p.last[closer] < pos {
		return nil, pos, false
	}

	var (
		nodes []content.Node
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, content.NewText(text.String()))
			text.Reset()
		}
	}
	emit := func(n content.Node) {
		flush()
		nodes = append(nodes, n)
	}

	i := pos
	for i < len(p.src) {
		if closer != "" && p.hasPrefix(i, closer) && p.canClose(pos, i, closer) {
			flush()
			return nodes, i + len([]rune(closer)), true
		}

		r := p.src[i]
		switch {
		case r == '\\' && i+1 < len(p.src) && isEscapable(p.src[i+1]):
			text.WriteRune(p.src[i+1])
			i += 2
			continue

		case r == '\n':
			emit(content.NewLineBreak())
			i++
			continue

		case r == '`':
			if n, end, ok := p.codeSpan(i); ok {
				emit(n)
				i = end
				continue
			}
			run := p.runLength(i, '`')
			text.WriteString(strings.Repeat("`", run))
			i += run
			continue

		case r == '!' && p.hasPrefix(i, "!["):
			if n, end, ok := p.image(i); ok {
				emit(n)
				i = end
				continue
			}

		case r == '[':
			if n, end, ok := p.link(i); ok {
				emit(n)
				i = end
				continue
			}

		case r == '<' && p.hasPrefix(i, "<u>"):
			if n, end, ok := p.span(i, closeUnderline, content.KindUnderline); ok {
				emit(n)
				i = end
				continue
			}

		case r == '*' && p.hasPrefix(i, closeBold):
			if n, end, ok := p.span(i, closeBold, content.KindBold); ok {
				emit(n)
				i = end
				continue
			}
			if n, end, ok := p.span(i, closeItalic, content.KindItalic); ok {
				emit(n)
				i = end
				continue
			}

		case r == '*':
			if n, end, ok := p.span(i, closeItalic, content.KindItalic); ok {
				emit(n)
				i = end
				continue
			}
		}

		text.WriteRune(r)
		i++
	}

	if closer != "" {
		return nil, pos, false
	}
	flush()
	return nodes, i, true
}

// span parses a delimited format starting at i. The opening delimiter is the
// closer itself for emphasis and "<u>" for underline.
func (p *inlineParser) span(i int, closer string, kind content.Kind) (content.Node, int, bool) {
	open := len([]rune(closer))
	if kind == content.KindUnderline {
		open = len("<u>")
	} else if !p.canOpen(i + open) {
		return content.Node{}, i, false
	}

	children, end, ok := p.parse(i+open, closer)
	if !ok || len(content.Normalize(children)) == 0 {
		return content.Node{}, i, false
	}
	return content.NewSpan(kind, children...), end, true
}

func (p *inlineParser) canOpen(next int) bool {
	return next < len(p.src) && !unicode.IsSpace(p.src[next])
}

// canClose applies the flanking rule to the whole run of asterisks that i
// belongs to: the rune before the run must be content, not whitespace.
func (p *inlineParser) canClose(start, i int, closer string) bool {
	if i == start {
		return false
	}
	switch closer {
	case closeBold, closeItalic:
		k := i
		for k > start && p.src[k-1] == '*' {
			k--
		}
		return k > start && !unicode.IsSpace(p.src[k-1])
	}
	return true
}

func (p *inlineParser) link(i int) (content.Node, int, bool) {
	children, end, ok := p.parse(i+1, closeLinkText)
	if !ok || len(content.Normalize(children)) == 0 {
		return content.Node{}, i, false
	}
	href, end, ok := p.destination(end)
	if !ok {
		return content.Node{}, i, false
	}
	return content.NewLink(href, children...), end, true
}

func (p *inlineParser) image(i int) (content.Node, int, bool) {
	var alt strings.Builder
	j := i + 2
	for ; j < len(p.src); j++ {
		r := p.src[j]
		if r == '\n' {
			return content.Node{}, i, false
		}
		if r == '\\' && j+1 < len(p.src) && isEscapable(p.src[j+1]) {
			j++
			alt.WriteRune(p.src[j])
			continue
		}
		if r == ']' {
			break
		}
		alt.WriteRune(r)
	}
	if j >= len(p.src) {
		return content.Node{}, i, false
	}
	src, end, ok := p.destination(j + 1)
	if !ok {
		return content.Node{}, i, false
	}
	return content.NewImage(src, alt.String()), end, true
}

// destination reads "(url)" at i. The URL may not be empty or contain
// whitespace.
func (p *inlineParser) destination(i int) (string, int, bool) {
	if i >= len(p.src) || p.src[i] != '(' {
		return "", i, false
	}
	for j := i + 1; j < len(p.src); j++ {
		switch r := p.src[j]; {
		case r == ')':
			if j == i+1 {
				return "", i, false
			}
			return string(p.src[i+1 : j]), j + 1, true
		case unicode.IsSpace(r):
			return "", i, false
		}
	}
	return "", i, false
}

// codeSpan matches a backtick run with the next run of the same length. One
// space of padding is stripped from each side when both are present.
func (p *inlineParser) codeSpan(i int) (content.Node, int, bool) {
	n := p.runLength(i, '`')
	for j := i + n; j < len(p.src); {
		if p.src[j] != '`' {
			j++
			continue
		}
		m := p.runLength(j, '`')
		if m == n {
			body := strings.ReplaceAll(string(p.src[i+n:j]), "\n", " ")
			if len(body) >= 2 && body[0] == ' ' && body[len(body)-1] == ' ' && strings.TrimSpace(body) != "" {
				body = body[1 : len(body)-1]
			}
			if body == "" {
				return content.Node{}, i, false
			}
			return content.NewCode(body), j + m, true
		}
		j += m
	}
	return content.Node{}, i, false
}

func (p *inlineParser) runLength(i int, r rune) int {
	n := 0
	for i+n < len(p.src) && p.src[i+n] == r {
		n++
	}
	return n
}

func (p *inlineParser) hasPrefix(i int, s string) bool {
	for _, r := range s {
		if i >= len(p.src) || p.src[i] != r {
			return false
		}
		i++
	}
	return true
}

func isEscapable(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsPunct(r) || r < unicode.MaxASCII && unicode.IsSymbol(r) || r == '•'
}
