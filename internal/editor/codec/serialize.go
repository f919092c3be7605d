package codec

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/debemdeboas/postly/internal/editor/content"
)

func writeBlock(sb *strings.Builder, blk content.Block, inlines []content.Node, number int) {
	body := writeInlines(inlines)
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = escapeLineStart(line)
	}

	switch blk.Kind {
	case content.BlockHeading:
		sb.WriteString(strings.Repeat("#", max(1, min(blk.Level, content.MaxHeadingLevel))))
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(lines, " "))
	case content.BlockQuote:
		sb.WriteString("> ")
		sb.WriteString(strings.Join(lines, "\n> "))
	case content.BlockListItem:
		if blk.Ordered {
			sb.WriteString(strconv.Itoa(number))
			sb.WriteString(". ")
		} else {
			sb.WriteString("- ")
		}
		sb.WriteString(strings.Join(lines, "\n  "))
	default:
		sb.WriteString(strings.Join(lines, "\n"))
	}
}

// prune drops spans that hold nothing but the typing placeholder and line
// breaks at either edge of the block, then rebuilds the rest in canonical
// nesting.
func prune(nodes []content.Node) []content.Node {
	leaves := flatten(dropPlaceholders(nodes), marks{}, nil)
	for len(leaves) > 0 && leaves[0].node.Kind == content.KindLineBreak {
		leaves = leaves[1:]
	}
	for len(leaves) > 0 && leaves[len(leaves)-1].node.Kind == content.KindLineBreak {
		leaves = leaves[:len(leaves)-1]
	}
	return content.Normalize(nest(leaves, 0))
}

func dropPlaceholders(nodes []content.Node) []content.Node {
	var out []content.Node
	for _, n := range nodes {
		if n.IsContainer() {
			if content.PlainText(n.Children) == string(content.Placeholder) {
				continue
			}
			n.Children = dropPlaceholders(n.Children)
		} else if n.Kind == content.KindCode && n.Text == string(content.Placeholder) {
			continue
		}
		out = append(out, n)
	}
	return content.Normalize(out)
}

// marks are the container formats that apply to one leaf.
type marks struct {
	href      string
	link      bool
	bold      bool
	italic    bool
	underline bool
}

type markedLeaf struct {
	node  content.Node
	marks marks
}

func flatten(nodes []content.Node, m marks, out []markedLeaf) []markedLeaf {
	for _, n := range nodes {
		inner := m
		switch n.Kind {
		case content.KindLink:
			inner.link, inner.href = true, n.Href
		case content.KindBold:
			inner.bold = true
		case content.KindItalic:
			inner.italic = true
		case content.KindUnderline:
			inner.underline = true
		default:
			out = append(out, markedLeaf{node: n, marks: m})
			continue
		}
		out = flatten(n.Children, inner, out)
	}
	return out
}

// nesting orders container formats from outermost to innermost. Every run of
// leaves sharing a format becomes one span, so a format never closes and
// reopens between two leaves that both carry it. Delimiter runs of different
// spans then only touch as close-then-open at a leaf boundary, which the
// inline parser splits by closing the innermost open span first.
var nesting = []struct {
	kind content.Kind
	of   func(marks) (string, bool)
}{
	{content.KindLink, func(m marks) (string, bool) { return m.href, m.link }},
	{content.KindBold, func(m marks) (string, bool) { return "", m.bold }},
	{content.KindItalic, func(m marks) (string, bool) { return "", m.italic }},
	{content.KindUnderline, func(m marks) (string, bool) { return "", m.underline }},
}

func nest(leaves []markedLeaf, level int) []content.Node {
	var out []content.Node
	if level == len(nesting) {
		for _, l := range leaves {
			out = append(out, l.node)
		}
		return out
	}

	format := nesting[level]
	for i := 0; i < len(leaves); {
		href, on := format.of(leaves[i].marks)
		j := i + 1
		for ; j < len(leaves); j++ {
			if h, o := format.of(leaves[j].marks); h != href || o != on {
				break
			}
		}
		children := nest(leaves[i:j], level+1)
		if on {
			span := content.NewSpan(format.kind, children...)
			span.Href = href
			out = append(out, span)
		} else {
			out = append(out, children...)
		}
		i = j
	}
	return out
}

// writeInlines renders inline nodes. Line breaks come out as bare "\n"; the
// caller adds block prefixes.
func writeInlines(nodes []content.Node) string {
	var sb strings.Builder
	for i, n := range nodes {
		nextIsLink := i+1 < len(nodes) && nodes[i+1].Kind == content.KindLink
		writeInline(&sb, n, nextIsLink)
	}
	return sb.String()
}

func writeInline(sb *strings.Builder, n content.Node, nextIsLink bool) {
	switch n.Kind {
	case content.KindText:
		text := escapeText(n.Text)
		if nextIsLink && strings.HasSuffix(text, "!") {
			text = text[:len(text)-1] + `\!`
		}
		sb.WriteString(text)
	case content.KindCode:
		sb.WriteString(codeSpan(n.Text))
	case content.KindLineBreak:
		sb.WriteByte('\n')
	case content.KindImage:
		sb.WriteString("![")
		sb.WriteString(escapeAlt(n.Alt))
		sb.WriteString("](")
		sb.WriteString(encodeDestination(n.Src))
		sb.WriteByte(')')
	case content.KindLink:
		inner := writeInlines(n.Children)
		if n.Href == "" {
			sb.WriteString(inner)
			return
		}
		sb.WriteByte('[')
		sb.WriteString(inner)
		sb.WriteString("](")
		sb.WriteString(encodeDestination(n.Href))
		sb.WriteByte(')')
	case content.KindBold:
		writeDelimited(sb, writeInlines(n.Children), "**", "**")
	case content.KindItalic:
		writeDelimited(sb, writeInlines(n.Children), "*", "*")
	case content.KindUnderline:
		writeDelimited(sb, writeInlines(n.Children), "<u>", "</u>")
	}
}

// writeDelimited moves whitespace at either edge of a span outside its
// delimiters, so "** x**" is never produced.
func writeDelimited(sb *strings.Builder, inner, open, close string) {
	core := strings.TrimLeftFunc(inner, unicode.IsSpace)
	lead := inner[:len(inner)-len(core)]
	core = strings.TrimRightFunc(core, unicode.IsSpace)
	trail := inner[len(lead)+len(core):]

	sb.WriteString(lead)
	if core != "" {
		sb.WriteString(open)
		sb.WriteString(core)
		sb.WriteString(close)
	}
	sb.WriteString(trail)
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	var sb strings.Builder
	for i, r := range s {
		switch r {
		case '\\', '*', '`', '[', ']':
			sb.WriteByte('\\')
		case '<':
			rest := s[i+1:]
			if strings.HasPrefix(rest, "u>") || strings.HasPrefix(rest, "/u>") {
				sb.WriteByte('\\')
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func escapeAlt(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	var sb strings.Builder
	for _, r := range s {
		if r == '\\' || r == ']' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var destinationEscaper = strings.NewReplacer(" ", "%20", "\n", "%20", "\t", "%20", "(", "%28", ")", "%29")

func encodeDestination(s string) string {
	return destinationEscaper.Replace(s)
}

// codeSpan picks a fence one backtick longer than the longest run inside s
// and pads when the content would otherwise touch the fence or lose an edge
// space.
func codeSpan(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)

	pad := strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") ||
		(len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "")
	if pad {
		s = " " + s + " "
	}
	return fence + s + fence
}

// escapeLineStart escapes text at the start of a line that the block scanner
// would otherwise read as a marker.
func escapeLineStart(line string) string {
	switch {
	case strings.HasPrefix(line, "#"), strings.HasPrefix(line, ">"):
		return `\` + line
	case isBulletLine(line, "-"), isBulletLine(line, "•"):
		return `\` + line
	}

	n := 0
	for n < len(line) && line[n] >= '0' && line[n] <= '9' {
		n++
	}
	if n > 0 && n <= 9 && n < len(line) && line[n] == '.' {
		if _, ok := afterMarker(line[n+1:]); ok {
			return line[:n] + `\` + line[n:]
		}
	}
	return line
}

func isBulletLine(line, bullet string) bool {
	if !strings.HasPrefix(line, bullet) {
		return false
	}
	_, ok := afterMarker(line[len(bullet):])
	return ok
}
