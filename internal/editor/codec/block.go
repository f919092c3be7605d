package codec

import (
	"strings"

	"github.com/debemdeboas/postly/internal/editor/content"
)

type rawBlock struct {
	block content.Block
	lines []string
}

// scanBlocks splits Markdown into blocks one line at a time. Block markers
// are only recognised at the start of a line. Headings are a single line;
// consecutive quote lines form one quote; unmarked lines continue the
// paragraph or list item above them, and a blank line ends any block.
func scanBlocks(src string) []rawBlock {
	var (
		out []rawBlock
		cur *rawBlock
	)
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	start := func(blk content.Block, line string) {
		flush()
		cur = &rawBlock{block: blk, lines: []string{line}}
	}

	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if level, rest, ok := headingMarker(line); ok {
			start(content.Block{Kind: content.BlockHeading, Level: level}, rest)
			flush()
			continue
		}
		if rest, ok := quoteMarker(line); ok {
			if cur != nil && cur.block.Kind == content.BlockQuote {
				cur.lines = append(cur.lines, rest)
				continue
			}
			start(content.Block{Kind: content.BlockQuote}, rest)
			continue
		}
		if ordered, rest, ok := listMarker(line); ok {
			start(content.Block{Kind: content.BlockListItem, Ordered: ordered}, rest)
			continue
		}

		switch {
		case cur == nil || cur.block.Kind == content.BlockQuote:
			start(content.Block{Kind: content.BlockParagraph}, line)
		case cur.block.Kind == content.BlockListItem:
			cur.lines = append(cur.lines, trimIndent(line, 2))
		default:
			cur.lines = append(cur.lines, line)
		}
	}
	flush()
	return out
}

// headingMarker matches "#", "##" or "###" followed by a space or the end of
// the line.
func headingMarker(line string) (int, string, bool) {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > content.MaxHeadingLevel {
		return 0, "", false
	}
	rest, ok := afterMarker(line[n:])
	return n, rest, ok
}

func quoteMarker(line string) (string, bool) {
	if !strings.HasPrefix(line, ">") {
		return "", false
	}
	rest := line[1:]
	if strings.HasPrefix(rest, " ") {
		rest = rest[1:]
	}
	return rest, true
}

// listMarker matches "- ", "• " and "N. ". A bullet typed in the composer
// shows up as "•" and is read back as an unordered item.
func listMarker(line string) (ordered bool, rest string, ok bool) {
	for _, bullet := range []string{"-", "•"} {
		if strings.HasPrefix(line, bullet) {
			rest, ok = afterMarker(line[len(bullet):])
			return false, rest, ok
		}
	}

	n := 0
	for n < len(line) && line[n] >= '0' && line[n] <= '9' {
		n++
	}
	if n == 0 || n > 9 || n >= len(line) || line[n] != '.' {
		return false, "", false
	}
	rest, ok = afterMarker(line[n+1:])
	return true, rest, ok
}

func afterMarker(s string) (string, bool) {
	switch {
	case s == "":
		return "", true
	case s[0] == ' ':
		return s[1:], true
	}
	return "", false
}

func trimIndent(line string, n int) string {
	for i := 0; i < n && strings.HasPrefix(line, " "); i++ {
		line = line[1:]
	}
	return line
}
