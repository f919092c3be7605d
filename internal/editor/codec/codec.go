// Package codec converts between the stored Markdown form of a post body and
// the content tree the composer edits.
//
// The Markdown dialect is deliberately small: bold (**x**), italic (*x*),
// underline (<u>x</u>), inline code, headings 1 to 3, block quotes, ordered
// and unordered lists, links, images and in-block line breaks. Everything
// else is literal text. None of the functions here fail; malformed markup
// degrades to text.
package codec

import (
	"strings"

	"github.com/debemdeboas/postly/internal/editor/content"
)

// ToDisplay parses stored Markdown into a content tree.
func ToDisplay(markdown string) content.Document {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = strings.ReplaceAll(markdown, "\r", "\n")

	var blocks []content.Block
	for _, rb := range scanBlocks(markdown) {
		blk := rb.block
		blk.Inlines = content.Normalize(parseInlines(strings.Join(rb.lines, "\n")))
		blocks = append(blocks, blk)
	}
	return content.NewDocument(blocks...)
}

// ToStorage serializes a content tree to its canonical Markdown form.
func ToStorage(doc content.Document) string {
	var sb strings.Builder
	var prev *content.Block
	number := 0

	for i := range doc.Blocks {
		blk := doc.Blocks[i]
		inlines := prune(blk.Inlines)
		if blk.Kind == content.BlockParagraph && len(inlines) == 0 {
			continue
		}

		if prev != nil {
			if prev.SameList(blk) {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("\n\n")
			}
		}
		if blk.Kind == content.BlockListItem && blk.Ordered {
			if prev != nil && prev.SameList(blk) {
				number++
			} else {
				number = 1
			}
		}

		writeBlock(&sb, blk, inlines, number)
		prev = &doc.Blocks[i]
	}
	return sb.String()
}
