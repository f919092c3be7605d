package content

import (
	"strings"
	"unicode/utf8"
)

// InsertText replaces the selection with text. Newlines split the block.
// Typed text takes the formats of the first replaced character, or of a
// typing anchor at the caret, or of the character before the caret.
func (b *Buffer) InsertText(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			b.SplitBlock()
		}
		if part != "" {
			b.insertRun(part)
		}
	}
}

func (b *Buffer) insertRun(text string) {
	s, e := b.sel.Range()
	var formats []Node
	switch {
	case s != e:
		formats = b.formatsAt(s, false)
		b.deleteRange(s, e)
	case b.anchor != nil && b.anchor.offset == s:
		formats = b.anchor.formats
	default:
		formats = b.formatsAt(s, true)
	}
	b.placeholder = -1
	b.insertNodes(s, wrapText(formats, text))
	b.collapse(s + utf8.RuneCountInString(text))
}

// InsertLineBreak replaces the selection with a line break inside the block.
func (b *Buffer) InsertLineBreak() {
	b.replaceSelection(NewLineBreak())
}

// InsertImage replaces the selection with an image.
func (b *Buffer) InsertImage(src, alt string) {
	b.replaceSelection(NewImage(src, alt))
}

// InsertLink links the selected range to href, keeping its formatting. With
// no selection, or when text is given, text (or href itself) is inserted as
// the link label.
func (b *Buffer) InsertLink(href, text string) {
	s, e := b.sel.Range()
	if s != e && text == "" {
		bs, ls := b.doc.blockAt(s)
		be, le := b.doc.blockAt(e)
		if bs == be {
			_, mid, _ := slice3(b.doc.Blocks[bs].Inlines, ls, le)
			link := NewLink(href, stripFormat(mid, KindLink)...)
			b.deleteRange(s, e)
			b.insertNodes(s, link)
			b.collapse(s + link.Len())
			return
		}
		plain := []rune(strings.ReplaceAll(b.doc.PlainText(), "\n", " "))
		text = string(plain[s:e])
	}
	if text == "" {
		text = href
	}
	b.replaceSelection(NewLink(href, NewText(text)))
}

func (b *Buffer) replaceSelection(n Node) {
	s, e := b.sel.Range()
	b.placeholder = -1
	b.deleteRange(s, e)
	b.insertNodes(s, n)
	b.collapse(s + n.Len())
}

// SplitBlock ends the current block at the caret. Splitting an empty list
// item turns it back into a paragraph; the half after a heading becomes a
// paragraph.
func (b *Buffer) SplitBlock() {
	s, e := b.sel.Range()
	b.placeholder = -1
	b.deleteRange(s, e)

	bi, local := b.doc.blockAt(s)
	blk := b.doc.Blocks[bi]
	if blk.Kind == BlockListItem && blk.Len() == 0 {
		b.doc.Blocks[bi] = Block{Kind: BlockParagraph}
		b.collapse(s)
		return
	}

	left, right := splitAt(blk.Inlines, local)
	first, second := blk, blk
	first.Inlines, second.Inlines = Normalize(left), Normalize(right)
	if second.Kind == BlockHeading {
		second.Kind, second.Level = BlockParagraph, 0
	}

	blocks := make([]Block, 0, len(b.doc.Blocks)+1)
	blocks = append(blocks, b.doc.Blocks[:bi]...)
	blocks = append(blocks, first, second)
	blocks = append(blocks, b.doc.Blocks[bi+1:]...)
	b.doc.Blocks = blocks
	b.collapse(s + 1)
}

// Delete removes [start, end). Removing a block boundary merges the two
// blocks into the first one.
func (b *Buffer) Delete(start, end int) {
	start, end = b.clamp(start), b.clamp(end)
	if start > end {
		start, end = end, start
	}
	b.placeholder = -1
	b.deleteRange(start, end)
	b.collapse(start)
}

// DeleteBackward removes the selection, or the character before the caret.
func (b *Buffer) DeleteBackward() {
	s, e := b.sel.Range()
	if s != e {
		b.Delete(s, e)
		return
	}
	if s > 0 {
		b.Delete(s-1, s)
	}
}

// SetBlock changes the kind of every selected block. level is only used for
// headings; list items created this way are unordered.
func (b *Buffer) SetBlock(kind BlockKind, level int) {
	b.reshape(func(blk *Block) {
		next := Block{Kind: kind, Inlines: blk.Inlines}
		if kind == BlockHeading {
			next.Level = clampLevel(level)
		}
		*blk = next
	})
}

// SetHeading turns the selected blocks into headings, or paragraphs for
// level 0.
func (b *Buffer) SetHeading(level int) {
	if level <= 0 {
		b.SetBlock(BlockParagraph, 0)
		return
	}
	b.SetBlock(BlockHeading, level)
}

// ToggleList turns the selected blocks into list items, or back into
// paragraphs when they already are items of that kind of list.
func (b *Buffer) ToggleList(ordered bool) {
	all := b.allBlocks(func(blk Block) bool { return blk.Kind == BlockListItem && blk.Ordered == ordered })
	b.reshape(func(blk *Block) {
		if all {
			*blk = Block{Kind: BlockParagraph, Inlines: blk.Inlines}
			return
		}
		*blk = Block{Kind: BlockListItem, Ordered: ordered, Inlines: blk.Inlines}
	})
}

func (b *Buffer) ToggleQuote() {
	all := b.allBlocks(func(blk Block) bool { return blk.Kind == BlockQuote })
	b.reshape(func(blk *Block) {
		if all {
			*blk = Block{Kind: BlockParagraph, Inlines: blk.Inlines}
			return
		}
		*blk = Block{Kind: BlockQuote, Inlines: blk.Inlines}
	})
}

func (b *Buffer) selectedBlocks() (int, int) {
	s, e := b.sel.Range()
	first, _ := b.doc.blockAt(s)
	last, _ := b.doc.blockAt(e)
	return first, last
}

func (b *Buffer) allBlocks(pred func(Block) bool) bool {
	first, last := b.selectedBlocks()
	for i := first; i <= last; i++ {
		if !pred(b.doc.Blocks[i]) {
			return false
		}
	}
	return true
}

func (b *Buffer) reshape(fn func(*Block)) {
	first, last := b.selectedBlocks()
	for i := first; i <= last; i++ {
		fn(&b.doc.Blocks[i])
	}
}

func (b *Buffer) insertNodes(off int, nodes ...Node) {
	bi, local := b.doc.blockAt(off)
	blk := &b.doc.Blocks[bi]
	left, right := splitAt(blk.Inlines, local)
	blk.Inlines = Normalize(concat(left, nodes, right))
}

func (b *Buffer) deleteRange(s, e int) {
	if s >= e {
		return
	}
	bs, ls := b.doc.blockAt(s)
	be, le := b.doc.blockAt(e)
	left, _ := splitAt(b.doc.Blocks[bs].Inlines, ls)
	_, right := splitAt(b.doc.Blocks[be].Inlines, le)

	merged := b.doc.Blocks[bs]
	merged.Inlines = Normalize(concat(left, right))

	blocks := make([]Block, 0, len(b.doc.Blocks)-(be-bs))
	blocks = append(blocks, b.doc.Blocks[:bs]...)
	blocks = append(blocks, merged)
	blocks = append(blocks, b.doc.Blocks[be+1:]...)
	b.doc.Blocks = blocks
}
