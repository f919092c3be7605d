package content

// Selection holds character offsets into the plain-text projection. Focus is
// the caret end; Anchor is where the selection started.
type Selection struct {
	Anchor int
	Focus  int
}

func Caret(n int) Selection { return Selection{Anchor: n, Focus: n} }

func (s Selection) Collapsed() bool { return s.Anchor == s.Focus }

// Range returns the selection as an ordered [start, end) pair.
func (s Selection) Range() (int, int) {
	if s.Anchor <= s.Focus {
		return s.Anchor, s.Focus
	}
	return s.Focus, s.Anchor
}

// typingAnchor is a zero-width caret mark: the formats it carries override
// whatever the tree says for the next text typed at offset.
type typingAnchor struct {
	offset  int
	formats []Node
}

// Buffer is the editable content of the composer. It is not safe for
// concurrent use.
type Buffer struct {
	doc    Document
	sel    Selection
	anchor *typingAnchor

	// placeholder is the offset of a pending placeholder rune, or -1.
	placeholder int
}

func NewBuffer(doc Document) *Buffer {
	b := &Buffer{placeholder: -1}
	b.setDocument(doc)
	return b
}

func (b *Buffer) setDocument(doc Document) {
	doc = doc.Normalize()
	if len(doc.Blocks) == 0 {
		doc.Blocks = []Block{{Kind: BlockParagraph}}
	}
	b.doc = doc
	b.anchor = nil
	b.placeholder = -1
}

// Document returns a copy of the current tree.
func (b *Buffer) Document() Document { return b.doc.Clone() }

func (b *Buffer) Len() int { return b.doc.Len() }

func (b *Buffer) PlainText() string { return b.doc.PlainText() }

func (b *Buffer) Selection() Selection { return b.sel }

func (b *Buffer) clamp(n int) int { return max(0, min(n, b.doc.Len())) }

// Select sets the selection, clamping both ends. Moving away from a pending
// placeholder removes it.
func (b *Buffer) Select(anchor, focus int) {
	if b.placeholder >= 0 && (Selection{Anchor: anchor, Focus: focus}) != b.sel {
		anchor, focus = b.dropPlaceholder(anchor, focus)
	}
	b.sel = Selection{Anchor: b.clamp(anchor), Focus: b.clamp(focus)}
	b.anchor = nil
}

func (b *Buffer) SetCaret(n int) { b.Select(n, n) }

func (b *Buffer) SelectAll() { b.Select(0, b.doc.Len()) }

func (b *Buffer) collapse(n int) {
	b.sel = Caret(b.clamp(n))
	b.anchor = nil
}

func (b *Buffer) dropPlaceholder(anchor, focus int) (int, int) {
	p := b.placeholder
	b.placeholder = -1
	if p < 0 || p >= b.doc.Len() {
		return anchor, focus
	}
	if []rune(b.doc.PlainText())[p] != Placeholder {
		return anchor, focus
	}
	b.deleteRange(p, p+1)
	if anchor > p {
		anchor--
	}
	if focus > p {
		focus--
	}
	return anchor, focus
}

// ActiveFormats walks the ancestors of the selection start. For a collapsed
// caret the character before it decides, unless a typing anchor sits there.
func (b *Buffer) ActiveFormats() FormatSet {
	return formatSetOf(b.activePath())
}

func (b *Buffer) activePath() []Node {
	s, e := b.sel.Range()
	if s == e {
		if b.anchor != nil && b.anchor.offset == s {
			return b.anchor.formats
		}
		return b.formatsAt(s, true)
	}
	return b.formatsAt(s, false)
}

func (b *Buffer) formatsAt(off int, leftAffinity bool) []Node {
	bi, local := b.doc.blockAt(off)
	nodes := b.doc.Blocks[bi].Inlines
	path, _ := locate(nodes, local, leftAffinity)
	return pathFormats(nodes, path)
}

// BlockAt returns a copy of the block holding the caret.
func (b *Buffer) BlockAt(off int) Block {
	bi, _ := b.doc.blockAt(b.clamp(off))
	blk := b.doc.Blocks[bi]
	blk.Inlines = cloneNodes(blk.Inlines)
	return blk
}
