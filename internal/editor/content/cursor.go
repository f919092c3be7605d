package content

// Position addresses a point in the tree: a block, the index path to a leaf
// inside it, and an offset inside that leaf.
type Position struct {
	Block  int
	Path   []int
	Offset int
}

// Locate walks the leaves in document order until n characters have been
// consumed. n is clamped to the document.
func (b *Buffer) Locate(n int) Position {
	bi, local := b.doc.blockAt(b.clamp(n))
	path, rem := locate(b.doc.Blocks[bi].Inlines, local, true)
	return Position{Block: bi, Path: path, Offset: rem}
}

// OffsetOf is the inverse of Locate.
func (b *Buffer) OffsetOf(p Position) int {
	if p.Block < 0 || p.Block >= len(b.doc.Blocks) {
		return b.doc.Len()
	}
	off := b.doc.blockStart(p.Block)
	nodes := b.doc.Blocks[p.Block].Inlines
	for _, idx := range p.Path {
		if idx >= len(nodes) {
			break
		}
		for j := 0; j < idx; j++ {
			off += nodes[j].Len()
		}
		nodes = nodes[idx].Children
	}
	return off + p.Offset
}

// CaptureOffset returns the caret's character offset from the start of the
// buffer.
func (b *Buffer) CaptureOffset() int { return b.sel.Focus }

// RestoreOffset places a collapsed caret n characters into the buffer. If the
// buffer is now shorter than n the caret lands at the end of the content.
// The placed offset is returned.
func (b *Buffer) RestoreOffset(n int) int {
	off := b.OffsetOf(b.Locate(n))
	b.collapse(off)
	b.placeholder = -1
	return off
}

// Reload replaces the tree after an external value change, keeping the
// caret at the same character offset where possible.
func (b *Buffer) Reload(doc Document) {
	off := b.CaptureOffset()
	b.setDocument(doc)
	b.RestoreOffset(off)
}
