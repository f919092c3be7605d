package content

import "strings"

type BlockKind uint8

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockQuote
	BlockListItem
)

const MaxHeadingLevel = 3

// Block is one line-level element. Consecutive list items with the same
// Ordered flag form a single list.
type Block struct {
	Kind    BlockKind
	Level   int
	Ordered bool
	Inlines []Node
}

func NewParagraph(nodes ...Node) Block {
	return Block{Kind: BlockParagraph, Inlines: Normalize(nodes)}
}

func NewHeading(level int, nodes ...Node) Block {
	return Block{Kind: BlockHeading, Level: clampLevel(level), Inlines: Normalize(nodes)}
}

func NewQuote(nodes ...Node) Block {
	return Block{Kind: BlockQuote, Inlines: Normalize(nodes)}
}

func NewListItem(ordered bool, nodes ...Node) Block {
	return Block{Kind: BlockListItem, Ordered: ordered, Inlines: Normalize(nodes)}
}

func clampLevel(level int) int {
	return max(1, min(level, MaxHeadingLevel))
}

func (b Block) Len() int { return inlineLen(b.Inlines) }

func (b Block) PlainText() string { return PlainText(b.Inlines) }

// SameList reports whether b and o belong to the same list when adjacent.
func (b Block) SameList(o Block) bool {
	return b.Kind == BlockListItem && o.Kind == BlockListItem && b.Ordered == o.Ordered
}

// Document is the content buffer's tree: blocks joined by a newline in the
// plain-text projection.
type Document struct {
	Blocks []Block
}

func NewDocument(blocks ...Block) Document {
	return Document{Blocks: blocks}
}

func (d Document) Len() int {
	if len(d.Blocks) == 0 {
		return 0
	}
	total := len(d.Blocks) - 1
	for _, b := range d.Blocks {
		total += b.Len()
	}
	return total
}

func (d Document) PlainText() string {
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		parts[i] = b.PlainText()
	}
	return strings.Join(parts, "\n")
}

// IsEmpty reports whether the document has no visible content.
func (d Document) IsEmpty() bool {
	for _, b := range d.Blocks {
		if b.Len() > 0 {
			return false
		}
	}
	return true
}

func (d Document) Clone() Document {
	if d.Blocks == nil {
		return Document{}
	}
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		b.Inlines = cloneNodes(b.Inlines)
		blocks[i] = b
	}
	return Document{Blocks: blocks}
}

// Normalize returns the document with every block's inlines normalized.
func (d Document) Normalize() Document {
	out := d.Clone()
	for i := range out.Blocks {
		out.Blocks[i].Inlines = Normalize(out.Blocks[i].Inlines)
		if out.Blocks[i].Kind == BlockHeading {
			out.Blocks[i].Level = clampLevel(out.Blocks[i].Level)
		}
	}
	return out
}

func (d Document) blockStart(i int) int {
	start := 0
	for j := 0; j < i && j < len(d.Blocks); j++ {
		start += d.Blocks[j].Len() + 1
	}
	return start
}

// blockAt maps a document offset to a block index and an offset inside that
// block. An offset on a block boundary belongs to the block that ends there.
func (d Document) blockAt(off int) (int, int) {
	for i, b := range d.Blocks {
		l := b.Len()
		if off <= l || i == len(d.Blocks)-1 {
			return i, max(0, min(off, l))
		}
		off -= l + 1
	}
	return 0, 0
}
