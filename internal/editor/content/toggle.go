package content

// Toggle applies or removes an inline format. active is the caller's view of
// whether the format currently applies, normally ActiveFormats().Has(kind).
//
// With a selection, the format is stripped from or wrapped around exactly the
// selected range and the selection is kept. With a collapsed caret, an active
// format is exited by moving the caret past the enclosing element and leaving
// a typing anchor there; an inactive one is entered by inserting a span that
// holds a single selected placeholder, which the next typed text replaces.
func (b *Buffer) Toggle(kind FormatKind, active bool) {
	s, e := b.sel.Range()
	if s != e {
		sel := b.sel
		b.applyRange(s, e, func(mid []Node) []Node {
			if active {
				return stripFormat(mid, kind.nodeKind())
			}
			return wrapFormat(mid, kind)
		})
		b.sel = sel
		b.anchor = nil
		return
	}

	b.placeholder = -1
	if active {
		formats := withoutFormat(b.activePath(), kind)
		end := b.formatEnd(s, kind)
		b.sel = Caret(end)
		b.anchor = &typingAnchor{offset: end, formats: formats}
		return
	}

	span := wrapText(withFormat(b.activePath(), kind), string(Placeholder))
	b.insertNodes(s, span)
	b.sel = Selection{Anchor: s, Focus: s + 1}
	b.anchor = nil
	b.placeholder = s
}

// applyRange rewrites the part of every block that falls inside [s, e).
// fn must preserve plain-text length.
func (b *Buffer) applyRange(s, e int, fn func([]Node) []Node) {
	bs, _ := b.doc.blockAt(s)
	be, _ := b.doc.blockAt(e)
	start := b.doc.blockStart(bs)
	for bi := bs; bi <= be; bi++ {
		blk := &b.doc.Blocks[bi]
		l := blk.Len()
		ls, le := max(0, s-start), min(l, e-start)
		if ls < le {
			left, mid, right := slice3(blk.Inlines, ls, le)
			blk.Inlines = Normalize(concat(left, fn(mid), right))
		}
		start += l + 1
	}
}

// formatEnd returns the offset just past the element of the given kind that
// encloses off, or off when there is none.
func (b *Buffer) formatEnd(off int, kind FormatKind) int {
	bi, local := b.doc.blockAt(off)
	nodes := b.doc.Blocks[bi].Inlines
	path, _ := locate(nodes, local, true)
	start := b.doc.blockStart(bi)
	end := off
	for _, idx := range path {
		for j := 0; j < idx; j++ {
			start += nodes[j].Len()
		}
		n := nodes[idx]
		if n.Kind == kind.nodeKind() {
			end = start + n.Len()
		}
		nodes = n.Children
	}
	return end
}

func wrapFormat(nodes []Node, kind FormatKind) []Node {
	if kind == Code {
		return codeLeaves(nodes)
	}
	k := kind.nodeKind()
	return []Node{{Kind: k, Children: stripFormat(nodes, k)}}
}

// codeLeaves turns text leaves into code leaves and leaves atoms and the
// surrounding spans alone.
func codeLeaves(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case n.Kind == KindText:
			n.Kind = KindCode
		case n.IsContainer():
			n.Children = codeLeaves(n.Children)
		}
		out = append(out, n)
	}
	return out
}

func stripFormat(nodes []Node, k Kind) []Node {
	var out []Node
	for _, n := range nodes {
		switch {
		case n.Kind == k && n.IsContainer():
			out = append(out, stripFormat(n.Children, k)...)
		case k == KindCode && n.Kind == KindCode:
			n.Kind = KindText
			out = append(out, n)
		case n.IsContainer():
			n.Children = stripFormat(n.Children, k)
			out = append(out, n)
		default:
			out = append(out, n)
		}
	}
	return out
}
