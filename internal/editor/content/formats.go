package content

// FormatKind is an inline style the toolbar can toggle.
type FormatKind uint8

const (
	Bold FormatKind = iota + 1
	Italic
	Underline
	Code
)

func (f FormatKind) String() string {
	return f.nodeKind().String()
}

func (f FormatKind) nodeKind() Kind {
	switch f {
	case Bold:
		return KindBold
	case Italic:
		return KindItalic
	case Underline:
		return KindUnderline
	case Code:
		return KindCode
	}
	return KindText
}

// FormatSet is the set of styles that would apply to text typed at the
// caret. It is derived from the tree and never stored.
type FormatSet struct {
	Bold      bool
	Italic    bool
	Underline bool
	Code      bool
}

func (s FormatSet) Has(f FormatKind) bool {
	switch f {
	case Bold:
		return s.Bold
	case Italic:
		return s.Italic
	case Underline:
		return s.Underline
	case Code:
		return s.Code
	}
	return false
}

func formatSetOf(formats []Node) FormatSet {
	var s FormatSet
	for _, f := range formats {
		switch f.Kind {
		case KindBold:
			s.Bold = true
		case KindItalic:
			s.Italic = true
		case KindUnderline:
			s.Underline = true
		case KindCode:
			s.Code = true
		}
	}
	return s
}

// withFormat appends kind to a format path, keeping a code entry last.
func withFormat(base []Node, kind FormatKind) []Node {
	out := append([]Node(nil), base...)
	if kind == Code {
		return append(out, Node{Kind: KindCode})
	}
	f := Node{Kind: kind.nodeKind()}
	if k := len(out); k > 0 && out[k-1].Kind == KindCode {
		return append(out[:k-1:k-1], f, Node{Kind: KindCode})
	}
	return append(out, f)
}

func withoutFormat(base []Node, kind FormatKind) []Node {
	var out []Node
	for _, f := range base {
		if f.Kind != kind.nodeKind() {
			out = append(out, f)
		}
	}
	return out
}
