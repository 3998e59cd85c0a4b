package markup

// BlockKind identifies one of the four recognized content block types.
// It is a closed set: grouping switches over every kind explicitly.
type BlockKind int

const (
	KindHeading BlockKind = iota
	KindParagraph
	KindBlockquote
	KindTable
)

func (k BlockKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindBlockquote:
		return "blockquote"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// Block is one recognized content unit extracted from a document.
// Blocks are transient: they exist only between extraction and grouping.
type Block struct {
	Kind          BlockKind
	Text          string
	SequenceIndex int
}
