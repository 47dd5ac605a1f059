// Package markup compiles report templates into the ordered content segments
// consumed by the document renderer. Templates are plain markup with
// {{variable}} placeholders; the compiler is a marker scanner, not an HTML
// parser, and anything beyond the supported block tags is stripped.
package markup

// SegmentType classifies one lexical unit of the compiled document.
type SegmentType string

const (
	Heading1  SegmentType = "heading1"
	Heading2  SegmentType = "heading2"
	Heading3  SegmentType = "heading3"
	Paragraph SegmentType = "paragraph"
	ListItem  SegmentType = "list-item"
	Spacer    SegmentType = "spacer"
)

// Segment is one typed unit of content in document order. Sequences are
// treated as immutable once produced by Compile.
type Segment struct {
	Type SegmentType
	Text string
}
