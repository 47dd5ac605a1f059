// Package render lays out compiled content segments onto fixed-size PDF
// pages, and populates interactive form fields on prebuilt documents.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/jmcallister/fleetreport/internal/markup"
)

// Page geometry in points. A4 with a uniform margin; the content area is
// everything inside it.
const (
	pageWidth    = 595.28
	pageHeight   = 841.89
	margin       = 48.0
	contentWidth = pageWidth - 2*margin

	bulletOffset = 6.0
	listIndent   = 18.0
	spacerHeight = 10.0
)

type segmentStyle struct {
	styleStr   string
	size       float64
	lineHeight float64
	spaceAfter float64
}

var styles = map[markup.SegmentType]segmentStyle{
	markup.Heading1:  {"B", 20, 28, 10},
	markup.Heading2:  {"B", 16, 23, 8},
	markup.Heading3:  {"B", 14, 20, 6},
	markup.Paragraph: {"", 12, 17, 4},
	markup.ListItem:  {"", 12, 17, 2},
}

const fontFamily = "Helvetica"

// layout tracks the vertical cursor across pages.
type layout struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	y   float64
}

// Render draws the segment sequence onto one or more A4 pages and returns
// the finished PDF. A drawing error aborts the whole render; no partial
// output is returned.
func Render(segments []markup.Segment) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	l.newPage()

	for _, seg := range segments {
		if seg.Type == markup.Spacer {
			l.advance(spacerHeight)
			continue
		}
		st, ok := styles[seg.Type]
		if !ok {
			st = styles[markup.Paragraph]
		}
		pdf.SetFont(fontFamily, st.styleStr, st.size)
		if seg.Type == markup.ListItem {
			l.drawListItem(seg.Text, st)
		} else {
			l.drawBlock(seg.Text, st)
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render pdf: %v", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (l *layout) newPage() {
	l.pdf.AddPage()
	l.y = margin
}

// ensure guarantees room for one line of the given height, breaking to a new
// page when the cursor would cross the bottom margin. The check runs before
// every drawn line, uniformly for headings, paragraphs, and list items.
func (l *layout) ensure(lineHeight float64) {
	if l.y+lineHeight > pageHeight-margin {
		l.newPage()
	}
}

// advance moves the cursor without drawing; trailing space never forces an
// empty page.
func (l *layout) advance(h float64) {
	if l.y+h <= pageHeight-margin {
		l.y += h
	}
}

func (l *layout) drawBlock(text string, st segmentStyle) {
	lines := wrap(text, contentWidth, l.measure)
	for _, line := range lines {
		l.ensure(st.lineHeight)
		l.pdf.Text(margin, l.y+st.size, l.tr(line))
		l.y += st.lineHeight
	}
	l.advance(st.spaceAfter)
}

// drawListItem draws a bullet glyph at a fixed indent with wrapped
// continuation lines at a deeper indent.
func (l *layout) drawListItem(text string, st segmentStyle) {
	lines := wrap(text, contentWidth-listIndent, l.measure)
	for i, line := range lines {
		l.ensure(st.lineHeight)
		if i == 0 {
			l.pdf.Text(margin+bulletOffset, l.y+st.size, l.tr("•"))
		}
		l.pdf.Text(margin+listIndent, l.y+st.size, l.tr(line))
		l.y += st.lineHeight
	}
	l.advance(st.spaceAfter)
}

func (l *layout) measure(s string) float64 {
	return l.pdf.GetStringWidth(l.tr(s))
}

// wrap greedily packs words onto lines while the measured width stays within
// maxWidth. A single word wider than maxWidth occupies its own line
// unmodified; there is no mid-word breaking.
func wrap(text string, maxWidth float64, measure func(string) float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
