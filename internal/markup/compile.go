package markup

import (
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	lineBreakRe   = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>|</?\s*(?:p|ul|ol|div|section|table|tr)[^>]*>`)
	blockOpenRe   = regexp.MustCompile(`(?i)<\s*(h1|h2|h3|li)[^>]*>`)
	blockCloseRe  = regexp.MustCompile(`(?i)</\s*(h1|h2|h3|li)\s*>`)
	anyTagRe      = regexp.MustCompile(`<[^>]*>`)
)

// Markers injected during lexing. \x01 cannot appear in sanitized input.
const (
	markH1 = "\x01h1\x01"
	markH2 = "\x01h2\x01"
	markH3 = "\x01h3\x01"
	markLI = "\x01li\x01"
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&mdash;", "—",
	"&ndash;", "–",
)

// Compile substitutes the model variables into the markup template and lexes
// the result into an ordered segment sequence. Substitution is raw: values
// come from the normalizer, which guarantees they contain no markup-breaking
// characters. Unknown placeholders resolve to the empty string.
func Compile(template string, vars map[string]string) []Segment {
	return Normalize(lex(Substitute(template, vars)))
}

// Substitute resolves {{name}} placeholders against vars without escaping.
func Substitute(template string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

func lex(markup string) []Segment {
	s := lineBreakRe.ReplaceAllString(markup, "\n")
	s = blockOpenRe.ReplaceAllStringFunc(s, func(tag string) string {
		name := strings.ToLower(blockOpenRe.FindStringSubmatch(tag)[1])
		switch name {
		case "h1":
			return "\n" + markH1
		case "h2":
			return "\n" + markH2
		case "h3":
			return "\n" + markH3
		default:
			return "\n" + markLI
		}
	})
	s = blockCloseRe.ReplaceAllString(s, "\n")
	s = anyTagRe.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)

	var segments []Segment
	for _, line := range strings.Split(s, "\n") {
		typ := Paragraph
		switch {
		case strings.HasPrefix(line, markH1):
			typ, line = Heading1, strings.TrimPrefix(line, markH1)
		case strings.HasPrefix(line, markH2):
			typ, line = Heading2, strings.TrimPrefix(line, markH2)
		case strings.HasPrefix(line, markH3):
			typ, line = Heading3, strings.TrimPrefix(line, markH3)
		case strings.HasPrefix(line, markLI):
			typ, line = ListItem, strings.TrimPrefix(line, markLI)
		}
		text := strings.Join(strings.Fields(line), " ")
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Type: typ, Text: text})
	}
	return segments
}

// Normalize inserts spacer segments so the renderer needs no lookahead: one
// between two consecutive paragraphs, and one between a non-list segment and
// the list item that follows it. Ordering is otherwise untouched.
func Normalize(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for i, seg := range segments {
		if i > 0 {
			prev := segments[i-1]
			twoParagraphs := prev.Type == Paragraph && seg.Type == Paragraph
			listAfterOther := prev.Type != ListItem && seg.Type == ListItem
			if twoParagraphs || listAfterOther {
				out = append(out, Segment{Type: Spacer})
			}
		}
		out = append(out, seg)
	}
	return out
}
