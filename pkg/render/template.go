// Package render expands {{identifier}} placeholders in callback templates.
//
// Substitution is plain text. Values are not escaped, so a payload template
// only stays valid JSON when the substituted values need no escaping.
package render

import (
	"strings"
	"unicode"
)

// MissingValue is rendered in place of identifiers absent from the variables
const MissingValue = "None"

// SegmentKind distinguishes literal text from placeholders
type SegmentKind int

const (
	Literal SegmentKind = iota
	Placeholder
)

// Segment is one token of a parsed template. Text holds the literal text or
// the placeholder identifier.
type Segment struct {
	Kind SegmentKind
	Text string
}

// Template is a parsed template ready to render
type Template struct {
	segments []Segment
}

// Parse tokenizes s into literal and placeholder segments. Anything that is
// not a well formed placeholder is kept as literal text.
func Parse(s string) *Template {
	t := &Template{}
	var literal strings.Builder

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "{{") {
			if ident, n := scanPlaceholder(s[i:]); n > 0 {
				if literal.Len() > 0 {
					t.segments = append(t.segments, Segment{Kind: Literal, Text: literal.String()})
					literal.Reset()
				}
				t.segments = append(t.segments, Segment{Kind: Placeholder, Text: ident})
				i += n
				continue
			}
		}
		literal.WriteByte(s[i])
		i++
	}

	if literal.Len() > 0 {
		t.segments = append(t.segments, Segment{Kind: Literal, Text: literal.String()})
	}
	return t
}

// scanPlaceholder reports the identifier and consumed length of a placeholder
// at the start of s, or zero when s does not start with one
func scanPlaceholder(s string) (string, int) {
	rest := s[2:]
	end := strings.IndexFunc(rest, func(r rune) bool { return !isWordRune(r) })
	if end <= 0 || !strings.HasPrefix(rest[end:], "}}") {
		return "", 0
	}
	return rest[:end], 2 + end + 2
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Placeholders lists the identifiers referenced by the template in order
func (t *Template) Placeholders() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.Kind == Placeholder {
			names = append(names, seg.Text)
		}
	}
	return names
}

// Execute renders the template against vars
func (t *Template) Execute(vars map[string]string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.Kind == Literal {
			b.WriteString(seg.Text)
			continue
		}
		if v, ok := vars[seg.Text]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(MissingValue)
		}
	}
	return b.String()
}

// Render parses and executes tmpl in one step
func Render(tmpl string, vars map[string]string) string {
	return Parse(tmpl).Execute(vars)
}
