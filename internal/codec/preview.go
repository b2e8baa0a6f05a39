package codec

import (
	"strings"
)

// Bullet prefixes list items in plain previews.
const Bullet = "• "

// blockTags break a preview line when they open or close.
var blockTags = map[string]bool{
	"p": true, "div": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "hr": true,
}

// entities maps the escapes a preview decodes. &lt; and &amp; are handled
// separately since escapeText may restore them.
var entities = []struct {
	name string
	repl string
}{
	{"&nbsp;", " "},
	{"&#160;", " "},
	{"&#xa0;", " "},
	{"&#xA0;", " "},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#34;", `"`},
	{"&#39;", "'"},
	{"&apos;", "'"},
}

// PlainPreview reduces markup to readable text for note cards.
//
// List items become bullet lines, block boundaries and <br> become newlines,
// all other tags are dropped and whitespace entities become spaces. It is a
// plain scanner, not a parser: unterminated tags are discarded and a "<" that
// cannot open a tag is kept as text. Text is decoded first and re-escaped
// last, so a "<" or "&" that dropped tags left next to tag- or entity-like
// text comes out as &lt; or &amp;. Applying it to its own output returns the
// output unchanged.
func PlainPreview(markup string) string {
	if markup == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(markup))

	i := 0
	for i < len(markup) {
		c := markup[i]
		switch {
		case c == '<' && opensTag(markup, i):
			end, name, closing := scanTag(markup, i)
			if end < 0 {
				// Unterminated tag: nothing after it can be trusted as text.
				i = len(markup)
				continue
			}
			out.WriteString(tagBreak(name, closing))
			i = end

		case c == '&':
			n, repl := decodeEntity(markup, i)
			out.WriteString(repl)
			i += n

		default:
			out.WriteByte(c)
			i++
		}
	}

	return escapeText(tidyLines(out.String()))
}

// escapeText escapes every "<" that would open a tag and every "&" that would
// start a decoded entity, judged on the final text.
func escapeText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var out strings.Builder
	out.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '<' && opensTag(s, i):
			out.WriteString("&lt;")
		case c == '&' && startsEntity(s[i+1:]):
			out.WriteString("&amp;")
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// opensTag reports whether the '<' at i starts a tag, comment or directive.
func opensTag(s string, i int) bool {
	if i+1 >= len(s) {
		return false
	}
	n := s[i+1]
	return isLetter(n) || n == '/' || n == '!' || n == '?'
}

// scanTag returns the index just past the tag starting at i, its lower-cased
// name and whether it is a closing tag. end is -1 when the tag never closes.
func scanTag(s string, i int) (end int, name string, closing bool) {
	if strings.HasPrefix(s[i:], "<!--") {
		j := strings.Index(s[i+4:], "-->")
		if j < 0 {
			return -1, "", false
		}
		return i + 4 + j + 3, "", false
	}

	j := i + 1
	if j < len(s) && s[j] == '/' {
		closing = true
		j++
	}
	start := j
	for j < len(s) && (isLetter(s[j]) || isDigit(s[j])) {
		j++
	}
	name = strings.ToLower(s[start:j])

	// Skip attributes, honouring quotes so a '>' inside a value does not end the tag.
	var quote byte
	for ; j < len(s); j++ {
		switch {
		case quote != 0:
			if s[j] == quote {
				quote = 0
			}
		case s[j] == '"' || s[j] == '\'':
			quote = s[j]
		case s[j] == '>':
			return j + 1, name, closing
		}
	}
	return -1, name, closing
}

func tagBreak(name string, closing bool) string {
	switch {
	case name == "li" && !closing:
		return "\n" + Bullet
	case name == "li", name == "br":
		return "\n"
	case blockTags[name]:
		return "\n"
	default:
		return ""
	}
}

// decodeEntity decodes the escape at s[i] (which is '&'). It returns the
// number of bytes consumed and the replacement text.
func decodeEntity(s string, i int) (int, string) {
	rest := s[i:]
	for _, e := range entities {
		if strings.HasPrefix(rest, e.name) {
			return len(e.name), e.repl
		}
	}
	if strings.HasPrefix(rest, "&lt;") {
		return len("&lt;"), "<"
	}
	if strings.HasPrefix(rest, "&amp;") {
		return len("&amp;"), "&"
	}
	return 1, "&"
}

// startsEntity reports whether "&"+s begins with something decodeEntity would
// rewrite.
func startsEntity(s string) bool {
	if strings.HasPrefix(s, "lt;") || strings.HasPrefix(s, "amp;") {
		return true
	}
	for _, e := range entities {
		if strings.HasPrefix(s, e.name[1:]) {
			return true
		}
	}
	return false
}

// tidyLines collapses horizontal whitespace, trims each line and drops blank
// lines.
func tidyLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
