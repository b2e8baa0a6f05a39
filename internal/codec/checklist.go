// Package codec converts note markup to and from its derived projections:
// checklist items, plain-text previews, and thumbnail references.
//
// Markup is the only stored form of a note body. Everything produced here can
// be regenerated from it, and nothing here ever fails on malformed input.
package codec

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/starford/noteku/internal/models"
)

// Glyph prefixes written in front of each encoded checklist item.
const (
	GlyphUnchecked = "☐"
	GlyphChecked   = "☑"
)

const strikeStyle = "text-decoration: line-through"

// glyphs recognised at the start of an item, longest first within each family.
var glyphs = []struct {
	mark    string
	checked bool
}{
	{"[ ]", false},
	{"[x]", true},
	{"[X]", true},
	{GlyphUnchecked, false},
	{GlyphChecked, true},
	{"☒", true},
	{"✓", true},
	{"✔", true},
}

// itemState accumulates one <li> while the tokenizer walks it.
type itemState struct {
	index   int
	text    strings.Builder
	checked bool
	lists   int  // nested <ul>/<ol> still open inside this item
	resumed bool // text follows a nested list that just closed
}

func (s *itemState) write(b []byte) {
	if s.resumed {
		s.text.WriteByte(' ')
		s.resumed = false
	}
	s.text.Write(b)
}

func (s *itemState) finish() models.ChecklistItem {
	text := strings.TrimSpace(s.text.String())
	checked := s.checked
	for _, g := range glyphs {
		if strings.HasPrefix(text, g.mark) {
			text = strings.TrimSpace(text[len(g.mark):])
			checked = checked || g.checked
			break
		}
	}
	return models.ChecklistItem{Text: text, Checked: checked}
}

// DecodeChecklist parses every list item of markup in document order.
//
// An item is checked when its style carries line-through, when it is wrapped
// in <s>, <strike> or <del>, when it holds a checked checkbox input, or when its
// text starts with a checked glyph. The leading glyph is removed from the text.
//
// Nested lists are flattened: an outer item comes before the items nested in
// it, and text after a nested list still belongs to the outer item. A new <li>
// closes an open sibling the way a browser would. Missing or malformed markup
// yields an empty slice.
func DecodeChecklist(markup string) []models.ChecklistItem {
	items := []models.ChecklistItem{}
	if strings.TrimSpace(markup) == "" {
		return items
	}

	z := xhtml.NewTokenizer(strings.NewReader(markup))
	var open []*itemState

	top := func() *itemState {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}
	pop := func() {
		cur := top()
		if cur == nil {
			return
		}
		items[cur.index] = cur.finish()
		open = open[:len(open)-1]
	}

	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			// io.EOF or a tokenizer error; either way the input is exhausted.
			for len(open) > 0 {
				pop()
			}
			return items

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			cur := top()
			switch tok.Data {
			case "li":
				if cur != nil && cur.lists == 0 {
					pop()
				}
				items = append(items, models.ChecklistItem{})
				open = append(open, &itemState{
					index:   len(items) - 1,
					checked: struckThrough(tok) || attr(tok, "data-checked") == "true",
				})
			case "ul", "ol":
				if cur != nil && tt == xhtml.StartTagToken {
					cur.lists++
				}
			case "s", "strike", "del":
				if cur != nil {
					cur.checked = true
				}
			case "input":
				if cur != nil && hasAttr(tok, "checked") {
					cur.checked = true
				}
			case "br":
				if cur != nil {
					cur.text.WriteByte(' ')
				}
			default:
				if cur != nil && struckThrough(tok) {
					cur.checked = true
				}
			}

		case xhtml.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "li":
				pop()
			case "ul", "ol":
				// Closing a list closes its unclosed items, then resumes the
				// item that holds it.
				for top() != nil && top().lists == 0 {
					pop()
				}
				if cur := top(); cur != nil {
					cur.lists--
					cur.resumed = true
				}
			}

		case xhtml.TextToken:
			if cur := top(); cur != nil {
				cur.write(z.Text())
			}
		}
	}
}

// EncodeChecklist renders items as a <ul> of <li> elements, each prefixed
// with a glyph for its state; checked items are struck through.
//
// An empty slice encodes to "", not to an empty list wrapper, so callers can
// tell "no content yet" from "a list that was emptied".
func EncodeChecklist(items []models.ChecklistItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, it := range items {
		if it.Checked {
			b.WriteString(`<li style="` + strikeStyle + `">` + GlyphChecked + " ")
		} else {
			b.WriteString("<li>" + GlyphUnchecked + " ")
		}
		b.WriteString(html.EscapeString(it.Text))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// ChecklistProgress counts checked items against the total.
func ChecklistProgress(items []models.ChecklistItem) (done, total int) {
	for _, it := range items {
		if it.Checked {
			done++
		}
	}
	return done, len(items)
}

// FirstImage returns the src of the first <img> in markup.
func FirstImage(markup string) (string, bool) {
	if !strings.Contains(markup, "<") {
		return "", false
	}
	z := xhtml.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return "", false
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "img" {
				continue
			}
			if src := strings.TrimSpace(attr(tok, "src")); src != "" {
				return src, true
			}
		}
	}
}

// ImageTag builds the markup appended to a note body for an inserted image.
// The reference is opaque: usually a base64 data URI from the image picker.
func ImageTag(ref string) string {
	return `<img src="` + html.EscapeString(ref) + `" />`
}

func struckThrough(tok xhtml.Token) bool {
	return strings.Contains(strings.ToLower(attr(tok, "style")), "line-through")
}

func attr(tok xhtml.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(tok xhtml.Token, key string) bool {
	for _, a := range tok.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
