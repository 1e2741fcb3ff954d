package render

import (
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedInline is the set of elements kept in comparison points.
// All attributes are dropped.
var allowedInline = map[atom.Atom]bool{
	atom.B:      true,
	atom.Strong: true,
	atom.I:      true,
	atom.Em:     true,
	atom.U:      true,
	atom.Code:   true,
	atom.Small:  true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.Span:   true,
	atom.Br:     true,
}

// droppedWithContent are removed together with everything inside them.
var droppedWithContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Textarea: true,
	atom.Title:    true,
}

// SanitizeInlineHTML keeps simple inline markup from s and escapes or drops
// everything else. Unknown elements are unwrapped so their text survives.
func SanitizeInlineHTML(s string) template.HTML {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(s)) //nolint:gosec // escaped
	}

	var b strings.Builder
	for _, n := range nodes {
		writeSanitized(&b, n)
	}
	return template.HTML(b.String()) //nolint:gosec // built from escaped text and allowlisted tags
}

func writeSanitized(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
		if droppedWithContent[n.DataAtom] {
			return
		}
		if allowedInline[n.DataAtom] {
			b.WriteByte('<')
			b.WriteString(n.DataAtom.String())
			b.WriteByte('>')
			if n.DataAtom == atom.Br {
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				writeSanitized(b, c)
			}
			b.WriteString("</")
			b.WriteString(n.DataAtom.String())
			b.WriteByte('>')
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeSanitized(b, c)
	}
}

// PlainText returns the text content of an HTML snippet with all markup removed.
func PlainText(s string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return s
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && droppedWithContent[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.TrimSpace(b.String())
}
