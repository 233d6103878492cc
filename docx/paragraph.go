package docx

import (
	"fmt"
	"html"
	"strings"

	"github.com/beevik/etree"
)

// Namespace prefixes in OOXML documents are not fixed, so all element and
// attribute matching here goes by local name only.

func childByTag(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func elementsByTag(e *etree.Element, tag string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = append(out, elementsByTag(c, tag)...)
	}
	return out
}

func attrByKey(e *etree.Element, key string) string {
	for _, a := range e.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// renderParagraph converts one w:p element to text and inline HTML,
// substituting a positional graph placeholder for any embedded image.
func (d *Document) renderParagraph(p *etree.Element, rels map[string]string) Paragraph {
	para := Paragraph{Style: paragraphStyle(p)}

	var textB, htmlB strings.Builder
	var renderRuns func(e *etree.Element)
	renderRuns = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			switch c.Tag {
			case "hyperlink":
				href := rels[attrByKey(c, "id")]
				if href != "" {
					htmlB.WriteString(`<a href="` + html.EscapeString(href) + `">`)
				}
				renderRuns(c)
				if href != "" {
					htmlB.WriteString("</a>")
				}
			case "r":
				d.renderRun(c, &textB, &htmlB)
			default:
				renderRuns(c)
			}
		}
	}
	renderRuns(p)

	para.Text = textB.String()
	para.HTML = htmlB.String()
	return para
}

func (d *Document) renderRun(r *etree.Element, textB, htmlB *strings.Builder) {
	bold, italic := runFormatting(r)

	for _, c := range r.ChildElements() {
		switch c.Tag {
		case "t":
			t := c.Text()
			textB.WriteString(t)
			t = html.EscapeString(t)
			if bold {
				t = "<strong>" + t + "</strong>"
			}
			if italic {
				t = "<em>" + t + "</em>"
			}
			htmlB.WriteString(t)
		case "br":
			textB.WriteString("\n")
			htmlB.WriteString("<br>")
		case "drawing", "pict":
			if hasEmbeddedImage(c) {
				d.GraphCount++
				token := fmt.Sprintf("[[GRAPH_%d]]", d.GraphCount)
				textB.WriteString(token)
				htmlB.WriteString(token)
			}
		}
	}
}

func runFormatting(r *etree.Element) (bold, italic bool) {
	rpr := childByTag(r, "rPr")
	if rpr == nil {
		return false, false
	}
	return formatFlag(rpr, "b"), formatFlag(rpr, "i")
}

// formatFlag is set when the property element is present without an explicit
// false/0 value.
func formatFlag(rpr *etree.Element, tag string) bool {
	e := childByTag(rpr, tag)
	if e == nil {
		return false
	}
	val := attrByKey(e, "val")
	return val != "false" && val != "0"
}

func paragraphStyle(p *etree.Element) string {
	ppr := childByTag(p, "pPr")
	if ppr == nil {
		return ""
	}
	style := childByTag(ppr, "pStyle")
	if style == nil {
		return ""
	}
	switch strings.ToLower(attrByKey(style, "val")) {
	case "heading1", "title":
		return "h1"
	case "heading2":
		return "h2"
	}
	return ""
}

func hasEmbeddedImage(e *etree.Element) bool {
	if e.Tag == "blip" && attrByKey(e, "embed") != "" {
		return true
	}
	for _, c := range e.ChildElements() {
		if hasEmbeddedImage(c) {
			return true
		}
	}
	return false
}
