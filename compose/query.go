package compose

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// slotQuery is a structural descriptor for locating a mutation point inside a
// template tree. Locators are data, not addresses: the hand-authored template
// documents shift between revisions, so slots are found by predicates and a
// miss is an answer, not an error.
type slotQuery struct {
	Tag          atom.Atom // zero matches any element
	Classes      []string  // all must be present
	WithoutClass []string  // none may be present
	StyleHas     string    // case-insensitive substring of the style attribute
	AttrKey      string    // exact attribute match when AttrKey is set
	AttrVal      string
	TextHas      string // substring of the subtree's plain text
}

func (q slotQuery) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if q.Tag != 0 && n.DataAtom != q.Tag {
		return false
	}
	for _, c := range q.Classes {
		if !hasClass(n, c) {
			return false
		}
	}
	for _, c := range q.WithoutClass {
		if hasClass(n, c) {
			return false
		}
	}
	if q.StyleHas != "" {
		style, _ := attrVal(n, "style")
		if !strings.Contains(strings.ToLower(style), strings.ToLower(q.StyleHas)) {
			return false
		}
	}
	if q.AttrKey != "" {
		v, ok := attrVal(n, q.AttrKey)
		if !ok || v != q.AttrVal {
			return false
		}
	}
	if q.TextHas != "" && !strings.Contains(textContent(n), q.TextHas) {
		return false
	}
	return true
}

// eachElement walks the subtree in document order, calling fn for every
// element node until fn returns false.
func eachElement(root *html.Node, fn func(*html.Node) bool) {
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && !fn(n) {
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
}

// locate returns the first element matching q in document order, or nil.
// Deterministic for an unmutated tree.
func locate(root *html.Node, q slotQuery) *html.Node {
	var found *html.Node
	eachElement(root, func(n *html.Node) bool {
		if q.matches(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// locateAll returns every element matching q in document order.
func locateAll(root *html.Node, q slotQuery) []*html.Node {
	var found []*html.Node
	eachElement(root, func(n *html.Node) bool {
		if q.matches(n) {
			found = append(found, n)
		}
		return true
	})
	return found
}

// findParent returns the nearest ancestor of n with the given tag, or nil.
func findParent(n *html.Node, tag atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == tag {
			return p
		}
	}
	return nil
}

// firstDescendant returns the first element with the given tag inside n
// (n itself excluded), or nil.
func firstDescendant(n *html.Node, tag atom.Atom) *html.Node {
	var found *html.Node
	for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
		eachElement(c, func(m *html.Node) bool {
			if m.DataAtom == tag {
				found = m
				return false
			}
			return true
		})
	}
	return found
}

// childElements returns the direct element children of n with the given tag.
func childElements(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == tag {
			out = append(out, c)
		}
	}
	return out
}

// emailContainerRows returns the direct child rows of the main email table's
// tbody, the skeleton's top-level section list.
func emailContainerRows(doc *html.Node) []*html.Node {
	table := locate(doc, slotQuery{Tag: atom.Table, Classes: []string{"email-container"}})
	if table == nil {
		return nil
	}
	tbody := firstDescendant(table, atom.Tbody)
	if tbody == nil {
		return nil
	}
	return childElements(tbody, atom.Tr)
}

// outerRow returns the direct child row of the main email table that contains
// n, or nil. This is how injectors find the removable section housing a
// located inner element.
func outerRow(doc, n *html.Node) *html.Node {
	for _, tr := range emailContainerRows(doc) {
		if containsNode(tr, n) {
			return tr
		}
	}
	return nil
}
