// Package compose merges a content field bag into a newsletter template
// skeleton and normalizes the result for strict mail-client sanitizers.
//
// The pipeline is strictly ordered: the variant injector mutates the parsed
// template tree, the tree is serialized, graph placeholders are resolved on
// the string, and the compatibility fixer runs last (tree passes, serialize,
// then string passes). Later stages assume the earlier ones already ran.
package compose

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseDocument parses a full template document.
func parseDocument(src string) (*html.Node, error) {
	return html.Parse(strings.NewReader(src))
}

// renderDocument serializes the whole tree back to a string.
func renderDocument(doc *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return ""
	}
	return buf.String()
}

// renderInner serializes the children of n, the node's own tag excluded.
func renderInner(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// parseFragmentIn parses a markup fragment as if it appeared inside an
// element of the given kind and returns detached top-level nodes ready for
// insertion. The context matters: table rows survive only under a table
// scope, so callers inserting <tr> content must pass atom.Tbody.
func parseFragmentIn(fragment string, container atom.Atom) []*html.Node {
	ctx := &html.Node{
		Type:     html.ElementNode,
		DataAtom: container,
		Data:     container.String(),
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		n.Parent = nil
		n.PrevSibling = nil
		n.NextSibling = nil
	}
	return nodes
}

// fragmentContext picks a parsing context matching the prospective parent.
func fragmentContext(parent *html.Node) atom.Atom {
	switch parent.DataAtom {
	case atom.Table, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr, atom.Td, atom.Th, atom.Ul, atom.Ol:
		return parent.DataAtom
	case 0:
		return atom.Div
	default:
		return parent.DataAtom
	}
}

// appendFragment parses fragment in a context appropriate for parent and
// appends the resulting nodes.
func appendFragment(parent *html.Node, fragment string) {
	for _, n := range parseFragmentIn(fragment, fragmentContext(parent)) {
		parent.AppendChild(n)
	}
}

// insertFragmentAfter parses fragment and inserts the resulting nodes
// immediately after ref, preserving fragment order.
func insertFragmentAfter(ref *html.Node, fragment string) {
	if ref.Parent == nil {
		return
	}
	after := ref.NextSibling
	for _, n := range parseFragmentIn(fragment, fragmentContext(ref.Parent)) {
		ref.Parent.InsertBefore(n, after)
	}
}

// clearChildren detaches all children of n.
func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// setText replaces the content of n with a single text node. Serialization
// escapes the text, so callers pass it raw.
func setText(n *html.Node, text string) {
	clearChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// setInner replaces the content of n with a parsed markup fragment.
func setInner(n *html.Node, fragment string) {
	clearChildren(n)
	if fragment != "" {
		appendFragment(n, fragment)
	}
}

// removeNode detaches n from its parent, if any.
func removeNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// textContent collects the concatenated text of n's subtree.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
			return
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// attrVal returns the value of the named attribute and whether it exists.
func attrVal(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or replaces the named attribute.
func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// classList splits the class attribute into its member names.
func classList(n *html.Node) []string {
	cls, _ := attrVal(n, "class")
	return strings.Fields(cls)
}

// hasClass reports whether n carries the class.
func hasClass(n *html.Node, name string) bool {
	for _, c := range classList(n) {
		if c == name {
			return true
		}
	}
	return false
}

// addClass appends a class unless already present.
func addClass(n *html.Node, name string) {
	if hasClass(n, name) {
		return
	}
	cls, _ := attrVal(n, "class")
	if cls == "" {
		setAttr(n, "class", name)
		return
	}
	setAttr(n, "class", cls+" "+name)
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

// escapeAttr escapes a string for interpolation into an attribute value or
// text position of a hand-built fragment.
func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// containsNode reports whether target is root or one of its descendants.
func containsNode(root, target *html.Node) bool {
	for n := target; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
