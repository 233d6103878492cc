package compose

import (
	"testing"

	"golang.org/x/net/html/atom"
)

const queryFixture = `<!DOCTYPE html>
<html><head><title>t</title></head><body>
<table class="email-container"><tbody>
<tr><td class="tablebox first" style="background-color: #a9b4ff; padding: 10px;"><p class="sub-text">one</p></td></tr>
<tr><td class="tablebox table-box-mobile"><p>Author Name</p></td></tr>
<tr><td><h2>More from Anywhere</h2></td></tr>
</tbody></table>
</body></html>`

func TestLocate(t *testing.T) {
	doc, err := parseDocument(queryFixture)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		q    slotQuery
		want bool
	}{
		{"by class", slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}}, true},
		{"by two classes", slotQuery{Tag: atom.Td, Classes: []string{"tablebox", "table-box-mobile"}}, true},
		{"class exclusion", slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}, WithoutClass: []string{"table-box-mobile"}}, true},
		{"style substring", slotQuery{Tag: atom.Td, StyleHas: "a9b4ff"}, true},
		{"style substring case-insensitive", slotQuery{Tag: atom.Td, StyleHas: "A9B4FF"}, true},
		{"text content", slotQuery{Tag: atom.H2, TextHas: "More from"}, true},
		{"missing class", slotQuery{Tag: atom.Td, Classes: []string{"nonexistent"}}, false},
		{"missing text", slotQuery{Tag: atom.H2, TextHas: "nothing like this"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := locate(doc, c.q) != nil; got != c.want {
				t.Errorf("locate found=%v, want %v", got, c.want)
			}
		})
	}
}

func TestLocateDeterministic(t *testing.T) {
	doc, err := parseDocument(queryFixture)
	if err != nil {
		t.Fatal(err)
	}
	q := slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}}
	first := locate(doc, q)
	second := locate(doc, q)
	if first == nil || first != second {
		t.Errorf("repeated locate on unmutated tree returned different nodes: %p vs %p", first, second)
	}
	// First in document order, not just any match.
	if !hasClass(first, "first") {
		t.Errorf("locate did not return the first match in document order")
	}
}

func TestLocateAll(t *testing.T) {
	doc, err := parseDocument(queryFixture)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(locateAll(doc, slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}})); got != 2 {
		t.Errorf("locateAll returned %d matches, want 2", got)
	}
}

func TestOuterRow(t *testing.T) {
	doc, err := parseDocument(queryFixture)
	if err != nil {
		t.Fatal(err)
	}
	p := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}})
	if p == nil {
		t.Fatal("fixture paragraph not found")
	}
	tr := outerRow(doc, p)
	if tr == nil {
		t.Fatal("outerRow returned nil")
	}
	rows := emailContainerRows(doc)
	if len(rows) != 3 {
		t.Fatalf("expected 3 container rows, got %d", len(rows))
	}
	if tr != rows[0] {
		t.Errorf("outerRow returned the wrong row")
	}
}

func TestFindParent(t *testing.T) {
	doc, err := parseDocument(queryFixture)
	if err != nil {
		t.Fatal(err)
	}
	p := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}})
	td := findParent(p, atom.Td)
	if td == nil || !hasClass(td, "tablebox") {
		t.Errorf("findParent(td) = %v", td)
	}
	if findParent(p, atom.Ul) != nil {
		t.Errorf("findParent must return nil for absent ancestor")
	}
}
