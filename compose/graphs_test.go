package compose

import (
	"strings"
	"testing"

	"mailstage/content"
)

func TestResolveGraphPlaceholders(t *testing.T) {
	graphs := []content.Graph{
		{URL: "https://cdn.example.com/g1.png", Alt: "First chart"},
		{URL: "https://cdn.example.com/g2.png"},
	}

	in := "<p>before</p>[[GRAPH_1]]<p>mid</p>[[GRAPH_2]]<p>after</p>"
	out := resolveGraphPlaceholders(in, graphs)

	if strings.Contains(out, "[[GRAPH_") {
		t.Errorf("tokens remain after full resolution: %s", out)
	}
	if !strings.Contains(out, `src="https://cdn.example.com/g1.png"`) {
		t.Errorf("first graph url missing: %s", out)
	}
	if !strings.Contains(out, `alt="First chart"`) {
		t.Errorf("supplied alt missing: %s", out)
	}
	if !strings.Contains(out, `alt="Graph 2"`) {
		t.Errorf("default alt missing: %s", out)
	}
}

func TestResolveGraphPlaceholdersUnmatchedStays(t *testing.T) {
	graphs := []content.Graph{{URL: "https://cdn.example.com/only.png"}}

	out := resolveGraphPlaceholders("<p>x</p>[[GRAPH_1]][[GRAPH_2]]", graphs)
	if !strings.Contains(out, "[[GRAPH_2]]") {
		t.Errorf("unmatched token should stay verbatim: %s", out)
	}
	if strings.Contains(out, "[[GRAPH_1]]") {
		t.Errorf("matched token not resolved: %s", out)
	}
}

func TestResolveGraphPlaceholdersEmptySlotStays(t *testing.T) {
	graphs := []content.Graph{{URL: ""}, {URL: "https://cdn.example.com/g2.png"}}
	out := resolveGraphPlaceholders("[[GRAPH_1]][[GRAPH_2]]", graphs)
	if !strings.Contains(out, "[[GRAPH_1]]") {
		t.Errorf("unfilled slot should keep its token: %s", out)
	}
	if strings.Contains(out, "[[GRAPH_2]]") {
		t.Errorf("filled slot not resolved: %s", out)
	}
}

func TestResolveGraphPlaceholdersNoGraphs(t *testing.T) {
	in := "<p>text [[GRAPH_1]] more</p>"
	if out := resolveGraphPlaceholders(in, nil); out != in {
		t.Errorf("no descriptors must leave input untouched: %s", out)
	}
}

func TestResolveGraphPlaceholdersEscapesAttributes(t *testing.T) {
	graphs := []content.Graph{{URL: `https://x/?a=1&b=2`, Alt: `say "hi"`}}
	out := resolveGraphPlaceholders("[[GRAPH_1]]", graphs)
	if !strings.Contains(out, "a=1&amp;b=2") || !strings.Contains(out, "&quot;hi&quot;") {
		t.Errorf("attribute values not escaped: %s", out)
	}
}
