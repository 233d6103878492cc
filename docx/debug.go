package docx

import (
	"maps"
	"slices"
	"sort"

	"mailstage/utils/debug"
)

// String returns a readable tree of the parsed document. It exists solely for
// manual inspection during debugging.
func (d *Document) String() string {
	if d == nil {
		return "<nil Document>"
	}

	tw := debug.NewTreeWriter()

	tw.Line(0, "Document: %d paragraphs, %d embedded images", len(d.Paragraphs), d.GraphCount)

	if len(d.Meta) > 0 {
		tw.Line(0, "Meta: %d", len(d.Meta))
		keys := slices.Collect(maps.Keys(d.Meta))
		sort.Strings(keys)
		for _, k := range keys {
			tw.TextBlock(1, k, d.Meta[k])
		}
	}

	for i, p := range d.Paragraphs {
		style := p.Style
		if style == "" {
			style = "normal"
		}
		tw.Line(1, "Paragraph[%d] style[%s]", i, style)
		tw.TextBlock(2, "text", p.Text)
	}

	ins := d.Instructions
	if ins.FeaturedImageURL != "" || len(ins.Related) > 0 || len(ins.Graphs) > 0 {
		tw.Line(0, "Instructions:")
		if ins.FeaturedImageURL != "" {
			tw.TextBlock(1, "featured image", ins.FeaturedImageURL)
		}
		for _, slot := range sortedSlots(ins.Related) {
			tw.Line(1, "Related[%d] %s", slot, ins.Related[slot])
		}
		for _, slot := range sortedSlots(ins.Graphs) {
			tw.Line(1, "Graph[%d] %s", slot, ins.Graphs[slot])
		}
	}
	return tw.String()
}

func sortedSlots(m map[int]string) []int {
	slots := slices.Collect(maps.Keys(m))
	sort.Ints(slots)
	return slots
}
