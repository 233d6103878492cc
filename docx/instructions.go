package docx

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	featuredImageRe  = regexp.MustCompile(`(?i)^featured\s+image\s*:?\s*(.*)$`)
	relatedReadingRe = regexp.MustCompile(`(?i)^related\s+reading\s+(\d+)\s*:?\s*(.*)$`)
	graphLineRe      = regexp.MustCompile(`(?i)^graph\s+(\d+)\s*:?\s*(.*)$`)
)

// parseInstructions interprets the lines after the staging-instructions
// heading. Editors often put the URL on the line after its label, so an empty
// value claims the next line when that line is a bare URL.
func (d *Document) parseInstructions(lines []string) {
	claim := func(value string, next int) (string, int) {
		value = strings.TrimSpace(value)
		if value == "" && next < len(lines) && isBareURL(lines[next]) {
			return strings.TrimSpace(lines[next]), next + 1
		}
		return value, next
	}

	for i := 0; i < len(lines); {
		line := lines[i]
		i++

		if m := featuredImageRe.FindStringSubmatch(line); m != nil {
			d.Instructions.FeaturedImageURL, i = claim(m[1], i)
			continue
		}
		if m := relatedReadingRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			var value string
			value, i = claim(m[2], i)
			if n > 0 && value != "" {
				d.Instructions.Related[n] = value
			}
			continue
		}
		if m := graphLineRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			var value string
			value, i = claim(m[2], i)
			if n > 0 && value != "" {
				d.Instructions.Graphs[n] = value
			}
			continue
		}
	}
}

func isBareURL(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://")
}

// RelatedURLs returns the related-reading URLs in slot order, skipping gaps.
func (ins *Instructions) RelatedURLs() []string {
	maxSlot := 0
	for n := range ins.Related {
		if n > maxSlot {
			maxSlot = n
		}
	}
	var out []string
	for n := 1; n <= maxSlot; n++ {
		if u, ok := ins.Related[n]; ok {
			out = append(out, u)
		}
	}
	return out
}

// GraphURLs returns graph URLs for slots 1..count, with empty strings for
// slots the instructions never filled.
func (ins *Instructions) GraphURLs(count int) []string {
	out := make([]string, count)
	for n := 1; n <= count; n++ {
		out[n-1] = ins.Graphs[n]
	}
	return out
}
