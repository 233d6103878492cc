package compose

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var (
	sentenceEndRe = regexp.MustCompile(`[.!?](?:\s|$)`)
	wordEndRe     = regexp.MustCompile(`\S+\s*`)
)

// mapTextOffset maps a plain-text offset (in runes) inside a markup fragment
// to the corresponding byte offset in the markup string. Tags are zero-width
// and a character entity counts as one character. Total over any input: on
// truncated or unbalanced markup it returns the best offset it can, at worst
// the full length.
func mapTextOffset(markup string, textOffset int) int {
	count := 0
	i := 0
	for i < len(markup) && count < textOffset {
		switch markup[i] {
		case '<':
			if close := strings.IndexByte(markup[i:], '>'); close >= 0 {
				i += close + 1
			} else {
				i = len(markup)
			}
		case '&':
			if semi := strings.IndexByte(markup[i:], ';'); semi >= 0 {
				i += semi + 1
			} else {
				i++
			}
			count++
		default:
			_, size := utf8.DecodeRuneInString(markup[i:])
			i += size
			count++
		}
	}
	return i
}

// splitForFade splits a block element at the sentence boundary nearest the
// midpoint of its plain text, for the medium-to-light fade effect. Falls back
// to the nearest word boundary, then to the raw midpoint. Returns the two
// inner-markup halves; their concatenation (modulo the boundary trim)
// reconstructs the original inner markup exactly.
func splitForFade(el *html.Node) (string, string) {
	inner := renderInner(el)
	plain := textContent(el)
	if strings.TrimSpace(plain) == "" {
		return inner, ""
	}

	mid := utf8.RuneCountInString(plain) / 2

	splitPos := mid
	if ends := boundaryRuneEnds(sentenceEndRe, plain); len(ends) > 0 {
		splitPos = nearest(ends, mid)
	} else if ends := boundaryRuneEnds(wordEndRe, plain); len(ends) > 0 {
		splitPos = nearest(ends, mid)
	}

	pos := mapTextOffset(inner, splitPos)
	return strings.TrimRightFunc(inner[:pos], unicode.IsSpace),
		strings.TrimLeftFunc(inner[pos:], unicode.IsSpace)
}

// boundaryRuneEnds returns the rune offsets at which re matches end in s.
func boundaryRuneEnds(re *regexp.Regexp, s string) []int {
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return nil
	}
	ends := make([]int, 0, len(matches))
	for _, m := range matches {
		ends = append(ends, utf8.RuneCountInString(s[:m[1]]))
	}
	return ends
}

// nearest picks the candidate with minimum distance to target, first wins on
// ties.
func nearest(candidates []int, target int) int {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if abs(c-target) < abs(best-target) {
			best = c
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var fadeNormalizer = strings.NewReplacer(
	"‘", "'", "’", "'", // curly single quotes
	"“", `"`, "”", `"`, // curly double quotes
	"–", "-", "—", "-", // en and em dashes
	"�", "'", // replacement char from lossy doc exports
)

// normFade lowercases and unifies Unicode punctuation so fade-phrase matching
// tolerates encoding drift between the source document and the published
// article body.
func normFade(s string) string {
	return fadeNormalizer.Replace(strings.ToLower(s))
}

// fadeKey derives the comparison key from the configured fade phrase: the
// first few words are enough to identify the paragraph, so only the leading
// 60 characters participate.
func fadeKey(fadeFrom string) string {
	s := strings.ToLower(strings.TrimSpace(fadeFrom))
	r := []rune(s)
	if len(r) > 60 {
		r = r[:60]
	}
	return normFade(string(r))
}
