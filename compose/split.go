package compose

import "regexp"

var (
	firstHeadingRe = regexp.MustCompile(`(?i)<h[12][\s>]`)
	closingParaRe  = regexp.MustCompile(`(?i)</p>`)
)

// splitAtFirstHeading splits a body fragment at its first h1 or h2 tag and
// returns (before, fromHeading). When no heading exists the whole fragment is
// the intro and the main half is empty.
func splitAtFirstHeading(fragment string) (string, string) {
	if fragment == "" {
		return "", ""
	}
	if m := firstHeadingRe.FindStringIndex(fragment); m != nil {
		return fragment[:m[0]], fragment[m[0]:]
	}
	return fragment, ""
}

// splitAfterNthParagraph splits a fragment immediately after the n-th closing
// paragraph tag, the fallback used when a featured image must land between
// two specific paragraphs of a heading-less body. Fewer than n paragraphs
// yields (fragment, "").
func splitAfterNthParagraph(fragment string, n int) (string, string) {
	if fragment == "" {
		return "", ""
	}
	pos := 0
	for count := 0; count < n; count++ {
		m := closingParaRe.FindStringIndex(fragment[pos:])
		if m == nil {
			return fragment, ""
		}
		pos += m[1]
	}
	return fragment[:pos], fragment[pos:]
}

var (
	headingFontRe = regexp.MustCompile(`\bfont-size:\s*22px`)
	bodyFontRe    = regexp.MustCompile(`\bfont-size:\s*16px`)
)

// scaleMarketingFonts shrinks inline font sizes so the article body reads as
// a preview inside the marketing layout rather than a full newsletter.
func scaleMarketingFonts(fragment string) string {
	if fragment == "" {
		return fragment
	}
	fragment = headingFontRe.ReplaceAllString(fragment, "font-size:18px")
	return bodyFontRe.ReplaceAllString(fragment, "font-size:14px")
}
