package compose

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

// injectLatestTeaser populates the paywall-preview layout: the article body
// is split at the fade phrase, visible blocks land in the body section with
// the featured image spliced in before the first subheading, and the first
// faded block is rendered in two opacity tiers in the fade section.
func injectLatestTeaser(doc *html.Node, f *content.Fields, log *zap.Logger) {
	updateTitle(doc, f)
	updateHeadline(doc, f)
	updateSubtitle(doc, f)
	removeWelcomeBanner(doc)
	injectTeaserBody(doc, f, log)
	updateContinueLink(doc, f)
	updateRelatedArticles(doc, f.RelatedArticles, log)
	updateCopyright(doc)
}

// updateContinueLink points the continue-reading button at the published
// article.
func updateContinueLink(doc *html.Node, f *content.Fields) {
	btn := locate(doc, slotQuery{Tag: atom.Div, Classes: []string{"continue-reading-btn"}})
	if btn == nil {
		return
	}
	if a := locate(btn, slotQuery{Tag: atom.A}); a != nil {
		url := f.ArticleURL
		if url == "" {
			url = "#"
		}
		setAttr(a, "href", url)
	}
}

// bodyBlocks parses a body fragment into its top-level block elements.
func bodyBlocks(fragment string) []*html.Node {
	var blocks []*html.Node
	for _, n := range parseFragmentIn(fragment, atom.Div) {
		if n.Type == html.ElementNode {
			blocks = append(blocks, n)
		}
	}
	return blocks
}

// isImageOnlyBlock reports whether a block contains an image but no visible
// text.
func isImageOnlyBlock(n *html.Node) bool {
	return firstDescendant(n, atom.Img) != nil && strings.TrimSpace(textContent(n)) == ""
}

const teaserIntroStyle = "padding-bottom: 16px; margin: 0; " +
	"font-family: 'DM Sans', Arial, Helvetica, sans-serif; " +
	"font-weight: 400; font-style: italic; font-size: 16px; line-height: 24px; color: #000000;"

// injectTeaserBody distributes the article body across the visible body
// section and the faded preview section, and removes the template's
// two-column image row since the featured image moves inline.
func injectTeaserBody(doc *html.Node, f *content.Fields, log *zap.Logger) {
	blocks := bodyBlocks(f.ArticleBodyHTML)

	// First block whose normalized text contains the fade phrase starts the
	// faded set. No match, or no phrase, keeps everything visible.
	fadeIdx := len(blocks)
	if key := fadeKey(f.FadeFrom); key != "" {
		for i, el := range blocks {
			if strings.Contains(normFade(textContent(el)), key) {
				fadeIdx = i
				break
			}
		}
	}
	visible := blocks[:fadeIdx]
	faded := blocks[fadeIdx:]

	// The published article often carries an editorial image near the top.
	// The featured image is injected separately, so image-only blocks before
	// the first subheading would duplicate it. Figures after the subheading
	// stay.
	clean := visible[:0:len(visible)]
	h2Found := false
	for _, el := range visible {
		if el.DataAtom == atom.H2 {
			h2Found = true
		}
		if !h2Found && isImageOnlyBlock(el) {
			continue
		}
		clean = append(clean, el)
	}
	visible = clean

	// Featured image goes right before the first subheading, or at the end
	// when the body has none.
	if f.FeaturedImageURL != "" {
		if nodes := parseFragmentIn(featuredImageDiv(f.FeaturedImageURL, f.FeaturedImageAlt), atom.Div); len(nodes) > 0 {
			img := nodes[0]
			inserted := false
			for i, el := range visible {
				if el.DataAtom == atom.H2 {
					visible = append(visible[:i], append([]*html.Node{img}, visible[i:]...)...)
					inserted = true
					break
				}
			}
			if !inserted {
				visible = append(visible, img)
			}
		}
	}

	// Capture the targets before any mutation moves them around.
	var bodyTd *html.Node
	if introTmpl := locate(doc, slotQuery{Tag: atom.P, TextHas: "INTRO TEXT HERE"}); introTmpl != nil {
		bodyTd = findParent(introTmpl, atom.Td)
	} else {
		log.Debug("teaser intro placeholder not found, body section untouched")
	}

	var twoColRow *html.Node
	eachElement(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Tr {
			return true
		}
		count := 0
		for _, td := range childElements(n, atom.Td) {
			if hasClass(td, "stack-column") {
				count++
			}
		}
		if count >= 2 {
			twoColRow = n
			return false
		}
		return true
	})

	var twoColOuterRow *html.Node
	if twoColRow != nil {
		twoColOuterRow = outerRow(doc, twoColRow)
	}

	// The fade section is the next top-level row after the two-column row:
	// navigate its nested table down to the content cell.
	var fadeTd *html.Node
	if twoColOuterRow != nil {
		rows := emailContainerRows(doc)
		for i, tr := range rows {
			if tr != twoColOuterRow || i+1 >= len(rows) {
				continue
			}
			if outerTd := firstDescendant(rows[i+1], atom.Td); outerTd != nil {
				if table := firstDescendant(outerTd, atom.Table); table != nil {
					if tbody := firstDescendant(table, atom.Tbody); tbody != nil {
						if innerTr := firstDescendant(tbody, atom.Tr); innerTr != nil {
							fadeTd = firstDescendant(innerTr, atom.Td)
						}
					}
				}
			}
			break
		}
	}

	if bodyTd != nil {
		clearChildren(bodyTd)

		introParas := splitParagraphs(f.IntroText)
		for _, para := range introParas {
			appendFragment(bodyTd, fmt.Sprintf(`<p style="%s">%s</p>`, teaserIntroStyle, para))
		}
		appendFragment(bodyTd,
			`<hr style="border: none; border-top: 1px solid #e0e0e0; margin: 8px 0 24px 0;">`)
		for _, el := range visible {
			bodyTd.AppendChild(el)
		}
	}

	// Only the first faded block is shown; everything after it is discarded.
	// Both halves live inside one element so no paragraph gap appears, the
	// first at opacity 0.5 and the second at 0.2, so the text grows lighter
	// toward the cut.
	if fadeTd != nil {
		clearChildren(fadeTd)
		if len(faded) > 0 {
			appendFadedBlock(fadeTd, faded[0])
		}
	}

	if twoColOuterRow != nil {
		removeNode(twoColOuterRow)
	}
}

// splitParagraphs splits editor-entered text on blank lines.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

// appendFadedBlock rebuilds the faded element with its original tag, style
// and classes, content split into the two opacity spans.
func appendFadedBlock(td, el *html.Node) {
	tag := el.Data
	if tag == "" {
		tag = "p"
	}
	style, _ := attrVal(el, "style")
	style = strings.TrimRight(style, ";")

	var classes []string
	for _, c := range classList(el) {
		if c != "fade-out-light" && c != "fade-out-medium" {
			classes = append(classes, c)
		}
	}

	first, second := splitForFade(el)

	var parts []string
	if first != "" {
		parts = append(parts, `<span style="opacity:0.5;">`+first+`</span>`)
	}
	if second != "" {
		parts = append(parts, `<span style="opacity:0.2;">`+second+`</span>`)
	}
	if len(parts) == 0 {
		return
	}

	clsAttr := ""
	if len(classes) > 0 {
		clsAttr = ` class="` + strings.Join(classes, " ") + `"`
	}
	if style != "" {
		style += ";"
	}
	appendFragment(td, fmt.Sprintf(`<%[1]s%[2]s style="%[3]s">%[4]s</%[1]s>`,
		tag, clsAttr, style, strings.Join(parts, "")))
}
