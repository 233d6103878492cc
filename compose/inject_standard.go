package compose

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

// injectStandard populates the standard newsletter layout: headline and
// subtitle in the header, welcome text and opening paragraphs with the
// featured image in the first body section, the main body from the first
// heading onward in the second, then author block, related cards and footer.
func injectStandard(doc *html.Node, f *content.Fields, log *zap.Logger) {
	updateTitle(doc, f)
	updateHeadline(doc, f)
	updateSubtitle(doc, f)
	removeWelcomeBanner(doc)
	replaceArticleSections(doc, f)
	updateAuthorBlock(doc, f)
	updateRelatedArticles(doc, f.RelatedArticles, log)
	updateCopyright(doc)
}

// articleBodyCells returns the body-section cells in document order.
func articleBodyCells(doc *html.Node) []*html.Node {
	return locateAll(doc, slotQuery{Tag: atom.Td, Classes: []string{"table-box-mobile", "no-pad-t-b"}})
}

// replaceArticleSections fills the two article body sections. The first gets
// the welcome fragment in one row and the pre-heading paragraphs plus the
// featured image in the next; the second gets everything from the first
// heading onward.
func replaceArticleSections(doc *html.Node, f *content.Fields) {
	cells := articleBodyCells(doc)

	introHTML, mainHTML := splitAtFirstHeading(f.ArticleBodyHTML)

	if len(cells) >= 1 {
		if tbody := firstDescendant(cells[0], atom.Tbody); tbody != nil {
			clearChildren(tbody)
			rowA := fmt.Sprintf(
				`<tr><td style="padding-bottom: 8px; padding-top: 24px; width: 100%%;">%s</td></tr>`,
				f.WelcomeHTML)
			rowB := fmt.Sprintf(
				`<tr><td style="padding-bottom: 8px; width: 100%%;">%s%s</td></tr>`,
				introHTML, featuredImageDiv(f.FeaturedImageURL, f.FeaturedImageAlt))
			appendFragment(tbody, rowA+rowB)
		}
	}

	if len(cells) >= 2 {
		if tbody := firstDescendant(cells[1], atom.Tbody); tbody != nil {
			clearChildren(tbody)
			appendFragment(tbody, fmt.Sprintf(
				`<tr><td rowspan="3" style="padding-bottom: 8px; width: 100%%;">%s</td></tr>`,
				mainHTML))
		}
	}
}
