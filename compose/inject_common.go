package compose

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

// Injectors are defensive by contract: a missing slot is a no-op for that
// slot only, never an aborted call. Template skeletons evolve independently
// of this code and partial injection beats a hard failure.

const styleSubText = "margin: 0; font-family: 'Lora', Georgia, serif; font-weight: 400; " +
	"font-size: 18px; line-height: 32px; letter-spacing: -0.8px; color: #000000;"

// updateTitle rewrites the page title element.
func updateTitle(doc *html.Node, f *content.Fields) {
	t := locate(doc, slotQuery{Tag: atom.Title})
	if t == nil {
		return
	}
	title := f.Title
	if f.SiteName != "" {
		title += " - " + f.SiteName
	}
	setText(t, title)
}

// updateHeadline rewrites the main article heading.
func updateHeadline(doc *html.Node, f *content.Fields) {
	if h1 := locate(doc, slotQuery{Tag: atom.H1, Classes: []string{"headline-mobile"}}); h1 != nil {
		setText(h1, f.Title)
	}
}

// updateSubtitle replaces every subtitle paragraph in the header cell with
// the supplied lines, one paragraph per line.
func updateSubtitle(doc *html.Node, f *content.Fields) {
	first := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}})
	if first == nil {
		return
	}
	td := findParent(first, atom.Td)
	if td == nil {
		return
	}
	for _, p := range locateAll(td, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}}) {
		removeNode(p)
	}
	for _, line := range f.SubtitleList() {
		appendFragment(td, fmt.Sprintf(`<p class="sub-text" style="%s">%s</p>`, styleSubText, line))
	}
}

// removeWelcomeBanner drops the standalone welcome-banner row. The staged
// output carries the welcome text inside the first body section instead.
func removeWelcomeBanner(doc *html.Node) {
	p := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"welcome-message"}})
	if p == nil {
		return
	}
	if tr := outerRow(doc, p); tr != nil {
		removeNode(tr)
	}
}

// firstName returns the leading word of a full name.
func firstName(name string) string {
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	return "Author"
}

// updateAuthorBlock rewrites the author cell: name, title and the about link.
func updateAuthorBlock(doc *html.Node, f *content.Fields) {
	td := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"tablebox", "table-box-mobile"}})
	if td == nil {
		return
	}
	paras := locateAll(td, slotQuery{Tag: atom.P})
	if len(paras) >= 1 {
		setText(paras[0], f.AuthorName)
	}
	if len(paras) >= 2 {
		setText(paras[1], f.AuthorTitle)
	}
	if len(paras) >= 3 {
		if link := locate(paras[2], slotQuery{Tag: atom.A}); link != nil {
			url := f.AuthorURL
			if url == "" {
				url = "#"
			}
			setAttr(link, "href", url)
			setText(link, "About "+firstName(f.AuthorName))
		}
	}
}

// relatedHeading finds the related-reading section heading.
func relatedHeading(doc *html.Node) *html.Node {
	return locate(doc, slotQuery{Tag: atom.H2, TextHas: "More from"})
}

// updateRelatedArticles rebuilds the related-article card rows that follow
// the section heading, one card per supplied article.
func updateRelatedArticles(doc *html.Node, articles []content.RelatedArticle, log *zap.Logger) {
	if len(articles) == 0 {
		return
	}
	h2 := relatedHeading(doc)
	if h2 == nil {
		log.Debug("related-articles heading not found, skipping cards")
		return
	}
	tbody := findParent(h2, atom.Tbody)
	if tbody == nil {
		return
	}

	var cardRows []*html.Node
	seenHeading := false
	for _, tr := range childElements(tbody, atom.Tr) {
		if !seenHeading {
			seenHeading = containsNode(tr, h2)
			continue
		}
		cardRows = append(cardRows, tr)
	}

	for i, tr := range cardRows {
		if i >= len(articles) {
			break
		}
		rebuildArticleCard(tr, articles[i], i == len(articles)-1)
	}
}

// rebuildArticleCard replaces a single card row's content. The last card
// loses its trailing spacing so the section closes flush.
func rebuildArticleCard(tr *html.Node, a content.RelatedArticle, isLast bool) {
	td := firstDescendant(tr, atom.Td)
	if td == nil {
		return
	}
	if isLast {
		setAttr(td, "style", "")
	} else {
		setAttr(td, "style", "padding-bottom: 32px;")
	}

	url := a.URL
	if url == "" {
		url = "#"
	}
	alt := a.ImageAlt
	if alt == "" {
		alt = a.Title
	}

	card := fmt.Sprintf(`<table border="0" cellpadding="0" cellspacing="0" role="presentation" width="100%%">
<tbody>
<tr>
<td align="center" style="padding-bottom: 16px;"><a href="%[1]s" style="display: block;"> <img alt="%[2]s" class="fluid" height="150" src="%[3]s" style="width: 100%%; max-width: 330px; height: auto; display: block; border-radius: 12px;" width="330"> </a></td>
</tr>
<tr>
<td style="text-align: center;">
<h3 class="h3-heading" style="margin: 0 0 8px 0; font-family: 'Lora', Georgia, serif; font-weight: bold; font-size: 18px; line-height: 24px; letter-spacing: -0.8px; color: #000000;"><a href="%[1]s" style="color: #000000; text-decoration: none;">%[4]s</a></h3>
<p style="margin: 0; font-family: 'DM Sans', Arial, Helvetica, sans-serif; font-weight: 400; font-size: 16px; line-height: 24px; letter-spacing: -0.8px; color: #000000;">%[5]s</p>
</td>
</tr>
<tr>
<td align="center" style="padding: 15px 0; text-align: center;">
<table align="center" border="0" cellpadding="0" cellspacing="0" role="presentation">
<tbody>
<tr>
<td style="border: 2px solid #000000; border-radius: 3px;"><a href="%[1]s" rel="noopener" style="display: inline-block; padding: 6px 14px; font-family: 'DM Sans', Arial, sans-serif; font-size: 12px; font-weight: 600; color: #000000; text-decoration: none;" target="_blank"> Read more </a></td>
</tr>
</tbody>
</table>
</td>
</tr>
</tbody>
</table>`,
		escapeAttr(url), escapeAttr(alt), escapeAttr(a.ImageURL), a.Title, a.Description)

	setInner(td, card)
}

var copyrightYearRe = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// updateCopyright refreshes the year inside the footer copyright line.
func updateCopyright(doc *html.Node) {
	p := locate(doc, slotQuery{Tag: atom.P, TextHas: "Copyright"})
	if p == nil {
		return
	}
	year := fmt.Sprintf("%d", time.Now().Year())
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			n.Data = copyrightYearRe.ReplaceAllString(n.Data, year)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p)
}

// handleUpdateBanner processes the top banner row: removed unless the caller
// both asks to keep it and supplies replacement content, in which case the
// paragraph element and its styling survive with new content inside.
func handleUpdateBanner(doc *html.Node, f *content.Fields) {
	p := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"news-top-link"}})
	if p == nil {
		return
	}
	if !f.IncludeUpdateBanner {
		if tr := outerRow(doc, p); tr != nil {
			removeNode(tr)
		}
		return
	}
	if f.UpdateBannerHTML != "" {
		setInner(p, f.UpdateBannerHTML)
	}
}

// featuredImageDiv builds the inline featured-image block used by the body
// sections.
func featuredImageDiv(url, alt string) string {
	return fmt.Sprintf(
		`<div style="position: relative; display: inline-block; width: 100%%; margin-bottom: 24px;">`+
			`<img alt="%s" class="fluid" src="%s"`+
			` style="width: 100%%; max-width: 552px; height: auto; display: block; border-radius: 16px;">`+
			`</div>`,
		escapeAttr(alt), escapeAttr(url))
}
