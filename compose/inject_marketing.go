package compose

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

const styleMarketingIntro = "font-family: 'DM Sans', Arial, Helvetica, sans-serif; font-weight: normal; " +
	"font-size: 16px; line-height: 24px; color: #000000; font-style: italic;"

var upgradeLinkRe = regexp.MustCompile(`(?i)UPGRADE\s+NOW`)

// injectMarketing populates the upgrade-pitch layout: pill bar, intro copy
// with the discount link, pricing cells, the article body preview between the
// upgrade button and the author block, and the author block itself.
func injectMarketing(doc *html.Node, f *content.Fields, log *zap.Logger) {
	updateTitle(doc, f)
	updateMarketingBanner(doc, f)
	updateMarketingIntro(doc, f)
	updateMarketingPricing(doc, f)
	replaceMarketingBody(doc, f, log)
	updateMarketingAuthor(doc, f)
	updateCopyright(doc)
}

// updateMarketingBanner rewrites the blue pill bar text.
func updateMarketingBanner(doc *html.Node, f *content.Fields) {
	if f.BannerText == "" {
		return
	}
	if p := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"welcome-message"}}); p != nil {
		setText(p, f.BannerText)
	}
}

// updateMarketingIntro replaces the intro cell paragraphs. The intro option
// text splits at the pointing-finger marker: everything before it is plain,
// the marker and what follows become the discount link paragraph.
func updateMarketingIntro(doc *html.Node, f *content.Fields) {
	td := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}})
	if td == nil {
		return
	}

	text := f.IntroOptionText
	discountURL := f.DiscountURL
	if discountURL == "" {
		discountURL = "#"
	}

	para1, para2 := text, ""
	if before, after, found := strings.Cut(text, "👉"); found {
		para1 = strings.TrimSpace(before)
		para2 = "👉 " + strings.TrimSpace(after)
	}

	clearChildren(td)
	appendFragment(td, fmt.Sprintf(`<p style="%s">%s</p>`, styleMarketingIntro, escapeAttr(para1)))
	if para2 != "" {
		appendFragment(td, fmt.Sprintf(
			`<p style="%s"><a href="%s" style="color:#054f8b;text-decoration:underline;">%s</a></p>`,
			styleMarketingIntro, escapeAttr(discountURL), escapeAttr(para2)))
	}
}

// findUpgradeLink locates the UPGRADE NOW button anchor.
func findUpgradeLink(doc *html.Node) *html.Node {
	var found *html.Node
	eachElement(doc, func(n *html.Node) bool {
		if n.DataAtom == atom.A && upgradeLinkRe.MatchString(textContent(n)) {
			found = n
			return false
		}
		return true
	})
	return found
}

// updateMarketingPricing rewrites the strikethrough price, the discounted
// price and the upgrade button target.
func updateMarketingPricing(doc *html.Node, f *content.Fields) {
	if f.OldPrice != "" {
		if td := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"pricing-old"}}); td != nil {
			if p := locate(td, slotQuery{Tag: atom.P}); p != nil {
				setText(p, f.OldPrice)
			}
		}
	}
	if f.DiscountPrice != "" {
		if td := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"pricing-new"}}); td != nil {
			if p := locate(td, slotQuery{Tag: atom.P}); p != nil {
				setText(p, f.DiscountPrice)
			}
		}
	}
	if f.DiscountURL != "" {
		if link := findUpgradeLink(doc); link != nil {
			setAttr(link, "href", f.DiscountURL)
		}
	}
}

// findMarketingAuthorTd locates the author cell: it shares the body cells'
// class pair but is the only one with the cream background.
func findMarketingAuthorTd(doc *html.Node) *html.Node {
	return locate(doc, slotQuery{
		Tag:      atom.Td,
		Classes:  []string{"tablebox", "table-box-mobile"},
		StyleHas: "255, 252, 238",
	})
}

// replaceMarketingBody deletes all rows between the upgrade section and the
// author block, then inserts the intro paragraphs, the featured image, the
// main body and the leave-a-comment button as fresh rows. The body is split
// at its first heading so the image sits between the opening text and the
// first section; a body that starts with a heading gets the image row first.
func replaceMarketingBody(doc *html.Node, f *content.Fields, log *zap.Logger) {
	upgradeLink := findUpgradeLink(doc)
	if upgradeLink == nil {
		log.Debug("upgrade button not found, body rows untouched")
		return
	}
	upgradeRow := outerRow(doc, upgradeLink)

	var authorRow *html.Node
	if td := findMarketingAuthorTd(doc); td != nil {
		authorRow = outerRow(doc, td)
	}
	if upgradeRow == nil || authorRow == nil {
		return
	}

	rows := emailContainerRows(doc)
	startIdx, endIdx := -1, -1
	for i, tr := range rows {
		if tr == upgradeRow {
			startIdx = i
		}
		if tr == authorRow {
			endIdx = i
		}
	}
	if startIdx < 0 || endIdx < 0 || endIdx <= startIdx {
		return
	}
	for _, tr := range rows[startIdx+1 : endIdx] {
		removeNode(tr)
	}

	body := scaleMarketingFonts(f.ArticleBodyHTML)
	introHTML, mainHTML := splitAtFirstHeading(body)

	articleURL := f.ArticleURL
	if articleURL == "" {
		articleURL = "#"
	}

	bodyRow := func(inner string) string {
		return `<tr><td class="table-box-mobile no-top-pad" style="background-color:#fff;padding:0 48px;">` +
			`<table border="0" cellpadding="0" cellspacing="0" role="presentation" width="100%">` +
			`<tbody><tr><td class="tablebox" style="padding-bottom:0;">` +
			inner +
			`</td></tr></tbody></table></td></tr>`
	}

	imageRow := fmt.Sprintf(
		`<tr><td class="table-box-mobile no-top-pad" style="background-color:#fff;padding:0 48px;">`+
			`<table border="0" cellpadding="0" cellspacing="0" role="presentation" width="100%%">`+
			`<tbody><tr><td style="text-align:center;">`+
			`<img src="%s" alt="%s"`+
			` style="display:block;width:100%%;max-width:520px;height:auto;border-radius:20px;margin:0 auto;"`+
			` class="fluid">`+
			`</td></tr></tbody></table></td></tr>`,
		escapeAttr(f.FeaturedImageURL), escapeAttr(f.FeaturedImageAlt))

	commentRow := fmt.Sprintf(
		`<tr><td class="table-box-mobile no-top-pad" style="background-color:#fff;padding:0 48px 40px;">`+
			`<table align="center" border="0" cellpadding="0" cellspacing="0" role="presentation"`+
			` style="max-width:288px;width:100%%;">`+
			`<tbody><tr><td align="center" style="padding:0;">`+
			`<div style="display:inline-block;border-radius:15px;background-color:#fceea9;`+
			`border:2px solid #000;box-shadow:0 4px 4px rgba(0,0,0,0.25);">`+
			`<a href="%s" rel="noopener" target="_blank"`+
			` style="display:block;padding:16px 24px;font-family:'DM Sans',Arial,sans-serif;`+
			`font-weight:800;font-size:20px;color:#000;text-decoration:none;text-transform:uppercase;">`+
			`LEAVE A COMMENT</a></div>`+
			`</td></tr></tbody></table></td></tr>`,
		escapeAttr(articleURL))

	// Inserted in reverse so the final document order reads intro, image,
	// body, comment button.
	insertFragmentAfter(upgradeRow, commentRow)
	insertFragmentAfter(upgradeRow, bodyRow(mainHTML))
	insertFragmentAfter(upgradeRow, imageRow)
	if introHTML != "" {
		insertFragmentAfter(upgradeRow, bodyRow(introHTML))
	}
}

var authorNameStyleRe = regexp.MustCompile(`(?i)Lora.*font-size:\s*22px`)

// updateMarketingAuthor rewrites name, title and the about link in the
// marketing author block.
func updateMarketingAuthor(doc *html.Node, f *content.Fields) {
	td := findMarketingAuthorTd(doc)
	if td == nil {
		return
	}

	var authorP *html.Node
	for _, p := range locateAll(td, slotQuery{Tag: atom.P}) {
		style, _ := attrVal(p, "style")
		if authorNameStyleRe.MatchString(style) {
			authorP = p
			break
		}
	}
	if authorP == nil {
		return
	}
	setText(authorP, f.AuthorName)

	for sib := authorP.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.DataAtom == atom.P {
			setText(sib, f.AuthorTitle)
			break
		}
	}

	// First anchor after the name paragraph, in document order within the cell.
	seen := false
	eachElement(td, func(n *html.Node) bool {
		if n == authorP {
			seen = true
			return true
		}
		if seen && n.DataAtom == atom.A {
			url := f.AuthorURL
			if url == "" {
				url = "#"
			}
			setAttr(n, "href", url)
			setText(n, "About "+firstName(f.AuthorName))
			return false
		}
		return true
	})
}
