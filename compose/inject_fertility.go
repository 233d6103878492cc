package compose

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

// injectFertility populates the fertility article layout: optional update
// banner, subtitle and author line in the header cell, body split around the
// fixed featured-image slot, and the callout list in the bottom-line box.
func injectFertility(doc *html.Node, f *content.Fields, log *zap.Logger) {
	handleUpdateBanner(doc, f)
	updateTitle(doc, f)
	updateHeadline(doc, f)
	updateFertilitySubtitleAuthor(doc, f)
	replaceFertilityBody(doc, f, log)
	updateFertilityBottomLine(doc, f)
	updateCopyright(doc)
}

// updateFertilitySubtitleAuthor rewrites the header cell's two subtitle
// paragraphs: the first holds the subtitle, the second the author line.
func updateFertilitySubtitleAuthor(doc *html.Node, f *content.Fields) {
	td := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"table-box-mobile", "top-box-header-m"}})
	if td == nil {
		return
	}
	paras := locateAll(td, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}})

	subtitle := ""
	if lines := f.SubtitleList(); len(lines) > 0 {
		subtitle = lines[0]
	}
	if len(paras) >= 1 {
		setText(paras[0], subtitle)
	}

	authorLine := f.AuthorName
	if f.AuthorTitle != "" {
		authorLine = f.AuthorName + ", " + f.AuthorTitle
	}
	if len(paras) >= 2 {
		setText(paras[1], authorLine)
	}
}

// replaceFertilityBody routes the intro half into the first plain tablebox
// cell, updates the fixed featured-image element, and puts the main half into
// the tablebox cell below the image. A heading-less body is split after the
// second paragraph instead so the image still lands at a natural position.
func replaceFertilityBody(doc *html.Node, f *content.Fields, log *zap.Logger) {
	introHTML, mainHTML := splitAtFirstHeading(f.ArticleBodyHTML)
	if mainHTML == "" {
		introHTML, mainHTML = splitAfterNthParagraph(f.ArticleBodyHTML, 2)
	}

	introTd := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}, WithoutClass: []string{"table-box-mobile"}})
	if introTd != nil {
		setInner(introTd, introHTML)
	} else {
		log.Debug("fertility intro cell not found")
	}

	img := locate(doc, slotQuery{Tag: atom.Img, AttrKey: "alt", AttrVal: "Article Image"})
	if img != nil && f.FeaturedImageURL != "" {
		setAttr(img, "src", f.FeaturedImageURL)
		setAttr(img, "alt", f.FeaturedImageAlt)
	}

	mainTd := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"tablebox", "table-box-mobile", "no-top-pad"}})
	if mainTd != nil {
		setInner(mainTd, mainHTML)
	} else {
		log.Debug("fertility main cell not found")
	}
}

// updateFertilityBottomLine replaces the list inside the purple callout box,
// identified by its background color.
func updateFertilityBottomLine(doc *html.Node, f *content.Fields) {
	if f.BottomLineHTML == "" {
		return
	}
	purpleTd := locate(doc, slotQuery{Tag: atom.Td, StyleHas: "a9b4ff"})
	if purpleTd == nil {
		return
	}
	ul := locate(purpleTd, slotQuery{Tag: atom.Ul})
	if ul == nil {
		return
	}
	insertFragmentAfter(ul, f.BottomLineHTML)
	removeNode(ul)
}
