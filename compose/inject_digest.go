package compose

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

var (
	loraStyleRe   = regexp.MustCompile(`(?i)Lora`)
	dmSansStyleRe = regexp.MustCompile(`(?i)DM Sans`)
)

// styledParagraph returns the first paragraph inside root whose inline style
// matches re.
func styledParagraph(root *html.Node, re *regexp.Regexp) *html.Node {
	var found *html.Node
	eachElement(root, func(n *html.Node) bool {
		if n.DataAtom != atom.P {
			return true
		}
		style, _ := attrVal(n, "style")
		if re.MatchString(style) {
			found = n
			return false
		}
		return true
	})
	return found
}

// injectFertilityDigest populates the fertility digest layout: headline,
// editorial intro and the article card rows.
func injectFertilityDigest(doc *html.Node, f *content.Fields, log *zap.Logger) {
	updateTitle(doc, f)
	updateHeadline(doc, f)
	updateDigestIntro(doc, f)
	updateDigestCards(doc, f, log)
	updateCopyright(doc)
}

// updateDigestIntro rewrites the editorial intro paragraph in the header.
func updateDigestIntro(doc *html.Node, f *content.Fields) {
	td := locate(doc, slotQuery{Tag: atom.Td, Classes: []string{"top-box-header-m"}})
	if td == nil {
		return
	}
	if p := locate(td, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}}); p != nil {
		setText(p, f.IntroText)
	}
}

// updateDigestCards fills the article card rows in template order. A card
// row is a nested-table structure whose outer row contains both the card
// image and the read-more button; inner rows contain only the button, so
// requiring both filters them out.
func updateDigestCards(doc *html.Node, f *content.Fields, log *zap.Logger) {
	var cardRows []*html.Node
	eachElement(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Tr {
			return true
		}
		if locate(n, slotQuery{Tag: atom.Div, Classes: []string{"read-more-btn"}}) != nil &&
			locate(n, slotQuery{Tag: atom.Img, Classes: []string{"article-card-img"}}) != nil {
			cardRows = append(cardRows, n)
		}
		return true
	})
	if len(cardRows) < len(f.Articles) {
		log.Debug("fewer digest card rows than articles",
			zap.Int("rows", len(cardRows)), zap.Int("articles", len(f.Articles)))
	}

	for i, tr := range cardRows {
		if i >= len(f.Articles) {
			break
		}
		a := f.Articles[i]

		if img := locate(tr, slotQuery{Tag: atom.Img, Classes: []string{"article-card-img"}}); img != nil {
			setAttr(img, "src", a.ImageURL)
			alt := a.ImageAlt
			if alt == "" {
				alt = a.Title
			}
			setAttr(img, "alt", alt)
		}

		if titleP := styledParagraph(tr, loraStyleRe); titleP != nil {
			if strong := locate(titleP, slotQuery{Tag: atom.Strong}); strong != nil {
				setText(strong, a.Title)
			}
		}

		if descP := styledParagraph(tr, dmSansStyleRe); descP != nil {
			setText(descP, a.Description)
		}

		if btn := locate(tr, slotQuery{Tag: atom.Div, Classes: []string{"read-more-btn"}}); btn != nil {
			if link := locate(btn, slotQuery{Tag: atom.A}); link != nil {
				url := a.URL
				if url == "" {
					url = "#"
				}
				setAttr(link, "href", url)
			}
		}
	}
}

// injectPaidDigest populates the paid digest layout: section headings map
// 1:1 to the template's section-title elements, and articles are assigned to
// the newsletter cards in flattened order across all sections.
func injectPaidDigest(doc *html.Node, f *content.Fields, log *zap.Logger) {
	updatePaidDigestCards(doc, f, log)
	updateCopyright(doc)
}

func updatePaidDigestCards(doc *html.Node, f *content.Fields, log *zap.Logger) {
	headings := locateAll(doc, slotQuery{Tag: atom.H2, Classes: []string{"section-title"}})
	for i, h2 := range headings {
		if i < len(f.Sections) {
			setText(h2, f.Sections[i].Name)
		}
	}

	var articles []content.DigestArticle
	for _, s := range f.Sections {
		articles = append(articles, s.Articles...)
	}

	cards := locateAll(doc, slotQuery{Tag: atom.Table, Classes: []string{"newsletter-card"}})
	if len(cards) < len(articles) {
		log.Debug("fewer newsletter cards than articles",
			zap.Int("cards", len(cards)), zap.Int("articles", len(articles)))
	}
	for i, card := range cards {
		if i >= len(articles) {
			break
		}
		a := articles[i]
		alt := a.ImageAlt
		if alt == "" {
			alt = a.Title
		}

		// Mobile and desktop image variants share src and alt.
		for _, img := range locateAll(card, slotQuery{Tag: atom.Img}) {
			if a.ImageURL != "" {
				setAttr(img, "src", a.ImageURL)
			}
			setAttr(img, "alt", alt)
		}

		if h3 := locate(card, slotQuery{Tag: atom.H3}); h3 != nil {
			setText(h3, a.Title)
		}

		if subtitleP := styledParagraph(card, dmSansStyleRe); subtitleP != nil {
			setText(subtitleP, a.Subtitle)
		}

		for _, link := range locateAll(card, slotQuery{Tag: atom.A}) {
			if strings.Contains(strings.ToLower(strings.TrimSpace(textContent(link))), "read more") {
				url := a.URL
				if url == "" {
					url = "#"
				}
				setAttr(link, "href", url)
				break
			}
		}
	}
}
