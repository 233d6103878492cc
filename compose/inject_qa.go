package compose

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content"
)

// injectQA populates the reader-questions layout: intro sentence, then two
// question/answer blocks located by their decorative marker images, with the
// author attribution line after the last answer.
func injectQA(doc *html.Node, f *content.Fields, log *zap.Logger) {
	handleUpdateBanner(doc, f)
	updateQAIntro(doc, f)
	updateQAPairs(doc, f, log)
	updateCopyright(doc)
}

// updateQAIntro rewrites the intro sentence, preserving editor line breaks.
func updateQAIntro(doc *html.Node, f *content.Fields) {
	if f.IntroText == "" {
		return
	}
	p := locate(doc, slotQuery{Tag: atom.P, Classes: []string{"sub-text"}})
	if p == nil {
		return
	}
	setInner(p, fmt.Sprintf(`<span style="white-space: pre-wrap;">%s</span>`, escapeAttr(f.IntroText)))
}

// updateQAPairs injects both question groups. Each block is found through
// its marker image, then the italic paragraph takes the question text and
// the tablebox cell's div takes the answer markup.
func updateQAPairs(doc *html.Node, f *content.Fields, log *zap.Logger) {
	questionImgs := locateAll(doc, slotQuery{Tag: atom.Img, AttrKey: "alt", AttrVal: "Question"})
	answerImgs := locateAll(doc, slotQuery{Tag: atom.Img, AttrKey: "alt", AttrVal: "Answer"})

	for i, qImg := range questionImgs {
		qa := f.QA(i + 1)
		if qa == nil {
			continue
		}
		row := outerRow(doc, qImg)
		if row == nil {
			log.Debug("question block has no enclosing row", zap.Int("pair", i+1))
			continue
		}
		italicP := locate(row, slotQuery{Tag: atom.P, StyleHas: "italic"})
		if italicP == nil {
			continue
		}
		body := fmt.Sprintf(`<span style="white-space: pre-wrap;">%s</span>`, escapeAttr(qa.QuestionText))
		if qa.QuestionAuthor != "" {
			body += fmt.Sprintf(`<br><br><span style="white-space: pre-wrap;">—%s</span>`, escapeAttr(qa.QuestionAuthor))
		}
		setInner(italicP, body)
	}

	authorLine := strings.TrimSpace(f.QAAuthorLine)

	for i, aImg := range answerImgs {
		qa := f.QA(i + 1)
		row := outerRow(doc, aImg)
		if row == nil {
			continue
		}
		td := locate(row, slotQuery{Tag: atom.Td, Classes: []string{"tablebox"}})
		if td == nil {
			continue
		}
		if div := locate(td, slotQuery{Tag: atom.Div}); div != nil {
			clearChildren(div)
			if qa != nil && qa.AnswerHTML != "" {
				appendFragment(div, qa.AnswerHTML)
			}
		}
		if i == len(answerImgs)-1 && authorLine != "" {
			appendFragment(td, fmt.Sprintf(
				`<div><p style="white-space-collapse: preserve; `+
					`font-family: 'DM Sans', Arial, Helvetica, sans-serif; `+
					`font-weight: normal; font-size: 16px; line-height: 24px; color: #000000;">`+
					`<span class="g-italic-fnt" style="font-style: italic; font-size: 16px; `+
					`font-family: 'DM Sans', Arial, Helvetica, sans-serif;">%s</span></p></div>`,
				escapeAttr(authorLine)))
		}
	}
}
