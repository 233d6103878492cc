package compose

import (
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ApplyEmailFixes runs the full compatibility pipeline over a serialized
// document: tree passes first (semantic tags, images, disallowed elements,
// padding marker class), then the string passes that must see attribute
// syntax exactly as mail clients do (anchor styling, Gmail iOS CSS, injected
// heights). Every pass is idempotent; re-running the pipeline on its own
// output changes nothing. The fixer never fails: anything it does not
// recognize passes through untouched.
func ApplyEmailFixes(src string) string {
	doc, err := parseDocument(src)
	if err != nil {
		return src
	}

	rewriteSemanticTags(doc)
	fixImages(doc)
	removeDisallowed(doc)
	markZeroTopPadding(doc)

	out := renderDocument(doc)
	out = fixAnchors(out)
	out = injectGmailCSS(out)
	out = fixInjectedHeights(out)
	return out
}

// styleHasProperty reports whether the inline style declares the property,
// scanned with a real CSS tokenizer so comments and lookalike values do not
// confuse it.
func styleHasProperty(style, prop string) bool {
	p := css.NewParser(parse.NewInput(strings.NewReader(style)), true)
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			return false
		case css.DeclarationGrammar:
			if strings.EqualFold(string(data), prop) {
				return true
			}
		}
	}
}

// styleFirstValue returns the first non-whitespace value token of the named
// declaration, or "" when the property is absent.
func styleFirstValue(style, prop string) string {
	p := css.NewParser(parse.NewInput(strings.NewReader(style)), true)
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			return ""
		case css.DeclarationGrammar:
			if !strings.EqualFold(string(data), prop) {
				continue
			}
			for _, val := range p.Values() {
				v := strings.TrimSpace(string(val.Data))
				if v != "" {
					return v
				}
			}
			return ""
		}
	}
}

// prependStyle puts decl in front of the element's existing style attribute.
func prependStyle(n *html.Node, decl string) {
	style, _ := attrVal(n, "style")
	setAttr(n, "style", decl+style)
}

// rewriteSemanticTags converts bold, italic and underline elements into
// neutral spans carrying the equivalent inline style. Mail clients strip or
// restyle the semantic forms; an inline-styled span survives.
func rewriteSemanticTags(doc *html.Node) {
	eachElement(doc, func(n *html.Node) bool {
		var decl string
		switch n.DataAtom {
		case atom.Strong, atom.B:
			decl = "font-weight:bold;"
		case atom.Em, atom.I:
			decl = "font-style:italic;"
		case atom.U:
			decl = "text-decoration:underline;"
		default:
			return true
		}
		n.DataAtom = atom.Span
		n.Data = "span"
		prependStyle(n, decl)
		return true
	})
}

// fixImages makes every image carry an explicit block display (prepended, so
// an existing display declaration wins) and a present alt attribute.
func fixImages(doc *html.Node) {
	eachElement(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Img {
			return true
		}
		style, _ := attrVal(n, "style")
		if !styleHasProperty(style, "display") {
			prependStyle(n, "display:block;margin:0 auto;")
		}
		if _, ok := attrVal(n, "alt"); !ok {
			setAttr(n, "alt", "")
		}
		return true
	})
}

// removeDisallowed drops script and iframe elements entirely.
func removeDisallowed(doc *html.Node) {
	var doomed []*html.Node
	eachElement(doc, func(n *html.Node) bool {
		if n.DataAtom == atom.Script || n.DataAtom == atom.Iframe {
			doomed = append(doomed, n)
		}
		return true
	})
	for _, n := range doomed {
		removeNode(n)
	}
}

// markZeroTopPadding adds the no-top-pad marker class to mobile table cells
// that already have zero top padding, so the stylesheet can target them.
func markZeroTopPadding(doc *html.Node) {
	eachElement(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Td || !hasClass(n, "table-box-mobile") || hasClass(n, "no-top-pad") {
			return true
		}
		style, _ := attrVal(n, "style")
		if v := styleFirstValue(style, "padding-top"); v == "0" || v == "0px" {
			addClass(n, "no-top-pad")
		} else if v := styleFirstValue(style, "padding"); v == "0" || v == "0px" {
			addClass(n, "no-top-pad")
		}
		return true
	})
}

var (
	anchorRe        = regexp.MustCompile(`(?is)<a\b([^>]*)>(.*?)</a>`)
	hrefAttrRe      = regexp.MustCompile(`(?i)\bhref\s*=`)
	styleAttrRe     = regexp.MustCompile(`(?i)\bstyle\s*=\s*"([^"]*)"`)
	colorDeclRe     = regexp.MustCompile(`(?i)\bcolor\s*:`)
	textDecDeclRe   = regexp.MustCompile(`(?i)\btext-decoration\s*:`)
	fontSizeDeclRe  = regexp.MustCompile(`(?i)\bfont-size\s*:`)
	leadSpanStyleRe = regexp.MustCompile(`(?i)^\s*<span\b[^>]*\bstyle\s*=\s*"([^"]*)"`)
	fontSizeValRe   = regexp.MustCompile(`(?i)font-size\s*:\s*([^;]+)`)
	colorValRe      = regexp.MustCompile(`(?i)\bcolor\s*:\s*([^;]+)`)
	textDecValRe    = regexp.MustCompile(`(?i)text-decoration\s*:\s*([^;]+)`)
	pxFontSizeRe    = regexp.MustCompile(`(?i)font-size\s*:\s*(\d+px)`)
)

// fixAnchors is the Gmail iOS link workaround: Gmail iOS strips inline styles
// from anchor tags but honors styles on child elements, so every anchor with
// an href gets color and text-decoration on the tag plus a span wrapper
// around its content carrying the same styles and an explicit font size. The
// font size comes from the anchor's own style when declared, otherwise from
// the nearest preceding font-size declaration in the document, otherwise
// 16px. No font-size is synthesized onto the anchor itself: on older iOS Mail
// an explicit inherit resolves to a system default rather than the parent's
// computed size, while natural inheritance works.
//
// An anchor is skipped only when it already carries both styles and its
// content span declares both a color and a font size. A plain formatting span
// left over from bold or italic conversion still needs the wrapper.
func fixAnchors(src string) string {
	matches := anchorRe.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src
	}

	var sb strings.Builder
	sb.Grow(len(src) + len(src)/8)
	last := 0
	for _, m := range matches {
		sb.WriteString(src[last:m[0]])
		sb.WriteString(fixOneAnchor(src, m))
		last = m[1]
	}
	sb.WriteString(src[last:])
	return sb.String()
}

func fixOneAnchor(src string, m []int) string {
	whole := src[m[0]:m[1]]
	attrs := src[m[2]:m[3]]
	body := src[m[4]:m[5]]

	if !hrefAttrRe.MatchString(attrs) {
		return whole
	}

	curStyle := ""
	styleM := styleAttrRe.FindStringSubmatchIndex(attrs)
	if styleM != nil {
		curStyle = attrs[styleM[2]:styleM[3]]
	}

	hasColor := colorDeclRe.MatchString(curStyle)
	hasTextDec := textDecDeclRe.MatchString(curStyle)

	spanStyle := ""
	if sm := leadSpanStyleRe.FindStringSubmatch(body); sm != nil {
		spanStyle = sm[1]
	}
	alreadyFixed := spanStyle != "" &&
		colorDeclRe.MatchString(spanStyle) &&
		fontSizeDeclRe.MatchString(spanStyle)

	if hasColor && hasTextDec && alreadyFixed {
		return whole
	}

	var addParts []string
	if !hasColor {
		addParts = append(addParts, "color:#000000")
	}
	if !hasTextDec {
		addParts = append(addParts, "text-decoration:underline")
	}
	addStr := ""
	if len(addParts) > 0 {
		addStr = strings.Join(addParts, ";") + ";"
	}

	newAttrs := attrs
	if addStr != "" {
		if styleM != nil {
			newAttrs = attrs[:styleM[0]] + `style="` + addStr + curStyle + `"` + attrs[styleM[1]:]
		} else {
			newAttrs = ` style="` + addStr + `"` + attrs
		}
	}

	merged := addStr + curStyle
	fontSize := ""
	if fm := fontSizeValRe.FindStringSubmatch(merged); fm != nil {
		fontSize = strings.TrimSpace(fm[1])
	} else if pm := pxFontSizeRe.FindAllStringSubmatch(src[:m[0]], -1); len(pm) > 0 {
		// Nearest enclosing paragraph's declaration, scanning backwards.
		fontSize = pm[len(pm)-1][1]
	} else {
		fontSize = "16px"
	}
	color := "#000000"
	if cm := colorValRe.FindStringSubmatch(merged); cm != nil {
		color = strings.TrimSpace(cm[1])
	}
	textDec := "underline"
	if tm := textDecValRe.FindStringSubmatch(merged); tm != nil {
		textDec = strings.TrimSpace(tm[1])
	}

	newBody := body
	if !alreadyFixed {
		newBody = `<span style="font-size:` + fontSize + `;color:` + color + `;text-decoration:` + textDec + `;">` + body + `</span>`
	}
	return "<a" + newAttrs + ">" + newBody + "</a>"
}

const gmailCSSMarker = "/* Gmail iOS: fix font-size/family on all .tablebox / .table-box spans */"

const gmailCSS = "\n" + gmailCSSMarker + "\n" +
	"u + #body .tablebox a," +
	"u + #body .table-box a{font-size:16px!important}\n" +
	"u + #body .tablebox li," +
	"u + #body .table-box li{font-size:16px!important}\n" +
	"u + #body .tablebox p span," +
	"u + #body .tablebox li span," +
	"u + #body .table-box p span," +
	"u + #body .table-box li span{" +
	"font-size:16px!important;" +
	"font-family:'DM Sans',Arial,Helvetica,sans-serif!important" +
	"}\n"

var (
	bodyTagRe = regexp.MustCompile(`(?i)<body\b([^>]*)>`)
	idAttrRe  = regexp.MustCompile(`(?i)\bid\s*=`)
)

// injectGmailCSS exploits the bare <u> element Gmail iOS injects next to the
// email body: the `u + #body` selector matches only there, every other client
// ignores the block. The rules force font size and family on anchors, list
// items and spans inside .tablebox content as a fallback for fixAnchors. The
// body element gets id="body" when it has no id so the selector can match.
func injectGmailCSS(src string) string {
	if strings.Contains(src, gmailCSSMarker) {
		return src
	}
	if m := bodyTagRe.FindStringSubmatchIndex(src); m != nil {
		attrs := src[m[2]:m[3]]
		if !idAttrRe.MatchString(attrs) {
			src = src[:m[0]] + `<body id="body"` + attrs + ">" + src[m[1]:]
		}
	}
	return strings.Replace(src, "</style>", gmailCSS+"</style>", 1)
}

var (
	tableStyleRe = regexp.MustCompile(`(?i)(<(?:table|tr|td)\b[^>]*\bstyle\s*=\s*")([^"]*)(")`)
	// Fractional pixel values and round values of 300px and up; small
	// integer heights are assumed intentional.
	injectedHeightRe = regexp.MustCompile(`(?i)\bheight\s*:\s*(?:\d+\.\d+|[3-9]\d{2}|\d{4,})px`)
)

// fixInjectedHeights replaces editor-injected heights on table, tr and td
// elements with height:auto. Visual editors record the rendered pixel height
// of every section; carrying those into the email locks the layout at the
// editor's viewport.
func fixInjectedHeights(src string) string {
	return tableStyleRe.ReplaceAllStringFunc(src, func(tag string) string {
		m := tableStyleRe.FindStringSubmatch(tag)
		if !injectedHeightRe.MatchString(m[2]) {
			return tag
		}
		return m[1] + injectedHeightRe.ReplaceAllString(m[2], "height:auto") + m[3]
	})
}
