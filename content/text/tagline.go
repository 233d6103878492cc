// Package text holds small text-shaping helpers used when preparing article
// metadata for injection: tagline shortening and author-name cleanup.
package text

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Tagline trims article excerpts down to card-sized descriptions.
type Tagline struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewTagline builds a shortener backed by the English sentence tokenizer.
func NewTagline() (*Tagline, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &Tagline{tokenizer: tok}, nil
}

// Shorten trims text to its first sentence and hard-caps it at maxLen runes,
// cutting at a word boundary with an ellipsis when the cap applies.
func (t *Tagline) Shorten(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if t != nil && t.tokenizer != nil {
		if ss := t.tokenizer.Tokenize(text); len(ss) > 0 {
			if first := strings.TrimSpace(ss[0].Text); first != "" && utf8.RuneCountInString(first) <= maxLen {
				text = first
			}
		}
	}

	if utf8.RuneCountInString(text) > maxLen {
		cut := string([]rune(text)[:maxLen])
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		text = strings.TrimRight(cut, ".,;:") + "…"
	}
	return strings.TrimSpace(text)
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// StripTags removes markup tags and resolves entities, leaving plain text.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}

var credentialRe = regexp.MustCompile(`(?i)\s*,\s*(?:Ph\.?D\.?|M\.?D\.?|M\.?P\.?H\.?|R\.?N\.?|Dr\.?)\s*$`)

// TrimCredentials drops a trailing academic credential from an author name,
// so "Jane Roe, PhD" greets readers as Jane.
func TrimCredentials(name string) string {
	return strings.TrimSpace(credentialRe.ReplaceAllString(name, ""))
}
