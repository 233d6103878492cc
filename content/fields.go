// Package content defines the field bag handed to email composition: the
// variant-specific record of everything that gets injected into a newsletter
// template skeleton.
package content

import (
	"fmt"

	"go.uber.org/multierr"
)

// RelatedArticle is one card in the related-reading section.
type RelatedArticle struct {
	Title       string
	URL         string
	ImageURL    string
	ImageAlt    string
	Description string
}

// Graph is one inline chart image, referenced from the article body by a
// positional [[GRAPH_n]] placeholder (index 0 resolves GRAPH_1).
type Graph struct {
	URL string
	Alt string
}

// DigestArticle is one article entry in a digest layout.
type DigestArticle struct {
	Title       string
	Subtitle    string
	Description string
	URL         string
	ImageURL    string
	ImageAlt    string
}

// DigestSection groups digest articles under a named section heading.
type DigestSection struct {
	Name     string
	Articles []DigestArticle
}

// QAGroup holds one reader question and its answer. The json tags match the
// keys the extraction prompts ask for.
type QAGroup struct {
	QuestionText   string `json:"question_text"`
	QuestionAuthor string `json:"question_author"`
	AnswerHTML     string `json:"answer_html"`
}

// Fields is the content record for one composition call. It is supplied
// wholesale by the caller and never mutated by the engine. Which fields are
// consumed depends on the template variant; Validate reports the ones a
// variant cannot do without.
type Fields struct {
	Title    string
	SiteName string // appended to the page title and footer when set

	Subtitle      string   // fallback when SubtitleLines is empty
	SubtitleLines []string // one rendered paragraph per line

	WelcomeHTML     string // editorial intro fragment, may be empty
	ArticleBodyHTML string // block-level fragment: optional lead-in paragraphs, then headings
	BottomLineHTML  string // <ul> fragment for the callout box (fertility)

	AuthorName  string
	AuthorTitle string
	AuthorURL   string

	TopicTags []string

	FeaturedImageURL string
	FeaturedImageAlt string

	RelatedArticles []RelatedArticle
	InlineGraphs    []Graph

	ArticleURL string // published article, used for continue-reading and comment links
	IntroText  string // italic editorial intro (teaser, qa, digest)
	FadeFrom   string // trigger phrase locating the first faded paragraph (teaser)

	// Banner handling. Fertility and Q&A templates carry a top banner row
	// that is either removed or rewritten with UpdateBannerHTML.
	IncludeUpdateBanner bool
	UpdateBannerHTML    string
	BannerText          string // marketing pill bar text

	// Marketing extras.
	IntroOptionText string
	DiscountURL     string
	OldPrice        string
	DiscountPrice   string

	Articles []DigestArticle // fertility digest card content, in card order
	Sections []DigestSection // paid digest sections, flattened across cards

	QA1          *QAGroup
	QA2          *QAGroup
	QAAuthorLine string
}

// SubtitleList returns the subtitle paragraphs, substituting a single-entry
// list built from Subtitle when no explicit lines were supplied.
func (f *Fields) SubtitleList() []string {
	if len(f.SubtitleLines) > 0 {
		return f.SubtitleLines
	}
	if f.Subtitle != "" {
		return []string{f.Subtitle}
	}
	return nil
}

// QA returns the n-th question group (1-based) or nil.
func (f *Fields) QA(n int) *QAGroup {
	switch n {
	case 1:
		return f.QA1
	case 2:
		return f.QA2
	}
	return nil
}

// Validate checks that every field the variant strictly requires is present.
// Optional slots degrade to no-ops during injection and are not checked here.
func (f *Fields) Validate(variant TemplateVariant) error {
	var err error

	require := func(ok bool, name string) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("field %q is required for template variant %s", name, variant))
		}
	}

	switch variant {
	case TemplateVariantStandard, TemplateVariantFertility:
		require(f.Title != "", "title")
		require(f.ArticleBodyHTML != "", "article_body_html")
	case TemplateVariantLatestTeaser:
		require(f.Title != "", "title")
		require(f.ArticleBodyHTML != "", "article_body_html")
		require(f.ArticleURL != "", "article_url")
	case TemplateVariantQA:
		require(f.QA1 != nil, "qa1")
	case TemplateVariantMarketing:
		require(f.ArticleBodyHTML != "", "article_body_html")
	case TemplateVariantFertilityDigest:
		require(len(f.Articles) > 0, "articles")
	case TemplateVariantPaidDigest:
		require(len(f.Sections) > 0, "sections")
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported template variant %d", int(variant)))
	}
	return err
}
