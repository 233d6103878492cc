package stage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"mailstage/content"
	"mailstage/content/text"
	"mailstage/docx"
	"mailstage/llm"
	"mailstage/wp"
)

// buildFields merges what the source itself declares with what the model
// extracted. The extraction wins field by field; detected values fill the
// gaps it left empty.
func (s *Stager) buildFields(ctx context.Context, variant content.TemplateVariant, src *Source, ex *llm.Extraction) (*content.Fields, error) {
	f := &content.Fields{SiteName: s.siteName}

	if ex != nil {
		f.Title = ex.Title
		f.Subtitle = ex.Subtitle
		f.SubtitleLines = ex.SubtitleLines
		f.WelcomeHTML = ex.WelcomeHTML
		f.ArticleBodyHTML = ex.ArticleBodyHTML
		f.BottomLineHTML = ex.BottomLineHTML
		f.AuthorName = ex.AuthorName
		f.AuthorTitle = ex.AuthorTitle
		f.IntroText = ex.IntroText
		f.FadeFrom = ex.FadeFrom
		f.TopicTags = ex.TopicTags
		f.QA1 = ex.QA1
		f.QA2 = ex.QA2
		f.QAAuthorLine = ex.QAAuthorLine
	}

	if src.Doc != nil {
		s.fillFromDocument(f, src.Doc)
	}
	if src.Post != nil {
		s.fillFromPost(f, src.Post)
	}

	if src.Doc != nil {
		if err := s.applyInstructions(ctx, f, src.Doc); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *Stager) fillFromDocument(f *content.Fields, doc *docx.Document) {
	meta := doc.Meta
	if f.Title == "" {
		f.Title = meta["title"]
	}
	if f.Subtitle == "" && len(f.SubtitleLines) == 0 {
		f.Subtitle = meta["subtitle"]
	}
	if f.AuthorName == "" {
		f.AuthorName = text.TrimCredentials(meta["author"])
	}
	if f.AuthorTitle == "" {
		f.AuthorTitle = meta["author_title"]
	}
	if f.FadeFrom == "" {
		f.FadeFrom = meta["fade_from"]
	}
	if f.IntroText == "" {
		f.IntroText = meta["intro"]
	}
	if f.ArticleBodyHTML == "" {
		f.ArticleBodyHTML = doc.BodyHTML
	}
}

func (s *Stager) fillFromPost(f *content.Fields, post *wp.Post) {
	if f.Title == "" {
		f.Title = post.Title
	}
	if f.Subtitle == "" && len(f.SubtitleLines) == 0 {
		f.Subtitle = post.Subtitle
	}
	if f.ArticleBodyHTML == "" {
		f.ArticleBodyHTML = post.ContentHTML
	}
	if f.AuthorName == "" {
		f.AuthorName = post.AuthorName
	}
	if f.AuthorURL == "" {
		f.AuthorURL = post.AuthorURL
	}
	if f.FeaturedImageURL == "" {
		f.FeaturedImageURL = post.FeaturedImageURL
		f.FeaturedImageAlt = post.FeaturedImageAlt
	}
	if len(f.TopicTags) == 0 {
		f.TopicTags = post.Tags
	}
	f.ArticleURL = post.URL
}

// applyInstructions turns the document's staging-instructions section into
// concrete fields: featured image, related-reading cards resolved against the
// article index, and inline graph descriptors clipped to the images the
// document actually contains.
func (s *Stager) applyInstructions(ctx context.Context, f *content.Fields, doc *docx.Document) error {
	ins := doc.Instructions

	if f.FeaturedImageURL == "" {
		f.FeaturedImageURL = ins.FeaturedImageURL
	}

	for _, u := range ins.RelatedURLs() {
		card, err := s.relatedCard(ctx, u)
		if err != nil {
			return err
		}
		f.RelatedArticles = append(f.RelatedArticles, card)
	}

	if doc.GraphCount > 0 {
		for i, u := range ins.GraphURLs(doc.GraphCount) {
			if u == "" {
				s.log.Warn("No image url for graph slot", zap.Int("slot", i+1))
			}
			f.InlineGraphs = append(f.InlineGraphs, content.Graph{URL: u})
		}
	}
	return nil
}

// relatedCard resolves one related-reading URL against the index; articles
// the index has never seen still get a card with a title derived from the
// URL slug.
func (s *Stager) relatedCard(ctx context.Context, articleURL string) (content.RelatedArticle, error) {
	if s.index != nil {
		a, err := s.index.FindByURL(ctx, articleURL)
		if err != nil {
			return content.RelatedArticle{}, err
		}
		if a != nil {
			return content.RelatedArticle{
				Title:       a.Title,
				URL:         a.URL,
				ImageURL:    a.ImageURL,
				ImageAlt:    a.ImageAlt,
				Description: a.Description,
			}, nil
		}
	}
	s.log.Warn("Related article not in index, using slug title", zap.String("url", articleURL))
	title := ""
	if slug, err := wp.SlugFromURL(articleURL); err == nil {
		title = titleFromSlug(slug)
	}
	return content.RelatedArticle{Title: title, URL: articleURL}, nil
}

// titleFromSlug turns "sleep-training-basics" into "Sleep Training Basics".
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// suggestRelated fills empty related-reading slots from index suggestions
// when the instructions named none.
func (s *Stager) suggestRelated(ctx context.Context, f *content.Fields, limit int) error {
	if s.index == nil || len(f.RelatedArticles) > 0 || limit <= 0 {
		return nil
	}
	suggestions, err := s.index.Suggest(ctx, f.TopicTags, f.Title, f.ArticleURL, limit)
	if err != nil {
		return err
	}
	for _, sg := range suggestions {
		f.RelatedArticles = append(f.RelatedArticles, content.RelatedArticle{
			Title:       sg.Article.Title,
			URL:         sg.Article.URL,
			ImageURL:    sg.Article.ImageURL,
			ImageAlt:    sg.Article.ImageAlt,
			Description: sg.Article.Description,
		})
	}
	return nil
}
