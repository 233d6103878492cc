// Package index maintains a local cache of published articles and answers
// related-reading queries against it. The cache is filled from the WordPress
// REST API (with an RSS fallback) and persisted in sqlite so repeated staging
// runs do not hammer the site.
package index

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
)

// Article is one published post as the index knows it.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Description string
	ImageURL    string
	ImageAlt    string
	Published   string
}

// Suggestion pairs an article with its relevance score for a query.
type Suggestion struct {
	Article Article
	Score   int
}

// CacheInfo describes the current state of the on-disk cache.
type CacheInfo struct {
	Cached       bool
	ArticleCount int
	Age          time.Duration
	Stale        bool
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "you": {}, "are": {}, "was": {}, "were": {},
	"have": {}, "has": {}, "had": {}, "can": {}, "could": {}, "will": {},
	"would": {}, "should": {}, "what": {}, "when": {}, "where": {}, "how": {},
	"why": {}, "does": {}, "about": {}, "more": {}, "most": {}, "than": {},
	"into": {}, "over": {}, "under": {}, "their": {}, "they": {}, "them": {},
	"there": {}, "here": {}, "just": {}, "also": {}, "some": {}, "other": {},
	"these": {}, "those": {}, "which": {}, "while": {}, "during": {},
	"after": {}, "before": {}, "between": {}, "really": {}, "very": {},
	"much": {}, "many": {}, "such": {}, "like": {}, "being": {}, "every": {},
}

var wordRe = regexp.MustCompile(`\W+`)

// searchTerms reduces free-form tags and keywords to the unique lowercase
// words worth matching on. Short words and stop words carry no signal.
func searchTerms(sources ...string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, src := range sources {
		for _, w := range wordRe.Split(strings.ToLower(src), -1) {
			if len(w) <= 3 {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			terms = append(terms, w)
		}
	}
	return terms
}

// score counts how many query terms appear in the article's title or
// description.
func score(a Article, terms []string) int {
	haystack := strings.ToLower(a.Title + " " + a.Description)
	n := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			n++
		}
	}
	return n
}

// rank scores all articles against the terms and returns the top limit
// matches. Zero scores are dropped; ties order naturally by title so the
// result is stable between runs.
func rank(articles []Article, terms []string, exclude string, limit int) []Suggestion {
	var out []Suggestion
	for _, a := range articles {
		if exclude != "" && sameURL(a.URL, exclude) {
			continue
		}
		if s := score(a, terms); s > 0 {
			out = append(out, Suggestion{Article: a, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return natural.Less(out[i].Article.Title, out[j].Article.Title)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sameURL(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}
