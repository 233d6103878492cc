package index

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailstage/content/text"
)

// Index answers related-reading queries from the article cache, refreshing it
// from the site when it grows stale.
type Index struct {
	cache   *Cache
	client  *http.Client
	baseURL string
	feedURL string
	maxAge  time.Duration
	tagline *text.Tagline
	log     *zap.Logger
}

// Options configures New beyond the required cache and site address.
type Options struct {
	FeedURL string
	MaxAge  time.Duration
	Client  *http.Client
}

func New(cache *Cache, baseURL string, opts Options, log *zap.Logger) (*Index, error) {
	tagline, err := text.NewTagline()
	if err != nil {
		return nil, fmt.Errorf("unable to prepare tagline shortener: %w", err)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	return &Index{
		cache:   cache,
		client:  opts.Client,
		baseURL: strings.TrimRight(baseURL, "/"),
		feedURL: opts.FeedURL,
		maxAge:  opts.MaxAge,
		tagline: tagline,
		log:     log.Named("index"),
	}, nil
}

// Articles returns the cached article set, refreshing it first when the cache
// is empty, stale, or force is set.
func (ix *Index) Articles(ctx context.Context, force bool) ([]Article, error) {
	articles, fetchedAt, err := ix.cache.Load()
	if err != nil {
		return nil, err
	}
	if !force && len(articles) > 0 && time.Since(fetchedAt) < ix.maxAge {
		return articles, nil
	}

	fresh, err := ix.fetchAll(ctx)
	if err != nil {
		ix.log.Warn("REST index fetch failed, falling back to feed", zap.Error(err))
		if fresh, err = ix.fetchFeed(ctx); err != nil {
			if len(articles) > 0 {
				// stale data beats no data
				ix.log.Warn("Feed fetch failed, using stale cache", zap.Error(err))
				return articles, nil
			}
			return nil, err
		}
	}

	if err := ix.cache.Replace(fresh, time.Now()); err != nil {
		return nil, fmt.Errorf("unable to store refreshed index: %w", err)
	}
	return fresh, nil
}

// Refresh unconditionally rebuilds the cache.
func (ix *Index) Refresh(ctx context.Context) (int, error) {
	articles, err := ix.Articles(ctx, true)
	if err != nil {
		return 0, err
	}
	return len(articles), nil
}

// Suggest returns up to limit related articles for the given tags and
// keywords, best match first. The article at excludeURL (usually the one
// being staged) never suggests itself.
func (ix *Index) Suggest(ctx context.Context, tags []string, keywords string, excludeURL string, limit int) ([]Suggestion, error) {
	articles, err := ix.Articles(ctx, false)
	if err != nil {
		return nil, err
	}
	terms := searchTerms(append([]string{keywords}, tags...)...)
	if len(terms) == 0 {
		return nil, nil
	}
	return rank(articles, terms, excludeURL, limit), nil
}

// FindByURL locates a cached article by its permalink, tolerating trailing
// slash differences.
func (ix *Index) FindByURL(ctx context.Context, articleURL string) (*Article, error) {
	articles, err := ix.Articles(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		if sameURL(articles[i].URL, articleURL) {
			return &articles[i], nil
		}
	}
	return nil, nil
}

// Info reports cache freshness without triggering a refresh.
func (ix *Index) Info() (CacheInfo, error) {
	articles, fetchedAt, err := ix.cache.Load()
	if err != nil {
		return CacheInfo{}, err
	}
	info := CacheInfo{
		Cached:       len(articles) > 0,
		ArticleCount: len(articles),
	}
	if !fetchedAt.IsZero() {
		info.Age = time.Since(fetchedAt)
		info.Stale = info.Age >= ix.maxAge
	} else {
		info.Stale = true
	}
	return info, nil
}
