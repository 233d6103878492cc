package index

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func postJSON(id int, title, link, excerpt, image string) string {
	media := ""
	if image != "" {
		media = fmt.Sprintf(`,"_embedded":{"wp:featuredmedia":[{"source_url":%q,"alt_text":"alt","media_details":{"sizes":{"medium_large":{"source_url":%q}}}}]}`, image+"?orig", image)
	}
	return fmt.Sprintf(`{"id":%d,"link":%q,"date":"2026-08-01T10:00:00","title":{"rendered":%q},"excerpt":{"rendered":"<p>%s</p>"}%s}`,
		id, link, title, excerpt, media)
}

func newTestIndex(t *testing.T, baseURL, feedURL string) *Index {
	t.Helper()
	ix, err := New(openTestCache(t), baseURL, Options{FeedURL: feedURL, MaxAge: time.Hour}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestArticlesPaginates(t *testing.T) {
	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/wp-json/wp/v2/posts") {
			http.NotFound(w, r)
			return
		}
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)
		w.Header().Set("X-WP-TotalPages", "2")
		switch page {
		case "1":
			fmt.Fprintf(w, "[%s]", postJSON(1, "Sleep article", "https://x/sleep", "All about sleep.", "https://cdn/s.png"))
		case "2":
			fmt.Fprintf(w, "[%s]", postJSON(2, "Food article", "https://x/food", "All about food.", ""))
		default:
			http.Error(w, "rest_post_invalid_page_number", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	ix := newTestIndex(t, srv.URL, "")
	articles, err := ix.Articles(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles", len(articles))
	}
	if articles[0].Title != "Sleep article" || articles[0].ImageURL != "https://cdn/s.png" {
		t.Errorf("first article: %+v", articles[0])
	}
	if articles[0].Description != "All about sleep." {
		t.Errorf("description not shortened from excerpt: %q", articles[0].Description)
	}

	// second call is served from cache, no new pages requested
	n := len(pagesServed)
	if _, err := ix.Articles(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if len(pagesServed) != n {
		t.Errorf("cached call still hit the API: %v", pagesServed)
	}
}

func TestArticlesFallsBackToFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "wp-json") {
			http.Error(w, "no api", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<item>
	<title>Feed article</title>
	<link>https://x/feed-article</link>
	<description>From the feed.</description>
	<media:content url="https://cdn/f.png"/>
</item>
</channel>
</rss>`)
	}))
	defer srv.Close()

	ix := newTestIndex(t, srv.URL, srv.URL+"/feed/")
	articles, err := ix.Articles(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles", len(articles))
	}
	if articles[0].Title != "Feed article" || articles[0].ImageURL != "https://cdn/f.png" {
		t.Errorf("feed article: %+v", articles[0])
	}
}

func TestSuggestAndFindByURL(t *testing.T) {
	ix := newTestIndex(t, "https://unused.invalid", "")
	seed := []Article{
		{ID: 1, Title: "Toddler sleep schedules", URL: "https://x/sleep/", Description: "sleep help"},
		{ID: 2, Title: "Starting solids", URL: "https://x/solids", Description: "food guide"},
	}
	if err := ix.cache.Replace(seed, time.Now()); err != nil {
		t.Fatal(err)
	}

	got, err := ix.Suggest(context.Background(), []string{"sleep", "toddler"}, "", "", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Article.ID != 1 {
		t.Errorf("Suggest = %+v", got)
	}

	a, err := ix.FindByURL(context.Background(), "https://x/sleep")
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || a.ID != 1 {
		t.Errorf("FindByURL = %+v", a)
	}

	missing, err := ix.FindByURL(context.Background(), "https://x/nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("FindByURL for unknown url = %+v", missing)
	}
}

func TestInfo(t *testing.T) {
	ix := newTestIndex(t, "https://unused.invalid", "")

	info, err := ix.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.Cached || !info.Stale {
		t.Errorf("empty cache info = %+v", info)
	}

	if err := ix.cache.Replace([]Article{{ID: 1, Title: "x", URL: "https://x/1"}}, time.Now()); err != nil {
		t.Fatal(err)
	}
	info, err = ix.Info()
	if err != nil {
		t.Fatal(err)
	}
	if !info.Cached || info.Stale || info.ArticleCount != 1 {
		t.Errorf("fresh cache info = %+v", info)
	}
}
