package index

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "articles.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheEmpty(t *testing.T) {
	c := openTestCache(t)

	articles, fetchedAt, err := c.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 0 {
		t.Errorf("fresh cache has %d articles", len(articles))
	}
	if !fetchedAt.IsZero() {
		t.Errorf("fresh cache has fetched_at = %v", fetchedAt)
	}
}

func TestCacheReplaceAndLoad(t *testing.T) {
	c := openTestCache(t)

	stamp := time.Now().Add(-2 * time.Hour)
	in := []Article{
		{ID: 1, Title: "One", URL: "https://x/1", Description: "first", ImageURL: "https://x/1.png", Published: "2026-08-01T10:00:00"},
		{ID: 2, Title: "Two", URL: "https://x/2", Published: "2026-08-10T10:00:00"},
	}
	if err := c.Replace(in, stamp); err != nil {
		t.Fatal(err)
	}

	articles, fetchedAt, err := c.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("loaded %d articles", len(articles))
	}
	// newest first
	if articles[0].ID != 2 || articles[1].ID != 1 {
		t.Errorf("order: %v", []int64{articles[0].ID, articles[1].ID})
	}
	if articles[1].Description != "first" || articles[1].ImageURL != "https://x/1.png" {
		t.Errorf("fields lost: %+v", articles[1])
	}
	if fetchedAt.Unix() != stamp.Unix() {
		t.Errorf("fetchedAt = %v, want %v", fetchedAt, stamp)
	}
}

func TestCacheReplaceIsAtomic(t *testing.T) {
	c := openTestCache(t)

	if err := c.Replace([]Article{{ID: 1, Title: "Old", URL: "https://x/old"}}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := c.Replace([]Article{{ID: 7, Title: "New", URL: "https://x/new"}}, time.Now()); err != nil {
		t.Fatal(err)
	}

	articles, _, err := c.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 || articles[0].ID != 7 {
		t.Errorf("old content survived replace: %+v", articles)
	}

	if n, err := c.Count(); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}
