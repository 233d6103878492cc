package index

import (
	"testing"
)

func TestSearchTerms(t *testing.T) {
	terms := searchTerms("Sleep Training, the baby", "sleep schedules for toddlers")
	want := map[string]bool{"sleep": true, "training": true, "baby": true, "schedules": true, "toddlers": true}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v", terms)
	}
	for _, tm := range terms {
		if !want[tm] {
			t.Errorf("unexpected term %q", tm)
		}
	}
}

func TestSearchTermsDropsNoise(t *testing.T) {
	terms := searchTerms("the and for cat dog", "")
	// everything is a stop word or too short
	if len(terms) != 0 {
		t.Errorf("expected no terms, got %v", terms)
	}
}

func TestRank(t *testing.T) {
	articles := []Article{
		{Title: "Sleep training basics", Description: "how toddlers learn to sleep"},
		{Title: "Weaning guide", Description: "solid food introduction"},
		{Title: "Toddler sleep regressions", Description: "sleep schedules explained"},
		{Title: "Unrelated piece", Description: "nothing matches here"},
	}
	terms := []string{"sleep", "toddlers", "schedules"}

	got := rank(articles, terms, "", 2)
	if len(got) != 2 {
		t.Fatalf("rank returned %d suggestions", len(got))
	}
	// Both top articles score over the weaning guide; the regression piece
	// hits all three terms.
	if got[0].Article.Title != "Toddler sleep regressions" {
		t.Errorf("best match = %q (score %d)", got[0].Article.Title, got[0].Score)
	}
	if got[0].Score != 3 {
		t.Errorf("best score = %d, want 3", got[0].Score)
	}
}

func TestRankExcludesZeroAndSelf(t *testing.T) {
	articles := []Article{
		{Title: "Sleep article", URL: "https://x/sleep/"},
		{Title: "Other", URL: "https://x/other"},
	}
	got := rank(articles, []string{"sleep"}, "https://x/sleep", 5)
	if len(got) != 0 {
		t.Errorf("self or zero-score article suggested: %v", got)
	}
}

func TestRankStableTieBreak(t *testing.T) {
	articles := []Article{
		{Title: "Part 10: sleep"},
		{Title: "Part 2: sleep"},
	}
	got := rank(articles, []string{"sleep"}, "", 0)
	if len(got) != 2 {
		t.Fatalf("rank returned %d", len(got))
	}
	// natural order puts 2 before 10
	if got[0].Article.Title != "Part 2: sleep" {
		t.Errorf("tie break order: %q first", got[0].Article.Title)
	}
}
