package index

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"mailstage/content/text"
)

const (
	postsPerPage   = 100
	descriptionCap = 70
)

type wpMedia struct {
	SourceURL    string `json:"source_url"`
	AltText      string `json:"alt_text"`
	MediaDetails struct {
		Sizes map[string]struct {
			SourceURL string `json:"source_url"`
		} `json:"sizes"`
	} `json:"media_details"`
}

type wpPost struct {
	ID    int64  `json:"id"`
	Link  string `json:"link"`
	Date  string `json:"date"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
	Embedded struct {
		FeaturedMedia []wpMedia `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

// imageSizePreference orders WP media sizes from most to least desirable for
// email cards. Falls back to the original upload when no size fits.
var imageSizePreference = []string{"medium_large", "large", "full"}

func (m *wpMedia) bestImage() string {
	for _, size := range imageSizePreference {
		if s, ok := m.MediaDetails.Sizes[size]; ok && s.SourceURL != "" {
			return s.SourceURL
		}
	}
	return m.SourceURL
}

// fetchAll walks the WP REST posts collection page by page until the API
// reports the last page or rejects the page number with a 400.
func (ix *Index) fetchAll(ctx context.Context) ([]Article, error) {
	var articles []Article

	for page := 1; ; page++ {
		posts, totalPages, err := ix.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if posts == nil {
			// past the end
			break
		}
		for _, p := range posts {
			articles = append(articles, ix.articleFromPost(p))
		}
		if len(posts) < postsPerPage || (totalPages > 0 && page >= totalPages) {
			break
		}
	}
	ix.log.Debug("Fetched article index", zap.Int("articles", len(articles)))
	return articles, nil
}

// fetchPage returns nil posts (no error) when the API signals the page is
// past the end of the collection.
func (ix *Index) fetchPage(ctx context.Context, page int) ([]wpPost, int, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(postsPerPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("_embed", "wp:featuredmedia")
	q.Set("orderby", "date")
	q.Set("order", "desc")

	u := ix.baseURL + "/wp-json/wp/v2/posts?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to fetch posts page %d: %w", page, err)
	}
	defer resp.Body.Close()

	// WP answers 400 for page numbers past the last page
	if resp.StatusCode == http.StatusBadRequest {
		return nil, 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("posts page %d: unexpected status %s", page, resp.Status)
	}

	totalPages, _ := strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))

	var posts []wpPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, 0, fmt.Errorf("unable to decode posts page %d: %w", page, err)
	}
	return posts, totalPages, nil
}

func (ix *Index) articleFromPost(p wpPost) Article {
	a := Article{
		ID:          p.ID,
		URL:         p.Link,
		Title:       text.StripTags(p.Title.Rendered),
		Description: ix.tagline.Shorten(text.StripTags(p.Excerpt.Rendered), descriptionCap),
		Published:   p.Date,
	}
	if len(p.Embedded.FeaturedMedia) > 0 {
		m := p.Embedded.FeaturedMedia[0]
		a.ImageURL = m.bestImage()
		a.ImageAlt = m.AltText
	}
	return a
}

// RSS fallback for sites where the REST API is unavailable.

type rssEnclosure struct {
	URL string `xml:"url,attr"`
}

type rssItem struct {
	Title       string         `xml:"title"`
	Link        string         `xml:"link"`
	Description string         `xml:"description"`
	PubDate     string         `xml:"pubDate"`
	Media       []rssEnclosure `xml:"http://search.yahoo.com/mrss/ content"`
	Enclosure   rssEnclosure   `xml:"enclosure"`
}

type rssFeed struct {
	Items []rssItem `xml:"channel>item"`
}

func (ix *Index) fetchFeed(ctx context.Context) ([]Article, error) {
	feedURL := ix.feedURL
	if feedURL == "" {
		feedURL = ix.baseURL + "/feed/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("unable to parse feed: %w", err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, it := range feed.Items {
		a := Article{
			Title:       text.StripTags(it.Title),
			URL:         it.Link,
			Description: ix.tagline.Shorten(text.StripTags(it.Description), descriptionCap),
			Published:   it.PubDate,
		}
		if len(it.Media) > 0 {
			a.ImageURL = it.Media[0].URL
		} else if it.Enclosure.URL != "" {
			a.ImageURL = it.Enclosure.URL
		}
		articles = append(articles, a)
	}
	ix.log.Debug("Fetched article feed", zap.Int("articles", len(articles)))
	return articles, nil
}
