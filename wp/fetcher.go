// Package wp fetches a single published article from WordPress for staging:
// the authenticated REST record plus a subtitle scraped from the public page.
package wp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailstage/content/text"
)

// Post is the staged article as fetched from the site.
type Post struct {
	ID               int64
	Title            string
	Subtitle         string
	ContentHTML      string
	ExcerptHTML      string
	URL              string
	AuthorName       string
	AuthorURL        string
	FeaturedImageURL string
	FeaturedImageAlt string
	Tags             []string
}

// Client talks to one WordPress site using application-password auth.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      *zap.Logger
}

func NewClient(baseURL, username, appPassword string, client *http.Client, log *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: appPassword,
		client:   client,
		log:      log.Named("wp"),
	}
}

// SlugFromURL extracts the post slug, the last non-empty path segment.
func SlugFromURL(articleURL string) (string, error) {
	u, err := url.Parse(articleURL)
	if err != nil {
		return "", fmt.Errorf("bad article url %q: %w", articleURL, err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	slug := segs[len(segs)-1]
	if slug == "" {
		return "", fmt.Errorf("no slug in article url %q", articleURL)
	}
	return slug, nil
}

type wpTerm struct {
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
}

type wpAuthor struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type wpFetchedPost struct {
	ID    int64  `json:"id"`
	Link  string `json:"link"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
	Embedded struct {
		Author        []wpAuthor `json:"author"`
		Terms         [][]wpTerm `json:"wp:term"`
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
			AltText   string `json:"alt_text"`
			Title     struct {
				Rendered string `json:"rendered"`
			} `json:"title"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

// FetchByURL loads the post behind a public article URL. It requires
// credentials: the raw (unfiltered) post content is only served to
// authenticated requests.
func (c *Client) FetchByURL(ctx context.Context, articleURL string) (*Post, error) {
	if c.username == "" || c.password == "" {
		return nil, fmt.Errorf("wordpress credentials are required to fetch post content")
	}

	slug, err := SlugFromURL(articleURL)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("slug", slug)
	q.Set("_embed", "wp:featuredmedia,wp:term,author")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wp-json/wp/v2/posts?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch post %q: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post %q: unexpected status %s", slug, resp.Status)
	}

	var posts []wpFetchedPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("unable to decode post %q: %w", slug, err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("no post found for slug %q", slug)
	}
	raw := posts[0]

	body := strings.TrimSpace(raw.Content.Rendered)
	lower := strings.ToLower(body)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		// the API returned a rendered page instead of post content, usually a
		// site plugin or security layer interfering
		return nil, fmt.Errorf("post %q returned full page markup instead of article content", slug)
	}

	p := &Post{
		ID:          raw.ID,
		Title:       text.StripTags(raw.Title.Rendered),
		ContentHTML: raw.Content.Rendered,
		ExcerptHTML: raw.Excerpt.Rendered,
		URL:         raw.Link,
	}
	if p.URL == "" {
		p.URL = articleURL
	}
	if len(raw.Embedded.Author) > 0 {
		p.AuthorName = text.TrimCredentials(raw.Embedded.Author[0].Name)
		if raw.Embedded.Author[0].Slug != "" {
			p.AuthorURL = c.baseURL + "/author/" + raw.Embedded.Author[0].Slug + "/"
		}
	}
	if len(raw.Embedded.FeaturedMedia) > 0 {
		m := raw.Embedded.FeaturedMedia[0]
		p.FeaturedImageURL = m.SourceURL
		p.FeaturedImageAlt = m.AltText
		if p.FeaturedImageAlt == "" {
			p.FeaturedImageAlt = text.StripTags(m.Title.Rendered)
		}
	}
	for _, group := range raw.Embedded.Terms {
		for _, term := range group {
			if term.Taxonomy == "post_tag" {
				p.Tags = append(p.Tags, term.Name)
			}
		}
	}

	if sub, err := c.scrapeSubtitle(ctx, articleURL); err != nil {
		c.log.Debug("Subtitle scrape failed", zap.String("url", articleURL), zap.Error(err))
	} else {
		p.Subtitle = sub
	}
	return p, nil
}

// scrapeSubtitle pulls the subtitle paragraph from the public article page;
// the REST record does not carry it.
func (c *Client) scrapeSubtitle(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", err
	}

	var sub string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if sub != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			for _, a := range n.Attr {
				if a.Key == "class" && strings.Contains(" "+a.Val+" ", " sub-title ") {
					sub = strings.TrimSpace(nodeText(n))
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if sub == "" {
		return "", fmt.Errorf("no subtitle paragraph on page")
	}
	return sub, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
