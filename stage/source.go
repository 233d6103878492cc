package stage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"mailstage/docx"
	"mailstage/wp"
)

// Source is the staged article's raw material, loaded from whichever input
// form the editor handed us.
type Source struct {
	Doc  *docx.Document
	Post *wp.Post
	URL  string
}

var googleDocRe = regexp.MustCompile(`^https?://docs\.google\.com/document/d/([^/]+)`)

// classifyInput decides how to treat the input argument.
func classifyInput(input string) string {
	switch {
	case googleDocRe.MatchString(input):
		return "gdoc"
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return "article"
	default:
		return "file"
	}
}

// loadSource fetches and parses the input: a .docx path, a Google-Docs
// document URL (downloaded as .docx through the export endpoint), or a
// published article URL.
func (s *Stager) loadSource(ctx context.Context, input string) (*Source, error) {
	switch classifyInput(input) {
	case "gdoc":
		data, err := s.downloadGoogleDoc(ctx, input)
		if err != nil {
			return nil, err
		}
		doc, err := docx.Parse(data, s.log)
		if err != nil {
			return nil, err
		}
		s.log.Debug("Parsed document", zap.Stringer("tree", doc))
		return &Source{Doc: doc, URL: input}, nil

	case "article":
		post, err := s.wp.FetchByURL(ctx, input)
		if err != nil {
			return nil, err
		}
		return &Source{Post: post, URL: post.URL}, nil

	default:
		doc, err := docx.ReadFile(input, s.log)
		if err != nil {
			return nil, err
		}
		s.log.Debug("Parsed document", zap.Stringer("tree", doc))
		return &Source{Doc: doc}, nil
	}
}

func (s *Stager) downloadGoogleDoc(ctx context.Context, docURL string) ([]byte, error) {
	m := googleDocRe.FindStringSubmatch(docURL)
	if m == nil {
		return nil, fmt.Errorf("unrecognized google docs url %q", docURL)
	}
	exportURL := fmt.Sprintf("https://docs.google.com/document/d/%s/export?format=docx", url.PathEscape(m[1]))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document export: unexpected status %s (is the document shared?)", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
