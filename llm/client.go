// Package llm extracts structured newsletter fields from article drafts with
// an Anthropic-compatible messages API, one prompt template per extraction
// kind.
package llm

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"mailstage/content"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Prompt names, one per template file.
const (
	PromptStandard  = "standard"
	PromptFertility = "fertility"
	PromptReformat  = "reformat"
	PromptQA        = "qa"
)

// PromptData is everything the prompt templates can reference.
type PromptData struct {
	Title             string
	ArticleText       string
	ArticleHTML       string
	ArticleURL        string
	SecondArticleText string
}

// Extraction is the JSON object the model is asked to return. Empty fields
// mean the source had nothing for them.
type Extraction struct {
	Title           string           `json:"title"`
	Subtitle        string           `json:"subtitle"`
	SubtitleLines   []string         `json:"subtitle_lines"`
	WelcomeHTML     string           `json:"welcome_html"`
	ArticleBodyHTML string           `json:"article_body_html"`
	BottomLineHTML  string           `json:"bottom_line_html"`
	AuthorName      string           `json:"author_name"`
	AuthorTitle     string           `json:"author_title"`
	IntroText       string           `json:"intro_text"`
	FadeFrom        string           `json:"fade_from"`
	TopicTags       []string         `json:"topic_tags"`
	QA1             *content.QAGroup `json:"qa1"`
	QA2             *content.QAGroup `json:"qa2"`
	QAAuthorLine    string           `json:"qa_author_line"`
}

// Client calls the messages endpoint.
type Client struct {
	endpoint  string
	model     string
	apiKey    string
	maxTokens int
	client    *http.Client
	prompts   *template.Template
	log       *zap.Logger
}

func New(endpoint, model, apiKey string, maxTokens int, httpClient *http.Client, log *zap.Logger) (*Client, error) {
	prompts, err := template.New("prompts").Funcs(sprig.FuncMap()).ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("unable to parse prompt templates: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		endpoint:  endpoint,
		model:     model,
		apiKey:    apiKey,
		maxTokens: maxTokens,
		client:    httpClient,
		prompts:   prompts,
		log:       log.Named("llm"),
	}, nil
}

// RenderPrompt expands the named prompt template. Exposed so staging dry runs
// can show what would be sent.
func (c *Client) RenderPrompt(name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := c.prompts.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("unable to render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract renders the named prompt, sends it, and decodes the model's JSON
// answer.
func (c *Client) Extract(ctx context.Context, prompt string, data PromptData) (*Extraction, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("llm api key is not configured")
	}

	rendered, err := c.RenderPrompt(prompt, data)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: rendered}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return nil, fmt.Errorf("unable to decode extraction response (status %s): %w", resp.Status, err)
	}
	if mr.Error != nil {
		return nil, fmt.Errorf("extraction failed: %s: %s", mr.Error.Type, mr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction failed: unexpected status %s", resp.Status)
	}
	if len(mr.Content) == 0 || mr.Content[0].Text == "" {
		return nil, fmt.Errorf("extraction returned no content")
	}

	answer := stripFences(mr.Content[0].Text)

	var ex Extraction
	if err := json.Unmarshal([]byte(answer), &ex); err != nil {
		preview := answer
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("extraction answer is not valid JSON (%v): %s", err, preview)
	}

	c.log.Debug("Extraction finished",
		zap.String("prompt", prompt),
		zap.Duration("elapsed", time.Since(start)))
	return &ex, nil
}

// stripFences removes a markdown code fence wrapper, which models add despite
// instructions often enough to handle here.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
