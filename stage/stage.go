// Package stage runs the staging pipeline end to end: load the source
// document, extract fields, resolve related reading and graphs, compose the
// email, write the result.
package stage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"mailstage/compose"
	"mailstage/config"
	"mailstage/content"
	"mailstage/index"
	"mailstage/llm"
	"mailstage/wp"
)

// Options selects what to stage and how.
type Options struct {
	Variant     content.TemplateVariant
	Input       string // docx path, Google-Docs URL or article URL
	SecondInput string // second article URL for the Q&A variant
	IntroOption int    // 1-based marketing intro choice, 0 picks the first
	Overwrite   bool
	DryRun      bool
}

// Result describes one finished staging run.
type Result struct {
	RunID      string
	OutputPath string
	Fields     *content.Fields
	Email      string
}

// Stager wires the collaborators together for one or more runs.
type Stager struct {
	cfg      *config.Config
	index    *index.Index
	wp       *wp.Client
	llm      *llm.Client
	client   *http.Client
	siteName string
	log      *zap.Logger
}

func New(cfg *config.Config, ix *index.Index, wpc *wp.Client, llmc *llm.Client, log *zap.Logger) *Stager {
	return &Stager{
		cfg:      cfg,
		index:    ix,
		wp:       wpc,
		llm:      llmc,
		client:   &http.Client{Timeout: time.Duration(cfg.WordPress.TimeoutSeconds) * time.Second},
		siteName: cfg.Staging.SiteName,
		log:      log.Named("stage"),
	}
}

// Run stages one email.
func (s *Stager) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("run", runID[:8]), zap.Stringer("variant", opts.Variant))
	log.Info("Staging started", zap.String("input", opts.Input))

	src, err := s.loadSource(ctx, opts.Input)
	if err != nil {
		return nil, fmt.Errorf("unable to load source: %w", err)
	}

	ex, err := s.extract(ctx, opts, src)
	if err != nil {
		return nil, err
	}

	fields, err := s.buildFields(ctx, opts.Variant, src, ex)
	if err != nil {
		return nil, err
	}

	if opts.Variant == content.TemplateVariantStandard {
		if err := s.suggestRelated(ctx, fields, 2); err != nil {
			log.Warn("Related-article suggestions unavailable", zap.Error(err))
		}
	}
	if opts.Variant == content.TemplateVariantMarketing {
		if err := s.applyIntroOption(fields, opts.IntroOption); err != nil {
			return nil, err
		}
	}

	tmplHTML, err := s.readTemplate(opts.Variant)
	if err != nil {
		return nil, err
	}

	email, err := compose.BuildEmail(tmplHTML, opts.Variant, fields, log)
	if err != nil {
		return nil, fmt.Errorf("unable to compose email: %w", err)
	}

	res := &Result{RunID: runID, Fields: fields, Email: email}
	if opts.DryRun {
		log.Info("Dry run, not writing output")
		return res, nil
	}

	if res.OutputPath, err = s.writeOutput(opts, fields, email); err != nil {
		return nil, err
	}
	log.Info("Staging finished", zap.String("output", res.OutputPath))
	return res, nil
}

// extract picks the prompt for the variant and calls the model. Variants
// whose content is fully declared in the field bag (digests) skip extraction.
func (s *Stager) extract(ctx context.Context, opts Options, src *Source) (*llm.Extraction, error) {
	if s.llm == nil {
		return nil, nil
	}

	data := llm.PromptData{}
	if src.Doc != nil {
		data.ArticleText = documentText(src)
		data.Title = src.Doc.Meta["title"]
	}
	if src.Post != nil {
		data.ArticleHTML = src.Post.ContentHTML
		data.ArticleURL = src.Post.URL
		data.ArticleText = src.Post.ContentHTML
		data.Title = src.Post.Title
	}

	var prompt string
	switch opts.Variant {
	case content.TemplateVariantFertility:
		prompt = llm.PromptFertility
	case content.TemplateVariantQA:
		prompt = llm.PromptQA
		if opts.SecondInput != "" {
			second, err := s.loadSource(ctx, opts.SecondInput)
			if err != nil {
				return nil, fmt.Errorf("unable to load second source: %w", err)
			}
			data.SecondArticleText = documentText(second)
		}
	case content.TemplateVariantFertilityDigest, content.TemplateVariantPaidDigest:
		return nil, nil
	default:
		if src.Post != nil {
			prompt = llm.PromptReformat
		} else {
			prompt = llm.PromptStandard
		}
	}

	ex, err := s.llm.Extract(ctx, prompt, data)
	if err != nil {
		return nil, fmt.Errorf("field extraction failed: %w", err)
	}
	return ex, nil
}

func documentText(src *Source) string {
	if src.Post != nil {
		return src.Post.ContentHTML
	}
	if src.Doc == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range src.Doc.Paragraphs {
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// applyIntroOption loads the marketing intro variants from the configured CSV
// and applies the chosen one.
func (s *Stager) applyIntroOption(f *content.Fields, option int) error {
	if f.IntroOptionText != "" || s.cfg.Staging.IntroOptionsPath == "" {
		return nil
	}
	options, err := readIntroOptions(s.cfg.Staging.IntroOptionsPath)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return fmt.Errorf("intro options file %q is empty", s.cfg.Staging.IntroOptionsPath)
	}
	if option < 1 {
		option = 1
	}
	if option > len(options) {
		return fmt.Errorf("intro option %d requested, only %d available", option, len(options))
	}
	f.IntroOptionText = options[option-1]
	return nil
}

// readIntroOptions reads one intro text per CSV record, first column.
func readIntroOptions(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read intro options: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	var options []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to parse intro options: %w", err)
		}
		if len(rec) > 0 && strings.TrimSpace(rec[0]) != "" {
			options = append(options, strings.TrimSpace(rec[0]))
		}
	}
	return options, nil
}

// readTemplate loads the variant's skeleton document, tolerating legacy
// non-UTF-8 template files.
func (s *Stager) readTemplate(variant content.TemplateVariant) (string, error) {
	path, err := s.cfg.Templates.TemplatePath(variant)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read template: %w", err)
	}
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return "", fmt.Errorf("unable to decode template %s: %w", path, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// outputName renders the configured output-name template.
func (s *Stager) outputName(opts Options, fields *content.Fields) (string, error) {
	nameTmpl := s.cfg.Staging.OutputNameTemplate
	if nameTmpl == "" {
		nameTmpl = "{{ .Slug }}-{{ .Variant }}.html"
	}
	tmpl, err := template.New("output").Funcs(sprig.FuncMap()).Parse(nameTmpl)
	if err != nil {
		return "", fmt.Errorf("bad output name template: %w", err)
	}

	titleSlug := slug.Make(fields.Title)
	if titleSlug == "" {
		titleSlug = "untitled"
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Slug    string
		Variant string
		Date    string
	}{
		Slug:    titleSlug,
		Variant: opts.Variant.String(),
		Date:    time.Now().Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("unable to render output name: %w", err)
	}
	return buf.String(), nil
}

func (s *Stager) writeOutput(opts Options, fields *content.Fields, email string) (string, error) {
	name, err := s.outputName(opts, fields)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.Staging.OutputDir, config.CleanFileName(name))

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("output %s already exists (use overwrite to replace)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(email), 0644); err != nil {
		return "", fmt.Errorf("unable to write output: %w", err)
	}
	return path, nil
}
