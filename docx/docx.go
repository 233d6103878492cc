// Package docx extracts staged newsletter content from a Word document: the
// article body as basic HTML, labeled metadata lines, inline images rewritten
// to graph placeholders, and the trailing staging-instructions section.
package docx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
)

// Document is the parsed source document.
type Document struct {
	Paragraphs   []Paragraph
	BodyHTML     string
	GraphCount   int
	Meta         map[string]string
	Instructions Instructions
}

// Paragraph is one body paragraph with its inline markup rendered.
type Paragraph struct {
	Text  string
	HTML  string
	Style string // "", "h1" or "h2"
}

// Instructions is the parsed staging-instructions section.
type Instructions struct {
	FeaturedImageURL string
	Related          map[int]string
	Graphs           map[int]string
}

// metaLabels are the labeled lines recognized at the top of the document.
// Keys are the canonical Meta map keys.
var metaLabels = map[string]string{
	"title":        "title",
	"subtitle":     "subtitle",
	"author":       "author",
	"author title": "author_title",
	"fade from":    "fade_from",
	"intro":        "intro",
	"bottom line":  "bottom_line",
	"banner":       "banner",
}

// ReadFile loads and parses a .docx file.
func ReadFile(path string, log *zap.Logger) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	return Parse(data, log)
}

// Parse parses in-memory .docx content.
func Parse(data []byte, log *zap.Logger) (*Document, error) {
	kind, _ := filetype.Match(data)
	switch kind.Extension {
	case "docx", "zip":
	default:
		return nil, fmt.Errorf("input is not a Word document (detected %q)", kind.Extension)
	}

	zr, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to open document container: %w", err)
	}

	docXML, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}
	relsXML, _ := readZipEntry(zr, "word/_rels/document.xml.rels")

	return parseDocumentXML(docXML, parseRels(relsXML), log)
}

func readZipEntry(zr *fixzip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("unable to open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("document has no %s entry", name)
}

// parseRels maps relationship ids to their targets (hyperlink urls, image
// parts).
func parseRels(data []byte) map[string]string {
	rels := make(map[string]string)
	if len(data) == 0 {
		return rels
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return rels
	}
	for _, e := range elementsByTag(doc.Root(), "Relationship") {
		id := attrByKey(e, "Id")
		target := attrByKey(e, "Target")
		if id != "" && target != "" {
			rels[id] = target
		}
	}
	return rels
}

func parseDocumentXML(data []byte, rels map[string]string, log *zap.Logger) (*Document, error) {
	xml := etree.NewDocument()
	if err := xml.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse document body: %w", err)
	}
	root := xml.Root()
	if root == nil {
		return nil, fmt.Errorf("document body is empty")
	}
	body := childByTag(root, "body")
	if body == nil {
		return nil, fmt.Errorf("document has no body element")
	}

	doc := &Document{
		Meta: make(map[string]string),
		Instructions: Instructions{
			Related: make(map[int]string),
			Graphs:  make(map[int]string),
		},
	}

	var bodyParas []Paragraph
	var instructionLines []string
	inInstructions := false

	for _, p := range elementsByTag(body, "p") {
		para := doc.renderParagraph(p, rels)
		plain := strings.TrimSpace(para.Text)

		if !inInstructions && isInstructionsHeading(plain) {
			inInstructions = true
			continue
		}
		if inInstructions {
			if plain != "" {
				instructionLines = append(instructionLines, plain)
			}
			continue
		}
		if plain == "" && para.HTML == "" {
			continue
		}
		if label, value, ok := splitMetaLine(plain); ok && len(bodyParas) == 0 {
			doc.Meta[label] = value
			continue
		}
		bodyParas = append(bodyParas, para)
	}

	doc.Paragraphs = bodyParas
	doc.BodyHTML = paragraphsToHTML(bodyParas)
	doc.parseInstructions(instructionLines)

	log.Named("docx").Debug("Parsed source document",
		zap.Int("paragraphs", len(bodyParas)),
		zap.Int("graphs", doc.GraphCount),
		zap.Int("meta", len(doc.Meta)))
	return doc, nil
}

func isInstructionsHeading(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "staging instructions")
}

// splitMetaLine recognizes "Label: value" lines for the known labels only, so
// article text with a stray colon never becomes metadata.
func splitMetaLine(line string) (key, value string, ok bool) {
	label, rest, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key, known := metaLabels[strings.ToLower(strings.TrimSpace(label))]
	if !known {
		return "", "", false
	}
	return key, strings.TrimSpace(rest), true
}

func paragraphsToHTML(paras []Paragraph) string {
	var b strings.Builder
	for _, p := range paras {
		switch p.Style {
		case "h1":
			b.WriteString("<h1>" + p.HTML + "</h1>")
		case "h2":
			b.WriteString("<h2>" + p.HTML + "</h2>")
		default:
			b.WriteString("<p>" + p.HTML + "</p>")
		}
	}
	return b.String()
}
