// Package markup turns one page's HTML into an ordered sequence of typed
// content blocks (heading, paragraph, blockquote, table), restricted to a
// designated content container.
package markup

import (
	"errors"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"
)

// ErrContainerNotFound is returned when the container selector matches
// nothing in the document. The caller skips the document entirely.
var ErrContainerNotFound = errors.New("markup: content container not found")

// Extractor walks the children of a content container and emits blocks in
// document order. It is stateless across documents and safe for concurrent
// use once constructed.
type Extractor struct {
	Container string // CSS selector for the content container, e.g. "#news-content"
	Logger    log.Logger

	conv *md.Converter
}

// NewExtractor creates an extractor for the given container selector.
func NewExtractor(container string) *Extractor {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.Table())
	return &Extractor{Container: container, conv: conv}
}

// Extract parses html and returns the ordered blocks found inside the
// container. Blocks with empty or whitespace-only text are dropped, except
// tables, which may carry only structural content.
func (e *Extractor) Extract(html string) ([]Block, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	container := doc.Find(e.Container)
	if container.Length() == 0 {
		return nil, ErrContainerNotFound
	}

	var blocks []Block
	container.First().Children().Each(func(_ int, s *goquery.Selection) {
		var b Block
		switch goquery.NodeName(s) {
		case "h2":
			b = Block{Kind: KindHeading, Text: NormalizeSpace(s.Text())}
		case "p":
			b = Block{Kind: KindParagraph, Text: NormalizeSpace(s.Text())}
		case "blockquote":
			b = Block{Kind: KindBlockquote, Text: NormalizeSpace(s.Text())}
		case "table":
			b = Block{Kind: KindTable, Text: e.tableMarkdown(s)}
		default:
			return
		}
		if b.Text == "" && b.Kind != KindTable {
			return
		}
		b.SequenceIndex = len(blocks)
		blocks = append(blocks, b)
	})

	return blocks, nil
}

// Title returns the first h1 text in the document, cleaned, or "".
func (e *Extractor) Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return NormalizeSpace(doc.Find("h1").First().Text())
}

func (e *Extractor) tableMarkdown(s *goquery.Selection) string {
	raw, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	out, err := e.conv.ConvertString(raw)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("table to markdown conversion failed")
		return ""
	}
	return strings.TrimSpace(out)
}

// NormalizeSpace collapses runs of whitespace to single spaces while keeping
// line content order, the same normalization applied everywhere text is
// compared or persisted.
func NormalizeSpace(text string) string {
	lines := strings.Split(text, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		parts = append(parts, strings.Join(fields, " "))
	}
	return strings.Join(parts, " ")
}
