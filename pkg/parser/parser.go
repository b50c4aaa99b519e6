package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/extractor"
)

// maxDescriptionRunes caps descriptions taken from a detail page.
const maxDescriptionRunes = 1000

// Detail holds whatever a course detail page offered. Zero values mean the
// page had nothing for that field.
type Detail struct {
	Instructor  string
	Description string
	Chapters    int
	LevelLabel  string
}

type Parser struct {
	selectors models.DetailSelectors
}

func New(selectors models.DetailSelectors) *Parser {
	return &Parser{selectors: selectors}
}

// ParseDetail reads a detail page with the configured selector chains. When
// no description selector matches, go-readability's excerpt of the main
// content is used instead.
func (p *Parser) ParseDetail(rawURL string, html []byte) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Detail{}, fmt.Errorf("failed to parse detail HTML: %w", err)
	}
	root := doc.Selection

	detail := Detail{
		Instructor: extractor.Extract(root, extractor.Text(p.selectors.Instructor...), ""),
		LevelLabel: extractor.Extract(root, extractor.Text(p.selectors.Level...), ""),
		Chapters:   countFirst(root, p.selectors.Chapters),
	}

	description := extractor.FirstOf(
		extractor.Text(p.selectors.Description...),
		extractor.Attr("content", p.selectors.Description...),
	)
	if d, ok := description(root); ok {
		detail.Description = extractor.Truncate(d, maxDescriptionRunes)
	} else {
		detail.Description = readableExcerpt(rawURL, html)
	}

	return detail, nil
}

// countFirst counts the matches of the first selector that matches anything.
func countFirst(sel *goquery.Selection, selectors []string) int {
	for _, q := range selectors {
		if n := sel.Find(q).Length(); n > 0 {
			return n
		}
	}
	return 0
}

func readableExcerpt(rawURL string, html []byte) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(html), parsedURL)
	if err != nil {
		return ""
	}
	if excerpt := extractor.NormalizeText(article.Excerpt); excerpt != "" {
		return extractor.Truncate(excerpt, maxDescriptionRunes)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}
	return extractor.Truncate(extractor.NormalizeText(doc.Text()), maxDescriptionRunes)
}
