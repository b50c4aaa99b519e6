// Package discovery works out how many listing pages a catalog has.
package discovery

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/course-crawler/pkg/extractor"
)

// DefaultPageCount is used when the seed page gives no pagination signal.
const DefaultPageCount = 5

// DocumentFetcher fetches and parses one page.
type DocumentFetcher interface {
	GetHtml(ctx context.Context, url string) (*goquery.Document, error)
}

type Discoverer struct {
	fetcher      DocumentFetcher
	selectors    []string
	pageParam    string
	defaultPages int
	logger       *slog.Logger
}

func New(fetcher DocumentFetcher, selectors []string, pageParam string, defaultPages int, logger *slog.Logger) *Discoverer {
	if defaultPages < 1 {
		defaultPages = DefaultPageCount
	}
	if pageParam == "" {
		pageParam = "page"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Discoverer{
		fetcher:      fetcher,
		selectors:    selectors,
		pageParam:    pageParam,
		defaultPages: defaultPages,
		logger:       logger,
	}
}

// DiscoverPageCount fetches seed once and returns the page count. It never
// fails: any fetch error or missing signal degrades to the default.
func (d *Discoverer) DiscoverPageCount(ctx context.Context, seed string) int {
	doc, err := d.fetcher.GetHtml(ctx, seed)
	if err != nil {
		d.logger.Warn("Page discovery failed, using default", "url", seed, "default", d.defaultPages, "error", err)
		return d.defaultPages
	}
	if n, selector, ok := PageCount(doc, d.selectors, d.pageParam); ok {
		d.logger.Info("Discovered page count", "pages", n, "selector", selector)
		return n
	}
	d.logger.Info("No pagination found, using default", "default", d.defaultPages)
	return d.defaultPages
}

// PageCount scans the elements of each selector in order and returns the
// largest page number found by the first selector that yields any.
func PageCount(doc *goquery.Document, selectors []string, pageParam string) (int, string, bool) {
	for _, q := range selectors {
		matches := doc.Find(q)
		if matches.Length() == 0 {
			continue
		}
		best := 0
		matches.Each(func(_ int, s *goquery.Selection) {
			if n, ok := pageNumber(s, pageParam); ok && n > best {
				best = n
			}
		})
		if best > 0 {
			return best, q, true
		}
	}
	return 0, "", false
}

// pageNumber reads the page query parameter from href, then the element text.
func pageNumber(s *goquery.Selection, pageParam string) (int, bool) {
	if href, ok := s.Attr("href"); ok {
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if n, err := strconv.Atoi(u.Query().Get(pageParam)); err == nil && n > 0 {
				return n, true
			}
		}
	}
	text := extractor.NormalizeText(s.Text())
	if n, err := strconv.Atoi(text); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}
