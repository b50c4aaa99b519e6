// Package extractors isolates site-specific scraping rules behind Adapter.
package extractors

import (
	"errors"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/parser"
)

// ErrNoDetailPage is returned by DetailURL for records that have no source page.
var ErrNoDetailPage = errors.New("record has no detail page")

// Adapter is everything the pipeline needs to know about one catalog site.
type Adapter interface {
	Name() string
	// ListingURL returns the URL of listing page n (1-based).
	ListingURL(page int) string
	PaginationSelectors() []string
	// ExtractListing turns one listing document into candidate records.
	// It never fails; missing fields are filled by fallback chains.
	ExtractListing(doc *goquery.Document, page int) []models.CourseRecord
	DetailURL(rec models.CourseRecord) (string, error)
	ExtractDetail(rawURL string, html []byte) (parser.Detail, error)
}
