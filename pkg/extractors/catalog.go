package extractors

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/detector"
	"github.com/dtnitsch/course-crawler/pkg/extractor"
	"github.com/dtnitsch/course-crawler/pkg/parser"
	"github.com/dtnitsch/course-crawler/pkg/synth"
)

const maxTitleRunes = 50

var (
	hrefID      = regexp.MustCompile(`(?:[?&](?:id|courseId|course_id)=|/)(\d+)(?:[/?#&.]|$)`)
	generatedID = regexp.MustCompile(`^\d+_[0-9a-f]{8}$`)
)

// CatalogAdapter scrapes a generic course catalog driven by SiteConfig
// selector chains.
type CatalogAdapter struct {
	site   models.SiteConfig
	base   *url.URL
	gen    *synth.Generator
	lang   *detector.LanguageDetector
	detail *parser.Parser

	title       extractor.Strategy[string]
	instructor  extractor.Strategy[string]
	description extractor.Strategy[string]
	image       extractor.Strategy[string]
	link        extractor.Strategy[string]
	sourceID    extractor.Strategy[string]
	level       extractor.Strategy[int]
	weeks       extractor.Strategy[int]
	learners    extractor.Strategy[int]
}

// CatalogOption configures a CatalogAdapter.
type CatalogOption func(*CatalogAdapter)

// WithLanguageDetector tags every record with a detected language.
func WithLanguageDetector(d *detector.LanguageDetector) CatalogOption {
	return func(a *CatalogAdapter) { a.lang = d }
}

func NewCatalogAdapter(seed string, site models.SiteConfig, gen *synth.Generator, opts ...CatalogOption) (*CatalogAdapter, error) {
	base, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url %q: %w", seed, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("seed url %q must be absolute", seed)
	}

	f := site.Fields
	a := &CatalogAdapter{
		site:   site,
		base:   base,
		gen:    gen,
		detail: parser.New(site.Detail),

		title: extractor.FirstOf(
			extractor.Text(f.Title...),
			extractor.OwnAttr("title"),
			extractor.TruncatedText(maxTitleRunes),
			extractor.Literal("Unknown"),
		),
		instructor:  extractor.Text(f.Instructor...),
		description: extractor.Text(f.Description...),
		image: extractor.FirstOf(
			extractor.Attr("src", f.Image...),
			extractor.Attr("data-src", f.Image...),
		),
		link: extractor.FirstOf(
			extractor.Attr("href", f.Link...),
			extractor.OwnAttr("href"),
		),
		level:    extractor.Map(extractor.Text(f.Level...), detector.MatchLevel),
		weeks:    extractor.Map(extractor.Text(f.Duration...), positiveInt),
		learners: extractor.Map(extractor.Text(f.Enrollment...), extractor.Int),
	}
	a.sourceID = extractor.FirstOf(
		extractor.OwnAttr("data-id"),
		extractor.OwnAttr("data-course-id"),
		extractor.Attr("data-id", "[data-id]"),
		extractor.Map(a.link, idFromHref),
	)

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *CatalogAdapter) Name() string { return a.site.Name }

func (a *CatalogAdapter) PaginationSelectors() []string { return a.site.PaginationSelectors }

// ListingURL returns the seed for page 1 and the seed with the page query
// parameter set for every later page.
func (a *CatalogAdapter) ListingURL(page int) string {
	if page <= 1 {
		return a.base.String()
	}
	u := *a.base
	q := u.Query()
	q.Set(a.site.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// ExtractListing uses the first card selector that matches anything; matches
// from later selectors are never merged in.
func (a *CatalogAdapter) ExtractListing(doc *goquery.Document, page int) []models.CourseRecord {
	var cards *goquery.Selection
	for _, q := range a.site.CardSelectors {
		if found := doc.Find(q); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	records := make([]models.CourseRecord, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		records = append(records, a.extractCard(card, (page-1)*cards.Length()+i+1))
	})
	return records
}

func (a *CatalogAdapter) extractCard(card *goquery.Selection, ordinal int) models.CourseRecord {
	title := extractor.Extract(card, a.title, "Unknown")

	var id string
	if sid, ok := a.sourceID(card); ok {
		id = a.site.IDPrefix + sid
	} else {
		id = a.gen.ID()
	}

	description := extractor.Extract(card, a.description, title)

	link := ""
	if href, ok := a.link(card); ok {
		link = a.resolve(href)
	}

	image := synth.Image(id)
	if src, ok := a.image(card); ok {
		image = a.resolve(src)
	}

	placeholders := models.FieldDuration
	duration := a.gen.Duration()
	if w, ok := a.weeks(card); ok {
		duration = fmt.Sprintf("%d周", w)
		placeholders &^= models.FieldDuration
	}

	level, ok := a.level(card)
	if !ok {
		level = detector.DefaultLevel
		placeholders |= models.FieldLevel
	}

	heat := a.gen.Heat()
	if n, ok := a.learners(card); ok {
		lo, hi := a.gen.HeatRange()
		heat = detector.HeatFromEnrollment(n, lo, hi)
	}

	status := a.gen.Status()
	rec := models.CourseRecord{
		ID:          id,
		Title:       title,
		Provider:    a.site.Provider,
		Instructor:  extractor.Extract(card, a.instructor, synth.Instructor(ordinal)),
		Level:       level,
		Heat:        heat,
		Trend:       a.gen.Trend(),
		Tags:        detector.Tags(title, description),
		Description: description,
		Duration:    duration,
		Status:      status,
		StatusColor: status.Color(),
		ImageSrc:    image,
		RarityLevel: a.gen.Rarity(),
		SourceURL:   link,

		Placeholders: placeholders,
	}
	if a.lang != nil {
		rec.Language = a.lang.Detect(title + " " + description)
	}
	return rec
}

// DetailURL strips the source prefix from the id and substitutes it into the
// detail path template.
func (a *CatalogAdapter) DetailURL(rec models.CourseRecord) (string, error) {
	if rec.Synthetic || !strings.HasPrefix(rec.ID, a.site.IDPrefix) {
		return "", ErrNoDetailPage
	}
	sourceID := strings.TrimPrefix(rec.ID, a.site.IDPrefix)
	if sourceID == "" || generatedID.MatchString(sourceID) {
		return "", ErrNoDetailPage
	}
	path := strings.ReplaceAll(a.site.DetailPath, "{id}", url.PathEscape(sourceID))
	return a.resolve(path), nil
}

func (a *CatalogAdapter) ExtractDetail(rawURL string, html []byte) (parser.Detail, error) {
	return a.detail.ParseDetail(rawURL, html)
}

func (a *CatalogAdapter) resolve(ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return a.base.ResolveReference(u).String()
}

func idFromHref(href string) (string, bool) {
	m := hrefID.FindStringSubmatch(href)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func positiveInt(s string) (int, bool) {
	n, ok := extractor.Int(s)
	return n, ok && n > 0
}
