// Package enricher fetches each accepted record's detail page and merges in
// any better fields it finds. Every failure is non-fatal.
package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/caching"
	"github.com/dtnitsch/course-crawler/pkg/detector"
	"github.com/dtnitsch/course-crawler/pkg/fetcher"
	"github.com/dtnitsch/course-crawler/pkg/parser"
)

// PageFetcher fetches a raw page body with the shared retry policy.
type PageFetcher interface {
	GetHtmlBytes(ctx context.Context, url string) ([]byte, error)
}

// DetailSource knows where a record's detail page lives and how to read it.
type DetailSource interface {
	DetailURL(rec models.CourseRecord) (string, error)
	ExtractDetail(rawURL string, html []byte) (parser.Detail, error)
}

type Enricher struct {
	fetcher    PageFetcher
	source     DetailSource
	cache      *caching.Cache
	itemDelay  time.Duration
	batchSize  int
	batchPause time.Duration
	sleep      fetcher.Sleeper
	logger     *slog.Logger

	fetched int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithCache serves detail pages from c when fresh and stores fetched ones.
func WithCache(c *caching.Cache) Option { return func(e *Enricher) { e.cache = c } }

func WithSleeper(s fetcher.Sleeper) Option { return func(e *Enricher) { e.sleep = s } }

func WithLogger(l *slog.Logger) Option { return func(e *Enricher) { e.logger = l } }

// WithPacing sets the delay between detail fetches and the longer pause
// taken after every batchSize fetches.
func WithPacing(itemDelay time.Duration, batchSize int, batchPause time.Duration) Option {
	return func(e *Enricher) {
		e.itemDelay = itemDelay
		e.batchSize = batchSize
		e.batchPause = batchPause
	}
}

func New(f PageFetcher, source DetailSource, opts ...Option) *Enricher {
	e := &Enricher{
		fetcher:    f,
		source:     source,
		itemDelay:  time.Second,
		batchSize:  5,
		batchPause: 5 * time.Second,
		sleep:      fetcher.SleepContext,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichAll enriches recs in order and returns the new slice plus how many
// records gained at least one field. A cancelled context stops enrichment;
// the remaining records are returned unchanged.
func (e *Enricher) EnrichAll(ctx context.Context, recs []models.CourseRecord) ([]models.CourseRecord, int) {
	out := make([]models.CourseRecord, len(recs))
	copy(out, recs)

	enriched := 0
	for i, rec := range recs {
		if ctx.Err() != nil {
			break
		}
		if next, ok := e.Enrich(ctx, rec); ok {
			out[i] = next
			enriched++
		}
	}
	return out, enriched
}

// Enrich returns rec merged with its detail page, or rec unchanged and false
// on any error or when the page offered nothing better.
func (e *Enricher) Enrich(ctx context.Context, rec models.CourseRecord) (models.CourseRecord, bool) {
	detailURL, err := e.source.DetailURL(rec)
	if err != nil {
		return rec, false
	}

	body, err := e.body(ctx, detailURL)
	if err != nil {
		e.logger.Warn("Enrichment fetch failed", "id", rec.ID, "url", detailURL, "error", err)
		return rec, false
	}

	detail, err := e.source.ExtractDetail(detailURL, body)
	if err != nil {
		e.logger.Warn("Enrichment parse failed", "id", rec.ID, "url", detailURL, "error", err)
		return rec, false
	}

	merged, changed := Merge(rec, detail)
	if changed {
		e.logger.Debug("Record enriched", "id", rec.ID)
	}
	return merged, changed
}

func (e *Enricher) body(ctx context.Context, detailURL string) ([]byte, error) {
	if e.cache != nil {
		if data, ok := e.cache.Get(detailURL); ok {
			return data, nil
		}
	}

	if err := e.pace(ctx); err != nil {
		return nil, err
	}
	data, err := e.fetcher.GetHtmlBytes(ctx, detailURL)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(detailURL, data); err != nil {
			e.logger.Warn("Failed to cache detail page", "url", detailURL, "error", err)
		}
	}
	return data, nil
}

// pace waits before every network fetch but the first: batchPause after each
// full batch, itemDelay otherwise.
func (e *Enricher) pace(ctx context.Context) error {
	defer func() { e.fetched++ }()
	if e.fetched == 0 {
		return nil
	}
	wait := e.itemDelay
	if e.batchSize > 0 && e.fetched%e.batchSize == 0 {
		wait = e.batchPause
	}
	return e.sleep(ctx, wait)
}

// Merge copies detail fields into rec where they improve on what rec has. A
// field is never replaced by a shorter or placeholder value, and duration and
// level are only taken from the detail page when the listing did not supply them.
func Merge(rec models.CourseRecord, d parser.Detail) (models.CourseRecord, bool) {
	changed := false

	if d.Instructor != "" && d.Instructor != rec.Instructor && isPlaceholderInstructor(rec.Instructor) {
		rec.Instructor = d.Instructor
		changed = true
	}

	if utf8.RuneCountInString(d.Description) > utf8.RuneCountInString(rec.Description) {
		rec.Description = d.Description
		if tags := detector.Tags(rec.Title, rec.Description); keywordTags(tags) > keywordTags(rec.Tags) {
			rec.Tags = tags
		}
		changed = true
	}

	if d.Chapters > 0 && rec.Placeholders.Has(models.FieldDuration) {
		rec.Duration = fmt.Sprintf("%d周", d.Chapters)
		rec.Placeholders &^= models.FieldDuration
		changed = true
	}

	if level, ok := detector.MatchLevel(d.LevelLabel); ok && rec.Placeholders.Has(models.FieldLevel) {
		rec.Level = level
		rec.Placeholders &^= models.FieldLevel
		changed = true
	}

	if changed {
		rec.Enriched = true
	}
	return rec, changed
}

func isPlaceholderInstructor(name string) bool {
	return name == "" || strings.HasPrefix(name, "Instructor #")
}

// keywordTags counts the tags that came from the vocabulary, not padding.
func keywordTags(tags []string) int {
	n := 0
	for _, t := range tags {
		if !slices.Contains(detector.FallbackTags, t) {
			n++
		}
	}
	return n
}
