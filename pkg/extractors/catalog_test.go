package extractors

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/synth"
)

const listingHTML = `<html><body>
<div class="course-list">
  <div class="course-card" data-id="101">
    <img src="/img/101.png">
    <h3 class="course-title">Intro to Machine Learning</h3>
    <span class="instructor">Andrew Ng</span>
    <p class="course-desc">Supervised learning, regression and neural networks with Python.</p>
    <span class="level">Beginner</span>
    <span class="duration">8 weeks</span>
    <span class="learners">12,000 learners</span>
    <a class="course-link" href="/course/101">View</a>
  </div>
  <div class="course-card" data-id="102">
    <img src="https://cdn.example.com/102.jpg">
    <h3 class="course-title">Advanced Distributed Systems</h3>
    <span class="instructor">Leslie Lamport</span>
    <p class="course-desc">Consensus, replication and fault tolerance for backend engineers.</p>
    <span class="level">Advanced</span>
    <span class="duration">10周</span>
    <a class="course-link" href="/course/102">View</a>
  </div>
  <div class="course-card" data-id="103">
    <img data-src="/img/103.png">
    <h3 class="course-title">Modern Web Development with React</h3>
    <p class="course-desc">Components, hooks and state management.</p>
    <a class="course-link" href="/course/103">View</a>
  </div>
  <div class="course-card" data-id="104">
  </div>
</div>
<div class="pagination"><a href="?page=1">1</a></div>
</body></html>`

func newTestAdapter(t *testing.T, seed string) *CatalogAdapter {
	t.Helper()
	cfg := models.DefaultConfig()
	gen := synth.NewGenerator(cfg.Synthetic, cfg.Site.Provider, synth.NewRand(1), synth.WithIDPrefix(cfg.Site.IDPrefix))
	a, err := NewCatalogAdapter(seed, cfg.Site, gen)
	if err != nil {
		t.Fatalf("NewCatalogAdapter() failed: %v", err)
	}
	return a
}

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("NewDocumentFromReader() failed: %v", err)
	}
	return d
}

func TestExtractListing_WellFormedAndMalformedCards(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses")
	records := a.ExtractListing(doc(t, listingHTML), 1)

	if len(records) != 4 {
		t.Fatalf("ExtractListing() returned %d records, want 4", len(records))
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			t.Errorf("Validate() failed: %v", err)
		}
	}

	ml := records[0]
	if ml.ID != "course_101" || ml.Title != "Intro to Machine Learning" {
		t.Errorf("record[0] = %s %q", ml.ID, ml.Title)
	}
	if ml.Instructor != "Andrew Ng" || ml.Level != 1 || ml.Duration != "8周" {
		t.Errorf("record[0] fields = %q level=%d duration=%q", ml.Instructor, ml.Level, ml.Duration)
	}
	if ml.Placeholders != 0 {
		t.Errorf("record[0] placeholders = %b, want none for scraped fields", ml.Placeholders)
	}
	if ml.Heat != 90 {
		t.Errorf("record[0] heat = %d, want 90 from enrollment", ml.Heat)
	}
	if ml.ImageSrc != "https://example.com/img/101.png" {
		t.Errorf("record[0] image = %q", ml.ImageSrc)
	}
	if ml.SourceURL != "https://example.com/course/101" {
		t.Errorf("record[0] source = %q", ml.SourceURL)
	}
	if ml.Tags[0] != "AI" {
		t.Errorf("record[0] tags = %v", ml.Tags)
	}

	if records[1].Level != 4 || records[1].Duration != "10周" {
		t.Errorf("record[1] level=%d duration=%q", records[1].Level, records[1].Duration)
	}

	web := records[2]
	if web.ImageSrc != "https://example.com/img/103.png" {
		t.Errorf("record[2] image = %q, want data-src fallback", web.ImageSrc)
	}
	if web.Instructor != "Instructor #3" || web.Level != 2 {
		t.Errorf("record[2] instructor=%q level=%d", web.Instructor, web.Level)
	}

	bad := records[3]
	if bad.ID != "course_104" {
		t.Errorf("malformed id = %q", bad.ID)
	}
	if bad.Title != "Unknown" {
		t.Errorf("malformed title = %q, want Unknown", bad.Title)
	}
	if !strings.HasPrefix(bad.ImageSrc, "https://picsum.photos/seed/") {
		t.Errorf("malformed image = %q, want placeholder", bad.ImageSrc)
	}
	if len(bad.Tags) < 2 {
		t.Errorf("malformed tags = %v", bad.Tags)
	}
	if !bad.Placeholders.Has(models.FieldDuration) || !bad.Placeholders.Has(models.FieldLevel) {
		t.Errorf("malformed placeholders = %b, want duration and level", bad.Placeholders)
	}
}

func TestExtractListing_FirstMatchingSelectorWins(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses")
	html := `<div class="course-card" data-id="1"><h3>Only Card</h3></div>
<div class="course-item" data-id="2"><h3>Item A</h3></div>
<div class="course-item" data-id="3"><h3>Item B</h3></div>`

	records := a.ExtractListing(doc(t, html), 1)
	if len(records) != 1 || records[0].Title != "Only Card" {
		t.Errorf("ExtractListing() = %+v, want only the .course-card match", records)
	}
}

func TestExtractListing_NoCards(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses")
	if records := a.ExtractListing(doc(t, `<p>maintenance</p>`), 1); len(records) != 0 {
		t.Errorf("ExtractListing() = %d records, want 0", len(records))
	}
}

func TestExtractListing_IDFromHref(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses")
	html := `<div class="course-card"><h3>Go</h3><a href="https://example.com/course/777/overview">Go</a></div>
<div class="course-card"><h3>Rust</h3><a href="/learn?courseId=888">Rust</a></div>`

	records := a.ExtractListing(doc(t, html), 1)
	if len(records) != 2 || records[0].ID != "course_777" || records[1].ID != "course_888" {
		t.Errorf("ids = %v", []string{records[0].ID, records[1].ID})
	}
}

func TestExtractListing_GeneratedIDHasNoDetailPage(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses")
	records := a.ExtractListing(doc(t, `<div class="course-card"><h3>Anonymous</h3></div>`), 1)
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if !strings.HasPrefix(records[0].ID, "course_") {
		t.Errorf("generated id = %q", records[0].ID)
	}
	if _, err := a.DetailURL(records[0]); !errors.Is(err, ErrNoDetailPage) {
		t.Errorf("DetailURL() error = %v, want ErrNoDetailPage", err)
	}
}

func TestListingURL(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses?category=cs")
	if got := a.ListingURL(1); got != "https://example.com/courses?category=cs" {
		t.Errorf("ListingURL(1) = %q", got)
	}
	if got := a.ListingURL(3); got != "https://example.com/courses?category=cs&page=3" {
		t.Errorf("ListingURL(3) = %q", got)
	}
}

func TestDetailURL(t *testing.T) {
	a := newTestAdapter(t, "https://example.com/courses")

	got, err := a.DetailURL(models.CourseRecord{ID: "course_101"})
	if err != nil || got != "https://example.com/course/101" {
		t.Errorf("DetailURL() = %q, %v", got, err)
	}

	if _, err := a.DetailURL(models.CourseRecord{ID: "course_1", Synthetic: true}); !errors.Is(err, ErrNoDetailPage) {
		t.Errorf("DetailURL(synthetic) error = %v", err)
	}
	if _, err := a.DetailURL(models.CourseRecord{ID: "other_5"}); !errors.Is(err, ErrNoDetailPage) {
		t.Errorf("DetailURL(foreign prefix) error = %v", err)
	}
}

func TestNewCatalogAdapter_RejectsRelativeSeed(t *testing.T) {
	cfg := models.DefaultConfig()
	gen := synth.NewGenerator(cfg.Synthetic, "p", synth.NewRand(1))
	if _, err := NewCatalogAdapter("/courses", cfg.Site, gen); err == nil {
		t.Error("NewCatalogAdapter() error = nil for relative seed")
	}
}
