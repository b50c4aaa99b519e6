package enricher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/caching"
	"github.com/dtnitsch/course-crawler/pkg/parser"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("status code: 404")
	}
	return []byte(body), nil
}

type fakeSource struct{}

func (fakeSource) DetailURL(rec models.CourseRecord) (string, error) {
	if rec.Synthetic {
		return "", errors.New("no detail page")
	}
	return "https://example.com/course/" + rec.ID, nil
}

func (fakeSource) ExtractDetail(rawURL string, html []byte) (parser.Detail, error) {
	return parser.New(models.DefaultSiteConfig().Detail).ParseDetail(rawURL, html)
}

type sleeps struct{ waits []time.Duration }

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func rec(id string) models.CourseRecord {
	return models.CourseRecord{
		ID:          id,
		Title:       "Intro to Machine Learning",
		Instructor:  "Instructor #1",
		Description: "Short.",
		Duration:    "6周",
		Level:       2,
		Tags:        []string{"AI", "Online Course"},

		Placeholders: models.FieldDuration | models.FieldLevel,
	}
}

const detailPage = `<html><body>
<div class="teacher-name">Andrew Ng</div>
<div class="course-intro">A long and thorough introduction to supervised learning and data analysis.</div>
<span class="course-level">Advanced</span>
<div class="chapter">1</div><div class="chapter">2</div><div class="chapter">3</div>
</body></html>`

func TestEnrich_MergesBetterFields(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://example.com/course/a": detailPage}}
	e := New(f, fakeSource{}, WithSleeper((&sleeps{}).sleep))

	got, ok := e.Enrich(context.Background(), rec("a"))
	if !ok {
		t.Fatal("Enrich() ok = false")
	}
	if got.Instructor != "Andrew Ng" || got.Level != 4 || got.Duration != "3周" || !got.Enriched {
		t.Errorf("Enrich() = %+v", got)
	}
	if got.Description != "A long and thorough introduction to supervised learning and data analysis." {
		t.Errorf("Description = %q", got.Description)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "Data Science" {
		t.Errorf("Tags = %v, want keyword tags from the richer description", got.Tags)
	}
}

func TestEnrich_FailureLeavesRecordUnchanged(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	e := New(f, fakeSource{}, WithSleeper((&sleeps{}).sleep))

	orig := rec("missing")
	got, ok := e.Enrich(context.Background(), orig)
	if ok || got.Instructor != orig.Instructor || got.Enriched {
		t.Errorf("Enrich() = %+v, %v; want original", got, ok)
	}
}

func TestMerge_NeverDowngrades(t *testing.T) {
	r := rec("a")
	r.Instructor = "Real Person"
	r.Description = "An already detailed description of the course."

	got, changed := Merge(r, parser.Detail{Instructor: "Someone Else", Description: "Short"})
	if changed {
		t.Errorf("Merge() changed = true: %+v", got)
	}
	if got.Instructor != "Real Person" || got.Description != r.Description {
		t.Errorf("Merge() = %+v", got)
	}

	got, changed = Merge(r, parser.Detail{LevelLabel: "something vague"})
	if changed || got.Level != 2 {
		t.Errorf("unmapped level label changed record: %+v", got)
	}

	scraped := r
	scraped.Duration = "12周"
	scraped.Level = 4
	scraped.Placeholders = 0
	got, changed = Merge(scraped, parser.Detail{Chapters: 3, LevelLabel: "beginner"})
	if changed || got.Duration != "12周" || got.Level != 4 {
		t.Errorf("Merge() replaced listing values: duration %q level %d changed %v", got.Duration, got.Level, changed)
	}
}

func TestMerge_FillsPlaceholderDurationAndLevelOnce(t *testing.T) {
	got, changed := Merge(rec("a"), parser.Detail{Chapters: 3, LevelLabel: "beginner"})
	if !changed || got.Duration != "3周" || got.Level != 1 {
		t.Fatalf("Merge() = duration %q level %d changed %v", got.Duration, got.Level, changed)
	}
	if got.Placeholders != 0 {
		t.Errorf("Placeholders = %b after merge, want cleared", got.Placeholders)
	}

	got, changed = Merge(got, parser.Detail{Chapters: 9, LevelLabel: "expert"})
	if changed || got.Duration != "3周" || got.Level != 1 {
		t.Errorf("second Merge() = duration %q level %d changed %v", got.Duration, got.Level, changed)
	}
}

func TestEnrichAll_Pacing(t *testing.T) {
	pages := make(map[string]string)
	var recs []models.CourseRecord
	for i := 1; i <= 7; i++ {
		id := fmt.Sprintf("c%d", i)
		pages["https://example.com/course/"+id] = detailPage
		recs = append(recs, rec(id))
	}
	syn := rec("syn")
	syn.Synthetic = true
	recs = append(recs[:3], append([]models.CourseRecord{syn}, recs[3:]...)...)

	s := &sleeps{}
	f := &fakeFetcher{pages: pages}
	e := New(f, fakeSource{}, WithSleeper(s.sleep))

	out, n := e.EnrichAll(context.Background(), recs)
	if n != 7 || len(out) != 8 {
		t.Errorf("EnrichAll() = %d records, %d enriched", len(out), n)
	}
	if out[3].Enriched {
		t.Error("synthetic record was enriched")
	}

	want := []time.Duration{time.Second, time.Second, time.Second, time.Second, 5 * time.Second, time.Second}
	if len(s.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", s.waits, want)
	}
	for i := range want {
		if s.waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, s.waits[i], want[i])
		}
	}
}

func TestEnrichAll_CachedPagesSkipNetwork(t *testing.T) {
	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	f := &fakeFetcher{pages: map[string]string{"https://example.com/course/a": detailPage}}

	e := New(f, fakeSource{}, WithCache(cache), WithSleeper((&sleeps{}).sleep))
	e.EnrichAll(context.Background(), []models.CourseRecord{rec("a")})

	e2 := New(&fakeFetcher{}, fakeSource{}, WithCache(cache), WithSleeper((&sleeps{}).sleep))
	out, n := e2.EnrichAll(context.Background(), []models.CourseRecord{rec("a")})
	if n != 1 || out[0].Instructor != "Andrew Ng" {
		t.Errorf("cached EnrichAll() = %+v, %d", out[0], n)
	}
}

func TestEnrichAll_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{pages: map[string]string{"https://example.com/course/a": detailPage}}
	e := New(f, fakeSource{})

	out, n := e.EnrichAll(ctx, []models.CourseRecord{rec("a")})
	if n != 0 || out[0].Enriched || len(f.calls) != 0 {
		t.Errorf("EnrichAll() after cancel = %+v, %d, calls %v", out, n, f.calls)
	}
}
