// Package synth fabricates schema-valid course fields and whole records for
// the pieces of a crawl the source could not supply.
package synth

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/dtnitsch/course-crawler/models"
)

// PlaceholderImage is the image URL template; %s is a url-escaped seed.
const PlaceholderImage = "https://picsum.photos/seed/%s/400/225"

type topic struct {
	name string
	tags []string
}

var topics = []topic{
	{"Machine Learning", []string{"AI", "Data Science"}},
	{"Web Development", []string{"Web", "Frontend"}},
	{"Distributed Systems", []string{"Backend", "Cloud"}},
	{"Data Analysis with Python", []string{"Python", "Data Science"}},
	{"Computer Networks", []string{"Networking", "Computer Science"}},
	{"Product Design", []string{"Design", "UX"}},
	{"Financial Accounting", []string{"Finance", "Business"}},
	{"Linear Algebra", []string{"Math", "Computer Science"}},
	{"Mobile App Development", []string{"Mobile", "Programming"}},
	{"Cybersecurity Fundamentals", []string{"Security", "Networking"}},
	{"Deep Learning", []string{"AI", "Neural Networks"}},
	{"Database Systems", []string{"Database", "Backend"}},
}

var prefixes = []string{"Introduction to", "Practical", "Applied", "Advanced", "Foundations of", "Modern"}

// Generator draws every value from an injected random source so runs can be
// reproduced by seeding it.
type Generator struct {
	cfg      models.SyntheticConfig
	provider string
	idPrefix string
	rng      *rand.Rand
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now for id generation.
func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }

// WithIDPrefix sets the source prefix put in front of generated ids.
func WithIDPrefix(prefix string) Option { return func(g *Generator) { g.idPrefix = prefix } }

func NewGenerator(cfg models.SyntheticConfig, provider string, rng *rand.Rand, opts ...Option) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	g := &Generator{
		cfg:      cfg,
		provider: provider,
		rng:      rng,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewRand returns a seeded source; seed 0 means seed from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

// Heat is a popularity score in [HeatMin, HeatMax].
func (g *Generator) Heat() int {
	return g.between(g.cfg.HeatMin, g.cfg.HeatMax)
}

// HeatRange is the configured [min, max] heat bounds.
func (g *Generator) HeatRange() (int, int) {
	return g.cfg.HeatMin, g.cfg.HeatMax
}

// Trend is "+N%" with N in [TrendMin, TrendMax].
func (g *Generator) Trend() string {
	return fmt.Sprintf("+%d%%", g.between(g.cfg.TrendMin, g.cfg.TrendMax))
}

// Rarity draws a tier using RarityWeights (common, rare, epic, legendary).
func (g *Generator) Rarity() models.Rarity {
	total := 0
	for _, w := range g.cfg.RarityWeights {
		total += max(w, 0)
	}
	if total == 0 {
		return models.RarityCommon
	}
	n := g.rng.IntN(total)
	for i, w := range g.cfg.RarityWeights {
		if i >= len(models.Rarities) {
			break
		}
		if n < max(w, 0) {
			return models.Rarities[i]
		}
		n -= max(w, 0)
	}
	return models.RarityCommon
}

// Status picks a status uniformly.
func (g *Generator) Status() models.Status {
	return models.Statuses[g.rng.IntN(len(models.Statuses))]
}

func (g *Generator) Level() int {
	return g.between(1, 5)
}

// Duration is "N周" with N between 4 and 16 weeks.
func (g *Generator) Duration() string {
	return fmt.Sprintf("%d周", g.between(4, 16))
}

// Instructor is the deterministic placeholder for record n.
func Instructor(n int) string {
	return fmt.Sprintf("Instructor #%d", n)
}

// Image returns a placeholder image URL keyed by seed.
func Image(seed string) string {
	return fmt.Sprintf(PlaceholderImage, url.PathEscape(seed))
}

// ID is prefix + "<unix millis>_<8 random hex digits>".
func (g *Generator) ID() string {
	return fmt.Sprintf("%s%d_%08x", g.idPrefix, g.now().UnixMilli(), g.rng.Uint32())
}

// Record builds one complete fabricated record. n numbers the placeholder instructor.
func (g *Generator) Record(n int) models.CourseRecord {
	t := topics[g.rng.IntN(len(topics))]
	title := fmt.Sprintf("%s %s", prefixes[g.rng.IntN(len(prefixes))], t.name)
	status := g.Status()
	id := g.ID()

	return models.CourseRecord{
		ID:          id,
		Title:       title,
		Provider:    g.provider,
		Instructor:  Instructor(n),
		Level:       g.Level(),
		Heat:        g.Heat(),
		Trend:       g.Trend(),
		Tags:        append([]string(nil), t.tags...),
		Description: fmt.Sprintf("A self-paced course on %s.", t.name),
		Duration:    g.Duration(),
		Status:      status,
		StatusColor: status.Color(),
		ImageSrc:    Image(id),
		RarityLevel: g.Rarity(),
		Synthetic:   true,

		Placeholders: models.FieldDuration | models.FieldLevel,
	}
}

// Generate fabricates n records for page. Instructor numbers continue across
// pages so placeholders stay distinct within a run.
func (g *Generator) Generate(page, n int) []models.CourseRecord {
	records := make([]models.CourseRecord, 0, n)
	base := (page - 1) * n
	for i := 1; i <= n; i++ {
		records = append(records, g.Record(base+i))
	}
	return records
}
