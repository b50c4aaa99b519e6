// Package models defines data structures for configuration, crawl state and course records.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a crawl run. Values come from an optional
// YAML file layered over DefaultConfig, then from CLI flags.
type Config struct {
	Seed       string           `yaml:"seed"`
	MaxPages   int              `yaml:"max_pages"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Synthetic  SyntheticConfig  `yaml:"synthetic"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Enrich     EnrichConfig     `yaml:"enrich"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Sink       SinkConfig       `yaml:"sink"`
	Store      StoreConfig      `yaml:"store"`
	Output     OutputConfig     `yaml:"output"`
	Detector   DetectorConfig   `yaml:"detector"`
	Site       SiteConfig       `yaml:"site"`
}

// FetchConfig controls the rate-limited fetch client.
type FetchConfig struct {
	MaxRetries    int               `yaml:"max_retries"`
	Timeout       time.Duration     `yaml:"timeout"`
	RetryDelay    time.Duration     `yaml:"retry_delay"`
	Headers       map[string]string `yaml:"headers"`
	RespectRobots bool              `yaml:"respect_robots"`
}

type DiscoveryConfig struct {
	DefaultPages int `yaml:"default_pages"`
}

// SyntheticConfig bounds the values fabricated for unscrapable fields.
// RarityWeights are relative weights for common, rare, epic, legendary.
type SyntheticConfig struct {
	BatchSize     int   `yaml:"batch_size"`
	HeatMin       int   `yaml:"heat_min"`
	HeatMax       int   `yaml:"heat_max"`
	TrendMin      int   `yaml:"trend_min"`
	TrendMax      int   `yaml:"trend_max"`
	RarityWeights []int `yaml:"rarity_weights"`
	RandSeed      int64 `yaml:"rand_seed"`
}

type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

type EnrichConfig struct {
	Enabled    bool          `yaml:"enabled"`
	ItemDelay  time.Duration `yaml:"item_delay"`
	BatchSize  int           `yaml:"batch_size"`
	BatchPause time.Duration `yaml:"batch_pause"`
	CacheDir   string        `yaml:"cache_dir"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type CheckpointConfig struct {
	Dir string `yaml:"dir"`
}

type SinkConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Pause     time.Duration `yaml:"pause"`
}

// StoreConfig selects the document store behind the batch sink.
// Driver is "sqlite" or "mongo".
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type OutputConfig struct {
	File string `yaml:"file"`
}

type DetectorConfig struct {
	Languages []string `yaml:"languages"`
}

// SiteConfig isolates the site-specific scraping rules. Every selector list
// is an ordered fallback chain; the first selector that matches wins.
type SiteConfig struct {
	Name                string          `yaml:"name"`
	Provider            string          `yaml:"provider"`
	IDPrefix            string          `yaml:"id_prefix"`
	PageParam           string          `yaml:"page_param"`
	DetailPath          string          `yaml:"detail_path"`
	CardSelectors       []string        `yaml:"card_selectors"`
	PaginationSelectors []string        `yaml:"pagination_selectors"`
	Fields              FieldSelectors  `yaml:"fields"`
	Detail              DetailSelectors `yaml:"detail"`
}

type FieldSelectors struct {
	Title       []string `yaml:"title"`
	Instructor  []string `yaml:"instructor"`
	Description []string `yaml:"description"`
	Image       []string `yaml:"image"`
	Level       []string `yaml:"level"`
	Duration    []string `yaml:"duration"`
	Enrollment  []string `yaml:"enrollment"`
	Link        []string `yaml:"link"`
}

type DetailSelectors struct {
	Instructor  []string `yaml:"instructor"`
	Description []string `yaml:"description"`
	Chapters    []string `yaml:"chapters"`
	Level       []string `yaml:"level"`
}

// DefaultHeaders is the request header set sent with every fetch.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	}
}

// DefaultSiteConfig returns the generic catalog rules used when no site block is configured.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Name:       "generic",
		Provider:   "Open Course Catalog",
		IDPrefix:   "course_",
		PageParam:  "page",
		DetailPath: "/course/{id}",
		CardSelectors: []string{
			".course-card",
			".course-item",
			".course-list .item",
			"li[class*='course']",
			"div[class*='course']",
		},
		PaginationSelectors: []string{
			".pagination a",
			".pager a",
			".page-nav a",
			"a[href*='page=']",
			"[class*='page'] a",
		},
		Fields: FieldSelectors{
			Title:       []string{".course-title", "h3", "h2", "h4", ".title", "[class*='title']"},
			Instructor:  []string{".instructor", ".teacher", ".author", "[class*='teacher']"},
			Description: []string{".course-desc", ".description", ".desc", "p"},
			Image:       []string{"img"},
			Level:       []string{".level", ".difficulty", "[class*='level']"},
			Duration:    []string{".duration", ".weeks", "[class*='duration']"},
			Enrollment:  []string{".learners", ".enrollment", ".students", "[class*='learn']"},
			Link:        []string{"a.course-link", "a[href*='course']", "a[href]"},
		},
		Detail: DetailSelectors{
			Instructor:  []string{".teacher-name", ".instructor-name", ".instructor", ".teacher"},
			Description: []string{".course-intro", ".course-description", ".description", "meta[name='description']"},
			Chapters:    []string{".chapter", ".chapter-item", ".lesson", "[class*='chapter']"},
			Level:       []string{".course-level", ".difficulty", ".level"},
		},
	}
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			MaxRetries: 3,
			Timeout:    10 * time.Second,
			RetryDelay: 3 * time.Second,
			Headers:    DefaultHeaders(),
		},
		Discovery: DiscoveryConfig{DefaultPages: 5},
		Synthetic: SyntheticConfig{
			BatchSize:     50,
			HeatMin:       70,
			HeatMax:       100,
			TrendMin:      20,
			TrendMax:      80,
			RarityWeights: []int{60, 25, 10, 5},
		},
		Dedup: DedupConfig{SimilarityThreshold: 0.8},
		Enrich: EnrichConfig{
			Enabled:    true,
			ItemDelay:  time.Second,
			BatchSize:  5,
			BatchPause: 5 * time.Second,
			CacheTTL:   24 * time.Hour,
		},
		Checkpoint: CheckpointConfig{Dir: "crawl-progress"},
		Sink:       SinkConfig{BatchSize: 500, Pause: 500 * time.Millisecond},
		Store: StoreConfig{
			Driver:     "sqlite",
			DSN:        "course-crawler.db",
			Database:   "courses",
			Collection: "courses",
		},
		Output:   OutputConfig{File: "courses.json"},
		Detector: DetectorConfig{Languages: []string{"en", "zh", "ja", "ko", "es", "fr", "de"}},
		Site:     DefaultSiteConfig(),
	}
}

// LoadConfig layers the YAML file at path over DefaultConfig.
// A missing file is not an error; the defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Fetch.MaxRetries < 1 {
		errs = append(errs, errors.New("fetch.max_retries must be at least 1"))
	}
	if c.Synthetic.HeatMin < 0 || c.Synthetic.HeatMax > 100 || c.Synthetic.HeatMin > c.Synthetic.HeatMax {
		errs = append(errs, fmt.Errorf("synthetic heat range [%d,%d] must sit inside [0,100]", c.Synthetic.HeatMin, c.Synthetic.HeatMax))
	}
	if c.Synthetic.TrendMin > c.Synthetic.TrendMax {
		errs = append(errs, errors.New("synthetic.trend_min exceeds trend_max"))
	}
	if len(c.Synthetic.RarityWeights) != len(Rarities) {
		errs = append(errs, fmt.Errorf("synthetic.rarity_weights needs %d entries", len(Rarities)))
	}
	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("dedup.similarity_threshold must be in (0,1]"))
	}
	if c.Sink.BatchSize < 1 {
		errs = append(errs, errors.New("sink.batch_size must be at least 1"))
	}
	switch c.Store.Driver {
	case "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}
