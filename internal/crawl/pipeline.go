// Package crawl runs the crawl-and-ingest state machine: discover, crawl each
// listing page, dedup, enrich, checkpoint, then commit everything.
package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/caching"
	"github.com/dtnitsch/course-crawler/pkg/checkpoint"
	"github.com/dtnitsch/course-crawler/pkg/dedup"
	"github.com/dtnitsch/course-crawler/pkg/detector"
	"github.com/dtnitsch/course-crawler/pkg/discovery"
	"github.com/dtnitsch/course-crawler/pkg/enricher"
	"github.com/dtnitsch/course-crawler/pkg/extractors"
	"github.com/dtnitsch/course-crawler/pkg/fetcher"
	"github.com/dtnitsch/course-crawler/pkg/sink"
	"github.com/dtnitsch/course-crawler/pkg/storage"
	"github.com/dtnitsch/course-crawler/pkg/synth"
)

// SummaryFile is written to the checkpoint directory at the end of every run.
const SummaryFile = "summary.yaml"

// RunRecorder stores the end-of-run summary.
type RunRecorder interface {
	InsertRun(ctx context.Context, r models.CrawlRun) error
}

// Pipeline is a single sequential crawl worker. It is not safe for
// concurrent use; one Pipeline drives one run at a time.
type Pipeline struct {
	cfg         models.Config
	fetcher     *fetcher.Fetcher
	adapter     extractors.Adapter
	discoverer  *discovery.Discoverer
	gen         *synth.Generator
	enricher    *enricher.Enricher
	checkpoints *checkpoint.Store
	sink        *sink.BatchSink
	runs        RunRecorder
	fs          *storage.Storage
	logger      *slog.Logger
	now         func() time.Time

	run models.CrawlRun
}

type options struct {
	client *http.Client
	sleep  fetcher.Sleeper
	logger *slog.Logger
	runs   RunRecorder
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*options)

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithSleeper replaces every wait in the run: retry backoff, enrichment
// pacing and the pause between sink chunks.
func WithSleeper(s fetcher.Sleeper) Option { return func(o *options) { o.sleep = s } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithRunRecorder(r RunRecorder) Option { return func(o *options) { o.runs = r } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New wires every component from cfg. store receives the final commit.
func New(cfg models.Config, store sink.Store, opts ...Option) (*Pipeline, error) {
	o := options{
		client: &http.Client{},
		sleep:  fetcher.SleepContext,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Seed == "" {
		return nil, errors.New("seed url is required")
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithClient(o.client),
		fetcher.WithHeaders(cfg.Fetch.Headers),
		fetcher.WithRetryPolicy(fetcher.RetryPolicy{Attempts: cfg.Fetch.MaxRetries, BaseDelay: cfg.Fetch.RetryDelay}),
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithSleeper(o.sleep),
		fetcher.WithLogger(o.logger),
	}
	if cfg.Fetch.RespectRobots {
		ua := cfg.Fetch.Headers["User-Agent"]
		fetchOpts = append(fetchOpts, fetcher.WithRobots(fetcher.NewRobotsChecker(o.client, ua, time.Hour)))
	}
	f := fetcher.NewFetcher(fetchOpts...)

	gen := synth.NewGenerator(cfg.Synthetic, cfg.Site.Provider, synth.NewRand(cfg.Synthetic.RandSeed),
		synth.WithClock(o.now), synth.WithIDPrefix(cfg.Site.IDPrefix))

	var catalogOpts []extractors.CatalogOption
	if len(cfg.Detector.Languages) > 0 {
		catalogOpts = append(catalogOpts, extractors.WithLanguageDetector(detector.NewLanguageDetector(cfg.Detector.Languages)))
	}
	adapter, err := extractors.NewCatalogAdapter(cfg.Seed, cfg.Site, gen, catalogOpts...)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:         cfg,
		fetcher:     f,
		adapter:     adapter,
		discoverer:  discovery.New(f, adapter.PaginationSelectors(), cfg.Site.PageParam, cfg.Discovery.DefaultPages, o.logger),
		gen:         gen,
		checkpoints: checkpoint.New(cfg.Checkpoint.Dir),
		sink: sink.New(store,
			sink.WithBatchSize(cfg.Sink.BatchSize),
			sink.WithPause(cfg.Sink.Pause),
			sink.WithSleeper(o.sleep),
			sink.WithLogger(o.logger)),
		runs:   o.runs,
		fs:     &storage.Storage{},
		logger: o.logger,
		now:    o.now,
	}

	if cfg.Enrich.Enabled {
		enrichOpts := []enricher.Option{
			enricher.WithPacing(cfg.Enrich.ItemDelay, cfg.Enrich.BatchSize, cfg.Enrich.BatchPause),
			enricher.WithSleeper(o.sleep),
			enricher.WithLogger(o.logger),
		}
		if cfg.Enrich.CacheDir != "" {
			cache, err := caching.NewCache(cfg.Enrich.CacheDir, cfg.Enrich.CacheTTL)
			if err != nil {
				return nil, fmt.Errorf("failed to open detail cache: %w", err)
			}
			enrichOpts = append(enrichOpts, enricher.WithCache(cache))
		}
		p.enricher = enricher.New(f, adapter, enrichOpts...)
	}
	return p, nil
}

// Run drives one crawl to Completed. The only early exit is ctx ending, which
// leaves the run Interrupted with every finished page checkpointed; nothing is
// committed in that case and ctx's error is returned. A completed run moves its
// checkpoints into a per-run archive so the next run crawls the source again.
func (p *Pipeline) Run(ctx context.Context) (models.CrawlRun, error) {
	p.run = models.CrawlRun{
		RunID:     uuid.NewString(),
		Seed:      p.cfg.Seed,
		Adapter:   p.adapter.Name(),
		StartedAt: p.now().UTC(),
	}

	p.enter(models.PhaseDiscovering)
	restored, cps, damaged, err := p.checkpoints.LoadAll()
	if err != nil {
		p.logger.Error("Failed to read checkpoints, crawling from page 1", "dir", p.checkpoints.Dir(), "error", err)
	}
	for _, d := range damaged {
		p.logger.Warn("Damaged checkpoint, page will be crawled again", "page", d.Page, "error", d.Err)
	}
	completed := make([]int, 0, len(cps))
	for _, cp := range cps {
		completed = append(completed, cp.Page)
	}
	if len(cps) > 0 {
		p.logger.Info("Resuming from checkpoints", "pages", len(cps), "records", len(restored))
	}

	total := p.discoverer.DiscoverPageCount(ctx, p.cfg.Seed)
	if p.cfg.MaxPages > 0 && total > p.cfg.MaxPages {
		total = p.cfg.MaxPages
	}
	p.run.PagesTotal = total

	state := models.NewCrawlState(restored, completed)
	state.TotalPages = total
	seen := dedup.New(p.cfg.Dedup.SimilarityThreshold)
	seen.Seed(restored)

	for page := 1; page <= total; page++ {
		if state.Completed[page] {
			p.run.PagesResumed++
			continue
		}
		next, err := p.processPage(ctx, state, seen, page)
		if err != nil {
			return p.interrupt(state, err)
		}
		state = next
	}

	return p.commit(ctx, state)
}

// processPage runs one page through fetch, extract or synthesize, dedup,
// enrich and checkpoint, and returns the state with the page's survivors.
func (p *Pipeline) processPage(ctx context.Context, state models.CrawlState, seen *dedup.Deduplicator, page int) (models.CrawlState, error) {
	pageURL := p.adapter.ListingURL(page)
	p.enter(models.PhaseCrawlingPage, "page", page, "url", pageURL)

	var candidates []models.CourseRecord
	doc, err := p.fetcher.GetHtml(ctx, pageURL)
	switch {
	case ctx.Err() != nil:
		return state, ctx.Err()
	case err != nil:
		p.enter(models.PhaseSyntheticFallback, "page", page, "error", err)
		candidates = p.gen.Generate(page, p.cfg.Synthetic.BatchSize)
		p.run.PagesSynthetic++
		p.run.Synthesized += len(candidates)
	default:
		p.enter(models.PhaseExtracting, "page", page)
		candidates = p.adapter.ExtractListing(doc, page)
		p.run.PagesFetched++
		p.run.Extracted += len(candidates)
	}

	p.enter(models.PhaseDeduplicating, "page", page, "candidates", len(candidates))
	kept := make([]models.CourseRecord, 0, len(candidates))
	for _, c := range candidates {
		ok, reason := seen.Accept(c)
		if !ok {
			p.run.Deduplicated++
			p.logger.Warn("Duplicate discarded", "page", page, "id", c.ID, "title", c.Title, "reason", reason)
			continue
		}
		kept = append(kept, c)
	}

	if p.enricher != nil {
		p.enter(models.PhaseEnriching, "page", page, "records", len(kept))
		var n int
		kept, n = p.enricher.EnrichAll(ctx, kept)
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		p.run.Enriched += n
	}

	p.enter(models.PhaseCheckpointing, "page", page, "records", len(kept))
	if _, err := p.checkpoints.Save(page, state.TotalPages, kept); err != nil {
		p.logger.Error("Checkpoint write failed", "page", page, "error", err)
	}

	return state.WithPage(page, kept), nil
}

func (p *Pipeline) commit(ctx context.Context, state models.CrawlState) (models.CrawlRun, error) {
	p.run.Total = len(state.Records)

	if file := p.cfg.Output.File; file != "" {
		if err := p.writeArtifact(file, state.Records); err != nil {
			p.logger.Error("Failed to write final artifact", "file", file, "error", err)
		} else {
			p.run.OutputFile = file
		}
	}

	p.enter(models.PhaseCommitting, "records", len(state.Records))
	res, err := p.sink.Commit(ctx, state.Records)
	p.run.Inserted = res.Inserted
	p.run.Updated = res.Updated
	p.run.Invalid = res.Invalid
	p.run.FailedChunks = res.FailedChunks
	if err != nil {
		p.logger.Error("Commit finished with failed chunks", "failed_chunks", res.FailedChunks, "error", err)
	}

	p.enter(models.PhaseCompleted)
	archive, err := p.checkpoints.Archive("run-" + p.run.RunID)
	if err != nil {
		p.logger.Error("Failed to archive checkpoints", "dir", p.checkpoints.Dir(), "error", err)
	}
	p.run.CheckpointArchive = archive
	p.finish(ctx)
	return p.run, nil
}

func (p *Pipeline) interrupt(state models.CrawlState, cause error) (models.CrawlRun, error) {
	p.run.Total = len(state.Records)
	p.enter(models.PhaseInterrupted, "pages_completed", len(state.Completed), "error", cause)
	p.finish(context.Background())
	return p.run, cause
}

// finish stamps the run and writes its summary. Neither write can fail the run.
func (p *Pipeline) finish(ctx context.Context) {
	p.run.EndedAt = p.now().UTC()

	data, err := yaml.Marshal(p.run)
	if err == nil {
		err = p.fs.SaveFile(filepath.Join(p.checkpoints.Dir(), SummaryFile), data)
	}
	if err != nil {
		p.logger.Error("Failed to write run summary", "error", err)
	}

	if p.runs != nil {
		if err := p.runs.InsertRun(ctx, p.run); err != nil {
			p.logger.Error("Failed to record run", "run_id", p.run.RunID, "error", err)
		}
	}

	p.logger.Info("Crawl summary",
		"run_id", p.run.RunID,
		"phase", p.run.Phase,
		"pages", p.run.PagesTotal,
		"fetched", p.run.PagesFetched,
		"synthetic_pages", p.run.PagesSynthetic,
		"resumed", p.run.PagesResumed,
		"extracted", p.run.Extracted,
		"synthesized", p.run.Synthesized,
		"deduplicated", p.run.Deduplicated,
		"enriched", p.run.Enriched,
		"inserted", p.run.Inserted,
		"updated", p.run.Updated,
		"failed_chunks", p.run.FailedChunks,
	)
}

func (p *Pipeline) writeArtifact(file string, records []models.CourseRecord) error {
	if records == nil {
		records = []models.CourseRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return p.fs.SaveFile(file, data)
}

func (p *Pipeline) enter(phase models.Phase, attrs ...any) {
	p.run.Phase = phase
	p.logger.Info("Phase transition", append([]any{"phase", phase}, attrs...)...)
}
