package crawl

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/course-crawler/internal/common"
	"github.com/dtnitsch/course-crawler/models"
)

// CrawlAction runs one crawl. SIGINT/SIGTERM stop it between pages with
// every finished page checkpointed, so the next invocation resumes.
func CrawlAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", 2)
	}

	seed, err := common.ValidateSeed(cfg.Seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  course-crawler crawl --seed "https://example.com/courses"`)
		fmt.Fprintln(os.Stderr, `  course-crawler crawl --config crawl.yaml --no-enrich`)
		return cli.Exit("", 1)
	}
	cfg.Seed = seed

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := common.OpenStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		return cli.Exit("", 2)
	}
	defer store.Close()

	opts := []Option{WithLogger(logger)}
	if store.Runs != nil {
		opts = append(opts, WithRunRecorder(store.Runs))
	}
	p, err := New(cfg, store.Courses, opts...)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return cli.Exit("", 2)
	}

	run, runErr := p.Run(ctx)
	if runErr != nil && run.Phase != models.PhaseInterrupted {
		logger.Error("crawl failed", "phase", run.Phase, "error", runErr)
		return cli.Exit("", 2)
	}

	out, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	fmt.Print(string(out))

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "\nCrawl interrupted: %v\nRe-run the same command to resume from %s\n", runErr, cfg.Checkpoint.Dir)
		return cli.Exit("", 130)
	}
	return nil
}
