package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/course-crawler/internal/crawl"
	"github.com/dtnitsch/course-crawler/internal/db"
	"github.com/dtnitsch/course-crawler/internal/serve"
)

func main() {
	app := &cli.App{
		Name:  "course-crawler",
		Usage: "Crawl a paginated course catalog into a document store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file layered over the defaults",
				EnvVars: []string{"COURSE_CRAWLER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Store driver: sqlite or mongo",
				EnvVars: []string{"COURSE_CRAWLER_STORE"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "sqlite file path or mongo URI",
				EnvVars: []string{"COURSE_CRAWLER_DSN"},
			},
			&cli.StringFlag{
				Name:    "checkpoint-dir",
				Usage:   "Directory holding per-page progress markers",
				EnvVars: []string{"COURSE_CRAWLER_CHECKPOINT_DIR"},
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug detail",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "crawl",
				Usage:  "Discover, crawl, dedup, enrich, checkpoint and commit one catalog",
				Action: crawl.CrawlAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "seed",
						Aliases: []string{"s"},
						Usage:   "Seed listing URL (page 1 of the catalog)",
						EnvVars: []string{"COURSE_CRAWLER_SEED"},
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Stop after this many listing pages (0 = all discovered)",
					},
					&cli.BoolFlag{
						Name:    "no-enrich",
						Usage:   "Skip the detail-page enrichment pass",
						EnvVars: []string{"COURSE_CRAWLER_NO_ENRICH"},
					},
					&cli.Int64Flag{
						Name:    "seed-rand",
						Usage:   "Seed for synthetic data (0 = clock)",
						EnvVars: []string{"COURSE_CRAWLER_SEED_RAND"},
					},
					&cli.BoolFlag{
						Name:  "respect-robots",
						Usage: "Honor the site's robots.txt",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Final JSON artifact path",
					},
					&cli.StringFlag{
						Name:  "cache-dir",
						Usage: "Cache detail pages on disk",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve stored courses over a read-only JSON API",
				Action: serve.ServeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Value:   ":8080",
						Usage:   "Listen address",
						EnvVars: []string{"COURSE_CRAWLER_ADDR"},
					},
				},
			},
			{
				Name:  "db",
				Usage: "Inspect stored courses, runs and checkpoints",
				Subcommands: []*cli.Command{
					{
						Name:   "courses",
						Usage:  "List stored courses",
						Action: db.CoursesAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "status", Usage: "Filter by status"},
							&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
							&cli.StringFlag{Name: "search", Usage: "Match title or description"},
							&cli.IntFlag{Name: "level", Usage: "Filter by level 1-5"},
							&cli.StringFlag{Name: "sort", Value: "-heat", Usage: "Sort field, '-' prefix for descending"},
							&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum rows"},
							&cli.BoolFlag{Name: "synthetic-only", Usage: "Only fabricated records"},
						},
					},
					{
						Name:      "course",
						Usage:     "Show one course",
						ArgsUsage: "<id>",
						Action:    db.CourseAction,
					},
					{
						Name:   "runs",
						Usage:  "List crawl runs",
						Action: db.RunsAction,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum rows"},
						},
					},
					{
						Name:   "checkpoints",
						Usage:  "List completed pages a resumed crawl will skip",
						Action: db.CheckpointsAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
