package common

import (
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/course-crawler/models"
)

// LoadConfig reads --config (if any) over the defaults, then applies every
// flag the user actually set. Flags that a command does not define are
// never set and leave the file values alone.
func LoadConfig(c *cli.Context) (models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("seed") {
		cfg.Seed = c.String("seed")
	}
	if c.IsSet("max-pages") {
		cfg.MaxPages = c.Int("max-pages")
	}
	if c.Bool("no-enrich") {
		cfg.Enrich.Enabled = false
	}
	if c.IsSet("seed-rand") {
		cfg.Synthetic.RandSeed = c.Int64("seed-rand")
	}
	if c.IsSet("respect-robots") {
		cfg.Fetch.RespectRobots = c.Bool("respect-robots")
	}
	if c.IsSet("checkpoint-dir") {
		cfg.Checkpoint.Dir = c.String("checkpoint-dir")
	}
	if c.IsSet("output") {
		cfg.Output.File = c.String("output")
	}
	if c.IsSet("cache-dir") {
		cfg.Enrich.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("store") {
		cfg.Store.Driver = c.String("store")
	}
	if c.IsSet("dsn") {
		cfg.Store.DSN = c.String("dsn")
	}

	return cfg, cfg.Validate()
}
