package db

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/course-crawler/internal/common"
	"github.com/dtnitsch/course-crawler/models"
)

func openStore(c *cli.Context) (models.Config, *common.OpenedStore, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := common.OpenStore(c.Context, cfg.Store)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, store, nil
}

// truncate shortens s to limit runes for table output.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
