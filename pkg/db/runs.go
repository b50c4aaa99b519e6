package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dtnitsch/course-crawler/models"
)

const runColumns = `run_id, seed, adapter, phase, started_at, ended_at,
	pages_total, pages_fetched, pages_synthetic, pages_resumed,
	extracted, synthesized, deduplicated, enriched, invalid, total,
	inserted, updated, failed_chunks, output_file`

// InsertRun stores a run summary, replacing an earlier row with the same id.
func (db *DB) InsertRun(ctx context.Context, r models.CrawlRun) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO crawl_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.Seed, r.Adapter, string(r.Phase), r.StartedAt.UTC(), r.EndedAt.UTC(),
		r.PagesTotal, r.PagesFetched, r.PagesSynthetic, r.PagesResumed,
		r.Extracted, r.Synthesized, r.Deduplicated, r.Enriched, r.Invalid, r.Total,
		r.Inserted, r.Updated, r.FailedChunks, r.OutputFile,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, "SELECT "+runColumns+" FROM crawl_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CrawlRun
	for rows.Next() {
		var (
			r       models.CrawlRun
			phase   string
			adapter sql.NullString
			output  sql.NullString
			ended   sql.NullTime
		)
		if err := rows.Scan(
			&r.RunID, &r.Seed, &adapter, &phase, &r.StartedAt, &ended,
			&r.PagesTotal, &r.PagesFetched, &r.PagesSynthetic, &r.PagesResumed,
			&r.Extracted, &r.Synthesized, &r.Deduplicated, &r.Enriched, &r.Invalid, &r.Total,
			&r.Inserted, &r.Updated, &r.FailedChunks, &output,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Phase = models.Phase(phase)
		r.Adapter = adapter.String
		r.OutputFile = output.String
		if ended.Valid {
			r.EndedAt = ended.Time
		} else {
			r.EndedAt = time.Time{}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
