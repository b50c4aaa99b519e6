// Package sink commits validated course records to a document store in
// bounded, independently committed chunks.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/fetcher"
)

const (
	DefaultBatchSize = 500
	DefaultPause     = 500 * time.Millisecond
)

// Store upserts a chunk of records by id: full-document replace, created if
// absent. A chunk either commits whole or not at all.
type Store interface {
	UpsertCourses(ctx context.Context, batch []models.CourseRecord) (updated, inserted int, err error)
}

// Result counts what a Commit did.
type Result struct {
	Updated      int
	Inserted     int
	Invalid      int
	Chunks       int
	FailedChunks int
}

type BatchSink struct {
	store     Store
	batchSize int
	pause     time.Duration
	sleep     fetcher.Sleeper
	logger    *slog.Logger
}

// Option configures a BatchSink.
type Option func(*BatchSink)

func WithBatchSize(n int) Option { return func(s *BatchSink) { s.batchSize = n } }

func WithPause(d time.Duration) Option { return func(s *BatchSink) { s.pause = d } }

func WithSleeper(sl fetcher.Sleeper) Option { return func(s *BatchSink) { s.sleep = sl } }

func WithLogger(l *slog.Logger) Option { return func(s *BatchSink) { s.logger = l } }

func New(store Store, opts ...Option) *BatchSink {
	s := &BatchSink{
		store:     store,
		batchSize: DefaultBatchSize,
		pause:     DefaultPause,
		sleep:     fetcher.SleepContext,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.batchSize < 1 {
		s.batchSize = DefaultBatchSize
	}
	return s
}

// Commit validates records, then upserts them chunk by chunk. A failed chunk
// is logged with its index and does not stop later chunks or undo earlier
// ones; the returned error joins every chunk failure. Records that fail
// validation are dropped before any chunk is built.
func (s *BatchSink) Commit(ctx context.Context, records []models.CourseRecord) (Result, error) {
	var res Result

	valid := make([]models.CourseRecord, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			res.Invalid++
			s.logger.Warn("Dropping incomplete record", "id", r.ID, "error", err)
			continue
		}
		valid = append(valid, r)
	}

	var errs []error
	for start, batch := 0, 0; start < len(valid); start, batch = start+s.batchSize, batch+1 {
		if batch > 0 && s.pause > 0 {
			if err := s.sleep(ctx, s.pause); err != nil {
				return res, errors.Join(append(errs, err)...)
			}
		}

		end := min(start+s.batchSize, len(valid))
		chunk := valid[start:end]
		res.Chunks++

		updated, inserted, err := s.store.UpsertCourses(ctx, chunk)
		if err != nil {
			res.FailedChunks++
			s.logger.Error("Batch commit failed", "batch", batch, "size", len(chunk), "first_id", chunk[0].ID, "error", err)
			errs = append(errs, fmt.Errorf("batch %d: %w", batch, err))
			continue
		}
		res.Updated += updated
		res.Inserted += inserted
		s.logger.Info("Batch committed", "batch", batch, "size", len(chunk), "updated", updated, "inserted", inserted)
	}

	return res, errors.Join(errs...)
}
