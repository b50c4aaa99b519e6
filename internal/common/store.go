package common

import (
	"context"
	"fmt"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/db"
	"github.com/dtnitsch/course-crawler/pkg/sink"
)

// CourseStore is what the crawl commits to and what the read API serves from.
// Both the sqlite and mongo stores implement it.
type CourseStore interface {
	sink.Store
	GetCourse(ctx context.Context, id string) (models.CourseRecord, error)
	ListCourses(ctx context.Context, q models.CourseQuery) ([]models.CourseRecord, int, error)
}

// OpenedStore is a configured CourseStore plus the sqlite handle that keeps
// run history. Runs is nil for the mongo driver.
type OpenedStore struct {
	Courses CourseStore
	Runs    *db.DB
	close   func() error
}

func (s *OpenedStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg models.StoreConfig) (*OpenedStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		database, err := db.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &OpenedStore{Courses: database, Runs: database, close: database.Close}, nil
	case "mongo":
		store, err := sink.OpenMongo(ctx, cfg.DSN, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return &OpenedStore{
			Courses: store,
			close:   func() error { return store.Close(context.Background()) },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
