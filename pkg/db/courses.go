package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dtnitsch/course-crawler/models"
)

// ErrNotFound is returned when no course has the requested id.
var ErrNotFound = models.ErrNotFound

const courseColumns = `id, title, provider, instructor, level, heat, trend, tags, description,
	duration, status, status_color, image_src, rarity_level, language, source_url, synthetic, enriched`

// UpsertCourses writes batch in one transaction. Each record replaces the
// row with the same id or creates it. Counts are reported per outcome.
func (db *DB) UpsertCourses(ctx context.Context, batch []models.CourseRecord) (updated, inserted int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() // Rollback error less important than the original
		}
	}()

	exists, err := tx.PrepareContext(ctx, "SELECT 1 FROM courses WHERE id = ?")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare lookup: %w", err)
	}
	defer exists.Close()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			provider = excluded.provider,
			instructor = excluded.instructor,
			level = excluded.level,
			heat = excluded.heat,
			trend = excluded.trend,
			tags = excluded.tags,
			description = excluded.description,
			duration = excluded.duration,
			status = excluded.status,
			status_color = excluded.status_color,
			image_src = excluded.image_src,
			rarity_level = excluded.rarity_level,
			language = excluded.language,
			source_url = excluded.source_url,
			synthetic = excluded.synthetic,
			enriched = excluded.enriched,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer upsert.Close()

	for _, c := range batch {
		var one int
		switch scanErr := exists.QueryRowContext(ctx, c.ID).Scan(&one); {
		case scanErr == nil:
			updated++
		case errors.Is(scanErr, sql.ErrNoRows):
			inserted++
		default:
			return 0, 0, fmt.Errorf("failed to check course %s: %w", c.ID, scanErr)
		}

		tags, jerr := json.Marshal(c.Tags)
		if jerr != nil {
			return 0, 0, fmt.Errorf("failed to encode tags for %s: %w", c.ID, jerr)
		}
		if _, err = upsert.ExecContext(ctx,
			c.ID, c.Title, c.Provider, c.Instructor, c.Level, c.Heat, c.Trend, string(tags), c.Description,
			c.Duration, string(c.Status), c.StatusColor, c.ImageSrc, string(c.RarityLevel), c.Language, c.SourceURL,
			c.Synthetic, c.Enriched,
		); err != nil {
			return 0, 0, fmt.Errorf("failed to upsert course %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return updated, inserted, nil
}

// GetCourse reads one course by id.
func (db *DB) GetCourse(ctx context.Context, id string) (models.CourseRecord, error) {
	row := db.QueryRowContext(ctx, "SELECT "+courseColumns+" FROM courses WHERE id = ?", id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CourseRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.CourseRecord{}, fmt.Errorf("failed to get course %s: %w", id, err)
	}
	return c, nil
}

// ListCourses returns one page of courses matching q and the total number of matches.
func (db *DB) ListCourses(ctx context.Context, q models.CourseQuery) ([]models.CourseRecord, int, error) {
	var where []string
	var args []any
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.Rarity != "" {
		where = append(where, "rarity_level = ?")
		args = append(args, string(q.Rarity))
	}
	if q.Level > 0 {
		where = append(where, "level = ?")
		args = append(args, q.Level)
	}
	if q.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(courses.tags) WHERE json_each.value = ?)")
		args = append(args, q.Tag)
	}
	if q.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		like := "%" + q.Search + "%"
		args = append(args, like, like)
	}
	if q.Synthetic != nil {
		where = append(where, "synthetic = ?")
		args = append(args, *q.Synthetic)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	field, desc := q.SortKey()
	order := " ORDER BY " + field
	if desc {
		order += " DESC"
	}
	order += ", id"

	query := "SELECT " + courseColumns + " FROM courses" + clause + order
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []models.CourseRecord
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate courses: %w", err)
	}
	return courses, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(s scanner) (models.CourseRecord, error) {
	var (
		c                             models.CourseRecord
		tags, status, rarity          string
		description, language, source sql.NullString
	)
	if err := s.Scan(
		&c.ID, &c.Title, &c.Provider, &c.Instructor, &c.Level, &c.Heat, &c.Trend, &tags, &description,
		&c.Duration, &status, &c.StatusColor, &c.ImageSrc, &rarity, &language, &source, &c.Synthetic, &c.Enriched,
	); err != nil {
		return models.CourseRecord{}, err
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return models.CourseRecord{}, fmt.Errorf("failed to decode tags for %s: %w", c.ID, err)
	}
	c.Description = description.String
	c.Language = language.String
	c.SourceURL = source.String
	c.Status = models.Status(status)
	c.RarityLevel = models.Rarity(rarity)
	return c, nil
}
