// Package checkpoint persists per-page crawl progress so an interrupted run
// can resume without refetching completed pages.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/storage"
)

// ErrAlreadyWritten is returned when a page's checkpoint exists.
var ErrAlreadyWritten = errors.New("checkpoint already written")

var markerName = regexp.MustCompile(`^progress_page_(\d+)\.yaml$`)

// Store writes two artifacts per page into dir: progress_page_N.yaml (the
// marker) and courses_page_N.json (the page's records). The marker is written
// last, so a page counts as completed only once both exist.
type Store struct {
	dir string
	fs  *storage.Storage
	now func() time.Time
}

func New(dir string) *Store {
	return &Store{dir: dir, fs: &storage.Storage{}, now: time.Now}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) markerPath(page int) string {
	return filepath.Join(s.dir, fmt.Sprintf("progress_page_%d.yaml", page))
}

func (s *Store) recordsPath(page int) string {
	return filepath.Join(s.dir, fmt.Sprintf("courses_page_%d.json", page))
}

// Save writes the checkpoint for page. A page that already has a marker is
// never rewritten; ErrAlreadyWritten is returned instead.
func (s *Store) Save(page, totalPages int, records []models.CourseRecord) (models.CrawlCheckpoint, error) {
	if s.fs.HasFile(s.markerPath(page)) {
		return models.CrawlCheckpoint{}, fmt.Errorf("page %d: %w", page, ErrAlreadyWritten)
	}

	if records == nil {
		records = []models.CourseRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return models.CrawlCheckpoint{}, fmt.Errorf("failed to encode page %d records: %w", page, err)
	}
	// A records file without a marker is left over from a crash and may be replaced.
	if err := s.fs.SaveFile(s.recordsPath(page), data); err != nil {
		return models.CrawlCheckpoint{}, fmt.Errorf("failed to write page %d records: %w", page, err)
	}

	cp := models.CrawlCheckpoint{
		Page:        page,
		TotalPages:  totalPages,
		RecordCount: len(records),
		Synthetic:   allSynthetic(records),
		WrittenAt:   s.now().UTC(),
	}
	marker, err := yaml.Marshal(cp)
	if err != nil {
		return models.CrawlCheckpoint{}, fmt.Errorf("failed to encode page %d marker: %w", page, err)
	}
	if err := s.fs.CreateFile(s.markerPath(page), marker); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return models.CrawlCheckpoint{}, fmt.Errorf("page %d: %w", page, ErrAlreadyWritten)
		}
		return models.CrawlCheckpoint{}, fmt.Errorf("failed to write page %d marker: %w", page, err)
	}
	return cp, nil
}

// Damaged is a page whose checkpoint could not be read back.
type Damaged struct {
	Page int
	Err  error
}

// Checkpoints returns every completed page's marker in page order, plus the
// pages whose marker could not be decoded.
func (s *Store) Checkpoints() ([]models.CrawlCheckpoint, []Damaged, error) {
	paths, err := s.fs.Glob(s.dir, "progress_page_*.yaml")
	if err != nil {
		return nil, nil, err
	}

	var cps []models.CrawlCheckpoint
	var damaged []Damaged
	for _, p := range paths {
		m := markerName.FindStringSubmatch(filepath.Base(p))
		if m == nil {
			continue
		}
		page, _ := strconv.Atoi(m[1])
		cp, err := s.readMarker(p)
		if err != nil {
			damaged = append(damaged, Damaged{Page: page, Err: err})
			continue
		}
		cp.Page = page
		cps = append(cps, cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].Page < cps[j].Page })
	return cps, damaged, nil
}

func (s *Store) readMarker(path string) (models.CrawlCheckpoint, error) {
	var cp models.CrawlCheckpoint
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return cp, err
	}
	if err := yaml.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cp, nil
}

func (s *Store) readRecords(page int) ([]models.CourseRecord, error) {
	data, err := s.fs.ReadFile(s.recordsPath(page))
	if err != nil {
		return nil, fmt.Errorf("page %d marker has no records: %w", page, err)
	}
	var records []models.CourseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode page %d records: %w", page, err)
	}
	return records, nil
}

// LoadAll reconstructs the accumulated records of every completed page, in
// page order, along with the markers that vouched for them. A page whose
// marker or records cannot be read is reported as damaged and its marker is
// renamed aside with a ".damaged" suffix, so the page is crawled and
// checkpointed again.
func (s *Store) LoadAll() ([]models.CourseRecord, []models.CrawlCheckpoint, []Damaged, error) {
	cps, damaged, err := s.Checkpoints()
	if err != nil {
		return nil, nil, nil, err
	}

	var all []models.CourseRecord
	kept := make([]models.CrawlCheckpoint, 0, len(cps))
	for _, cp := range cps {
		records, err := s.readRecords(cp.Page)
		if err != nil {
			damaged = append(damaged, Damaged{Page: cp.Page, Err: err})
			continue
		}
		all = append(all, records...)
		kept = append(kept, cp)
	}

	for i, d := range damaged {
		if err := s.fs.Move(s.markerPath(d.Page), s.markerPath(d.Page)+".damaged"); err != nil {
			damaged[i].Err = errors.Join(d.Err, err)
		}
	}
	sort.Slice(damaged, func(i, j int) bool { return damaged[i].Page < damaged[j].Page })
	return all, kept, damaged, nil
}

// Archive moves every checkpoint artifact into the subdirectory name and
// returns its path, or "" when there was nothing to move. Markers move before
// records. Archived files are never rewritten; the next run starts at page 1.
func (s *Store) Archive(name string) (string, error) {
	dest := filepath.Join(s.dir, name)
	moved := 0
	var errs []error
	for _, pattern := range []string{"progress_page_*", "courses_page_*"} {
		paths, err := s.fs.Glob(s.dir, pattern)
		if err != nil {
			return "", err
		}
		for _, p := range paths {
			if err := s.fs.Move(p, filepath.Join(dest, filepath.Base(p))); err != nil {
				errs = append(errs, err)
				continue
			}
			moved++
		}
	}
	if moved == 0 {
		return "", errors.Join(errs...)
	}
	return dest, errors.Join(errs...)
}

func allSynthetic(records []models.CourseRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if !r.Synthetic {
			return false
		}
	}
	return true
}
