package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/course-crawler/models"
)

func records(ids ...string) []models.CourseRecord {
	var out []models.CourseRecord
	for _, id := range ids {
		out = append(out, models.CourseRecord{ID: id, Title: "Course " + id, Tags: []string{"a", "b"}})
	}
	return out
}

func TestStore_SaveAndLoadAll(t *testing.T) {
	s := New(t.TempDir())
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	if _, err := s.Save(2, 5, records("c", "d")); err != nil {
		t.Fatalf("Save(2) failed: %v", err)
	}
	cp, err := s.Save(1, 5, records("a", "b"))
	if err != nil {
		t.Fatalf("Save(1) failed: %v", err)
	}
	if cp.Page != 1 || cp.TotalPages != 5 || cp.RecordCount != 2 || cp.Synthetic {
		t.Errorf("checkpoint = %+v", cp)
	}

	all, cps, _, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(cps) != 2 || cps[0].Page != 1 || cps[1].Page != 2 {
		t.Errorf("checkpoints = %+v", cps)
	}
	if !cps[0].WrittenAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("WrittenAt = %v", cps[0].WrittenAt)
	}
	var ids []string
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	if len(ids) != 4 || ids[0] != "a" || ids[3] != "d" {
		t.Errorf("LoadAll() ids = %v, want page order a b c d", ids)
	}
}

func TestStore_NeverRewritesAPage(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if _, err := s.Save(1, 3, records("a")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	_, err := s.Save(1, 3, records("z"))
	if !errors.Is(err, ErrAlreadyWritten) {
		t.Fatalf("second Save() error = %v, want ErrAlreadyWritten", err)
	}

	all, _, _, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != "a" {
		t.Errorf("records after rejected rewrite = %+v", all)
	}
}

func TestStore_IgnoresRecordsWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := os.WriteFile(filepath.Join(dir, "courses_page_4.json"), []byte(`[{"id":"orphan"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	all, cps, _, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(all) != 0 || len(cps) != 0 {
		t.Errorf("LoadAll() = %d records, %d checkpoints; want none", len(all), len(cps))
	}

	// The leftover is replaced when page 4 is finally checkpointed.
	if _, err := s.Save(4, 4, records("fresh")); err != nil {
		t.Fatalf("Save() over leftover failed: %v", err)
	}
	all, _, _, _ = s.LoadAll()
	if len(all) != 1 || all[0].ID != "fresh" {
		t.Errorf("records = %+v", all)
	}
}

func TestStore_SyntheticFlagAndEmptyPage(t *testing.T) {
	s := New(t.TempDir())
	syn := records("s1", "s2")
	for i := range syn {
		syn[i].Synthetic = true
	}
	cp, err := s.Save(1, 2, syn)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !cp.Synthetic {
		t.Error("Synthetic = false for an all-synthetic page")
	}

	cp, err = s.Save(2, 2, nil)
	if err != nil {
		t.Fatalf("Save(empty) failed: %v", err)
	}
	if cp.RecordCount != 0 || cp.Synthetic {
		t.Errorf("empty checkpoint = %+v", cp)
	}
	all, cps, _, err := s.LoadAll()
	if err != nil || len(all) != 2 || len(cps) != 2 {
		t.Errorf("LoadAll() = %d records, %d checkpoints, %v", len(all), len(cps), err)
	}
}

func TestStore_EmptyDirectory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))
	all, cps, _, err := s.LoadAll()
	if err != nil || len(all) != 0 || len(cps) != 0 {
		t.Errorf("LoadAll() on missing dir = %v, %v, %v", all, cps, err)
	}
}

func TestStore_LoadAllSkipsDamagedPages(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	for page, id := range map[int]string{1: "a", 2: "b", 3: "c"} {
		if _, err := s.Save(page, 3, records(id)); err != nil {
			t.Fatalf("Save(%d) failed: %v", page, err)
		}
	}
	// page 1: marker unreadable, page 3: records gone
	if err := os.WriteFile(filepath.Join(dir, "progress_page_1.yaml"), []byte("page: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "courses_page_3.json")); err != nil {
		t.Fatal(err)
	}

	all, cps, damaged, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != "b" || len(cps) != 1 || cps[0].Page != 2 {
		t.Errorf("LoadAll() = %+v, %+v; want only page 2", all, cps)
	}
	if len(damaged) != 2 || damaged[0].Page != 1 || damaged[1].Page != 3 {
		t.Fatalf("damaged = %+v, want pages 1 and 3", damaged)
	}
	for _, d := range damaged {
		if d.Err == nil {
			t.Errorf("damaged page %d has no error", d.Page)
		}
	}

	// The damaged pages can be checkpointed again.
	for _, page := range []int{1, 3} {
		if _, err := s.Save(page, 3, records(fmt.Sprintf("again%d", page))); err != nil {
			t.Errorf("Save(%d) after damage failed: %v", page, err)
		}
		if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("progress_page_%d.yaml.damaged", page))); err != nil {
			t.Errorf("page %d marker was not set aside: %v", page, err)
		}
	}
	all, cps, damaged, err = s.LoadAll()
	if err != nil || len(all) != 3 || len(cps) != 3 || len(damaged) != 0 {
		t.Errorf("LoadAll() after recrawl = %d records, %d checkpoints, %v damaged, %v", len(all), len(cps), damaged, err)
	}
}

func TestStore_ArchiveStartsTheNextRunFresh(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	for _, page := range []int{1, 2} {
		if _, err := s.Save(page, 2, records(fmt.Sprintf("p%d", page))); err != nil {
			t.Fatalf("Save(%d) failed: %v", page, err)
		}
	}

	archive, err := s.Archive("run-1")
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}
	if archive != filepath.Join(dir, "run-1") {
		t.Errorf("Archive() = %q", archive)
	}

	all, cps, _, err := s.LoadAll()
	if err != nil || len(all) != 0 || len(cps) != 0 {
		t.Errorf("LoadAll() after archive = %d records, %d checkpoints, %v", len(all), len(cps), err)
	}
	archived, _, _, err := New(archive).LoadAll()
	if err != nil || len(archived) != 2 {
		t.Errorf("archived LoadAll() = %d records, %v", len(archived), err)
	}

	if _, err := s.Save(1, 2, records("fresh")); err != nil {
		t.Errorf("Save(1) after archive failed: %v", err)
	}

	empty := New(filepath.Join(t.TempDir(), "none"))
	if got, err := empty.Archive("run-2"); got != "" || err != nil {
		t.Errorf("Archive() on empty dir = %q, %v", got, err)
	}
}
