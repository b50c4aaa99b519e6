package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCreateFile_NeverOverwrites(t *testing.T) {
	s := &Storage{}
	path := filepath.Join(t.TempDir(), "nested", "marker.yaml")

	if err := s.CreateFile(path, []byte("first")); err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	if err := s.CreateFile(path, []byte("second")); !errors.Is(err, ErrExists) {
		t.Fatalf("second CreateFile() error = %v, want ErrExists", err)
	}

	data, err := s.ReadFile(path)
	if err != nil || string(data) != "first" {
		t.Errorf("ReadFile() = %q, %v; want first", data, err)
	}
}

func TestSaveFile_ReplacesAndGlobs(t *testing.T) {
	s := &Storage{}
	dir := t.TempDir()

	for _, name := range []string{"a.json", "b.json", "c.yaml"} {
		if err := s.SaveFile(filepath.Join(dir, name), []byte("x")); err != nil {
			t.Fatalf("SaveFile(%s) failed: %v", name, err)
		}
	}
	if err := s.SaveFile(filepath.Join(dir, "a.json"), []byte("y")); err != nil {
		t.Fatalf("SaveFile() replace failed: %v", err)
	}
	if data, _ := s.ReadFile(filepath.Join(dir, "a.json")); string(data) != "y" {
		t.Errorf("a.json = %q, want y", data)
	}

	matches, err := s.Glob(dir, "*.json")
	if err != nil || len(matches) != 2 {
		t.Errorf("Glob() = %v, %v; want 2 matches", matches, err)
	}
	if !s.HasFile(filepath.Join(dir, "c.yaml")) || s.HasFile(filepath.Join(dir, "d.yaml")) {
		t.Error("HasFile() wrong")
	}
}

func TestMove_CreatesTargetDirectory(t *testing.T) {
	s := &Storage{}
	dir := t.TempDir()
	from := filepath.Join(dir, "progress_page_1.yaml")
	to := filepath.Join(dir, "run-1", "progress_page_1.yaml")

	if err := s.CreateFile(from, []byte("page: 1")); err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	if err := s.Move(from, to); err != nil {
		t.Fatalf("Move() failed: %v", err)
	}
	if s.HasFile(from) {
		t.Error("source still present after Move()")
	}
	if data, err := s.ReadFile(to); err != nil || string(data) != "page: 1" {
		t.Errorf("moved file = %q, %v", data, err)
	}
	if err := s.Move(from, to); err == nil {
		t.Error("Move() of a missing file succeeded")
	}
}
