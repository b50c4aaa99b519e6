package dedup

import (
	"testing"

	"github.com/dtnitsch/course-crawler/models"
)

func rec(id, title string) models.CourseRecord {
	return models.CourseRecord{ID: id, Title: title}
}

func TestIsDuplicate(t *testing.T) {
	existing := []models.CourseRecord{rec("course_1", "Intro to Machine Learning")}

	tests := []struct {
		name      string
		candidate models.CourseRecord
		want      bool
	}{
		{"cosmetic title variant", rec("course_2", "Intro to Machine Learning!!"), true},
		{"different course", rec("course_3", "Advanced Distributed Systems"), false},
		{"same id different title", rec("course_1", "Something Else Entirely"), true},
		{"case only difference", rec("course_4", "intro to machine learning"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicate(existing, tt.candidate, DefaultThreshold); got != tt.want {
				t.Errorf("IsDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b   string
		lo, hi float64
	}{
		{"Intro to Machine Learning", "Intro to Machine Learning!!", 0.92, 0.93},
		{"Intro to Machine Learning", "Advanced Distributed Systems", 0, 0.5},
		{"", "", 1, 1},
		{"abc", "", 0, 0},
		{"Go", "Go", 1, 1},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.lo || got > tt.hi {
			t.Errorf("Similarity(%q, %q) = %.3f, want in [%.2f, %.2f]", tt.a, tt.b, got, tt.lo, tt.hi)
		}
	}
}

func TestIsDuplicate_ThresholdIsStrict(t *testing.T) {
	// "abcde" vs "abcxy": distance 2, similarity exactly 0.6
	existing := []models.CourseRecord{rec("a", "abcde")}
	if IsDuplicate(existing, rec("b", "abcxy"), 0.6) {
		t.Error("similarity equal to threshold counted as duplicate")
	}
	if !IsDuplicate(existing, rec("b", "abcxy"), 0.59) {
		t.Error("similarity above threshold not counted as duplicate")
	}
}

func TestDeduplicator_FilterOrdersAndSeeds(t *testing.T) {
	d := New(DefaultThreshold)
	d.Seed([]models.CourseRecord{rec("course_1", "Intro to Machine Learning")})

	kept, dropped := d.Filter([]models.CourseRecord{
		rec("course_2", "Intro to Machine Learning!!"),
		rec("course_3", "Advanced Distributed Systems"),
		rec("course_4", "Advanced Distributed Systems."),
		rec("course_3", "Compilers"),
		rec("course_5", "Compilers"),
	})

	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
	if len(kept) != 2 || kept[0].ID != "course_3" || kept[1].ID != "course_5" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestDeduplicator_SyntheticRecordsMatchOnIDOnly(t *testing.T) {
	d := New(DefaultThreshold)
	a := rec("course_syn_1", "Applied Machine Learning")
	a.Synthetic = true
	b := rec("course_syn_2", "Applied Machine Learning")
	b.Synthetic = true

	if ok, _ := d.Accept(a); !ok {
		t.Fatal("first synthetic record rejected")
	}
	if ok, reason := d.Accept(b); !ok {
		t.Errorf("second synthetic record rejected by %s", reason)
	}
	if ok, reason := d.Accept(a); ok || reason != ReasonID {
		t.Errorf("Accept(repeat) = %v, %q; want false, id", ok, reason)
	}

	scraped := rec("course_9", "Applied Machine Learning")
	if ok, _ := d.Accept(scraped); !ok {
		t.Error("real record rejected against synthetic titles")
	}
}
