// Package dedup decides whether a candidate course is already in the
// accumulated result set, first by id and then by fuzzy title.
package dedup

import (
	"strings"

	"github.com/xrash/smetrics"

	"github.com/dtnitsch/course-crawler/models"
)

// DefaultThreshold is the similarity above which two titles are the same course.
const DefaultThreshold = 0.8

// Reason says why a candidate was rejected.
type Reason string

const (
	ReasonNone  Reason = ""
	ReasonID    Reason = "id"
	ReasonTitle Reason = "title"
)

// Similarity is (max(len) - editDistance) / max(len) over the trimmed,
// lower-cased titles. Two empty titles are identical.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return float64(longest-dist) / float64(longest)
}

// IsDuplicate checks candidate against existing: exact id first, then any
// title whose similarity exceeds threshold.
func IsDuplicate(existing []models.CourseRecord, candidate models.CourseRecord, threshold float64) bool {
	for _, r := range existing {
		if r.ID == candidate.ID {
			return true
		}
	}
	for _, r := range existing {
		if Similarity(r.Title, candidate.Title) > threshold {
			return true
		}
	}
	return false
}

// Deduplicator keeps a hashed id index and the titles of real records seen so
// far in a run. It has a single writer.
type Deduplicator struct {
	threshold float64
	ids       map[string]struct{}
	titles    []string
}

func New(threshold float64) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{
		threshold: threshold,
		ids:       make(map[string]struct{}),
	}
}

// Seed loads records accepted before this run started (restored checkpoints).
func (d *Deduplicator) Seed(records []models.CourseRecord) {
	for _, r := range records {
		d.add(r)
	}
}

// Check reports why candidate would be rejected without recording it.
// Synthetic records only collide by id: their titles come from a small pool
// and would otherwise collapse a fallback batch.
func (d *Deduplicator) Check(candidate models.CourseRecord) Reason {
	if _, ok := d.ids[candidate.ID]; ok {
		return ReasonID
	}
	if candidate.Synthetic {
		return ReasonNone
	}
	for _, title := range d.titles {
		if Similarity(title, candidate.Title) > d.threshold {
			return ReasonTitle
		}
	}
	return ReasonNone
}

// Accept records candidate if it is new and reports whether it was.
func (d *Deduplicator) Accept(candidate models.CourseRecord) (bool, Reason) {
	if reason := d.Check(candidate); reason != ReasonNone {
		return false, reason
	}
	d.add(candidate)
	return true, ReasonNone
}

// Filter keeps the candidates that are new against everything seen so far and
// against earlier elements of candidates, preserving order.
func (d *Deduplicator) Filter(candidates []models.CourseRecord) (kept []models.CourseRecord, dropped int) {
	for _, c := range candidates {
		if ok, _ := d.Accept(c); ok {
			kept = append(kept, c)
			continue
		}
		dropped++
	}
	return kept, dropped
}

func (d *Deduplicator) add(r models.CourseRecord) {
	d.ids[r.ID] = struct{}{}
	if !r.Synthetic {
		d.titles = append(d.titles, r.Title)
	}
}
