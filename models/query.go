package models

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by course stores when no course has the requested id.
var ErrNotFound = errors.New("course not found")

// CourseQuery filters and pages a course listing. Zero values mean "no filter".
type CourseQuery struct {
	Status    Status
	Rarity    Rarity
	Tag       string
	Search    string
	Level     int
	Synthetic *bool
	// Sort is a field name, optionally prefixed with "-" for descending.
	Sort   string
	Limit  int
	Offset int
}

// SortFields lists the fields a listing may be sorted by.
var SortFields = map[string]bool{
	"heat":  true,
	"level": true,
	"title": true,
	"id":    true,
}

// SortKey splits Sort into a validated field and direction. Unknown fields
// sort by heat, descending.
func (q CourseQuery) SortKey() (field string, desc bool) {
	field = strings.TrimPrefix(q.Sort, "-")
	desc = strings.HasPrefix(q.Sort, "-")
	if !SortFields[field] {
		return "heat", true
	}
	return field, desc
}
