package models

import "time"

// CrawlCheckpoint is the progress marker written once per completed listing page.
// It is never rewritten after creation.
type CrawlCheckpoint struct {
	Page        int       `yaml:"page" json:"page"`
	TotalPages  int       `yaml:"total_pages" json:"total_pages"`
	RecordCount int       `yaml:"record_count" json:"record_count"`
	Synthetic   bool      `yaml:"synthetic" json:"synthetic"`
	WrittenAt   time.Time `yaml:"written_at" json:"written_at"`
}
