package models

import "time"

// CrawlRun is the end-of-run summary. It is written to summary.yaml, stored
// in the crawl_runs table and printed by `db runs`.
type CrawlRun struct {
	RunID     string    `yaml:"run_id" json:"run_id"`
	Seed      string    `yaml:"seed" json:"seed"`
	Adapter   string    `yaml:"adapter" json:"adapter"`
	StartedAt time.Time `yaml:"started_at" json:"started_at"`
	EndedAt   time.Time `yaml:"ended_at" json:"ended_at"`
	Phase     Phase     `yaml:"phase" json:"phase"`

	PagesTotal     int `yaml:"pages_total" json:"pages_total"`
	PagesFetched   int `yaml:"pages_fetched" json:"pages_fetched"`
	PagesSynthetic int `yaml:"pages_synthetic" json:"pages_synthetic"`
	PagesResumed   int `yaml:"pages_resumed" json:"pages_resumed"`

	Extracted    int `yaml:"extracted" json:"extracted"`
	Synthesized  int `yaml:"synthesized" json:"synthesized"`
	Deduplicated int `yaml:"deduplicated" json:"deduplicated"`
	Enriched     int `yaml:"enriched" json:"enriched"`
	Invalid      int `yaml:"invalid" json:"invalid"`
	Total        int `yaml:"total" json:"total"`

	Inserted     int `yaml:"inserted" json:"inserted"`
	Updated      int `yaml:"updated" json:"updated"`
	FailedChunks int `yaml:"failed_chunks" json:"failed_chunks"`

	OutputFile        string `yaml:"output_file" json:"output_file"`
	CheckpointArchive string `yaml:"checkpoint_archive,omitempty" json:"checkpoint_archive,omitempty"`
}

// Committed is the number of records the store acknowledged.
func (r CrawlRun) Committed() int {
	return r.Inserted + r.Updated
}

// Phase is a state of the per-run crawl state machine.
type Phase string

const (
	PhaseDiscovering       Phase = "discovering"
	PhaseCrawlingPage      Phase = "crawling_page"
	PhaseSyntheticFallback Phase = "synthetic_fallback"
	PhaseExtracting        Phase = "extracting"
	PhaseDeduplicating     Phase = "deduplicating"
	PhaseEnriching         Phase = "enriching"
	PhaseCheckpointing     Phase = "checkpointing"
	PhaseCommitting        Phase = "committing"
	PhaseCompleted         Phase = "completed"
	PhaseInterrupted       Phase = "interrupted"
)
