package models

// CrawlState is threaded through every page-processing call and returned
// with the page's survivors appended. Records holds every accepted record in
// discovery order; Completed holds the pages whose checkpoint exists.
type CrawlState struct {
	Records    []CourseRecord
	Page       int
	TotalPages int
	Completed  map[int]bool
}

// NewCrawlState seeds a state from records restored at startup.
func NewCrawlState(restored []CourseRecord, completed []int) CrawlState {
	state := CrawlState{
		Records:   append([]CourseRecord(nil), restored...),
		Completed: make(map[int]bool, len(completed)),
	}
	for _, p := range completed {
		state.Completed[p] = true
	}
	return state
}

// WithPage returns a copy of s positioned at page with recs appended and the
// page marked completed. The receiver is not modified.
func (s CrawlState) WithPage(page int, recs []CourseRecord) CrawlState {
	next := CrawlState{
		Records:    make([]CourseRecord, 0, len(s.Records)+len(recs)),
		Page:       page,
		TotalPages: s.TotalPages,
		Completed:  make(map[int]bool, len(s.Completed)+1),
	}
	next.Records = append(next.Records, s.Records...)
	next.Records = append(next.Records, recs...)
	for p := range s.Completed {
		next.Completed[p] = true
	}
	next.Completed[page] = true
	return next
}
