package diff

import (
	"time"
)

// Summary is the compact change document for one run.
// Field order is the serialized key order.
type Summary struct {
	Source       string `json:"source"`
	RunTimestamp string `json:"run_timestamp"`
	Files        Files  `json:"files"`
	Counts       Counts `json:"counts"`
}

// Files names the two compared snapshots.
type Files struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Counts holds the classification cardinalities.
type Counts struct {
	Added    int `json:"added"`
	Deleted  int `json:"deleted"`
	Modified int `json:"modified"`
}

// Total returns added + deleted + modified.
func (c Counts) Total() int {
	return c.Added + c.Deleted + c.Modified
}

// Summary builds the run summary. runAt is the only wall-clock input.
func (r *Result) Summary(runAt time.Time) Summary {
	return Summary{
		Source:       r.Source,
		RunTimestamp: runAt.Format(time.RFC3339),
		Files: Files{
			Old: r.OldFile,
			New: r.NewFile,
		},
		Counts: r.Counts(),
	}
}

// RunTime parses RunTimestamp.
func (s Summary) RunTime() (time.Time, error) {
	return time.Parse(time.RFC3339, s.RunTimestamp)
}
