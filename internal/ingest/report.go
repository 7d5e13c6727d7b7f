package ingest

import (
	"time"

	"pubgraph/internal/store"
)

// RecordError is one skipped row: position plus reason. Skipped rows never
// abort the remainder of their source or of the batch.
type RecordError struct {
	Source  string `json:"source"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// SourceReport accumulates per-source outcomes. Created counts first-seen
// edges, Merged re-encounters of an existing triple, Skipped malformed rows.
type SourceReport struct {
	Source    string `json:"source"`
	Kind      string `json:"kind,omitempty"`
	Records   int    `json:"records"`
	Created   int    `json:"created"`
	Merged    int    `json:"merged"`
	Skipped   int    `json:"skipped"`
	SelfLoops int    `json:"self_loops,omitempty"`

	// EntitiesCreated counts endpoints first resolved while streaming this
	// source. For node sources it counts created entities.
	EntitiesCreated int `json:"entities_created,omitempty"`
}

// ImportReport is the sole structured output artifact of a batch import.
type ImportReport struct {
	RunID         string         `json:"run_id,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Nodes         []SourceReport `json:"nodes,omitempty"`
	Relationships []SourceReport `json:"relationships"`
	Errors        []RecordError  `json:"errors,omitempty"`
	Discrepancies []Discrepancy  `json:"discrepancies,omitempty"`
	Summary       store.Summary  `json:"summary"`
}

func (r *ImportReport) TotalCreated() int {
	n := 0
	for _, s := range r.Relationships {
		n += s.Created
	}
	return n
}

func (r *ImportReport) TotalMerged() int {
	n := 0
	for _, s := range r.Relationships {
		n += s.Merged
	}
	return n
}

func (r *ImportReport) TotalSkipped() int {
	n := 0
	for _, s := range r.Nodes {
		n += s.Skipped
	}
	for _, s := range r.Relationships {
		n += s.Skipped
	}
	return n
}
