package models

import "time"

// ImportRun is one batch import, as tracked in the run table and surfaced
// by the API.
type ImportRun struct {
	RunID         string    `json:"run_id"`
	Manifest      string    `json:"manifest"`
	Status        string    `json:"status"`
	Created       int       `json:"created"`
	Merged        int       `json:"merged"`
	Skipped       int       `json:"skipped"`
	Discrepancies int       `json:"discrepancies"`
	ReportPath    string    `json:"report_path,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
