package activities

import (
	"pubgraph/internal/ingest"
	"pubgraph/internal/store"
)

type LoadManifestInput struct {
	ManifestPath string `json:"manifest_path,omitempty"`
	DiscoverDir  string `json:"discover_dir,omitempty"`
}

type LoadManifestOutput struct {
	Manifest ingest.Manifest `json:"manifest"`
}

type ImportNodeSourceInput struct {
	Source ingest.NodeSource `json:"source"`
}

type ImportRelationshipSourceInput struct {
	Source ingest.RelationshipSource `json:"source"`
}

type ImportSourceOutput struct {
	Report ingest.SourceReport  `json:"report"`
	Errors []ingest.RecordError `json:"errors,omitempty"`
}

type VerifyGraphOutput struct {
	Discrepancies []ingest.Discrepancy `json:"discrepancies,omitempty"`
}

type ReconcileGraphOutput struct {
	Report ingest.RepairReport `json:"report"`
}

type GraphSummaryOutput struct {
	Summary store.Summary `json:"summary"`
}

type WriteImportReportInput struct {
	RunID  string              `json:"run_id"`
	Report ingest.ImportReport `json:"report"`
}

type WriteImportReportOutput struct {
	Path string `json:"path"`
}

type MarkImportRunInput struct {
	RunID         string `json:"run_id"`
	Manifest      string `json:"manifest"`
	Status        string `json:"status"`
	Created       int    `json:"created"`
	Merged        int    `json:"merged"`
	Skipped       int    `json:"skipped"`
	Discrepancies int    `json:"discrepancies"`
	ReportPath    string `json:"report_path,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}
