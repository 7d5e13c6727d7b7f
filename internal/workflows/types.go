package workflows

type GraphImportInput struct {
	RunID         string `json:"run_id"`
	ManifestPath  string `json:"manifest_path,omitempty"`
	DiscoverDir   string `json:"discover_dir,omitempty"`
	MaxConcurrent int    `json:"max_concurrent"`
	Reconcile     bool   `json:"reconcile"`
}

type GraphImportProgress struct {
	RunID     string            `json:"run_id"`
	Total     int               `json:"total"`
	Done      int               `json:"done"`
	Failed    int               `json:"failed"`
	PerSource map[string]string `json:"per_source_status"`
}
