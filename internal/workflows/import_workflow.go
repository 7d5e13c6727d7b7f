package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"pubgraph/internal/activities"
	"pubgraph/internal/ingest"
)

const (
	QueryGetImportProgress = "GetImportProgress"

	defaultMaxConcurrent = 4
)

// GraphImportWorkflow drives one batch import: load the manifest, stream
// every source through an import activity in bounded parallel batches, then
// audit graph symmetry and persist the report. A failed source marks its
// slot failed and the batch carries on; the workflow only fails outright
// when the manifest itself cannot be loaded.
func GraphImportWorkflow(ctx workflow.Context, input GraphImportInput) (string, error) {
	progress := GraphImportProgress{RunID: input.RunID, PerSource: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetImportProgress, func() (GraphImportProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	report := ingest.ImportReport{RunID: input.RunID, StartedAt: workflow.Now(ctx).UTC()}

	_ = workflow.ExecuteActivity(ctx, "MarkImportRunActivity", activities.MarkImportRunInput{
		RunID:    input.RunID,
		Manifest: manifestLabel(input),
		Status:   "running",
	}).Get(ctx, nil)

	var manifestOut activities.LoadManifestOutput
	if err := workflow.ExecuteActivity(ctx, "LoadManifestActivity", activities.LoadManifestInput{
		ManifestPath: input.ManifestPath,
		DiscoverDir:  input.DiscoverDir,
	}).Get(ctx, &manifestOut); err != nil {
		_ = workflow.ExecuteActivity(ctx, "MarkImportRunActivity", activities.MarkImportRunInput{
			RunID:     input.RunID,
			Manifest:  manifestLabel(input),
			Status:    "failed",
			LastError: err.Error(),
		}).Get(ctx, nil)
		return "failed", nil
	}
	m := manifestOut.Manifest
	progress.Total = len(m.Nodes) + len(m.Relationships)

	maxC := input.MaxConcurrent
	if maxC <= 0 {
		maxC = defaultMaxConcurrent
	}

	report.Nodes = make([]ingest.SourceReport, 0, len(m.Nodes))
	for i := 0; i < len(m.Nodes); i += maxC {
		end := min(i+maxC, len(m.Nodes))
		futures := make([]workflow.Future, 0, end-i)
		names := make([]string, 0, end-i)
		for _, src := range m.Nodes[i:end] {
			progress.PerSource[src.Name] = "importing"
			futures = append(futures, workflow.ExecuteActivity(ctx, "ImportNodeSourceActivity",
				activities.ImportNodeSourceInput{Source: src}))
			names = append(names, src.Name)
		}
		for idx, f := range futures {
			var out activities.ImportSourceOutput
			if err := f.Get(ctx, &out); err != nil {
				progress.Failed++
				progress.PerSource[names[idx]] = "failed"
				report.Errors = append(report.Errors, ingest.RecordError{Source: names[idx], Message: err.Error()})
				continue
			}
			progress.Done++
			progress.PerSource[names[idx]] = "done"
			report.Nodes = append(report.Nodes, out.Report)
			report.Errors = append(report.Errors, out.Errors...)
		}
	}

	report.Relationships = make([]ingest.SourceReport, 0, len(m.Relationships))
	for i := 0; i < len(m.Relationships); i += maxC {
		end := min(i+maxC, len(m.Relationships))
		futures := make([]workflow.Future, 0, end-i)
		names := make([]string, 0, end-i)
		for _, src := range m.Relationships[i:end] {
			progress.PerSource[src.Name] = "importing"
			futures = append(futures, workflow.ExecuteActivity(ctx, "ImportRelationshipSourceActivity",
				activities.ImportRelationshipSourceInput{Source: src}))
			names = append(names, src.Name)
		}
		for idx, f := range futures {
			var out activities.ImportSourceOutput
			if err := f.Get(ctx, &out); err != nil {
				progress.Failed++
				progress.PerSource[names[idx]] = "failed"
				report.Errors = append(report.Errors, ingest.RecordError{Source: names[idx], Message: err.Error()})
				continue
			}
			progress.Done++
			progress.PerSource[names[idx]] = "done"
			report.Relationships = append(report.Relationships, out.Report)
			report.Errors = append(report.Errors, out.Errors...)
		}
	}

	if input.Reconcile {
		var recOut activities.ReconcileGraphOutput
		if err := workflow.ExecuteActivity(ctx, "ReconcileGraphActivity", struct{}{}).Get(ctx, &recOut); err != nil {
			report.Errors = append(report.Errors, ingest.RecordError{Source: "reconcile", Message: err.Error()})
		}
	}

	var verifyOut activities.VerifyGraphOutput
	if err := workflow.ExecuteActivity(ctx, "VerifyGraphActivity", struct{}{}).Get(ctx, &verifyOut); err != nil {
		report.Errors = append(report.Errors, ingest.RecordError{Source: "verify", Message: err.Error()})
	}
	report.Discrepancies = verifyOut.Discrepancies

	var sumOut activities.GraphSummaryOutput
	if err := workflow.ExecuteActivity(ctx, "GraphSummaryActivity", struct{}{}).Get(ctx, &sumOut); err == nil {
		report.Summary = sumOut.Summary
	}
	report.FinishedAt = workflow.Now(ctx).UTC()

	var writeOut activities.WriteImportReportOutput
	if err := workflow.ExecuteActivity(ctx, "WriteImportReportActivity", activities.WriteImportReportInput{
		RunID:  input.RunID,
		Report: report,
	}).Get(ctx, &writeOut); err != nil {
		report.Errors = append(report.Errors, ingest.RecordError{Source: "report", Message: err.Error()})
	}

	_ = workflow.ExecuteActivity(ctx, "MarkImportRunActivity", activities.MarkImportRunInput{
		RunID:         input.RunID,
		Manifest:      manifestLabel(input),
		Status:        "completed",
		Created:       report.TotalCreated(),
		Merged:        report.TotalMerged(),
		Skipped:       report.TotalSkipped(),
		Discrepancies: len(report.Discrepancies),
		ReportPath:    writeOut.Path,
	}).Get(ctx, nil)

	return "completed", nil
}

func manifestLabel(input GraphImportInput) string {
	if input.ManifestPath != "" {
		return input.ManifestPath
	}
	return input.DiscoverDir
}
