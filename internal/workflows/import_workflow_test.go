package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"pubgraph/internal/activities"
	"pubgraph/internal/graph"
	"pubgraph/internal/ingest"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerImportActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "MarkImportRunActivity", func(context.Context, activities.MarkImportRunInput) error { return nil })
	registerActivityName(env, "LoadManifestActivity", func(context.Context, activities.LoadManifestInput) (activities.LoadManifestOutput, error) {
		return activities.LoadManifestOutput{}, nil
	})
	registerActivityName(env, "ImportNodeSourceActivity", func(context.Context, activities.ImportNodeSourceInput) (activities.ImportSourceOutput, error) {
		return activities.ImportSourceOutput{}, nil
	})
	registerActivityName(env, "ImportRelationshipSourceActivity", func(context.Context, activities.ImportRelationshipSourceInput) (activities.ImportSourceOutput, error) {
		return activities.ImportSourceOutput{}, nil
	})
	registerActivityName(env, "ReconcileGraphActivity", func(context.Context, struct{}) (activities.ReconcileGraphOutput, error) {
		return activities.ReconcileGraphOutput{}, nil
	})
	registerActivityName(env, "VerifyGraphActivity", func(context.Context, struct{}) (activities.VerifyGraphOutput, error) {
		return activities.VerifyGraphOutput{}, nil
	})
	registerActivityName(env, "GraphSummaryActivity", func(context.Context, struct{}) (activities.GraphSummaryOutput, error) {
		return activities.GraphSummaryOutput{}, nil
	})
	registerActivityName(env, "WriteImportReportActivity", func(context.Context, activities.WriteImportReportInput) (activities.WriteImportReportOutput, error) {
		return activities.WriteImportReportOutput{}, nil
	})
}

func TestGraphImportWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GraphImportWorkflow)
	registerImportActivities(env)

	manifest := ingest.Manifest{
		Nodes: []ingest.NodeSource{{Name: "paper_nodes.csv", Path: "/data/paper_nodes.csv", Type: graph.EntityPaper}},
		Relationships: []ingest.RelationshipSource{
			{Name: "cites_rels.csv", Path: "/data/cites_rels.csv", Kind: graph.RelCites},
			{Name: "cited_by_rels.csv", Path: "/data/cited_by_rels.csv", Kind: graph.RelCitedBy},
		},
	}

	var written activities.WriteImportReportInput
	env.OnActivity("MarkImportRunActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("LoadManifestActivity", mock.Anything, mock.Anything).Return(activities.LoadManifestOutput{Manifest: manifest}, nil)
	env.OnActivity("ImportNodeSourceActivity", mock.Anything, mock.Anything).Return(
		activities.ImportSourceOutput{Report: ingest.SourceReport{Source: "paper_nodes.csv", Created: 3}}, nil)
	env.OnActivity("ImportRelationshipSourceActivity", mock.Anything, mock.Anything).Return(
		activities.ImportSourceOutput{Report: ingest.SourceReport{Source: "rels", Created: 5}}, nil)
	env.OnActivity("VerifyGraphActivity", mock.Anything, mock.Anything).Return(activities.VerifyGraphOutput{}, nil)
	env.OnActivity("GraphSummaryActivity", mock.Anything, mock.Anything).Return(activities.GraphSummaryOutput{}, nil)
	env.OnActivity("WriteImportReportActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.WriteImportReportInput) (activities.WriteImportReportOutput, error) {
			written = in
			return activities.WriteImportReportOutput{Path: "/out/import_report.json"}, nil
		})

	env.ExecuteWorkflow(GraphImportWorkflow, GraphImportInput{RunID: "run-1", ManifestPath: "/data/manifest.yaml", MaxConcurrent: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)

	require.Equal(t, "run-1", written.RunID)
	require.Len(t, written.Report.Nodes, 1)
	require.Len(t, written.Report.Relationships, 2)
	require.Equal(t, 10, written.Report.TotalCreated())
}

func TestGraphImportWorkflowManifestFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GraphImportWorkflow)
	registerImportActivities(env)

	env.OnActivity("MarkImportRunActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("LoadManifestActivity", mock.Anything, mock.Anything).Return(
		activities.LoadManifestOutput{}, errors.New("read manifest: no such file"))

	env.ExecuteWorkflow(GraphImportWorkflow, GraphImportInput{RunID: "run-2", ManifestPath: "/data/missing.yaml"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestGraphImportWorkflowSourceFailureDoesNotAbortBatch(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GraphImportWorkflow)
	registerImportActivities(env)

	manifest := ingest.Manifest{
		Relationships: []ingest.RelationshipSource{
			{Name: "bad_rels.csv", Path: "/data/bad_rels.csv", Kind: graph.RelCites},
			{Name: "good_rels.csv", Path: "/data/good_rels.csv", Kind: graph.RelCitedBy},
		},
	}

	var written activities.WriteImportReportInput
	env.OnActivity("MarkImportRunActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("LoadManifestActivity", mock.Anything, mock.Anything).Return(activities.LoadManifestOutput{Manifest: manifest}, nil)
	env.OnActivity("ImportRelationshipSourceActivity", mock.Anything,
		activities.ImportRelationshipSourceInput{Source: manifest.Relationships[0]}).Return(
		activities.ImportSourceOutput{}, errors.New("open source: permission denied"))
	env.OnActivity("ImportRelationshipSourceActivity", mock.Anything,
		activities.ImportRelationshipSourceInput{Source: manifest.Relationships[1]}).Return(
		activities.ImportSourceOutput{Report: ingest.SourceReport{Source: "good_rels.csv", Created: 7}}, nil)
	env.OnActivity("VerifyGraphActivity", mock.Anything, mock.Anything).Return(activities.VerifyGraphOutput{
		Discrepancies: []ingest.Discrepancy{{Kind: graph.RelCitedBy, Source: "Paper_2", Target: "Paper_1", MissingSide: "forward"}},
	}, nil)
	env.OnActivity("GraphSummaryActivity", mock.Anything, mock.Anything).Return(activities.GraphSummaryOutput{}, nil)
	env.OnActivity("WriteImportReportActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.WriteImportReportInput) (activities.WriteImportReportOutput, error) {
			written = in
			return activities.WriteImportReportOutput{Path: "/out/import_report.json"}, nil
		})

	env.ExecuteWorkflow(GraphImportWorkflow, GraphImportInput{RunID: "run-3", ManifestPath: "/data/manifest.yaml", MaxConcurrent: 1})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)

	require.Len(t, written.Report.Relationships, 1, "healthy source still reported")
	require.Len(t, written.Report.Discrepancies, 1)

	found := false
	for _, e := range written.Report.Errors {
		if e.Source == "bad_rels.csv" {
			found = true
		}
	}
	require.True(t, found, "failed source surfaced in report errors")
}
