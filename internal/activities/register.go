package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.LoadManifestActivity)
	w.RegisterActivity(a.ImportNodeSourceActivity)
	w.RegisterActivity(a.ImportRelationshipSourceActivity)
	w.RegisterActivity(a.VerifyGraphActivity)
	w.RegisterActivity(a.ReconcileGraphActivity)
	w.RegisterActivity(a.GraphSummaryActivity)
	w.RegisterActivity(a.WriteImportReportActivity)
	w.RegisterActivity(a.MarkImportRunActivity)
}
