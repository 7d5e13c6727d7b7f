package activities

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"pubgraph/internal/config"
	"pubgraph/internal/ingest"
	"pubgraph/internal/models"
	"pubgraph/internal/storage"
	"pubgraph/internal/store"
	"pubgraph/internal/util"
)

type Activities struct {
	cfg     config.Config
	log     *zap.Logger
	store   store.Store
	driver  *ingest.Driver
	checker *ingest.Checker
	runRepo *storage.RunRepo
}

func New(cfg config.Config, db *storage.DB, log *zap.Logger) (*Activities, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gs := storage.NewGraphStore(db)
	return &Activities{
		cfg:     cfg,
		log:     log,
		store:   gs,
		driver:  ingest.NewDriver(gs, log, cfg.ImportMaxParallel),
		checker: ingest.NewChecker(gs),
		runRepo: storage.NewRunRepo(db),
	}, nil
}

func (a *Activities) LoadManifestActivity(_ context.Context, in LoadManifestInput) (LoadManifestOutput, error) {
	switch {
	case in.ManifestPath != "":
		m, err := ingest.LoadManifest(in.ManifestPath)
		if err != nil {
			return LoadManifestOutput{}, err
		}
		return LoadManifestOutput{Manifest: m}, nil
	case in.DiscoverDir != "":
		m, err := ingest.DiscoverManifest(in.DiscoverDir)
		if err != nil {
			return LoadManifestOutput{}, err
		}
		return LoadManifestOutput{Manifest: m}, nil
	default:
		return LoadManifestOutput{}, fmt.Errorf("load manifest: no path or directory given")
	}
}

func (a *Activities) ImportNodeSourceActivity(ctx context.Context, in ImportNodeSourceInput) (ImportSourceOutput, error) {
	sr, errs := a.driver.ImportNodeSource(ctx, in.Source)
	if err := ctx.Err(); err != nil {
		return ImportSourceOutput{}, err
	}
	return ImportSourceOutput{Report: sr, Errors: errs}, nil
}

func (a *Activities) ImportRelationshipSourceActivity(ctx context.Context, in ImportRelationshipSourceInput) (ImportSourceOutput, error) {
	sr, errs := a.driver.ImportRelationshipSource(ctx, in.Source)
	if err := ctx.Err(); err != nil {
		return ImportSourceOutput{}, err
	}
	return ImportSourceOutput{Report: sr, Errors: errs}, nil
}

func (a *Activities) VerifyGraphActivity(ctx context.Context, _ struct{}) (VerifyGraphOutput, error) {
	ds, err := a.checker.Check(ctx)
	if err != nil {
		return VerifyGraphOutput{}, err
	}
	return VerifyGraphOutput{Discrepancies: ds}, nil
}

func (a *Activities) ReconcileGraphActivity(ctx context.Context, _ struct{}) (ReconcileGraphOutput, error) {
	report, err := a.checker.Reconcile(ctx)
	if err != nil {
		return ReconcileGraphOutput{}, err
	}
	return ReconcileGraphOutput{Report: report}, nil
}

func (a *Activities) GraphSummaryActivity(ctx context.Context, _ struct{}) (GraphSummaryOutput, error) {
	sum, err := a.store.Summary(ctx)
	if err != nil {
		return GraphSummaryOutput{}, err
	}
	return GraphSummaryOutput{Summary: sum}, nil
}

func (a *Activities) WriteImportReportActivity(_ context.Context, in WriteImportReportInput) (WriteImportReportOutput, error) {
	dir := util.SafeJoin(a.cfg.DataOutRoot, in.RunID)
	reportPath := filepath.Join(dir, "import_report.json")
	if err := util.WriteJSONAtomic(reportPath, in.Report); err != nil {
		return WriteImportReportOutput{}, err
	}
	if len(in.Report.Errors) > 0 {
		if err := util.WriteJSONLinesAtomic(filepath.Join(dir, "skipped_records.jsonl"), in.Report.Errors); err != nil {
			return WriteImportReportOutput{}, err
		}
	}
	return WriteImportReportOutput{Path: reportPath}, nil
}

func (a *Activities) MarkImportRunActivity(ctx context.Context, in MarkImportRunInput) error {
	return a.runRepo.UpsertRun(ctx, models.ImportRun{
		RunID:         in.RunID,
		Manifest:      in.Manifest,
		Status:        in.Status,
		Created:       in.Created,
		Merged:        in.Merged,
		Skipped:       in.Skipped,
		Discrepancies: in.Discrepancies,
		ReportPath:    in.ReportPath,
		LastError:     in.LastError,
	})
}
