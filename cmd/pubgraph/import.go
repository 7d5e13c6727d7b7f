package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pubgraph/internal/ingest"
	"pubgraph/internal/store"
	"pubgraph/internal/util"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importDiscoverDir string
	importMemory      bool
	importMaxParallel int
	importReconcile   bool
	importReportOut   string
)

func init() {
	importCmd.Flags().StringVar(&importDiscoverDir, "discover", "", "Discover sources from an export directory instead of a manifest")
	importCmd.Flags().BoolVar(&importMemory, "memory", false, "Import into an in-memory store instead of Postgres")
	importCmd.Flags().IntVar(&importMaxParallel, "max-parallel", 0, "Maximum sources imported concurrently (default from config)")
	importCmd.Flags().BoolVar(&importReconcile, "reconcile", false, "Repair missing inverse edges after the import")
	importCmd.Flags().StringVar(&importReportOut, "out", "", "Write the import report JSON to this path")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [manifest.yaml]",
	Short: "Bulk import CSV node and relationship sources",
	Long: `Bulk import CSV node and relationship sources into the graph.

Sources come either from a YAML manifest or, with --discover, from an
export directory laid out as <dir>/nodes/*.csv and <dir>/relationships/*.csv.

Example:
  pubgraph import data/manifest.yaml
  pubgraph import --discover data/export --memory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && importDiscoverDir == "" {
		exitWithError(ExitError, "a manifest path or --discover directory is required")
	}

	var (
		m   ingest.Manifest
		err error
	)
	if len(args) == 1 {
		m, err = ingest.LoadManifest(args[0])
	} else {
		m, err = ingest.DiscoverManifest(importDiscoverDir)
	}
	if err != nil {
		exitWithError(ExitDataError, "loading sources: %v", err)
	}

	var st store.Store
	maxParallel := importMaxParallel
	if importMemory {
		st = store.NewMemory()
		if maxParallel <= 0 {
			maxParallel = 4
		}
	} else {
		gs, closeStore, cfg := openGraphStore()
		defer closeStore()
		st = gs
		if maxParallel <= 0 {
			maxParallel = cfg.ImportMaxParallel
		}
	}

	logger := zap.NewNop()
	if humanOutput {
		logger, _ = zap.NewDevelopment()
	}
	driver := ingest.NewDriver(st, logger, maxParallel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := driver.ImportAll(ctx, m)
	if err != nil {
		exitWithError(ExitError, "import failed: %v", err)
	}
	report.RunID = uuid.NewString()

	if importReconcile {
		repair, err := ingest.NewChecker(st).Reconcile(ctx)
		if err != nil {
			exitWithError(ExitError, "reconcile failed: %v", err)
		}
		// Re-verify after repair so the report reflects the final state.
		report.Discrepancies, err = ingest.NewChecker(st).Check(ctx)
		if err != nil {
			exitWithError(ExitError, "verify failed: %v", err)
		}
		if humanOutput {
			outputHuman("reconciled: scanned=%d repaired=%d conflicts=%d\n", repair.Scanned, repair.Repaired, len(repair.Conflicts))
		}
	}

	if importReportOut != "" {
		if err := util.EnsureDir(filepath.Dir(importReportOut)); err != nil {
			exitWithError(ExitError, "preparing report directory: %v", err)
		}
		if err := util.WriteJSONAtomic(importReportOut, report); err != nil {
			exitWithError(ExitError, "writing report: %v", err)
		}
	}

	if humanOutput {
		printImportSummary(report)
		return nil
	}
	return outputJSON(report)
}

func printImportSummary(report *ingest.ImportReport) {
	outputHuman("imported %d node sources and %d relationship sources\n", len(report.Nodes), len(report.Relationships))
	outputHuman("  created=%d merged=%d skipped=%d\n", report.TotalCreated(), report.TotalMerged(), report.TotalSkipped())
	for _, s := range report.Nodes {
		outputHuman("  %s: records=%d created=%d merged=%d skipped=%d\n", s.Source, s.Records, s.Created, s.Merged, s.Skipped)
	}
	for _, s := range report.Relationships {
		line := fmt.Sprintf("  %s: records=%d created=%d merged=%d skipped=%d", s.Source, s.Records, s.Created, s.Merged, s.Skipped)
		if s.SelfLoops > 0 {
			line += fmt.Sprintf(" self_loops=%d", s.SelfLoops)
		}
		outputHuman("%s\n", line)
	}
	if len(report.Errors) > 0 {
		outputHuman("  %d records skipped, see report for details\n", len(report.Errors))
	}
	if len(report.Discrepancies) > 0 {
		outputHuman("  WARNING: %d inverse-consistency discrepancies found\n", len(report.Discrepancies))
	}
}
