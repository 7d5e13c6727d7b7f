package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pubgraph/internal/ingest"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair missing inverse relationships",
	Long: `Synthesize the missing side of every half-present relationship pair.
Pairs whose two sides disagree on properties are reported but left
untouched; reconcile never deletes edges.`,
	RunE: runReconcile,
}

// ReconcileResult is the response for the reconcile command.
type ReconcileResult struct {
	Scanned   int                  `json:"scanned"`
	Repaired  int                  `json:"repaired"`
	Conflicts []ingest.Discrepancy `json:"conflicts,omitempty"`
}

func runReconcile(cmd *cobra.Command, args []string) error {
	st, closeStore, _ := openGraphStore()
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := ingest.NewChecker(st).Reconcile(ctx)
	if err != nil {
		exitWithError(ExitError, "reconciling graph: %v", err)
	}

	if humanOutput {
		outputHuman("scanned=%d repaired=%d conflicts=%d\n", report.Scanned, report.Repaired, len(report.Conflicts))
		for _, d := range report.Conflicts {
			outputHuman("  conflict  %s %s -> %s: %s\n", d.Kind, d.Source, d.Target, d.Detail)
		}
		return nil
	}
	return outputJSON(ReconcileResult{Scanned: report.Scanned, Repaired: report.Repaired, Conflicts: report.Conflicts})
}
