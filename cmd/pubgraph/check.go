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
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify inverse-consistency of the graph",
	Long: `Verify that every forward relationship has its mirrored inverse and
that mirrored pairs agree on their properties. Reports discrepancies
without modifying the graph.`,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status        string               `json:"status"`
	Discrepancies []ingest.Discrepancy `json:"discrepancies"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	st, closeStore, _ := openGraphStore()
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discrepancies, err := ingest.NewChecker(st).Check(ctx)
	if err != nil {
		exitWithError(ExitError, "checking graph: %v", err)
	}

	status := "ok"
	if len(discrepancies) > 0 {
		status = "inconsistent"
	}
	if humanOutput {
		outputHuman("status: %s (%d discrepancies)\n", status, len(discrepancies))
		for _, d := range discrepancies {
			if d.Conflict {
				outputHuman("  conflict  %s %s -> %s: %s\n", d.Kind, d.Source, d.Target, d.Detail)
				continue
			}
			outputHuman("  missing %s side of %s %s -> %s\n", d.MissingSide, d.Kind, d.Source, d.Target)
		}
		if status != "ok" {
			os.Exit(ExitDataError)
		}
		return nil
	}
	if err := outputJSON(CheckResult{Status: status, Discrepancies: discrepancies}); err != nil {
		return err
	}
	if status != "ok" {
		os.Exit(ExitDataError)
	}
	return nil
}
