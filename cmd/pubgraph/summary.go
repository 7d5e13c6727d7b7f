package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(summaryCmd)
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show node and edge counts per type",
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	st, closeStore, _ := openGraphStore()
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := st.Summary(ctx)
	if err != nil {
		exitWithError(ExitError, "summarizing graph: %v", err)
	}

	if humanOutput {
		outputHuman("entities: %d\n", sum.TotalEntities())
		for typ, n := range sum.Entities {
			outputHuman("  %s: %d\n", typ, n)
		}
		outputHuman("edges: %d\n", sum.TotalEdges())
		for kind, n := range sum.Edges {
			outputHuman("  %s: %d\n", kind, n)
		}
		return nil
	}
	return outputJSON(sum)
}
