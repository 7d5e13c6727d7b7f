package main

import (
	"pubgraph/internal/util"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(idCmd)
}

var idCmd = &cobra.Command{
	Use:   "id <value>",
	Short: "Derive the stable short identifier for a value",
	Long: `Derive the stable short identifier used as the natural key for
entities that carry none of their own, such as authors and keywords.
The same input always yields the same identifier.

Example:
  pubgraph id "Jane Doe"`,
	Args: cobra.ExactArgs(1),
	RunE: runID,
}

// IDResult is the response for the id command.
type IDResult struct {
	Input string `json:"input"`
	ID    string `json:"id"`
}

func runID(cmd *cobra.Command, args []string) error {
	id := util.DeterministicID(args[0])
	if id == "" {
		exitWithError(ExitDataError, "value must not be empty")
	}
	if humanOutput {
		outputHuman("%s\n", id)
		return nil
	}
	return outputJSON(IDResult{Input: args[0], ID: id})
}
