package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pubgraph/internal/graph"
	"pubgraph/internal/store"

	"github.com/spf13/cobra"
)

var (
	getKind      string
	getDirection string
)

func init() {
	getCmd.Flags().StringVar(&getKind, "kind", "", "Only list edges of this relationship kind")
	getCmd.Flags().StringVar(&getDirection, "direction", "both", "Edge direction to list: out, in or both")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single entity and its edges by composite key",
	Long: `Get a single entity by its composite key along with the edges that
touch it.

Example:
  pubgraph get Paper_12345678
  pubgraph get "Grant_United Kingdom_Wellcome Trust" --kind FUNDED_BY`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// GetResult is the response for the get command.
type GetResult struct {
	Entity graph.Entity `json:"entity"`
	Edges  []graph.Edge `json:"edges"`
}

func runGet(cmd *cobra.Command, args []string) error {
	ref, err := graph.ParseKey(args[0])
	if err != nil {
		exitWithError(ExitDataError, "parsing key: %v", err)
	}

	kind := graph.RelKind(strings.ToUpper(strings.TrimSpace(getKind)))
	if kind != "" && !graph.IsRelKind(kind) {
		exitWithError(ExitDataError, "unknown relationship kind: %s", getKind)
	}
	var dir store.Direction
	switch strings.ToLower(getDirection) {
	case "out":
		dir = store.DirOut
	case "in":
		dir = store.DirIn
	case "", "both":
		dir = store.DirBoth
	default:
		exitWithError(ExitError, "direction must be out, in or both")
	}

	st, closeStore, _ := openGraphStore()
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ent, ok, err := st.GetEntity(ctx, ref.Type, ref.NaturalKey)
	if err != nil {
		exitWithError(ExitError, "getting entity: %v", err)
	}
	if !ok {
		exitWithError(ExitError, "entity not found: %s", args[0])
	}
	edges, err := st.GetEdges(ctx, ref, kind, dir)
	if err != nil {
		exitWithError(ExitError, "getting edges: %v", err)
	}

	if humanOutput {
		printEntityDetail(ent, edges)
		return nil
	}
	return outputJSON(GetResult{Entity: ent, Edges: edges})
}

func printEntityDetail(ent graph.Entity, edges []graph.Edge) {
	outputHuman("%s\n", ent.Ref.Key())
	for k, v := range ent.Attrs {
		outputHuman("  %s: %s\n", k, v)
	}
	outputHuman("edges (%d):\n", len(edges))
	for _, e := range edges {
		outputHuman("  %s -[%s]-> %s\n", e.Source.Key(), e.Kind, e.Target.Key())
	}
}
