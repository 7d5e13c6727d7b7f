package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"pubgraph/internal/config"
	"pubgraph/internal/storage"
	"pubgraph/internal/store"

	"github.com/joho/godotenv"
)

// Exit codes shared by every subcommand.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad DSN, unreachable database)
	ExitDataError   = 3 // Data error (malformed input, validation failure)
)

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		_ = outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// openGraphStore connects to Postgres using the environment configuration
// and returns the backing store plus a close func.
func openGraphStore() (store.Store, func(), config.Config) {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL, cfg.PostgresMaxConns)
	if err != nil {
		exitWithError(ExitConfigError, "connecting to database: %v", err)
	}
	return storage.NewGraphStore(db), db.Close, cfg
}
