package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbPath     string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kerb",
		Short: "OpenKerb - Parking Slot Allocation Engine",
		Long: `OpenKerb allocates parking slots to vehicle requests across zones,
drives each request through its lifecycle, and can roll recent
allocations back from a bounded journal.

Features:
  - Typed topologies via YAML or CUE
  - Scenario scripting via YAML or Starlark
  - One-hop cross-zone fallback allocation
  - LIFO rollback of recent allocations
  - Topology policy checks (OPA/Rego)
  - Run history in SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (empty: in-memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newPolicyCommand())

	return rootCmd
}
