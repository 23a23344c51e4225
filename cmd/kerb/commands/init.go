package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openkerb/openkerb/pkg/stores"
)

const sampleTopology = `# Parking topology. Zones are scanned in declared order; adjacency
# gives one-hop fallback when the requested zone is full.
name: starter-grid
zones:
  - id: zone-a
    name: Downtown
    adjacent: [zone-b]
    areas:
      - id: a1
        slots: 4
      - id: a2
        slots: 2
  - id: zone-b
    name: Riverside
    adjacent: [zone-a]
    areas:
      - id: b1
        slots: 3
`

const sampleScenario = `# Scenario ops run in order against the engine.
name: morning-rush
ops:
  - action: create
    vehicle: CAR-001
    zone: zone-a
  - action: allocate
    request: R0001
  - action: occupy
    request: R0001
  - action: create
    vehicle: CAR-002
    zone: zone-a
  - action: allocate
    request: R0002
  - action: rollback
    count: 1
  - action: release
    request: R0001
`

func newInitCommand() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an OpenKerb workspace",
		Long: `Initialize a workspace with a run-history database and sample
topology and scenario files.`,
		Example: `  # Initialize in ./data
  kerb init

  # Initialize elsewhere
  kerb init --data-dir /var/lib/openkerb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().
				Str("data_dir", dataDir).
				Msg("Initializing workspace")

			ctx := context.Background()

			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("create directory %s: %w", dataDir, err)
			}
			fmt.Printf("✓ Created directory: %s\n", dataDir)

			path := dbPath
			if path == "" {
				path = filepath.Join(dataDir, "openkerb.db")
			}
			store, err := stores.NewSQLiteStore(stores.Config{Path: path})
			if err != nil {
				return fmt.Errorf("create store: %w", err)
			}
			defer store.Close()

			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Printf("✓ Initialized SQLite database: %s\n", path)

			files := map[string]string{
				"topology.yaml": sampleTopology,
				"scenario.yaml": sampleScenario,
			}
			for name, content := range files {
				target := filepath.Join(dataDir, name)
				if _, err := os.Stat(target); err == nil {
					fmt.Printf("✓ Already exists: %s\n", target)
					continue
				}
				if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				fmt.Printf("✓ Created sample: %s\n", target)
			}

			fmt.Printf("\n✅ Workspace initialized!\n\n")
			fmt.Printf("Next steps:\n")
			fmt.Printf("  1. Validate the topology:\n")
			fmt.Printf("     kerb validate %s\n\n", filepath.Join(dataDir, "topology.yaml"))
			fmt.Printf("  2. Run the sample scenario:\n")
			fmt.Printf("     kerb run --topology %s --scenario %s --db %s\n\n",
				filepath.Join(dataDir, "topology.yaml"),
				filepath.Join(dataDir, "scenario.yaml"),
				path)

			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "workspace data directory")

	return cmd
}
