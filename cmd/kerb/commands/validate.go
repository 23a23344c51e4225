package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openkerb/openkerb/pkg/config"
	"github.com/openkerb/openkerb/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	var (
		watch       bool
		policyPaths []string
	)

	cmd := &cobra.Command{
		Use:   "validate <topology>",
		Short: "Validate a topology file",
		Long: `Validate a topology file against the schema and the policy set.

This command checks:
  - YAML or CUE syntax validity
  - Structural constraints (zones, areas, slot counts)
  - Semantic constraints (unique IDs, adjacency targets)
  - Policy compliance (OPA/Rego)`,
		Example: `  # Validate a YAML topology
  kerb validate topology.yaml

  # Validate a CUE topology with custom policies
  kerb validate --policies ./policies topology.cue

  # Re-validate on every save
  kerb validate --watch topology.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ctx := cmd.Context()

			polEngine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("create policy engine: %w", err)
			}
			if len(policyPaths) > 0 {
				if err := polEngine.LoadPolicies(ctx, policyPaths); err != nil {
					return err
				}
			}

			loader := config.NewLoader()
			if !watch {
				return validateOnce(ctx, loader, polEngine, path)
			}

			if err := validateOnce(ctx, loader, polEngine, path); err != nil {
				log.Error().Err(err).Msg("Validation failed")
			}
			return watchTopology(ctx, loader, polEngine, path)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-validate when the file changes")
	cmd.Flags().StringSliceVar(&policyPaths, "policies", nil, "additional policy files or directories")

	return cmd
}

func validateOnce(ctx context.Context, loader *config.Loader, polEngine *policy.Engine, path string) error {
	topo, err := loader.LoadTopology(path)
	if err != nil {
		return err
	}

	result, err := polEngine.EvaluateTopology(ctx, topo)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, w := range result.Warnings {
		fmt.Printf("⚠ [%s] %s\n", w.Policy, w.Message)
	}
	for _, v := range result.Violations {
		fmt.Printf("✗ [%s] %s\n", v.Policy, v.Message)
	}
	if !result.Allowed {
		return fmt.Errorf("topology %s has %d policy violations", path, len(result.Violations))
	}

	zones, slots := 0, 0
	for _, zone := range topo.Zones {
		zones++
		for _, area := range zone.Areas {
			slots += area.Slots
		}
	}
	fmt.Printf("✓ %s is valid: %d zones, %d slots\n", path, zones, slots)
	return nil
}

// watchTopology re-validates the file on every write until the context
// is cancelled. The parent directory is watched because editors replace
// files rather than writing them in place.
func watchTopology(ctx context.Context, loader *config.Loader, polEngine *policy.Engine, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info().Str("path", path).Msg("Watching for changes")

	target, _ := filepath.Abs(path)
	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, _ := filepath.Abs(event.Name)
			if name != target {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, func() {
				if err := validateOnce(ctx, loader, polEngine, path); err != nil {
					log.Error().Err(err).Msg("Validation failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}
