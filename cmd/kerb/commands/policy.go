package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openkerb/openkerb/pkg/policy"
)

func newPolicyCommand() *cobra.Command {
	var policyPaths []string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "List topology policies",
		Long: `List the built-in policies plus any loaded from --policies paths,
with their severity and enabled state.`,
		Example: `  # List built-in policies
  kerb policy

  # Include custom policies
  kerb policy --policies ./policies`,
		RunE: func(cmd *cobra.Command, args []string) error {
			polEngine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("create policy engine: %w", err)
			}
			if len(policyPaths) > 0 {
				if err := polEngine.LoadPolicies(cmd.Context(), policyPaths); err != nil {
					return err
				}
			}

			policies := polEngine.Policies()
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(policies)
			}

			for _, p := range policies {
				state := "enabled"
				if !p.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-20s %-8s %-8s %s\n", p.Name, p.Severity, state, p.Description)
				if len(p.Tags) > 0 {
					fmt.Printf("%-20s tags: %s\n", "", strings.Join(p.Tags, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policies", nil, "additional policy files or directories")

	return cmd
}
