package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openkerb/openkerb/pkg/analytics"
	"github.com/openkerb/openkerb/pkg/config"
	"github.com/openkerb/openkerb/pkg/engine"
	"github.com/openkerb/openkerb/pkg/policy"
	"github.com/openkerb/openkerb/pkg/rollback"
	"github.com/openkerb/openkerb/pkg/scenario"
	"github.com/openkerb/openkerb/pkg/stores"
	"github.com/openkerb/openkerb/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	var (
		topologyPath    string
		scenarioPath    string
		params          map[string]string
		journalCapacity int
		strictJournal   bool
		metricsAddr     string
		report          bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario against a topology",
		Long: `Load a topology, build the allocation engine from it, and execute a
scenario op by op. Failing ops are recorded and the run continues.

With --db, the run, its operation timeline, and the final request
snapshots are persisted for later reporting.`,
		Example: `  # Run a YAML scenario
  kerb run --topology topology.yaml --scenario scenario.yaml

  # Run a Starlark scenario with parameters
  kerb run --topology topology.cue --scenario rush.star --param count=50 --param zone=zone-a

  # Persist the run and print an analytics report
  kerb run --topology topology.yaml --scenario scenario.yaml --db kerb.db --report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			loader := config.NewLoader()
			topo, err := loader.LoadTopology(topologyPath)
			if err != nil {
				return err
			}

			polEngine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("create policy engine: %w", err)
			}
			polResult, err := polEngine.EvaluateTopology(ctx, topo)
			if err != nil {
				return err
			}
			for _, w := range polResult.Warnings {
				log.Warn().Str("policy", w.Policy).Msg(w.Message)
			}
			if !polResult.Allowed {
				for _, v := range polResult.Violations {
					log.Error().Str("policy", v.Policy).Msg(v.Message)
				}
				return fmt.Errorf("topology %s blocked by %d policy violations", topologyPath, len(polResult.Violations))
			}

			caps, err := config.BuildMap(topo)
			if err != nil {
				return err
			}

			tel, err := buildTelemetry(metricsAddr)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tel.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Telemetry shutdown failed")
				}
			}()
			if metricsAddr != "" {
				if err := tel.StartMetricsServer(); err != nil {
					return fmt.Errorf("start metrics server: %w", err)
				}
			}

			journalOpts := []rollback.Option{
				rollback.WithCapacity(journalCapacity),
				rollback.WithLogger(tel.Logger.NewComponentLogger("rollback").Zerolog()),
			}
			if strictJournal {
				journalOpts = append(journalOpts, rollback.WithOverflowPolicy(rollback.OverflowReject))
			}

			eng := engine.New(caps,
				engine.WithTelemetry(tel),
				engine.WithJournal(rollback.NewJournal(journalOpts...)),
			)

			runnerOpts := []scenario.Option{scenario.WithTelemetry(tel)}
			if dbPath != "" {
				store, err := openStore(ctx, dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				runnerOpts = append(runnerOpts, scenario.WithStore(store))
			}

			scn, err := loader.LoadScenario(scenarioPath, parseParams(params))
			if err != nil {
				return err
			}

			runner := scenario.NewRunner(eng, runnerOpts...)
			result, err := runner.Run(ctx, scn)
			if err != nil {
				return err
			}

			fmt.Printf("Run %s: %d ops, %d ok, %d failed\n",
				result.RunID, len(result.Ops), result.Succeeded, result.Failed)
			for _, op := range result.Ops {
				if op.Failed() {
					fmt.Printf("  ✗ op %d (%s): %s\n", op.Index, op.Op.Action, op.Error)
				}
			}

			summary := eng.Summary()
			fmt.Printf("Slots: %d/%d occupied, journal depth %d\n",
				summary.OccupiedSlots, summary.TotalSlots, summary.JournalDepth)

			if report {
				return analytics.NewAnalyzer(eng).Report(time.Now()).WriteJSON(os.Stdout)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&topologyPath, "topology", "t", "", "topology file (.yaml or .cue)")
	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file (.yaml or .star)")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "scenario parameters (key=value)")
	cmd.Flags().IntVar(&journalCapacity, "journal-capacity", rollback.DefaultCapacity, "rollback journal capacity")
	cmd.Flags().BoolVar(&strictJournal, "strict-journal", false, "fail allocations when the journal is full instead of evicting")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	cmd.Flags().BoolVar(&report, "report", false, "print an analytics report after the run")
	_ = cmd.MarkFlagRequired("topology")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

// buildTelemetry derives a telemetry config from the global flags.
func buildTelemetry(metricsAddr string) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Logging.Format = "json"
	}
	if metricsAddr != "" {
		cfg.Metrics.ListenAddress = metricsAddr
	}
	return telemetry.NewTelemetry(cfg)
}

func openStore(ctx context.Context, path string) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// parseParams converts string flags to typed Starlark inputs. Numbers
// and booleans pass through as their native types.
func parseParams(params map[string]string) map[string]interface{} {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(params))
	for key, val := range params {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			out[key] = n
			continue
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			out[key] = f
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			out[key] = b
			continue
		}
		out[key] = val
	}
	return out
}
