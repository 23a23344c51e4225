package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkerb/openkerb/pkg/stores"
)

func newReportCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show persisted run history",
		Long: `Without arguments, list recent runs from the database. With a run ID,
show that run's operation timeline and final request snapshots.`,
		Example: `  # List recent runs
  kerb report --db kerb.db

  # Show one run in detail
  kerb report --db kerb.db 4f9d6a3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dbPath == "" {
				return fmt.Errorf("--db is required for report")
			}

			store, err := openStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				return listRuns(ctx, store, limit, offset)
			}
			return showRun(ctx, store, args[0])
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")

	return cmd
}

func listRuns(ctx context.Context, store stores.Store, limit, offset int) error {
	runs, err := store.ListRuns(ctx, limit, offset)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %-9s  %s  %s",
			run.ID, run.Status, run.Scenario, run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.Error != nil {
			line += "  (" + *run.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func showRun(ctx context.Context, store stores.Store, runID string) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	events, err := store.GetEvents(ctx, stores.EventFilter{RunID: &runID}, 1000, 0)
	if err != nil {
		return err
	}
	snaps, err := store.ListRequestSnapshots(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run       *stores.Run               `json:"run"`
			Events    []*stores.RequestEvent    `json:"events"`
			Snapshots []*stores.RequestSnapshot `json:"snapshots"`
		}{run, events, snaps})
	}

	fmt.Printf("Run %s (%s)\n", run.ID, run.Status)
	fmt.Printf("Scenario:  %s\n", run.Scenario)
	fmt.Printf("Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.CompletedAt != nil {
		fmt.Printf("Completed: %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if run.Error != nil {
		fmt.Printf("Error:     %s\n", *run.Error)
	}

	fmt.Printf("\nTimeline (%d events):\n", len(events))
	for _, event := range events {
		fmt.Printf("  [%-7s] %-14s %s\n", event.Level, event.Type, event.Message)
	}

	fmt.Printf("\nRequests (%d):\n", len(snaps))
	for _, snap := range snaps {
		line := fmt.Sprintf("  %s  %-9s  vehicle=%s zone=%s", snap.RequestID, snap.State, snap.VehicleID, snap.ZoneID)
		if snap.SlotID != nil {
			line += " slot=" + *snap.SlotID
		}
		if snap.CrossZone {
			line += " cross-zone"
		}
		fmt.Println(line)
	}
	return nil
}
