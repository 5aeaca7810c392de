package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentops/agentops-go/internal/infrastructure/history"
	"github.com/agentops/agentops-go/internal/shared"
)

// History command flags
var (
	historyAgent  string
	historyStatus string
	historyLimit  int
	historyOffset int
	historyFormat string
	historyBefore string
)

// HistoryCmd groups run history operations.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the run history",
}

var historyQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List recorded runs, newest first",
	Example: `  agentops history query --limit 20
  agentops history query --agent validation --status failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		records, err := app.Store.Query(history.RunQuery{
			Agent:  shared.AgentKind(historyAgent),
			Status: shared.TaskStatus(historyStatus),
			Limit:  historyLimit,
			Offset: historyOffset,
		})
		if err != nil {
			return err
		}

		if historyFormat == "json" {
			output, _ := json.MarshalIndent(records, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		if len(records) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, r := range records {
			started := time.UnixMilli(r.StartedAt).Format(time.RFC3339)
			fmt.Printf("  %s  %-22s %-10s %6dms  %s\n",
				started, r.Agent, r.Status, r.Duration, r.RunID)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		stats, err := app.Store.Stats()
		if err != nil {
			return err
		}

		if historyFormat == "json" {
			output, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Total runs:    %d\n", stats.Total)
		fmt.Printf("Success rate:  %.1f%%\n", stats.SuccessRate*100)
		fmt.Printf("Mean duration: %.1fms\n", stats.MeanDuration)
		for status, count := range stats.ByStatus {
			fmt.Printf("  %-12s %d\n", status, count)
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:     "prune",
	Short:   "Delete runs started before a cutoff",
	Example: `  agentops history prune --before 2026-01-01T00:00:00Z`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		if historyBefore == "" {
			return fmt.Errorf("--before is required (RFC3339 timestamp)")
		}
		cutoff, err := time.Parse(time.RFC3339, historyBefore)
		if err != nil {
			return fmt.Errorf("invalid --before timestamp: %w", err)
		}

		pruned, err := app.Store.Prune(cutoff.UnixMilli())
		if err != nil {
			return err
		}

		fmt.Printf("Pruned %d run(s)\n", pruned)
		return nil
	},
}

func init() {
	HistoryCmd.PersistentFlags().StringVar(&historyFormat, "format", "text", "Output format (text or json)")
	historyQueryCmd.Flags().StringVar(&historyAgent, "agent", "", "Filter by agent kind")
	historyQueryCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by run status")
	historyQueryCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum runs to return")
	historyQueryCmd.Flags().IntVar(&historyOffset, "offset", 0, "Runs to skip")
	historyPruneCmd.Flags().StringVar(&historyBefore, "before", "", "Delete runs started before this RFC3339 timestamp")
	HistoryCmd.AddCommand(historyQueryCmd)
	HistoryCmd.AddCommand(historyStatsCmd)
	HistoryCmd.AddCommand(historyPruneCmd)
}
