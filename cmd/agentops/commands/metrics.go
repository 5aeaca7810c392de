package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentops/agentops-go/internal/application/metrics"
)

// Metrics command flags
var (
	metricsCommits int
	metricsFormat  string
)

// MetricsCmd renders the metrics dashboard.
var MetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the metrics dashboard",
	Long: `Show the metrics dashboard: host resource usage, run history
statistics and recent git commits.

Each section degrades independently; a missing git repository or an empty
run history does not fail the dashboard.`,
	Example: `  agentops metrics
  agentops metrics --commits 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		dash := metrics.NewDashboard(app.Metrics, app.Logger)
		dash.Commits = metricsCommits
		return dash.Render(cmd.Context(), os.Stdout)
	},
}

var metricsSystemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show a host resource sample",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		sample, err := app.Metrics.Sample()
		if err != nil {
			return err
		}

		if metricsFormat == "json" {
			output, _ := json.MarshalIndent(sample, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("CPU:    %.1f%%\n", sample.CPUPercent)
		fmt.Printf("Memory: %.1f%% (%d / %d bytes)\n",
			sample.MemUsedPercent, sample.MemUsedBytes, sample.MemTotalBytes)
		return nil
	},
}

func init() {
	MetricsCmd.Flags().IntVar(&metricsCommits, "commits", 10, "Number of recent commits to show")
	metricsSystemCmd.Flags().StringVar(&metricsFormat, "format", "text", "Output format (text or json)")
	MetricsCmd.AddCommand(metricsSystemCmd)
}
