package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Status command flags
var (
	statusFormat string
	statusScale  bool
)

// StatusCmd reports runtime status.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show runtime status",
	Long:  `Show worker pool health, dispatcher activity and run history counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		var scaleAction string
		if statusScale {
			scaleAction, err = app.Pool.CheckAndScale()
			if err != nil {
				return err
			}
		}

		health := app.Pool.GetHealth()
		stats := app.Dispatcher.GetStats()
		runs := app.Store.Count()

		if statusFormat == "json" {
			payload := map[string]interface{}{
				"version":    Version,
				"pool":       health,
				"dispatcher": stats,
				"runs":       runs,
			}
			if scaleAction != "" {
				payload["scale"] = scaleAction
			}
			output, _ := json.MarshalIndent(payload, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("agentops %s\n\n", Version)
		if scaleAction != "" {
			fmt.Printf("Scale:      %s\n", scaleAction)
		}
		fmt.Printf("Pool:       %s (%s)\n", health.Status, health.Message)
		fmt.Printf("Workers:    %d (load %.0f%%)\n", app.Pool.Size(), app.Pool.Load()*100)
		fmt.Printf("Running:    %d\n", stats.Running)
		fmt.Printf("Completed:  %d\n", stats.Completed)
		fmt.Printf("Failed:     %d\n", stats.Failed)
		fmt.Printf("Runs saved: %d\n", runs)
		return nil
	},
}

func init() {
	StatusCmd.Flags().StringVar(&statusFormat, "format", "text", "Output format (text or json)")
	StatusCmd.Flags().BoolVar(&statusScale, "scale", false, "Run an auto-scale check before reporting")
}
