package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentops/agentops-go/internal/shared"
)

var recoverFormat string

// RecoverCmd recovers a failed agent.
var RecoverCmd = &cobra.Command{
	Use:   "recover <agent-kind>",
	Short: "Recover a failed agent",
	Long: `Recover a failed agent instance.

Recovery probes the agent with exponential backoff and reactivates it when
a probe succeeds. Only agents in the failed state can be recovered.`,
	Example: `  agentops recover run-agent`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		a, err := app.Runner.Agent(shared.AgentKind(args[0]))
		if err != nil {
			return err
		}

		outcome, recoverErr := app.Recovery.Recover(cmd.Context(), a)
		if outcome == nil {
			return recoverErr
		}

		if recoverFormat == "json" {
			output, _ := json.MarshalIndent(outcome, "", "  ")
			fmt.Println(string(output))
			return recoverErr
		}

		if outcome.Recovered {
			fmt.Printf("Agent %s recovered after %d attempt(s) in %dms\n",
				outcome.AgentID, outcome.Attempts, outcome.Duration)
			return nil
		}
		fmt.Printf("Agent %s not recovered (status: %s)\n", outcome.AgentID, outcome.Status)
		return recoverErr
	},
}

func init() {
	RecoverCmd.Flags().StringVar(&recoverFormat, "format", "text", "Output format (text or json)")
}
