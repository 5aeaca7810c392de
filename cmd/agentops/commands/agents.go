package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentops/agentops-go/internal/shared"
)

// Agents command flags
var (
	agentsFormat string
	agentsTag    string
	agentsCaps   []string
)

// AgentsCmd groups agent inspection operations.
var AgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the built-in agent kinds",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered agent kinds",
	Example: `  agentops agents list
  agentops agents list --tag observability
  agentops agents list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		specs := app.Registry.GetAllSpecs()
		if agentsTag != "" {
			kinds := app.Registry.ListByTag(agentsTag)
			byKind := make(map[shared.AgentKind]bool, len(kinds))
			for _, k := range kinds {
				byKind[k] = true
			}
			filtered := specs[:0]
			for _, spec := range specs {
				if byKind[spec.Kind] {
					filtered = append(filtered, spec)
				}
			}
			specs = filtered
		}

		if agentsFormat == "json" {
			output, _ := json.MarshalIndent(specs, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Registered agent kinds: %d\n\n", len(specs))
		for _, spec := range specs {
			fmt.Printf("  %-22s %s\n", spec.Kind, spec.Description)
		}
		return nil
	},
}

var agentsInfoCmd = &cobra.Command{
	Use:   "info <agent-kind>",
	Short: "Show details for one agent kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		spec := app.Registry.GetSpec(shared.AgentKind(args[0]))
		if spec == nil {
			return fmt.Errorf("unknown agent kind %q", args[0])
		}

		if agentsFormat == "json" {
			output, _ := json.MarshalIndent(spec, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Kind:         %s\n", spec.Kind)
		fmt.Printf("Description:  %s\n", spec.Description)
		fmt.Printf("Capabilities: %s\n", strings.Join(spec.Capabilities, ", "))
		fmt.Printf("Tags:         %s\n", strings.Join(spec.Tags, ", "))
		return nil
	},
}

var agentsMatchCmd = &cobra.Command{
	Use:     "match",
	Short:   "Find the agent kind best matching a capability set",
	Example: `  agentops agents match --capability metrics --capability reporting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		if len(agentsCaps) == 0 {
			return fmt.Errorf("at least one --capability is required")
		}

		kind, score := app.Registry.FindBestMatch(agentsCaps)
		if kind == "" {
			return fmt.Errorf("no agent kind matches capabilities %s", strings.Join(agentsCaps, ", "))
		}

		if agentsFormat == "json" {
			output, _ := json.MarshalIndent(map[string]interface{}{
				"kind":  kind,
				"score": score,
			}, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Best match: %s (score %.2f)\n", kind, score)
		return nil
	},
}

var agentsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show live agent instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		agents := app.Runner.Agents()

		if agentsFormat == "json" {
			output, _ := json.MarshalIndent(agents, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		if len(agents) == 0 {
			fmt.Println("No agents have run yet.")
			return nil
		}
		for _, a := range agents {
			fmt.Printf("  %-22s %s\n", a.Kind, a.Status)
		}
		return nil
	},
}

func init() {
	AgentsCmd.PersistentFlags().StringVar(&agentsFormat, "format", "text", "Output format (text or json)")
	agentsListCmd.Flags().StringVar(&agentsTag, "tag", "", "Filter by tag")
	agentsMatchCmd.Flags().StringSliceVar(&agentsCaps, "capability", nil, "Required capability (repeatable)")
	AgentsCmd.AddCommand(agentsListCmd)
	AgentsCmd.AddCommand(agentsInfoCmd)
	AgentsCmd.AddCommand(agentsMatchCmd)
	AgentsCmd.AddCommand(agentsStatusCmd)
}
