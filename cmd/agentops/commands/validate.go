package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var validateFormat string

// ValidateCmd runs the validation suite.
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and toolchain",
	Long: `Validate the configuration and probe the surrounding toolchain.

The suite checks the loaded configuration and runs each toolchain probe
(git, go) through the command runner.`,
	Example: `  agentops validate
  agentops validate --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		report := app.Validation.RunSuite(cmd.Context())

		if validateFormat == "json" {
			output, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(output))
		} else {
			for _, check := range report.Checks {
				icon := "OK "
				if !check.OK {
					icon = "ERR"
				}
				fmt.Printf("  [%s] %-12s %s\n", icon, check.Name, check.Detail)
			}
		}

		if !report.OK {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	ValidateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text or json)")
}
