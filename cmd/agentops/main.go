// Package main provides the CLI entry point for agentops-go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentops/agentops-go/cmd/agentops/commands"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentops",
	Short: "AgentOps - agent operations toolkit",
	Long: `AgentOps runs operational agent tasks through a policy-guarded
command runner and records every run.

It provides:
  - Built-in agent kinds for orchestration, metrics, validation and recovery
  - Task queues with normalization and dependency-ordered execution
  - A shell execution policy with a per-command allowlist
  - Run history in SQLite with query, stats and pruning`,
	Version: commands.Version,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		commands.CloseApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to the configuration file")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.WorkflowCmd)
	rootCmd.AddCommand(commands.QueueCmd)
	rootCmd.AddCommand(commands.AgentsCmd)
	rootCmd.AddCommand(commands.RecoverCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.MetricsCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.StatusCmd)
}
