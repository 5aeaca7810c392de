package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentops/agentops-go/internal/shared"
)

// Run command flags
var (
	runTaskID      string
	runDescription string
	runCommand     string
	runPriority    int
	runTimeout     time.Duration
	runFormat      string
)

// RunCmd executes a single agent task.
var RunCmd = &cobra.Command{
	Use:   "run <agent-kind>",
	Short: "Run a task on an agent",
	Long: `Run a single task on the named agent kind.

The agent kind selects a built-in handler (orchestrator, metrics-dashboard,
validation, ...). Use --command to hand the agent a shell command; commands
are checked against the execution policy before running.`,
	Example: `  # Render the metrics dashboard
  agentops run metrics-dashboard

  # Run a command through the generic agent
  agentops run run-agent --command "git status"

  # Run the validation suite as a task
  agentops run validation --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		kind := shared.AgentKind(args[0])
		if !app.Registry.HasKind(kind) {
			return fmt.Errorf("unknown agent kind %q (see 'agentops agents list')", args[0])
		}

		taskID := runTaskID
		if taskID == "" {
			taskID = uuid.NewString()
		}

		task := shared.Task{
			ID:          taskID,
			Kind:        kind,
			Description: runDescription,
			Priority:    shared.IntToPriority(runPriority),
		}
		if runCommand != "" {
			task.Metadata = map[string]interface{}{"command": runCommand}
		}

		ctx := cmd.Context()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		record, runErr := app.Runner.RunTask(ctx, kind, task)

		if runFormat == "json" && record != nil {
			output, _ := json.MarshalIndent(record, "", "  ")
			fmt.Println(string(output))
		} else if record != nil {
			fmt.Printf("Run:      %s\n", record.RunID)
			fmt.Printf("Agent:    %s\n", record.Agent)
			fmt.Printf("Status:   %s\n", record.Status)
			fmt.Printf("Duration: %dms\n", record.Duration)
			if record.Output != "" {
				fmt.Printf("\n%s\n", record.Output)
			}
			if record.Error != "" {
				fmt.Printf("\nError: %s\n", record.Error)
			}
		}

		return runErr
	},
}

func init() {
	RunCmd.Flags().StringVar(&runTaskID, "task-id", "", "Task ID (generated when empty)")
	RunCmd.Flags().StringVarP(&runDescription, "description", "d", "", "Task description")
	RunCmd.Flags().StringVarP(&runCommand, "command", "c", "", "Shell command for the agent to run")
	RunCmd.Flags().IntVarP(&runPriority, "priority", "p", 5, "Task priority (0-10)")
	RunCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall task timeout (0 disables)")
	RunCmd.Flags().StringVar(&runFormat, "format", "text", "Output format (text or json)")
}
