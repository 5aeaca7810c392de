package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Workflow command flags
var (
	workflowFile   string
	workflowFormat string
)

// WorkflowCmd groups workflow execution operations.
var WorkflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run task workflows",
}

var workflowRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workflow from a task queue file",
	Long: `Run a workflow of tasks loaded from a JSON or YAML file.

The queue is normalized first: empty and duplicate tasks are dropped,
unknown dependencies are stripped, then tasks run in dependency order.
Tasks whose dependencies failed are cancelled.`,
	Example: `  agentops workflow run -f tasks.yaml
  agentops workflow run -f tasks.json --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}

		tasks, err := loadQueue(workflowFile)
		if err != nil {
			return err
		}

		result, err := app.Runner.RunWorkflow(cmd.Context(), tasks)
		if err != nil {
			return err
		}

		if workflowFormat == "json" {
			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Workflow:  %s\n", result.ID)
		fmt.Printf("Status:    %s\n", result.Status)
		fmt.Printf("Completed: %d\n", result.TasksCompleted)
		fmt.Printf("Failed:    %d\n", result.TasksFailed)
		fmt.Printf("Duration:  %dms\n", result.Duration)
		if len(result.ExecutionOrder) > 0 {
			fmt.Printf("Order:     %s\n", strings.Join(result.ExecutionOrder, " -> "))
		}
		for _, msg := range result.ErrorMessages {
			fmt.Printf("  ! %s\n", msg)
		}
		return nil
	},
}

func init() {
	WorkflowCmd.PersistentFlags().StringVarP(&workflowFile, "file", "f", "", "Task queue file (JSON or YAML)")
	WorkflowCmd.PersistentFlags().StringVar(&workflowFormat, "format", "text", "Output format (text or json)")
	WorkflowCmd.AddCommand(workflowRunCmd)
}
