package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentops/agentops-go/internal/domain/task"
	"github.com/agentops/agentops-go/internal/shared"
)

// Queue command flags
var (
	queueFile   string
	queueFormat string
)

// QueueCmd groups task queue operations.
var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Normalize task queues",
}

var queueNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a task queue without running it",
	Example: `  agentops queue normalize -f tasks.yaml
  agentops queue normalize -f tasks.json --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := loadQueue(queueFile)
		if err != nil {
			return err
		}

		normalized, report, err := task.NormalizeQueue(tasks)
		if err != nil {
			return err
		}

		if queueFormat == "json" {
			output, _ := json.MarshalIndent(map[string]interface{}{
				"report": report,
				"tasks":  normalized,
			}, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Input:              %d\n", report.Input)
		fmt.Printf("Kept:               %d\n", report.Kept)
		fmt.Printf("Dropped (empty):    %d\n", report.DroppedEmpty)
		fmt.Printf("Deduplicated:       %d\n", report.Deduplicated)
		fmt.Printf("Defaulted priority: %d\n", report.DefaultedPriority)
		fmt.Printf("Dropped deps:       %d\n", report.DroppedDeps)
		for _, t := range normalized {
			fmt.Printf("  %s [%s] %s\n", t.ID, t.Priority, t.Description)
		}
		return nil
	},
}

// loadQueue reads a task list from a JSON or YAML file. The format follows
// the file extension, defaulting to JSON.
func loadQueue(path string) ([]shared.Task, error) {
	if path == "" {
		return nil, fmt.Errorf("a queue file is required (use -f)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queue %s: %w", path, err)
	}

	var tasks []shared.Task
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &tasks)
	default:
		err = json.Unmarshal(data, &tasks)
	}
	if err != nil {
		return nil, fmt.Errorf("parse queue %s: %w", path, err)
	}
	return tasks, nil
}

func init() {
	QueueCmd.PersistentFlags().StringVarP(&queueFile, "file", "f", "", "Task queue file (JSON or YAML)")
	QueueCmd.PersistentFlags().StringVar(&queueFormat, "format", "text", "Output format (text or json)")
	QueueCmd.AddCommand(queueNormalizeCmd)
}
