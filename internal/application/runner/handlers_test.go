package runner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/agentops/agentops-go/internal/shared"
)

func TestNormalizeHandler(t *testing.T) {
	s := newTestService(t, nil)

	queue := []interface{}{
		map[string]interface{}{"id": "b", "dependencies": []string{"a"}},
		map[string]interface{}{"id": "a"},
		map[string]interface{}{"id": ""},
	}

	record, err := s.RunTask(context.Background(), shared.AgentNormalizeQueue, shared.Task{
		ID:       "norm",
		Metadata: map[string]interface{}{"tasks": queue},
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	var payload struct {
		Report struct {
			Input int `json:"input"`
			Kept  int `json:"kept"`
		} `json:"report"`
		Tasks []shared.Task `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(record.Output), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload.Report.Input != 3 || payload.Report.Kept != 2 {
		t.Fatalf("report = %+v", payload.Report)
	}
	if payload.Tasks[0].ID != "a" || payload.Tasks[1].ID != "b" {
		t.Fatalf("tasks = %+v, expected dependency order", payload.Tasks)
	}
}

func TestNormalizeHandlerMissingQueue(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.RunTask(context.Background(), shared.AgentNormalizeQueue, shared.Task{ID: "norm"})
	var validationErr *shared.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, expected ValidationError", err)
	}
}

func TestSuccessVerifierHandler(t *testing.T) {
	s := newTestService(t, nil)

	first, err := s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{ID: "deploy"})
	if err != nil {
		t.Fatalf("setup run failed: %v", err)
	}

	record, err := s.RunTask(context.Background(), shared.AgentSuccessVerifier, shared.Task{
		ID:       "verify",
		Metadata: map[string]interface{}{"taskId": "deploy"},
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	var verdict struct {
		TaskID   string `json:"taskId"`
		RunID    string `json:"runId"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal([]byte(record.Output), &verdict); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !verdict.Verified {
		t.Fatal("completed run not verified")
	}
	if verdict.RunID != first.RunID {
		t.Fatalf("RunID = %q, expected %q", verdict.RunID, first.RunID)
	}
}

func TestSuccessVerifierHandlerNoRun(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.RunTask(context.Background(), shared.AgentSuccessVerifier, shared.Task{
		ID:       "verify",
		Metadata: map[string]interface{}{"taskId": "never-ran"},
	})
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestAnalyticsHandler(t *testing.T) {
	s := newTestService(t, nil)
	s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{ID: "t1"})

	record, err := s.RunTask(context.Background(), shared.AgentAnalyticsCollector, shared.Task{ID: "stats"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	var stats struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(record.Output), &stats); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if stats.Total < 1 {
		t.Fatalf("Total = %d, expected at least the setup run", stats.Total)
	}
}

func TestPatternHandlerCountsFailures(t *testing.T) {
	s := newTestService(t, nil)
	s.SetHandler(shared.AgentOptimizer, func(ctx context.Context, rc *RunContext) (string, error) {
		return "", errors.New("boom")
	})
	s.RunTask(context.Background(), shared.AgentOptimizer, shared.Task{ID: "t1"})

	record, err := s.RunTask(context.Background(), shared.AgentPatternRecognizer, shared.Task{ID: "patterns"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	var payload struct {
		Failures        int                      `json:"failures"`
		FailuresByAgent map[shared.AgentKind]int `json:"failuresByAgent"`
	}
	if err := json.Unmarshal([]byte(record.Output), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload.Failures != 1 {
		t.Fatalf("Failures = %d", payload.Failures)
	}
	if payload.FailuresByAgent[shared.AgentOptimizer] != 1 {
		t.Fatalf("FailuresByAgent = %v", payload.FailuresByAgent)
	}
}

func TestOrchestratorHandler(t *testing.T) {
	s := newTestService(t, nil)

	record, err := s.RunTask(context.Background(), shared.AgentOrchestrator, shared.Task{ID: "t1"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !strings.Contains(record.Output, "runs") {
		t.Fatalf("Output = %q", record.Output)
	}
}

func TestRecoveryStatusHandler(t *testing.T) {
	s := newTestService(t, nil)

	record, err := s.RunTask(context.Background(), shared.AgentRecovery, shared.Task{ID: "t1"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if record.Output != "all agents healthy" {
		t.Fatalf("Output = %q", record.Output)
	}
}

func TestTasksFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		count    int
		wantErr  bool
	}{
		{
			name:     "typed tasks",
			metadata: map[string]interface{}{"tasks": []shared.Task{{ID: "a"}}},
			count:    1,
		},
		{
			name: "raw json shapes",
			metadata: map[string]interface{}{"tasks": []interface{}{
				map[string]interface{}{"id": "a"},
				map[string]interface{}{"id": "b"},
			}},
			count: 2,
		},
		{name: "missing key", metadata: map[string]interface{}{}, wantErr: true},
		{name: "wrong shape", metadata: map[string]interface{}{"tasks": "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := tasksFromMetadata(tt.metadata)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("tasksFromMetadata failed: %v", err)
			}
			if len(tasks) != tt.count {
				t.Fatalf("got %d tasks, expected %d", len(tasks), tt.count)
			}
		})
	}
}
