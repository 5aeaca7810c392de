package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agentops/agentops-go/internal/application/metrics"
	"github.com/agentops/agentops-go/internal/application/validation"
	"github.com/agentops/agentops-go/internal/config"
	"github.com/agentops/agentops-go/internal/domain/agent"
	"github.com/agentops/agentops-go/internal/infrastructure/events"
	"github.com/agentops/agentops-go/internal/infrastructure/history"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
	"github.com/agentops/agentops-go/internal/infrastructure/worker"
	"github.com/agentops/agentops-go/internal/shared"
)

func newTestService(t *testing.T, bus *events.Bus) *Service {
	t.Helper()

	store := history.NewRunStore(":memory:")
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	sh := shell.NewRunner(shell.Policy{AllowedCommands: []string{"echo"}}, nil)

	s, err := NewService(Deps{
		Registry:   agent.NewRegistry(),
		Shell:      sh,
		Bus:        bus,
		Store:      store,
		Dispatcher: worker.NewDispatcher(4),
		Metrics:    metrics.NewCollector(sh, store, nil),
		Validation: validation.NewService(cfg, sh, nil),
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return s
}

func TestRunTaskGeneric(t *testing.T) {
	s := newTestService(t, nil)

	record, err := s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{
		ID:          "t1",
		Description: "plain acknowledgement",
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if record.Status != shared.TaskStatusCompleted {
		t.Fatalf("Status = %q", record.Status)
	}
	if record.RunID == "" {
		t.Fatal("RunID not assigned")
	}
	if !strings.Contains(record.Output, "t1") {
		t.Fatalf("Output = %q", record.Output)
	}

	// The run is persisted.
	stored, err := s.deps.Store.Get(record.RunID)
	if err != nil || stored == nil {
		t.Fatalf("run not persisted: %v", err)
	}
	if stored.Agent != shared.AgentRunAgent {
		t.Fatalf("stored Agent = %q", stored.Agent)
	}
}

func TestRunTaskShellCommand(t *testing.T) {
	s := newTestService(t, nil)

	record, err := s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{
		ID:       "t1",
		Metadata: map[string]interface{}{"command": "echo from-task"},
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !strings.Contains(record.Output, "from-task") {
		t.Fatalf("Output = %q", record.Output)
	}
}

func TestRunTaskShellDenied(t *testing.T) {
	s := newTestService(t, nil)

	record, err := s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{
		ID:       "t1",
		Metadata: map[string]interface{}{"command": "curl http://example.com"},
	})
	if err == nil {
		t.Fatal("expected policy denial")
	}
	if record == nil || record.Status != shared.TaskStatusFailed {
		t.Fatalf("record = %+v", record)
	}

	var perm *shared.PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("error = %v, expected PermissionError", err)
	}
}

func TestRunTaskUnknownKind(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.RunTask(context.Background(), shared.AgentKind("bogus"), shared.Task{ID: "t1"})
	var validationErr *shared.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, expected ValidationError", err)
	}
}

func TestRunTaskUsesTaskKindWhenEmpty(t *testing.T) {
	s := newTestService(t, nil)

	record, err := s.RunTask(context.Background(), "", shared.Task{
		ID:   "t1",
		Kind: shared.AgentAnalyticsCollector,
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if record.Agent != shared.AgentAnalyticsCollector {
		t.Fatalf("Agent = %q", record.Agent)
	}
}

func TestRunTaskFailureMarksAgent(t *testing.T) {
	s := newTestService(t, nil)
	s.SetHandler(shared.AgentOptimizer, func(ctx context.Context, rc *RunContext) (string, error) {
		return "", errors.New("tuning exploded")
	})

	_, err := s.RunTask(context.Background(), shared.AgentOptimizer, shared.Task{ID: "t1"})
	if err == nil {
		t.Fatal("expected handler error")
	}

	a, _ := s.Agent(shared.AgentOptimizer)
	if a.GetStatus() != shared.AgentStatusFailed {
		t.Fatalf("agent status = %q, expected failed", a.GetStatus())
	}

	// A failed agent refuses further work until recovered.
	_, err = s.RunTask(context.Background(), shared.AgentOptimizer, shared.Task{ID: "t2"})
	var execErr *shared.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, expected ExecutionError for unavailable agent", err)
	}
}

func TestRunTaskEmitsEvents(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	started := bus.Subscribe(shared.EventRunStarted)
	completed := bus.Subscribe(shared.EventRunCompleted)

	s := newTestService(t, bus)
	record, err := s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{ID: "t1"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	select {
	case event := <-started:
		if event.Payload["runId"] != record.RunID {
			t.Fatalf("started payload = %v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no run:started event")
	}
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("no run:completed event")
	}
}

func TestRunWorkflowOrdersAndAggregates(t *testing.T) {
	s := newTestService(t, nil)

	result, err := s.RunWorkflow(context.Background(), []shared.Task{
		{ID: "second", Kind: shared.AgentRunAgent, Dependencies: []string{"first"}},
		{ID: "first", Kind: shared.AgentRunAgent},
	})
	if err != nil {
		t.Fatalf("RunWorkflow failed: %v", err)
	}

	if result.Status != string(shared.TaskStatusCompleted) {
		t.Fatalf("Status = %q", result.Status)
	}
	if result.TasksCompleted != 2 || result.TasksFailed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.ExecutionOrder) != 2 || result.ExecutionOrder[0] != "first" {
		t.Fatalf("ExecutionOrder = %v", result.ExecutionOrder)
	}
}

func TestRunWorkflowAutoScalesPool(t *testing.T) {
	store := history.NewRunStore(":memory:")
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dispatcher := worker.NewDispatcher(2)
	pool := worker.NewPoolManager(dispatcher, worker.PoolConfig{
		MinWorkers:         1,
		MaxWorkers:         8,
		InitialSize:        2,
		AutoScale:          true,
		ScaleUpThreshold:   0.8,
		ScaleDownThreshold: 0.2,
	})

	sh := shell.NewRunner(shell.Policy{AllowedCommands: []string{"echo"}}, nil)
	s, err := NewService(Deps{
		Registry:   agent.NewRegistry(),
		Shell:      sh,
		Store:      store,
		Dispatcher: dispatcher,
		Pool:       pool,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := s.RunWorkflow(context.Background(), []shared.Task{
		{ID: "only", Kind: shared.AgentRunAgent},
	}); err != nil {
		t.Fatalf("RunWorkflow failed: %v", err)
	}

	// The pool is idle after the task, so the check scales it down and the
	// dispatcher bound follows.
	if pool.Size() != 1 {
		t.Fatalf("pool size = %d, expected scale down to 1", pool.Size())
	}
	if dispatcher.Concurrency() != 1 {
		t.Fatalf("dispatcher concurrency = %d, expected 1", dispatcher.Concurrency())
	}
}

func TestRunWorkflowCancelsDependentsOfFailures(t *testing.T) {
	s := newTestService(t, nil)
	s.SetHandler(shared.AgentOptimizer, func(ctx context.Context, rc *RunContext) (string, error) {
		return "", errors.New("nope")
	})

	result, err := s.RunWorkflow(context.Background(), []shared.Task{
		{ID: "breaks", Kind: shared.AgentOptimizer},
		{ID: "depends", Kind: shared.AgentRunAgent, Dependencies: []string{"breaks"}},
		{ID: "independent", Kind: shared.AgentRunAgent},
	})
	if err != nil {
		t.Fatalf("RunWorkflow failed: %v", err)
	}

	if result.Status != string(shared.TaskStatusFailed) {
		t.Fatalf("Status = %q", result.Status)
	}
	if result.TasksCompleted != 1 {
		t.Fatalf("TasksCompleted = %d, expected only the independent task", result.TasksCompleted)
	}
	if result.TasksFailed != 2 {
		t.Fatalf("TasksFailed = %d, expected failure plus cancelled dependent", result.TasksFailed)
	}

	foundCancelled := false
	for _, msg := range result.ErrorMessages {
		if strings.Contains(msg, "depends") && strings.Contains(msg, "dependency failed") {
			foundCancelled = true
		}
	}
	if !foundCancelled {
		t.Fatalf("ErrorMessages = %v, missing dependency cancellation", result.ErrorMessages)
	}
}

func TestRunWorkflowRejectsCycles(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.RunWorkflow(context.Background(), []shared.Task{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	})
	if err == nil {
		t.Fatal("expected circular dependency error")
	}
}

func TestAgentsSnapshots(t *testing.T) {
	s := newTestService(t, nil)

	if len(s.Agents()) != 0 {
		t.Fatal("expected no instances before any run")
	}

	s.RunTask(context.Background(), shared.AgentRunAgent, shared.Task{ID: "t1"})
	s.RunTask(context.Background(), shared.AgentValidation, shared.Task{ID: "t2"})

	agents := s.Agents()
	if len(agents) != 2 {
		t.Fatalf("got %d instances, expected 2", len(agents))
	}
	if agents[0].Kind >= agents[1].Kind {
		t.Fatalf("snapshots not sorted: %v", agents)
	}
}
