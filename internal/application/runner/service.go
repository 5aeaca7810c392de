// Package runner executes agent tasks and task queues.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentops/agentops-go/internal/application/metrics"
	"github.com/agentops/agentops-go/internal/application/validation"
	"github.com/agentops/agentops-go/internal/domain/agent"
	"github.com/agentops/agentops-go/internal/domain/task"
	"github.com/agentops/agentops-go/internal/infrastructure/events"
	"github.com/agentops/agentops-go/internal/infrastructure/history"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
	"github.com/agentops/agentops-go/internal/infrastructure/worker"
	"github.com/agentops/agentops-go/internal/logging"
	"github.com/agentops/agentops-go/internal/shared"
)

// Deps holds the collaborators a runner Service needs.
type Deps struct {
	Registry   *agent.Registry
	Shell      *shell.Runner
	Bus        *events.Bus
	Store      *history.RunStore
	Dispatcher *worker.Dispatcher
	Pool       *worker.PoolManager
	Metrics    *metrics.Collector
	Validation *validation.Service
	Logger     *zap.Logger
}

// Service runs tasks through registered agent handlers.
type Service struct {
	deps     Deps
	logger   *zap.Logger
	handlers map[shared.AgentKind]Handler
	agents   *instancePool
}

// NewService creates a runner service with the default handler bindings.
func NewService(deps Deps) (*Service, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Shell == nil {
		return nil, fmt.Errorf("shell runner is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("run store is required")
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = worker.NewDispatcher(4)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		deps:   deps,
		logger: logger,
		agents: newInstancePool(deps.Registry),
	}
	s.handlers = defaultHandlers(s)
	return s, nil
}

// Agent returns the live agent instance for a kind, creating it on first use.
func (s *Service) Agent(kind shared.AgentKind) (*agent.Agent, error) {
	return s.agents.get(kind)
}

// Agents returns snapshots of all live agent instances.
func (s *Service) Agents() []shared.Agent {
	return s.agents.snapshots()
}

// RunTask executes a single task on the agent kind it names (or the task's
// Kind field when kind is empty) and records the outcome.
func (s *Service) RunTask(ctx context.Context, kind shared.AgentKind, t shared.Task) (*shared.RunRecord, error) {
	if kind == "" {
		kind = t.Kind
	}
	handler, ok := s.handlers[kind]
	if !ok {
		return nil, shared.NewValidationError(
			fmt.Sprintf("unknown agent kind %q", kind),
			map[string]interface{}{"kind": string(kind)},
		)
	}

	a, err := s.agents.get(kind)
	if err != nil {
		return nil, err
	}
	if !a.Available() {
		return nil, shared.NewExecutionError(
			fmt.Sprintf("agent %s is not available (status: %s)", a.ID, a.GetStatus()),
			map[string]interface{}{"agent": a.ID},
		)
	}

	record := &shared.RunRecord{
		RunID:     uuid.NewString(),
		Agent:     kind,
		TaskID:    t.ID,
		StartedAt: shared.Now(),
	}

	s.logger.Info("running agent task",
		zap.String("agent", string(kind)),
		zap.String("task", t.ID),
		zap.String("run", record.RunID))

	a.SetBusy()
	if s.deps.Bus != nil {
		s.deps.Bus.EmitRunStarted(record.RunID, kind, t.ID)
	}

	start := time.Now()
	var output string
	runErr := s.deps.Dispatcher.Dispatch(ctx, record.RunID, kind, func(ctx context.Context) error {
		var err error
		output, err = handler(ctx, &RunContext{Task: t, Service: s})
		return err
	})
	record.Duration = time.Since(start).Milliseconds()
	record.Output = output

	if runErr != nil {
		record.Status = shared.TaskStatusFailed
		record.Error = runErr.Error()
		a.MarkFailed()
		if s.deps.Bus != nil {
			s.deps.Bus.EmitRunFailed(record.RunID, kind, runErr.Error())
		}
		s.logger.Error("agent task failed",
			zap.String("agent", string(kind)),
			zap.String("run", record.RunID),
			zap.Error(runErr))
	} else {
		record.Status = shared.TaskStatusCompleted
		a.Activate()
		if s.deps.Bus != nil {
			s.deps.Bus.EmitRunCompleted(record.RunID, kind, record.Duration)
		}
		s.logger.Info("agent task completed",
			zap.String("agent", string(kind)),
			zap.String("run", record.RunID),
			zap.Int64("durationMs", record.Duration))
	}

	if err := s.deps.Store.Record(*record); err != nil {
		s.logger.Warn("failed to persist run record",
			zap.String("run", record.RunID),
			zap.Error(err))
	}

	if runErr != nil {
		return record, runErr
	}
	return record, nil
}

// RunWorkflow normalizes a task queue and executes it in dependency order.
// Failed tasks do not stop the queue; tasks depending on a failed task are
// cancelled.
func (s *Service) RunWorkflow(ctx context.Context, queue []shared.Task) (*shared.WorkflowResult, error) {
	normalized, report, err := task.NormalizeQueue(queue)
	if err != nil {
		return nil, err
	}
	if s.deps.Bus != nil {
		s.deps.Bus.EmitQueueNormalized(report.Input, report.Kept)
	}

	result := &shared.WorkflowResult{
		ID:     uuid.NewString(),
		Status: string(shared.TaskStatusCompleted),
	}
	start := time.Now()

	failed := make(map[string]bool, len(normalized))

	for _, t := range normalized {
		if ctx.Err() != nil {
			result.Status = string(shared.TaskStatusCancelled)
			break
		}

		if blockedBy(t, failed) {
			result.ErrorMessages = append(result.ErrorMessages,
				fmt.Sprintf("task %s cancelled: dependency failed", t.ID))
			failed[t.ID] = true
			result.TasksFailed++
			continue
		}

		kind := t.Kind
		if kind == "" {
			kind = shared.AgentRunAgent
		}

		_, err := s.RunTask(ctx, kind, t)
		result.ExecutionOrder = append(result.ExecutionOrder, t.ID)
		s.autoScale()
		if err != nil {
			failed[t.ID] = true
			result.TasksFailed++
			result.ErrorMessages = append(result.ErrorMessages,
				fmt.Sprintf("task %s: %s", t.ID, err.Error()))
			continue
		}
		result.TasksCompleted++
	}

	if result.TasksFailed > 0 && result.Status != string(shared.TaskStatusCancelled) {
		result.Status = string(shared.TaskStatusFailed)
	}
	result.Duration = time.Since(start).Milliseconds()

	s.logger.Info("workflow finished", logging.KV(
		"workflow", result.ID,
		"status", result.Status,
		"completed", result.TasksCompleted,
		"failed", result.TasksFailed,
		"durationMs", result.Duration)...)

	return result, nil
}

// autoScale lets the pool react to the current load between tasks.
func (s *Service) autoScale() {
	if s.deps.Pool == nil {
		return
	}
	action, err := s.deps.Pool.CheckAndScale()
	if err != nil {
		s.logger.Debug("auto-scale check failed", zap.Error(err))
		return
	}
	if action != "no scaling needed" && action != "auto-scale disabled" {
		s.logger.Info("pool auto-scaled",
			zap.String("action", action),
			zap.Int("size", s.deps.Pool.Size()))
	}
}

func blockedBy(t shared.Task, failed map[string]bool) bool {
	for _, dep := range t.Dependencies {
		if failed[dep] {
			return true
		}
	}
	return false
}

// ============================================================================
// Instance pool
// ============================================================================

// instancePool lazily creates one live agent per registered kind.
type instancePool struct {
	mu       sync.Mutex
	registry *agent.Registry
	agents   map[shared.AgentKind]*agent.Agent
}

func newInstancePool(registry *agent.Registry) *instancePool {
	return &instancePool{
		registry: registry,
		agents:   make(map[shared.AgentKind]*agent.Agent),
	}
}

func (p *instancePool) get(kind shared.AgentKind) (*agent.Agent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.agents[kind]; ok {
		return a, nil
	}

	spec := p.registry.GetSpec(kind)
	if spec == nil {
		return nil, shared.NewValidationError(
			fmt.Sprintf("unknown agent kind %q", kind),
			map[string]interface{}{"kind": string(kind)},
		)
	}

	a := agent.New(agent.Config{
		Kind:         kind,
		Capabilities: spec.Capabilities,
	})
	p.agents[kind] = a
	return a, nil
}

func (p *instancePool) snapshots() []shared.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]shared.Agent, 0, len(p.agents))
	for _, a := range p.agents {
		result = append(result, a.ToShared())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result
}
