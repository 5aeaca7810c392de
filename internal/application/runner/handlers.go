package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentops/agentops-go/internal/application/metrics"
	"github.com/agentops/agentops-go/internal/domain/task"
	"github.com/agentops/agentops-go/internal/infrastructure/history"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
	"github.com/agentops/agentops-go/internal/shared"
)

// RunContext carries the task and service into a handler.
type RunContext struct {
	Task    shared.Task
	Service *Service
}

// Handler executes one agent kind's work and returns its output.
type Handler func(ctx context.Context, rc *RunContext) (string, error)

func defaultHandlers(s *Service) map[shared.AgentKind]Handler {
	generic := genericHandler(s)
	return map[shared.AgentKind]Handler{
		shared.AgentOrchestrator:         orchestratorHandler(s),
		shared.AgentRunAgent:             generic,
		shared.AgentRecovery:             recoveryStatusHandler(s),
		shared.AgentNormalizeQueue:       normalizeHandler(s),
		shared.AgentMetricsDashboard:     metricsDashboardHandler(s),
		shared.AgentMonitorDashboard:     monitorHandler(s),
		shared.AgentValidation:           validationHandler(s),
		shared.AgentAIIntegration:        generic,
		shared.AgentSuccessVerifier:      successVerifierHandler(s),
		shared.AgentOptimizer:            generic,
		shared.AgentPatternRecognizer:    patternHandler(s),
		shared.AgentAnalyticsCollector:   analyticsHandler(s),
		shared.AgentTaskAccelerator:      generic,
		shared.AgentEmergencyAccelerator: generic,
		shared.AgentStrategyTracker:      generic,
		shared.AgentMaxProcessor:         generic,
	}
}

// SetHandler overrides the handler bound to a kind. Mainly for tests.
func (s *Service) SetHandler(kind shared.AgentKind, h Handler) {
	s.handlers[kind] = h
}

// ============================================================================
// Handlers
// ============================================================================

// genericHandler covers the agent kinds whose work is either a shell command
// named in the task metadata or a plain acknowledgement of the task.
func genericHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		if script, ok := rc.Task.Metadata["command"].(string); ok && script != "" {
			res, err := s.deps.Shell.Run(ctx, shell.Command{Script: script})
			if err != nil {
				return outputOrEmpty(res), err
			}
			return res.Combined(), nil
		}
		return fmt.Sprintf("task %s acknowledged: %s", rc.Task.ID, rc.Task.Description), nil
	}
}

func orchestratorHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		stats := s.deps.Dispatcher.GetStats()
		agents := s.Agents()
		summary := map[string]interface{}{
			"runs":   stats,
			"agents": len(agents),
		}
		return marshalOutput(summary)
	}
}

// recoveryStatusHandler reports agents currently in a non-runnable state.
// Actual recovery runs through the recovery service, not the task path.
func recoveryStatusHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		var unhealthy []shared.Agent
		for _, a := range s.Agents() {
			if a.Status == shared.AgentStatusFailed || a.Status == shared.AgentStatusRecovering {
				unhealthy = append(unhealthy, a)
			}
		}
		if len(unhealthy) == 0 {
			return "all agents healthy", nil
		}
		return marshalOutput(map[string]interface{}{"unhealthy": unhealthy})
	}
}

// normalizeHandler normalizes a task queue carried in the task metadata
// under the "tasks" key.
func normalizeHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		queue, err := tasksFromMetadata(rc.Task.Metadata)
		if err != nil {
			return "", err
		}
		normalized, report, err := task.NormalizeQueue(queue)
		if err != nil {
			return "", err
		}
		if s.deps.Bus != nil {
			s.deps.Bus.EmitQueueNormalized(report.Input, report.Kept)
		}
		return marshalOutput(map[string]interface{}{
			"report": report,
			"tasks":  normalized,
		})
	}
}

func metricsDashboardHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		if s.deps.Metrics == nil {
			return "", shared.NewExecutionError("metrics collector is not configured", nil)
		}
		dash := metrics.NewDashboard(s.deps.Metrics, s.logger)
		var buf bytes.Buffer
		if err := dash.Render(ctx, &buf); err != nil {
			return buf.String(), err
		}
		return buf.String(), nil
	}
}

func monitorHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		if s.deps.Metrics == nil {
			return "", shared.NewExecutionError("metrics collector is not configured", nil)
		}
		sample, err := s.deps.Metrics.Sample()
		if err != nil {
			return "", err
		}
		return marshalOutput(sample)
	}
}

func validationHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		if s.deps.Validation == nil {
			return "", shared.NewExecutionError("validation service is not configured", nil)
		}
		report := s.deps.Validation.RunSuite(ctx)
		out, err := marshalOutput(report)
		if err != nil {
			return "", err
		}
		if !report.OK {
			return out, shared.NewExecutionError("validation suite failed", nil)
		}
		return out, nil
	}
}

// successVerifierHandler checks the last recorded run for the task named in
// the metadata "taskId" key (or the handler's own task ID).
func successVerifierHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		target := rc.Task.ID
		if id, ok := rc.Task.Metadata["taskId"].(string); ok && id != "" {
			target = id
		}
		records, err := s.deps.Store.Query(history.RunQuery{Limit: 200})
		if err != nil {
			return "", err
		}
		for _, r := range records {
			if r.TaskID != target {
				continue
			}
			verdict := map[string]interface{}{
				"taskId":   target,
				"runId":    r.RunID,
				"status":   r.Status,
				"verified": r.Status == shared.TaskStatusCompleted,
			}
			return marshalOutput(verdict)
		}
		return "", shared.NewValidationError(
			fmt.Sprintf("no run recorded for task %q", target),
			map[string]interface{}{"taskId": target},
		)
	}
}

// patternHandler counts failures per agent from the run history.
func patternHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		records, err := s.deps.Store.Query(history.RunQuery{Status: shared.TaskStatusFailed})
		if err != nil {
			return "", err
		}
		byAgent := make(map[shared.AgentKind]int)
		for _, r := range records {
			byAgent[r.Agent]++
		}
		return marshalOutput(map[string]interface{}{
			"failures":        len(records),
			"failuresByAgent": byAgent,
		})
	}
}

func analyticsHandler(s *Service) Handler {
	return func(ctx context.Context, rc *RunContext) (string, error) {
		stats, err := s.deps.Store.Stats()
		if err != nil {
			return "", err
		}
		return marshalOutput(stats)
	}
}

// ============================================================================
// Helpers
// ============================================================================

func marshalOutput(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", shared.NewExecutionError("failed to encode output", map[string]interface{}{"error": err.Error()})
	}
	return string(data), nil
}

func outputOrEmpty(res *shell.Result) string {
	if res == nil {
		return ""
	}
	return res.Combined()
}

// tasksFromMetadata decodes a task queue stored under metadata["tasks"],
// accepting either already-typed tasks or raw JSON-shaped values.
func tasksFromMetadata(metadata map[string]interface{}) ([]shared.Task, error) {
	raw, ok := metadata["tasks"]
	if !ok {
		return nil, shared.NewValidationError("task metadata has no \"tasks\" queue", nil)
	}
	if tasks, ok := raw.([]shared.Task); ok {
		return tasks, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, shared.NewValidationError("task queue is not decodable", map[string]interface{}{"error": err.Error()})
	}
	var tasks []shared.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, shared.NewValidationError("task queue is not a task list", map[string]interface{}{"error": err.Error()})
	}
	return tasks, nil
}
