// Package shared provides shared types used across all modules in agentops-go.
package shared

import (
	"time"
)

// ============================================================================
// Agent Types
// ============================================================================

// AgentKind identifies one of the built-in agent entrypoints.
type AgentKind string

const (
	AgentOrchestrator         AgentKind = "orchestrator"
	AgentRunAgent             AgentKind = "run-agent"
	AgentRecovery             AgentKind = "agent-recovery"
	AgentNormalizeQueue       AgentKind = "normalize-queue"
	AgentMetricsDashboard     AgentKind = "metrics-dashboard"
	AgentMonitorDashboard     AgentKind = "monitor-dashboard"
	AgentValidation           AgentKind = "validation"
	AgentAIIntegration        AgentKind = "ai-integration"
	AgentSuccessVerifier      AgentKind = "success-verifier"
	AgentOptimizer            AgentKind = "agent-optimizer"
	AgentPatternRecognizer    AgentKind = "pattern-recognizer"
	AgentAnalyticsCollector   AgentKind = "analytics-collector"
	AgentTaskAccelerator      AgentKind = "task-accelerator"
	AgentEmergencyAccelerator AgentKind = "emergency-accelerator"
	AgentStrategyTracker      AgentKind = "strategy-tracker"
	AgentMaxProcessor         AgentKind = "max-processor"
)

// AgentStatus represents the current status of an agent.
type AgentStatus string

const (
	AgentStatusActive     AgentStatus = "active"
	AgentStatusIdle       AgentStatus = "idle"
	AgentStatusBusy       AgentStatus = "busy"
	AgentStatusRecovering AgentStatus = "recovering"
	AgentStatusFailed     AgentStatus = "failed"
	AgentStatusTerminated AgentStatus = "terminated"
)

// Agent is a snapshot of an agent instance.
type Agent struct {
	ID           string                 `json:"id"`
	Kind         AgentKind              `json:"kind"`
	Status       AgentStatus            `json:"status"`
	Capabilities []string               `json:"capabilities"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    int64                  `json:"createdAt"`
	LastActive   int64                  `json:"lastActive"`
}

// ============================================================================
// Task Types
// ============================================================================

// TaskPriority represents the priority of a task.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// IntToPriority maps a 0-10 numeric priority onto the named tiers.
func IntToPriority(n int) TaskPriority {
	switch {
	case n >= 8:
		return PriorityHigh
	case n >= 4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// PriorityValue returns the priority as a numeric value for sorting.
func PriorityValue(p TaskPriority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// TaskStatus represents the current status of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Task represents a unit of work handed to an agent.
type Task struct {
	ID           string                 `json:"id"`
	Kind         AgentKind              `json:"kind,omitempty"`
	Description  string                 `json:"description"`
	Priority     TaskPriority           `json:"priority,omitempty"`
	Status       TaskStatus             `json:"status,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// RunRecord captures the outcome of a single agent run.
type RunRecord struct {
	RunID     string                 `json:"runId"`
	Agent     AgentKind              `json:"agent"`
	TaskID    string                 `json:"taskId,omitempty"`
	Status    TaskStatus             `json:"status"`
	Output    string                 `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	StartedAt int64                  `json:"startedAt"`
	Duration  int64                  `json:"duration"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// WorkflowResult aggregates the outcome of a task queue run.
type WorkflowResult struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	TasksCompleted int      `json:"tasksCompleted"`
	TasksFailed    int      `json:"tasksFailed,omitempty"`
	ErrorMessages  []string `json:"errors,omitempty"`
	ExecutionOrder []string `json:"executionOrder,omitempty"`
	Duration       int64    `json:"duration,omitempty"`
}

// ============================================================================
// Event Types
// ============================================================================

// EventType represents the type of an event.
type EventType string

const (
	EventAgentActivated    EventType = "agent:activated"
	EventAgentFailed       EventType = "agent:failed"
	EventAgentTerminated   EventType = "agent:terminated"
	EventRunStarted        EventType = "run:started"
	EventRunCompleted      EventType = "run:completed"
	EventRunFailed         EventType = "run:failed"
	EventQueueNormalized   EventType = "queue:normalized"
	EventRecoveryStarted   EventType = "recovery:started"
	EventRecoverySucceeded EventType = "recovery:succeeded"
	EventRecoveryFailed    EventType = "recovery:failed"
)

// Event represents a generic event in the system.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// ============================================================================
// Utility Functions
// ============================================================================

// Now returns the current time in milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}
