// Package task provides the Task domain entity and queue operations.
package task

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/agentops/agentops-go/internal/shared"
)

// Task represents a unit of work tracked through its lifecycle.
type Task struct {
	mu           sync.RWMutex
	ID           string
	Kind         shared.AgentKind
	Description  string
	Priority     shared.TaskPriority
	Status       shared.TaskStatus
	Dependencies []string
	Metadata     map[string]interface{}
	startedAt    int64
	completedAt  int64
}

// FromShared creates a Task from a shared.Task.
func FromShared(t shared.Task) *Task {
	status := t.Status
	if status == "" {
		status = shared.TaskStatusPending
	}
	priority := t.Priority
	if priority == "" {
		priority = shared.PriorityMedium
	}
	dependencies := t.Dependencies
	if dependencies == nil {
		dependencies = []string{}
	}
	metadata := t.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Task{
		ID:           t.ID,
		Kind:         t.Kind,
		Description:  t.Description,
		Priority:     priority,
		Status:       status,
		Dependencies: dependencies,
		Metadata:     metadata,
	}
}

// AreDependenciesResolved checks if all task dependencies are resolved.
func (t *Task) AreDependenciesResolved(completed map[string]bool) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, dep := range t.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// Start marks the task as started.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status == shared.TaskStatusPending {
		t.Status = shared.TaskStatusInProgress
		t.startedAt = shared.Now()
	}
}

// Complete marks the task as completed.
func (t *Task) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status == shared.TaskStatusInProgress {
		t.Status = shared.TaskStatusCompleted
		t.completedAt = shared.Now()
	}
}

// Fail marks the task as failed.
func (t *Task) Fail(errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Status = shared.TaskStatusFailed
	t.completedAt = shared.Now()
	if errMsg != "" {
		t.Metadata["error"] = errMsg
	}
}

// Cancel cancels the task unless it already finished.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != shared.TaskStatusCompleted && t.Status != shared.TaskStatusFailed {
		t.Status = shared.TaskStatusCancelled
		t.completedAt = shared.Now()
	}
}

// GetStatus returns the current status of the task.
func (t *Task) GetStatus() shared.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// GetDuration returns the task duration in milliseconds.
func (t *Task) GetDuration() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.startedAt > 0 && t.completedAt > 0 {
		return t.completedAt - t.startedAt
	}
	if t.startedAt > 0 {
		return time.Now().UnixMilli() - t.startedAt
	}
	return 0
}

// GetPriorityValue returns the priority as a numeric value for sorting.
func (t *Task) GetPriorityValue() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return shared.PriorityValue(t.Priority)
}

// ToShared converts the Task to a shared.Task.
func (t *Task) ToShared() shared.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metadata := make(map[string]interface{}, len(t.Metadata))
	for k, v := range t.Metadata {
		metadata[k] = v
	}

	return shared.Task{
		ID:           t.ID,
		Kind:         t.Kind,
		Description:  t.Description,
		Priority:     t.Priority,
		Status:       t.Status,
		Dependencies: t.Dependencies,
		Metadata:     metadata,
	}
}

// SortByPriority sorts tasks by priority (high to low).
func SortByPriority(tasks []*Task) []*Task {
	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GetPriorityValue() > sorted[j].GetPriorityValue()
	})

	return sorted
}

// ResolveExecutionOrder resolves task execution order based on dependencies
// using Kahn's algorithm; within each ready set tasks run high priority first.
func ResolveExecutionOrder(tasks []*Task) ([]*Task, error) {
	resolved := make([]*Task, 0, len(tasks))
	resolvedIDs := make(map[string]bool)
	remaining := make([]*Task, len(tasks))
	copy(remaining, tasks)

	for len(remaining) > 0 {
		ready := make([]*Task, 0)
		notReady := make([]*Task, 0)

		for _, t := range remaining {
			if t.AreDependenciesResolved(resolvedIDs) {
				ready = append(ready, t)
			} else {
				notReady = append(notReady, t)
			}
		}

		if len(ready) == 0 {
			return nil, errors.New("circular dependency detected in tasks")
		}

		ready = SortByPriority(ready)
		for _, t := range ready {
			resolved = append(resolved, t)
			resolvedIDs[t.ID] = true
		}

		remaining = notReady
	}

	return resolved, nil
}

// ConvertFromShared converts a slice of shared.Task to []*Task.
func ConvertFromShared(tasks []shared.Task) []*Task {
	result := make([]*Task, len(tasks))
	for i, t := range tasks {
		result[i] = FromShared(t)
	}
	return result
}

// ConvertToShared converts a slice of *Task to []shared.Task.
func ConvertToShared(tasks []*Task) []shared.Task {
	result := make([]shared.Task, len(tasks))
	for i, t := range tasks {
		result[i] = t.ToShared()
	}
	return result
}
