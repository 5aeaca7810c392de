// Package worker tracks in-flight agent runs and bounds their concurrency.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/agentops/agentops-go/internal/shared"
)

// InstanceStatus represents the status of a tracked run.
type InstanceStatus string

const (
	StatusPending   InstanceStatus = "pending"
	StatusRunning   InstanceStatus = "running"
	StatusCompleted InstanceStatus = "completed"
	StatusFailed    InstanceStatus = "failed"
	StatusCancelled InstanceStatus = "cancelled"
)

// Instance is the dispatcher's view of a single run.
type Instance struct {
	RunID       string           `json:"runId"`
	Agent       shared.AgentKind `json:"agent"`
	Status      InstanceStatus   `json:"status"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Stats summarizes dispatcher activity.
type Stats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Dispatcher runs work functions with bounded concurrency while tracking
// each run's lifecycle. The bound can be resized while runs are in flight;
// runs already holding a slot finish normally.
type Dispatcher struct {
	mu        sync.RWMutex
	instances map[string]*Instance

	semMu    sync.Mutex
	semCond  *sync.Cond
	capacity int
	active   int
}

// NewDispatcher creates a dispatcher allowing maxConcurrent simultaneous runs.
func NewDispatcher(maxConcurrent int) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	d := &Dispatcher{
		instances: make(map[string]*Instance),
		capacity:  maxConcurrent,
	}
	d.semCond = sync.NewCond(&d.semMu)
	return d
}

// Concurrency returns the current concurrency bound.
func (d *Dispatcher) Concurrency() int {
	d.semMu.Lock()
	defer d.semMu.Unlock()
	return d.capacity
}

// SetConcurrency adjusts the concurrency bound. Shrinking does not interrupt
// runs already holding a slot; new runs wait until enough finish.
func (d *Dispatcher) SetConcurrency(maxConcurrent int) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	d.semMu.Lock()
	d.capacity = maxConcurrent
	d.semMu.Unlock()
	d.semCond.Broadcast()
}

// acquire blocks until a slot is free or the context is cancelled.
func (d *Dispatcher) acquire(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			// Broadcast under the lock so a waiter between its ctx check
			// and Wait cannot miss the wakeup.
			d.semMu.Lock()
			d.semCond.Broadcast()
			d.semMu.Unlock()
		case <-stop:
		}
	}()

	d.semMu.Lock()
	defer d.semMu.Unlock()
	for d.active >= d.capacity {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.semCond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.active++
	return nil
}

func (d *Dispatcher) release() {
	d.semMu.Lock()
	d.active--
	d.semMu.Unlock()
	d.semCond.Broadcast()
}

// Dispatch executes fn under a concurrency slot, blocking until a slot is
// free or the context is cancelled. The run is tracked for the lifetime of
// the dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, agent shared.AgentKind, fn func(ctx context.Context) error) error {
	inst := &Instance{
		RunID:  runID,
		Agent:  agent,
		Status: StatusPending,
	}

	d.mu.Lock()
	d.instances[runID] = inst
	d.mu.Unlock()

	if err := d.acquire(ctx); err != nil {
		d.finish(runID, StatusCancelled, err.Error())
		return err
	}
	defer d.release()

	d.mu.Lock()
	inst.Status = StatusRunning
	inst.StartedAt = time.Now()
	d.mu.Unlock()

	err := fn(ctx)

	switch {
	case err == nil:
		d.finish(runID, StatusCompleted, "")
	case ctx.Err() != nil:
		d.finish(runID, StatusCancelled, err.Error())
	default:
		d.finish(runID, StatusFailed, err.Error())
	}
	return err
}

func (d *Dispatcher) finish(runID string, status InstanceStatus, errMsg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	inst := d.instances[runID]
	if inst == nil {
		return
	}
	now := time.Now()
	inst.Status = status
	inst.CompletedAt = &now
	inst.Error = errMsg
}

// GetInstance returns the tracked instance for a run ID.
func (d *Dispatcher) GetInstance(runID string) (*Instance, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	inst, ok := d.instances[runID]
	if !ok {
		return nil, false
	}
	snapshot := *inst
	return &snapshot, true
}

// GetStats returns current dispatcher statistics.
func (d *Dispatcher) GetStats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var stats Stats
	for _, inst := range d.instances {
		switch inst.Status {
		case StatusPending:
			stats.Pending++
		case StatusRunning:
			stats.Running++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// FilterInstances returns instances matching the given status.
func (d *Dispatcher) FilterInstances(status InstanceStatus) []*Instance {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*Instance, 0)
	for _, inst := range d.instances {
		if inst.Status == status {
			snapshot := *inst
			result = append(result, &snapshot)
		}
	}
	return result
}
