// Package agent provides the Agent domain entity and the kind registry.
package agent

import (
	"sync"

	"github.com/agentops/agentops-go/internal/shared"
)

// Agent represents a running agent instance.
type Agent struct {
	mu           sync.RWMutex
	ID           string
	Kind         shared.AgentKind
	Status       shared.AgentStatus
	Capabilities []string
	Metadata     map[string]interface{}
	CreatedAt    int64
	LastActive   int64
}

// Config holds configuration for creating an agent.
type Config struct {
	ID           string
	Kind         shared.AgentKind
	Capabilities []string
	Metadata     map[string]interface{}
}

// New creates a new Agent from the given configuration.
func New(config Config) *Agent {
	now := shared.Now()
	capabilities := config.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}
	metadata := config.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	id := config.ID
	if id == "" {
		id = string(config.Kind)
	}

	return &Agent{
		ID:           id,
		Kind:         config.Kind,
		Status:       shared.AgentStatusActive,
		Capabilities: capabilities,
		Metadata:     metadata,
		CreatedAt:    now,
		LastActive:   now,
	}
}

// Available reports whether the agent can accept work.
func (a *Agent) Available() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Status == shared.AgentStatusActive || a.Status == shared.AgentStatusIdle
}

// SetBusy marks the agent as busy.
func (a *Agent) SetBusy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Status == shared.AgentStatusActive || a.Status == shared.AgentStatusIdle {
		a.Status = shared.AgentStatusBusy
		a.LastActive = shared.Now()
	}
}

// SetIdle marks the agent as idle.
func (a *Agent) SetIdle() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Status == shared.AgentStatusActive || a.Status == shared.AgentStatusBusy {
		a.Status = shared.AgentStatusIdle
		a.LastActive = shared.Now()
	}
}

// Activate activates the agent.
func (a *Agent) Activate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Status != shared.AgentStatusTerminated {
		a.Status = shared.AgentStatusActive
		a.LastActive = shared.Now()
	}
}

// MarkFailed records an agent failure.
func (a *Agent) MarkFailed() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Status != shared.AgentStatusTerminated {
		a.Status = shared.AgentStatusFailed
		a.LastActive = shared.Now()
	}
}

// MarkRecovering marks the agent as under recovery.
func (a *Agent) MarkRecovering() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Status == shared.AgentStatusFailed {
		a.Status = shared.AgentStatusRecovering
		a.LastActive = shared.Now()
	}
}

// Terminate terminates the agent.
func (a *Agent) Terminate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Status = shared.AgentStatusTerminated
	a.LastActive = shared.Now()
}

// GetStatus returns the current status of the agent.
func (a *Agent) GetStatus() shared.AgentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Status
}

// HasCapability checks if the agent has a specific capability.
func (a *Agent) HasCapability(capability string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// ToShared converts the Agent to a shared.Agent snapshot.
func (a *Agent) ToShared() shared.Agent {
	a.mu.RLock()
	defer a.mu.RUnlock()

	capabilities := make([]string, len(a.Capabilities))
	copy(capabilities, a.Capabilities)

	return shared.Agent{
		ID:           a.ID,
		Kind:         a.Kind,
		Status:       a.Status,
		Capabilities: capabilities,
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt,
		LastActive:   a.LastActive,
	}
}
