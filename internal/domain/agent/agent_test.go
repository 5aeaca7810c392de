package agent

import (
	"testing"

	"github.com/agentops/agentops-go/internal/shared"
)

func TestNewDefaults(t *testing.T) {
	a := New(Config{Kind: shared.AgentValidation})

	if a.ID != "validation" {
		t.Fatalf("ID = %q, expected kind name", a.ID)
	}
	if a.Status != shared.AgentStatusActive {
		t.Fatalf("Status = %q, expected active", a.Status)
	}
	if a.Capabilities == nil || a.Metadata == nil {
		t.Fatal("Capabilities and Metadata should not be nil")
	}
}

func TestAgentTransitions(t *testing.T) {
	a := New(Config{ID: "a1", Kind: shared.AgentRunAgent})

	if !a.Available() {
		t.Fatal("fresh agent should be available")
	}

	a.SetBusy()
	if a.GetStatus() != shared.AgentStatusBusy {
		t.Fatalf("status = %q, expected busy", a.GetStatus())
	}
	if a.Available() {
		t.Fatal("busy agent should not be available")
	}

	a.SetIdle()
	if a.GetStatus() != shared.AgentStatusIdle {
		t.Fatalf("status = %q, expected idle", a.GetStatus())
	}

	a.MarkFailed()
	if a.GetStatus() != shared.AgentStatusFailed {
		t.Fatalf("status = %q, expected failed", a.GetStatus())
	}

	a.MarkRecovering()
	if a.GetStatus() != shared.AgentStatusRecovering {
		t.Fatalf("status = %q, expected recovering", a.GetStatus())
	}

	a.Activate()
	if a.GetStatus() != shared.AgentStatusActive {
		t.Fatalf("status = %q, expected active", a.GetStatus())
	}
}

func TestMarkRecoveringRequiresFailed(t *testing.T) {
	a := New(Config{ID: "a1", Kind: shared.AgentRunAgent})

	a.MarkRecovering()
	if a.GetStatus() != shared.AgentStatusActive {
		t.Fatalf("MarkRecovering on active agent changed status to %q", a.GetStatus())
	}
}

func TestTerminateIsFinal(t *testing.T) {
	a := New(Config{ID: "a1", Kind: shared.AgentRunAgent})
	a.Terminate()

	a.Activate()
	if a.GetStatus() != shared.AgentStatusTerminated {
		t.Fatalf("Activate revived a terminated agent: %q", a.GetStatus())
	}
	a.MarkFailed()
	if a.GetStatus() != shared.AgentStatusTerminated {
		t.Fatalf("MarkFailed changed a terminated agent: %q", a.GetStatus())
	}
}

func TestHasCapability(t *testing.T) {
	a := New(Config{Kind: shared.AgentValidation, Capabilities: []string{"validation", "config-check"}})

	if !a.HasCapability("validation") {
		t.Fatal("expected validation capability")
	}
	if a.HasCapability("orchestration") {
		t.Fatal("unexpected orchestration capability")
	}
}

func TestToSharedCopiesState(t *testing.T) {
	a := New(Config{ID: "a1", Kind: shared.AgentRunAgent, Capabilities: []string{"task-execution"}})
	snapshot := a.ToShared()

	snapshot.Capabilities[0] = "mutated"
	if a.Capabilities[0] != "task-execution" {
		t.Fatal("ToShared leaked the capabilities slice")
	}
}
