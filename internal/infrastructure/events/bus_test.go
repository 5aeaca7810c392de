package events

import (
	"sync"
	"testing"
	"time"

	"github.com/agentops/agentops-go/internal/shared"
)

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	b := New()
	defer b.Close()

	ch := b.Subscribe(shared.EventRunStarted)

	b.EmitRunStarted("run-1", shared.AgentRunAgent, "task-1")
	b.EmitRunCompleted("run-1", shared.AgentRunAgent, 42)

	select {
	case event := <-ch:
		if event.Type != shared.EventRunStarted {
			t.Fatalf("event type = %q, expected run:started", event.Type)
		}
		if event.Payload["runId"] != "run-1" {
			t.Fatalf("payload runId = %v", event.Payload["runId"])
		}
		if event.Timestamp == 0 {
			t.Fatal("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected second event %q on typed subscription", event.Type)
	default:
	}
}

func TestSubscribeAll(t *testing.T) {
	b := New()
	defer b.Close()

	ch := b.SubscribeAll()

	b.EmitRunStarted("run-1", shared.AgentRunAgent, "task-1")
	b.EmitQueueNormalized(5, 3)

	received := make([]shared.EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case event := <-ch:
			received = append(received, event.Type)
		case <-time.After(time.Second):
			t.Fatalf("only received %d of 2 events", len(received))
		}
	}

	if received[0] != shared.EventRunStarted || received[1] != shared.EventQueueNormalized {
		t.Fatalf("received %v in wrong order or type", received)
	}
}

func TestOnHandler(t *testing.T) {
	b := New()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var got shared.Event
	b.On(shared.EventRecoveryFailed, func(event shared.Event) {
		got = event
		wg.Done()
	})

	b.EmitRecoveryFailed("run-agent", 5, "probe refused")
	wg.Wait()

	if got.Payload["attempts"] != 5 {
		t.Fatalf("payload attempts = %v, expected 5", got.Payload["attempts"])
	}
}

func TestFullSubscriberDropsEvent(t *testing.T) {
	b := New(WithBufferSize(1))
	defer b.Close()

	ch := b.Subscribe(shared.EventRunCompleted)

	// Second emit has nowhere to go; Emit must not block.
	done := make(chan struct{})
	go func() {
		b.EmitRunCompleted("run-1", shared.AgentRunAgent, 1)
		b.EmitRunCompleted("run-2", shared.AgentRunAgent, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}

	event := <-ch
	if event.Payload["runId"] != "run-1" {
		t.Fatalf("kept event = %v, expected run-1", event.Payload["runId"])
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()

	ch := b.Subscribe(shared.EventRunFailed)
	b.Unsubscribe(shared.EventRunFailed, ch)

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe")
	}

	// Emitting after unsubscribe must not panic.
	b.EmitRunFailed("run-1", shared.AgentRunAgent, "boom")
}

func TestCloseStopsEmits(t *testing.T) {
	b := New()
	ch := b.SubscribeAll()
	b.Close()

	b.EmitRunStarted("run-1", shared.AgentRunAgent, "task-1")

	if _, ok := <-ch; ok {
		t.Fatal("received event after Close")
	}

	// Close is idempotent.
	b.Close()
}
