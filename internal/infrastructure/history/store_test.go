package history

import (
	"path/filepath"
	"testing"

	"github.com/agentops/agentops-go/internal/shared"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	store := NewRunStore(":memory:")
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(runID string, agent shared.AgentKind, status shared.TaskStatus, startedAt, duration int64) shared.RunRecord {
	return shared.RunRecord{
		RunID:     runID,
		Agent:     agent,
		TaskID:    "task-" + runID,
		Status:    status,
		StartedAt: startedAt,
		Duration:  duration,
	}
}

func TestRecordAndGet(t *testing.T) {
	store := newTestStore(t)

	r := record("r1", shared.AgentValidation, shared.TaskStatusCompleted, 1000, 50)
	r.Output = "all checks passed"
	r.Metadata = map[string]interface{}{"checks": "2"}
	if err := store.Record(r); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get("r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for stored record")
	}
	if got.Output != "all checks passed" {
		t.Fatalf("Output = %q", got.Output)
	}
	if got.Agent != shared.AgentValidation {
		t.Fatalf("Agent = %q", got.Agent)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Get(nope) = %+v, expected nil", got)
	}
}

func TestRecordReplacesSameRunID(t *testing.T) {
	store := newTestStore(t)

	store.Record(record("r1", shared.AgentRunAgent, shared.TaskStatusInProgress, 1000, 0))
	store.Record(record("r1", shared.AgentRunAgent, shared.TaskStatusCompleted, 1000, 75))

	if store.Count() != 1 {
		t.Fatalf("Count = %d, expected 1 after replace", store.Count())
	}
	got, _ := store.Get("r1")
	if got.Status != shared.TaskStatusCompleted {
		t.Fatalf("Status = %q, expected completed", got.Status)
	}
}

func TestQueryFilters(t *testing.T) {
	store := newTestStore(t)

	store.Record(record("r1", shared.AgentRunAgent, shared.TaskStatusCompleted, 1000, 10))
	store.Record(record("r2", shared.AgentRunAgent, shared.TaskStatusFailed, 2000, 20))
	store.Record(record("r3", shared.AgentValidation, shared.TaskStatusCompleted, 3000, 30))

	tests := []struct {
		name     string
		query    RunQuery
		expected []string
	}{
		{name: "all newest first", query: RunQuery{}, expected: []string{"r3", "r2", "r1"}},
		{name: "by agent", query: RunQuery{Agent: shared.AgentRunAgent}, expected: []string{"r2", "r1"}},
		{name: "by status", query: RunQuery{Status: shared.TaskStatusFailed}, expected: []string{"r2"}},
		{name: "since", query: RunQuery{Since: 2000}, expected: []string{"r3", "r2"}},
		{name: "until", query: RunQuery{Until: 2000}, expected: []string{"r2", "r1"}},
		{name: "limit", query: RunQuery{Limit: 2}, expected: []string{"r3", "r2"}},
		{name: "offset", query: RunQuery{Offset: 1}, expected: []string{"r2", "r1"}},
		{name: "offset past end", query: RunQuery{Offset: 10}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Query(tt.query)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(results) != len(tt.expected) {
				t.Fatalf("got %d results, expected %d", len(results), len(tt.expected))
			}
			for i, id := range tt.expected {
				if results[i].RunID != id {
					t.Fatalf("results[%d] = %s, expected %s", i, results[i].RunID, id)
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	store.Record(record("r1", shared.AgentRunAgent, shared.TaskStatusCompleted, 1000, 10))
	store.Record(record("r2", shared.AgentRunAgent, shared.TaskStatusCompleted, 2000, 20))
	store.Record(record("r3", shared.AgentRunAgent, shared.TaskStatusFailed, 3000, 60))

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("Total = %d", stats.Total)
	}
	if stats.ByStatus[shared.TaskStatusCompleted] != 2 {
		t.Fatalf("completed count = %d", stats.ByStatus[shared.TaskStatusCompleted])
	}
	if stats.SuccessRate < 0.66 || stats.SuccessRate > 0.67 {
		t.Fatalf("SuccessRate = %v", stats.SuccessRate)
	}
	if stats.MeanDuration != 30 {
		t.Fatalf("MeanDuration = %v, expected 30", stats.MeanDuration)
	}
}

func TestStatsEmpty(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 0 || stats.SuccessRate != 0 {
		t.Fatalf("empty stats = %+v", stats)
	}
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)

	store.Record(record("old1", shared.AgentRunAgent, shared.TaskStatusCompleted, 1000, 10))
	store.Record(record("old2", shared.AgentRunAgent, shared.TaskStatusCompleted, 1500, 10))
	store.Record(record("new1", shared.AgentRunAgent, shared.TaskStatusCompleted, 5000, 10))

	pruned, err := store.Prune(2000)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("pruned %d, expected 2", pruned)
	}
	if store.Count() != 1 {
		t.Fatalf("Count = %d after prune", store.Count())
	}
	if got, _ := store.Get("new1"); got == nil {
		t.Fatal("new record pruned unexpectedly")
	}
}

func TestSQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store := NewRunStore(dbPath)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer store.Close()

	r := record("r1", shared.AgentMetricsDashboard, shared.TaskStatusCompleted, 1000, 12)
	r.Metadata = map[string]interface{}{"source": "dashboard"}
	if err := store.Record(r); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get("r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Agent != shared.AgentMetricsDashboard {
		t.Fatalf("Get = %+v", got)
	}
	if got.Metadata["source"] != "dashboard" {
		t.Fatalf("Metadata = %v", got.Metadata)
	}

	results, err := store.Query(RunQuery{Agent: shared.AgentMetricsDashboard})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
}

func TestInitializeIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Initialize(); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
}

func TestSQLiteQueryOffsetWithoutLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store := NewRunStore(dbPath)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer store.Close()

	for i, id := range []string{"r1", "r2", "r3"} {
		r := record(id, shared.AgentRunAgent, shared.TaskStatusCompleted, int64(1000+i), 10)
		if err := store.Record(r); err != nil {
			t.Fatalf("Record %s failed: %v", id, err)
		}
	}

	results, err := store.Query(RunQuery{Offset: 1})
	if err != nil {
		t.Fatalf("offset-only Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].RunID != "r2" || results[1].RunID != "r1" {
		t.Fatalf("order = %s, %s", results[0].RunID, results[1].RunID)
	}
}

func TestCloseThenUseFallsBackToMemory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store := NewRunStore(dbPath)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := store.Record(record("r1", shared.AgentRunAgent, shared.TaskStatusCompleted, 1000, 10)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A closed store must not panic; it degrades to an empty in-memory view.
	if err := store.Record(record("r2", shared.AgentRunAgent, shared.TaskStatusCompleted, 2000, 10)); err != nil {
		t.Fatalf("Record after Close failed: %v", err)
	}
	results, err := store.Query(RunQuery{})
	if err != nil {
		t.Fatalf("Query after Close failed: %v", err)
	}
	if len(results) != 1 || results[0].RunID != "r2" {
		t.Fatalf("results after Close = %+v", results)
	}

	// Re-initializing reopens the database with the original contents.
	if err := store.Initialize(); err != nil {
		t.Fatalf("re-Initialize failed: %v", err)
	}
	defer store.Close()
	got, err := store.Get("r1")
	if err != nil {
		t.Fatalf("Get after re-Initialize failed: %v", err)
	}
	if got == nil || got.RunID != "r1" {
		t.Fatalf("Get after re-Initialize = %+v", got)
	}
}
