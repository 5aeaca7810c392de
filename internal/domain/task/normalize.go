package task

import (
	"strings"

	"github.com/agentops/agentops-go/internal/shared"
)

// NormalizeReport summarizes what NormalizeQueue changed.
type NormalizeReport struct {
	Input             int `json:"input"`
	Kept              int `json:"kept"`
	DroppedEmpty      int `json:"droppedEmpty"`
	Deduplicated      int `json:"deduplicated"`
	DefaultedPriority int `json:"defaultedPriority"`
	DroppedDeps       int `json:"droppedDeps"`
}

// NormalizeQueue cleans a task queue for execution: IDs and descriptions are
// trimmed, entries without an ID are dropped, duplicate IDs keep their first
// occurrence, missing priorities default to medium, and dependencies on tasks
// outside the queue are removed. The surviving tasks are returned in
// dependency order with priority as tiebreaker.
func NormalizeQueue(queue []shared.Task) ([]shared.Task, NormalizeReport, error) {
	report := NormalizeReport{Input: len(queue)}

	seen := make(map[string]bool, len(queue))
	kept := make([]shared.Task, 0, len(queue))

	for _, t := range queue {
		t.ID = strings.TrimSpace(t.ID)
		t.Description = strings.TrimSpace(t.Description)

		if t.ID == "" {
			report.DroppedEmpty++
			continue
		}
		if seen[t.ID] {
			report.Deduplicated++
			continue
		}
		seen[t.ID] = true

		if t.Priority == "" {
			t.Priority = shared.PriorityMedium
			report.DefaultedPriority++
		}

		kept = append(kept, t)
	}

	// Dependencies may point at dropped or foreign tasks; keep only edges
	// inside the queue so ordering cannot deadlock on them.
	for i := range kept {
		if len(kept[i].Dependencies) == 0 {
			continue
		}
		deps := make([]string, 0, len(kept[i].Dependencies))
		for _, dep := range kept[i].Dependencies {
			dep = strings.TrimSpace(dep)
			if dep != "" && seen[dep] && dep != kept[i].ID {
				deps = append(deps, dep)
			} else {
				report.DroppedDeps++
			}
		}
		kept[i].Dependencies = deps
	}

	ordered, err := ResolveExecutionOrder(ConvertFromShared(kept))
	if err != nil {
		return nil, report, err
	}

	report.Kept = len(ordered)
	return ConvertToShared(ordered), report, nil
}
