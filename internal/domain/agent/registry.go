package agent

import (
	"sort"
	"sync"

	"github.com/agentops/agentops-go/internal/shared"
)

// KindSpec defines the specification for an agent kind.
type KindSpec struct {
	Kind         shared.AgentKind `json:"kind"`
	Capabilities []string         `json:"capabilities"`
	Description  string           `json:"description"`
	Tags         []string         `json:"tags,omitempty"`
}

// Registry manages all agent kind specifications.
type Registry struct {
	mu    sync.RWMutex
	specs map[shared.AgentKind]*KindSpec

	// Indexes for O(1) lookups
	byCapability map[string][]shared.AgentKind
	byTag        map[string][]shared.AgentKind
}

// NewRegistry creates a Registry with all built-in kind specs.
func NewRegistry() *Registry {
	r := &Registry{
		specs:        make(map[shared.AgentKind]*KindSpec),
		byCapability: make(map[string][]shared.AgentKind),
		byTag:        make(map[string][]shared.AgentKind),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	specs := []KindSpec{
		{
			Kind:         shared.AgentOrchestrator,
			Capabilities: []string{"orchestration", "delegation", "workflow"},
			Description:  "Advanced orchestration of agent workflows",
			Tags:         []string{"coordination", "core"},
		},
		{
			Kind:         shared.AgentRunAgent,
			Capabilities: []string{"task-execution", "coordination"},
			Description:  "Main agent runner and coordinator",
			Tags:         []string{"core"},
		},
		{
			Kind:         shared.AgentRecovery,
			Capabilities: []string{"recovery", "restart", "health-check"},
			Description:  "Agent failure recovery and restart logic",
			Tags:         []string{"resilience"},
		},
		{
			Kind:         shared.AgentNormalizeQueue,
			Capabilities: []string{"queue-normalization", "deduplication", "ordering"},
			Description:  "Normalizes and organizes task queues",
			Tags:         []string{"queue", "core"},
		},
		{
			Kind:         shared.AgentMetricsDashboard,
			Capabilities: []string{"metrics", "git-history", "reporting"},
			Description:  "Monitors and displays workflow metrics and statistics",
			Tags:         []string{"observability"},
		},
		{
			Kind:         shared.AgentMonitorDashboard,
			Capabilities: []string{"monitoring", "system-stats"},
			Description:  "Live system resource monitoring",
			Tags:         []string{"observability"},
		},
		{
			Kind:         shared.AgentValidation,
			Capabilities: []string{"validation", "config-check", "toolchain-probe"},
			Description:  "Validation utilities for agent operations",
			Tags:         []string{"quality"},
		},
		{
			Kind:         shared.AgentAIIntegration,
			Capabilities: []string{"model-integration", "availability-check"},
			Description:  "AI model integration and coordination",
			Tags:         []string{"integration"},
		},
		{
			Kind:         shared.AgentSuccessVerifier,
			Capabilities: []string{"verification", "run-history"},
			Description:  "Verifies task completion against run history",
			Tags:         []string{"quality"},
		},
		{
			Kind:         shared.AgentOptimizer,
			Capabilities: []string{"optimization", "tuning"},
			Description:  "Agent performance optimization",
			Tags:         []string{"performance"},
		},
		{
			Kind:         shared.AgentPatternRecognizer,
			Capabilities: []string{"pattern-analysis", "failure-detection"},
			Description:  "Detects recurring failure patterns in run history",
			Tags:         []string{"analysis"},
		},
		{
			Kind:         shared.AgentAnalyticsCollector,
			Capabilities: []string{"analytics", "aggregation"},
			Description:  "Collects and aggregates run analytics",
			Tags:         []string{"observability"},
		},
		{
			Kind:         shared.AgentTaskAccelerator,
			Capabilities: []string{"acceleration", "prioritization"},
			Description:  "Accelerates task processing",
			Tags:         []string{"performance"},
		},
		{
			Kind:         shared.AgentEmergencyAccelerator,
			Capabilities: []string{"acceleration", "emergency"},
			Description:  "Emergency fast-path task processing",
			Tags:         []string{"performance"},
		},
		{
			Kind:         shared.AgentStrategyTracker,
			Capabilities: []string{"strategy", "tracking"},
			Description:  "Tracks execution strategies across runs",
			Tags:         []string{"analysis"},
		},
		{
			Kind:         shared.AgentMaxProcessor,
			Capabilities: []string{"batch-processing", "throughput"},
			Description:  "Maximum throughput batch processing",
			Tags:         []string{"performance"},
		},
	}

	for i := range specs {
		r.Register(&specs[i])
	}
}

// Register registers an agent kind specification.
func (r *Registry) Register(spec *KindSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[spec.Kind] = spec

	for _, cap := range spec.Capabilities {
		r.byCapability[cap] = append(r.byCapability[cap], spec.Kind)
	}
	for _, tag := range spec.Tags {
		r.byTag[tag] = append(r.byTag[tag], spec.Kind)
	}
}

// GetSpec returns the specification for an agent kind, or nil.
func (r *Registry) GetSpec(k shared.AgentKind) *KindSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[k]
}

// HasKind checks if an agent kind is registered.
func (r *Registry) HasKind(k shared.AgentKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.specs[k]
	return exists
}

// Count returns the total number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// ListAll returns all registered kinds in sorted order.
func (r *Registry) ListAll() []shared.AgentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]shared.AgentKind, 0, len(r.specs))
	for k := range r.specs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ListByCapability returns kinds that have the specified capability.
func (r *Registry) ListByCapability(capability string) []shared.AgentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := r.byCapability[capability]
	result := make([]shared.AgentKind, len(kinds))
	copy(result, kinds)
	return result
}

// ListByTag returns kinds that have the specified tag.
func (r *Registry) ListByTag(tag string) []shared.AgentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := r.byTag[tag]
	result := make([]shared.AgentKind, len(kinds))
	copy(result, kinds)
	return result
}

// GetCapabilities returns the capabilities for an agent kind.
func (r *Registry) GetCapabilities(k shared.AgentKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec := r.specs[k]
	if spec == nil {
		return []string{}
	}
	result := make([]string, len(spec.Capabilities))
	copy(result, spec.Capabilities)
	return result
}

// FindBestMatch finds the kind whose capabilities best cover the requirements.
func (r *Registry) FindBestMatch(required []string) (shared.AgentKind, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bestKind shared.AgentKind
	bestScore := 0.0

	for kind, spec := range r.specs {
		score := capabilityScore(spec.Capabilities, required)
		if score > bestScore || (score == bestScore && score > 0 && kind < bestKind) {
			bestScore = score
			bestKind = kind
		}
	}
	return bestKind, bestScore
}

func capabilityScore(capabilities, requirements []string) float64 {
	if len(requirements) == 0 {
		return 0
	}

	capSet := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		capSet[c] = true
	}

	matches := 0
	for _, req := range requirements {
		if capSet[req] {
			matches++
		}
	}
	return float64(matches) / float64(len(requirements))
}

// GetAllSpecs returns all registered specifications sorted by kind.
func (r *Registry) GetAllSpecs() []*KindSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]*KindSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Kind < specs[j].Kind })
	return specs
}
