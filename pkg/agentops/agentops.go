// Package agentops provides the public API for agentops-go.
//
// It wraps the internal services behind a single client for embedding the
// toolkit in other programs.
//
// Example:
//
//	client, err := agentops.New(agentops.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	record, err := client.RunTask(ctx, agentops.AgentValidation, agentops.Task{
//	    ID: "check-toolchain",
//	})
package agentops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentops/agentops-go/internal/application/metrics"
	"github.com/agentops/agentops-go/internal/application/recovery"
	"github.com/agentops/agentops-go/internal/application/runner"
	"github.com/agentops/agentops-go/internal/application/validation"
	"github.com/agentops/agentops-go/internal/config"
	"github.com/agentops/agentops-go/internal/domain/agent"
	"github.com/agentops/agentops-go/internal/infrastructure/events"
	"github.com/agentops/agentops-go/internal/infrastructure/history"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
	"github.com/agentops/agentops-go/internal/infrastructure/worker"
	"github.com/agentops/agentops-go/internal/logging"
	"github.com/agentops/agentops-go/internal/shared"
)

// Re-export types for the public API
type (
	AgentKind      = shared.AgentKind
	AgentStatus    = shared.AgentStatus
	Agent          = shared.Agent
	Task           = shared.Task
	TaskPriority   = shared.TaskPriority
	TaskStatus     = shared.TaskStatus
	RunRecord      = shared.RunRecord
	WorkflowResult = shared.WorkflowResult
	Event          = shared.Event
	EventType      = shared.EventType

	RunQuery     = history.RunQuery
	HistoryStats = history.Stats

	ValidationReport = validation.Report
	RecoveryOutcome  = recovery.Outcome
	SystemSample     = metrics.SystemSample
)

// Re-export the built-in agent kinds
const (
	AgentOrchestrator         = shared.AgentOrchestrator
	AgentRunAgent             = shared.AgentRunAgent
	AgentRecovery             = shared.AgentRecovery
	AgentNormalizeQueue       = shared.AgentNormalizeQueue
	AgentMetricsDashboard     = shared.AgentMetricsDashboard
	AgentMonitorDashboard     = shared.AgentMonitorDashboard
	AgentValidation           = shared.AgentValidation
	AgentAIIntegration        = shared.AgentAIIntegration
	AgentSuccessVerifier      = shared.AgentSuccessVerifier
	AgentOptimizer            = shared.AgentOptimizer
	AgentPatternRecognizer    = shared.AgentPatternRecognizer
	AgentAnalyticsCollector   = shared.AgentAnalyticsCollector
	AgentTaskAccelerator      = shared.AgentTaskAccelerator
	AgentEmergencyAccelerator = shared.AgentEmergencyAccelerator
	AgentStrategyTracker      = shared.AgentStrategyTracker
	AgentMaxProcessor         = shared.AgentMaxProcessor
)

// Options configures a Client.
type Options struct {
	// ConfigPath points at a YAML configuration file. Empty uses defaults
	// plus environment overrides.
	ConfigPath string

	// Logger overrides the logger built from the configuration.
	Logger *zap.Logger
}

// Client is the embedded toolkit.
type Client struct {
	cfg        *config.Config
	logger     *zap.Logger
	bus        *events.Bus
	store      *history.RunStore
	runner     *runner.Service
	recovery   *recovery.Service
	validation *validation.Service
	metrics    *metrics.Collector
}

// New builds a client from the given options.
func New(opts Options) (*Client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(logging.Config{
			Level:        cfg.Log.Level,
			JSON:         cfg.Log.JSON,
			MirrorStdout: cfg.Log.MirrorStdout,
		})
		if err != nil {
			return nil, err
		}
	}

	bus := events.New()

	store := history.NewRunStore(cfg.History.Path)
	if err := store.Initialize(); err != nil {
		return nil, err
	}

	sh := shell.NewRunner(
		shell.Policy{
			AllowShell:      cfg.Exec.AllowShell,
			AllowedCommands: cfg.Exec.AllowedCommands,
		},
		logger,
		shell.WithDefaultTimeout(time.Duration(cfg.Exec.TimeoutSeconds)*time.Second),
		shell.WithMaxOutput(cfg.Exec.MaxOutputBytes),
	)

	collector := metrics.NewCollector(sh, store, logger)
	validator := validation.NewService(cfg, sh, logger)

	runSvc, err := runner.NewService(runner.Deps{
		Registry:   agent.NewRegistry(),
		Shell:      sh,
		Bus:        bus,
		Store:      store,
		Dispatcher: worker.NewDispatcher(cfg.Pool.InitialSize),
		Metrics:    collector,
		Validation: validator,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		logger:     logger,
		bus:        bus,
		store:      store,
		runner:     runSvc,
		recovery:   recovery.NewService(recovery.DefaultConfig(), bus, logger, nil),
		validation: validator,
		metrics:    collector,
	}, nil
}

// RunTask runs a single task on the named agent kind.
func (c *Client) RunTask(ctx context.Context, kind AgentKind, task Task) (*RunRecord, error) {
	return c.runner.RunTask(ctx, kind, task)
}

// RunWorkflow normalizes and runs a task queue in dependency order.
func (c *Client) RunWorkflow(ctx context.Context, tasks []Task) (*WorkflowResult, error) {
	return c.runner.RunWorkflow(ctx, tasks)
}

// Validate runs the validation suite.
func (c *Client) Validate(ctx context.Context) ValidationReport {
	return c.validation.RunSuite(ctx)
}

// Recover attempts to recover the agent instance for a kind.
func (c *Client) Recover(ctx context.Context, kind AgentKind) (*RecoveryOutcome, error) {
	a, err := c.runner.Agent(kind)
	if err != nil {
		return nil, err
	}
	return c.recovery.Recover(ctx, a)
}

// History queries the run history.
func (c *Client) History(query RunQuery) ([]RunRecord, error) {
	return c.store.Query(query)
}

// Stats aggregates the run history.
func (c *Client) Stats() (HistoryStats, error) {
	return c.store.Stats()
}

// Sample reads a point-in-time host resource sample.
func (c *Client) Sample() (SystemSample, error) {
	return c.metrics.Sample()
}

// Agents returns snapshots of the live agent instances.
func (c *Client) Agents() []Agent {
	return c.runner.Agents()
}

// Subscribe returns a channel of events of the given type.
func (c *Client) Subscribe(eventType EventType) <-chan Event {
	return c.bus.Subscribe(eventType)
}

// Close releases the client's resources.
func (c *Client) Close() error {
	c.bus.Close()
	return c.store.Close()
}
