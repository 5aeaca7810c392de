// Package commands provides CLI command implementations.
package commands

import (
	"fmt"
	"sync"
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
)

// Version is set at build time.
var Version = "0.3.0"

// ConfigPath is bound to the root --config flag.
var ConfigPath string

// App wires the services the commands share.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Bus        *events.Bus
	Store      *history.RunStore
	Shell      *shell.Runner
	Registry   *agent.Registry
	Dispatcher *worker.Dispatcher
	Pool       *worker.PoolManager
	Metrics    *metrics.Collector
	Validation *validation.Service
	Runner     *runner.Service
	Recovery   *recovery.Service
}

var (
	appOnce sync.Once
	appInst *App
	appErr  error
)

// GetApp builds the shared application once per process.
func GetApp() (*App, error) {
	appOnce.Do(func() {
		appInst, appErr = buildApp(ConfigPath)
	})
	return appInst, appErr
}

// CloseApp releases the shared application if a command built one.
func CloseApp() {
	if appInst != nil {
		appInst.Close()
	}
}

func buildApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:        cfg.Log.Level,
		JSON:         cfg.Log.JSON,
		MirrorStdout: cfg.Log.MirrorStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
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

	registry := agent.NewRegistry()
	dispatcher := worker.NewDispatcher(cfg.Pool.InitialSize)
	pool := worker.NewPoolManager(dispatcher, worker.PoolConfig{
		MinWorkers:         cfg.Pool.MinWorkers,
		MaxWorkers:         cfg.Pool.MaxWorkers,
		InitialSize:        cfg.Pool.InitialSize,
		AutoScale:          cfg.Pool.AutoScale,
		ScaleUpThreshold:   cfg.Pool.ScaleUpThreshold,
		ScaleDownThreshold: cfg.Pool.ScaleDownThreshold,
		ScaleCooldown:      time.Duration(cfg.Pool.ScaleCooldownSeconds) * time.Second,
	})

	collector := metrics.NewCollector(sh, store, logger)
	validator := validation.NewService(cfg, sh, logger)

	runSvc, err := runner.NewService(runner.Deps{
		Registry:   registry,
		Shell:      sh,
		Bus:        bus,
		Store:      store,
		Dispatcher: dispatcher,
		Pool:       pool,
		Metrics:    collector,
		Validation: validator,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	recoverSvc := recovery.NewService(recovery.DefaultConfig(), bus, logger, nil)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Bus:        bus,
		Store:      store,
		Shell:      sh,
		Registry:   registry,
		Dispatcher: dispatcher,
		Pool:       pool,
		Metrics:    collector,
		Validation: validator,
		Runner:     runSvc,
		Recovery:   recoverSvc,
	}, nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		a.Logger.Sync()
	}
}
