// Package validation checks configuration and the surrounding toolchain.
package validation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentops/agentops-go/internal/config"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
)

// Check is the outcome of a single validation probe.
type Check struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Report aggregates a validation suite run.
type Report struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

// Probe is an external toolchain check run through the shell runner.
type Probe struct {
	Name string
	Argv []string
}

// DefaultProbes are the toolchain probes run by the suite.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "git", Argv: []string{"git", "--version"}},
		{Name: "go", Argv: []string{"go", "version"}},
	}
}

// Service runs validation suites.
type Service struct {
	cfg    *config.Config
	runner *shell.Runner
	logger *zap.Logger
	probes []Probe
}

// NewService creates a validation service.
func NewService(cfg *config.Config, runner *shell.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		probes: DefaultProbes(),
	}
}

// SetProbes replaces the toolchain probes.
func (s *Service) SetProbes(probes []Probe) {
	s.probes = probes
}

// ValidateConfig checks the loaded configuration.
func (s *Service) ValidateConfig() Check {
	start := time.Now()
	check := Check{Name: "config", OK: true}

	if err := s.cfg.Validate(); err != nil {
		check.OK = false
		check.Detail = err.Error()
	}
	check.DurationMs = time.Since(start).Milliseconds()
	return check
}

// RunSuite runs the configuration check and all toolchain probes.
func (s *Service) RunSuite(ctx context.Context) Report {
	s.logger.Info("running validation suite", zap.Int("probes", len(s.probes)))

	report := Report{OK: true}
	report.Checks = append(report.Checks, s.ValidateConfig())

	for _, probe := range s.probes {
		start := time.Now()
		check := Check{Name: probe.Name, OK: true}

		result, err := s.runner.Run(ctx, shell.Command{Argv: probe.Argv})
		if err != nil {
			check.OK = false
			check.Detail = err.Error()
		} else {
			check.Detail = strings.TrimSpace(firstLine(result.Stdout))
		}
		check.DurationMs = time.Since(start).Milliseconds()
		report.Checks = append(report.Checks, check)
	}

	for _, check := range report.Checks {
		if !check.OK {
			report.OK = false
			s.logger.Warn("validation check failed",
				zap.String("check", check.Name),
				zap.String("detail", check.Detail))
		}
	}

	s.logger.Info("validation suite completed", zap.Bool("ok", report.OK))
	return report
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
