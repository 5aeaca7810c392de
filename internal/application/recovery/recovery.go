// Package recovery restores failed agents with backoff-limited probes.
package recovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agentops/agentops-go/internal/domain/agent"
	"github.com/agentops/agentops-go/internal/infrastructure/events"
	"github.com/agentops/agentops-go/internal/shared"
)

// ProbeFunc checks whether an agent is healthy again. It is called once per
// recovery attempt.
type ProbeFunc func(ctx context.Context, a *agent.Agent) error

// Config controls the recovery loop.
type Config struct {
	// MaxAttempts bounds the number of probes.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// DefaultConfig returns the default recovery configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Outcome describes a finished recovery.
type Outcome struct {
	AgentID   string             `json:"agentId"`
	Recovered bool               `json:"recovered"`
	Attempts  int                `json:"attempts"`
	Status    shared.AgentStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	Duration  int64              `json:"durationMs"`
}

// Service recovers failed agents.
type Service struct {
	cfg    Config
	bus    *events.Bus
	logger *zap.Logger
	probe  ProbeFunc
}

// NewService creates a recovery service. A nil probe accepts the first
// attempt, which matches a restart-only recovery.
func NewService(cfg Config, bus *events.Bus, logger *zap.Logger, probe ProbeFunc) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if probe == nil {
		probe = func(context.Context, *agent.Agent) error { return nil }
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Service{
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		probe:  probe,
	}
}

// Recover attempts to bring a failed agent back to active. Agents that are
// not in the failed state are left untouched.
func (s *Service) Recover(ctx context.Context, a *agent.Agent) (*Outcome, error) {
	outcome := &Outcome{AgentID: a.ID}
	start := time.Now()

	if status := a.GetStatus(); status != shared.AgentStatusFailed {
		outcome.Status = status
		return outcome, fmt.Errorf("agent %s is not failed (status: %s)", a.ID, status)
	}

	s.logger.Info("starting agent recovery", zap.String("agent", a.ID))
	a.MarkRecovering()
	if s.bus != nil {
		s.bus.EmitRecoveryStarted(a.ID)
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		outcome.Attempts = attempt

		if attempt > 1 {
			delay := s.backoff(attempt)
			select {
			case <-ctx.Done():
				outcome.Status = a.GetStatus()
				outcome.Error = ctx.Err().Error()
				outcome.Duration = time.Since(start).Milliseconds()
				return outcome, ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = s.probe(ctx, a)
		if lastErr == nil {
			a.Activate()
			outcome.Recovered = true
			outcome.Status = a.GetStatus()
			outcome.Duration = time.Since(start).Milliseconds()

			s.logger.Info("agent recovered",
				zap.String("agent", a.ID),
				zap.Int("attempts", attempt))
			if s.bus != nil {
				s.bus.EmitRecoverySucceeded(a.ID, attempt)
			}
			return outcome, nil
		}

		s.logger.Warn("recovery probe failed",
			zap.String("agent", a.ID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	a.MarkFailed()
	outcome.Status = a.GetStatus()
	outcome.Error = lastErr.Error()
	outcome.Duration = time.Since(start).Milliseconds()

	s.logger.Error("agent recovery failed",
		zap.String("agent", a.ID),
		zap.Int("attempts", outcome.Attempts),
		zap.Error(lastErr))
	if s.bus != nil {
		s.bus.EmitRecoveryFailed(a.ID, outcome.Attempts, lastErr.Error())
	}

	return outcome, fmt.Errorf("recovery of %s failed after %d attempts: %w", a.ID, outcome.Attempts, lastErr)
}

// backoff returns the delay before the given attempt (attempt >= 2).
func (s *Service) backoff(attempt int) time.Duration {
	delay := s.cfg.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= s.cfg.MaxDelay {
			return s.cfg.MaxDelay
		}
	}
	if s.cfg.MaxDelay > 0 && delay > s.cfg.MaxDelay {
		delay = s.cfg.MaxDelay
	}
	return delay
}
