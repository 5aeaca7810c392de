// Package shell executes external commands under an explicit permission
// policy. Direct argv execution is always allowed; handing a script to the
// system shell requires either a blanket opt-in or a per-command allowlist.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentops/agentops-go/internal/shared"
)

// Policy controls which commands may run through the system shell.
type Policy struct {
	// AllowShell permits any script.
	AllowShell bool

	// AllowedCommands permits scripts whose first token matches an entry.
	AllowedCommands []string
}

// Allows reports whether the policy permits the given script.
func (p Policy) Allows(script string) bool {
	if p.AllowShell {
		return true
	}
	name := firstToken(script)
	for _, allowed := range p.AllowedCommands {
		if name == allowed {
			return true
		}
	}
	return false
}

// Command describes a single execution request. Exactly one of Argv and
// Script must be set.
type Command struct {
	// Argv runs the command directly, without shell interpretation.
	Argv []string

	// Script runs through the system shell and is subject to the policy.
	Script string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Timeout overrides the runner default when positive.
	Timeout time.Duration

	// Env holds additional environment variables appended to os.Environ().
	Env map[string]string
}

// Result holds the captured outcome of a command.
type Result struct {
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exitCode"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated,omitempty"`
}

// Runner executes commands with logging, timeouts and output caps.
type Runner struct {
	policy         Policy
	logger         *zap.Logger
	defaultTimeout time.Duration
	maxOutput      int
}

// Option configures the Runner.
type Option func(*Runner)

// WithDefaultTimeout sets the timeout applied when a Command has none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.defaultTimeout = d
	}
}

// WithMaxOutput caps captured stdout and stderr, each, in bytes.
func WithMaxOutput(n int) Option {
	return func(r *Runner) {
		r.maxOutput = n
	}
}

// NewRunner creates a Runner with the given policy.
func NewRunner(policy Policy, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		policy:         policy,
		logger:         logger,
		defaultTimeout: 60 * time.Second,
		maxOutput:      50000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command and returns its captured result. The returned
// error is a *shared.PermissionError for denied scripts, a
// *shared.ValidationError for malformed requests, and wraps the underlying
// cause for execution failures; the Result is returned alongside execution
// errors so callers keep the partial output.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 && strings.TrimSpace(cmd.Script) == "" {
		return nil, shared.NewValidationError("command is required", nil)
	}
	if len(cmd.Argv) > 0 && cmd.Script != "" {
		return nil, shared.NewValidationError("argv and script are mutually exclusive", nil)
	}

	var execCmd *exec.Cmd
	display := ""

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if cmd.Script != "" {
		if !r.policy.Allows(cmd.Script) {
			name := firstToken(cmd.Script)
			return nil, shared.NewPermissionError(
				fmt.Sprintf("shell execution of %q not allowed; set %s=true or add %q to %s",
					name, "AGENTOPS_ALLOW_SHELL", name, "AGENTOPS_ALLOWED_COMMANDS"),
				map[string]interface{}{"command": name},
			)
		}
		display = cmd.Script
		if runtime.GOOS == "windows" {
			execCmd = exec.CommandContext(runCtx, "cmd", "/C", cmd.Script)
		} else {
			execCmd = exec.CommandContext(runCtx, "sh", "-c", cmd.Script)
		}
	} else {
		display = strings.Join(cmd.Argv, " ")
		execCmd = exec.CommandContext(runCtx, cmd.Argv[0], cmd.Argv[1:]...)
	}

	execCmd.Dir = cmd.Dir
	execCmd.Env = os.Environ()
	for k, v := range cmd.Env {
		execCmd.Env = append(execCmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	r.logger.Debug("executing command",
		zap.String("command", display),
		zap.String("dir", cmd.Dir),
		zap.Duration("timeout", timeout))

	start := time.Now()
	err := execCmd.Run()
	duration := time.Since(start)

	result := &Result{
		Duration: duration,
	}
	result.Stdout, result.Truncated = truncate(stdout.String(), r.maxOutput)
	stderrOut, stderrCut := truncate(stderr.String(), r.maxOutput)
	result.Stderr = stderrOut
	result.Truncated = result.Truncated || stderrCut

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}

		if runCtx.Err() == context.DeadlineExceeded {
			r.logger.Error("command timed out",
				zap.String("command", display),
				zap.Duration("timeout", timeout))
			return result, fmt.Errorf("command timed out after %s: %s", timeout, display)
		}

		r.logger.Error("command failed",
			zap.String("command", display),
			zap.Int("exitCode", result.ExitCode),
			zap.Error(err))
		return result, fmt.Errorf("command failed: %w", err)
	}

	r.logger.Debug("command completed",
		zap.String("command", display),
		zap.Duration("duration", duration),
		zap.Int("stdoutBytes", len(result.Stdout)))

	return result, nil
}

// Combined returns stdout and stderr joined the way operators read them.
func (res *Result) Combined() string {
	if res.Stderr == "" {
		return res.Stdout
	}
	if res.Stdout == "" {
		return res.Stderr
	}
	return res.Stdout + "\n--- stderr ---\n" + res.Stderr
}

func truncate(s string, max int) (string, bool) {
	if max > 0 && len(s) > max {
		return s[:max] + "\n...[truncated]", true
	}
	return s, false
}

func firstToken(script string) string {
	fields := strings.Fields(script)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
