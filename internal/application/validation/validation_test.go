package validation

import (
	"context"
	"runtime"
	"testing"

	"github.com/agentops/agentops-go/internal/config"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
)

func newTestService(cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return NewService(cfg, shell.NewRunner(shell.Policy{}, nil), nil)
}

func TestValidateConfig(t *testing.T) {
	s := newTestService(nil)
	check := s.ValidateConfig()

	if !check.OK {
		t.Fatalf("default config failed validation: %s", check.Detail)
	}
	if check.Name != "config" {
		t.Fatalf("Name = %q", check.Name)
	}
}

func TestValidateConfigBroken(t *testing.T) {
	cfg := config.Default()
	cfg.Exec.TimeoutSeconds = 0

	check := newTestService(cfg).ValidateConfig()
	if check.OK {
		t.Fatal("broken config passed validation")
	}
	if check.Detail == "" {
		t.Fatal("failed check has no detail")
	}
}

func TestRunSuiteWithPassingProbes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses unix tools")
	}

	s := newTestService(nil)
	s.SetProbes([]Probe{
		{Name: "echo", Argv: []string{"echo", "probe ok"}},
	})

	report := s.RunSuite(context.Background())
	if !report.OK {
		t.Fatalf("suite failed: %+v", report.Checks)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("got %d checks, expected config + 1 probe", len(report.Checks))
	}
	if report.Checks[1].Detail != "probe ok" {
		t.Fatalf("probe detail = %q", report.Checks[1].Detail)
	}
}

func TestRunSuiteFailingProbe(t *testing.T) {
	s := newTestService(nil)
	s.SetProbes([]Probe{
		{Name: "missing", Argv: []string{"agentops-no-such-binary"}},
	})

	report := s.RunSuite(context.Background())
	if report.OK {
		t.Fatal("suite passed with a missing binary")
	}

	var failed *Check
	for i := range report.Checks {
		if report.Checks[i].Name == "missing" {
			failed = &report.Checks[i]
		}
	}
	if failed == nil || failed.OK {
		t.Fatalf("missing probe not marked failed: %+v", report.Checks)
	}
}

func TestRunSuiteMultilineDetailKeepsFirstLine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses unix tools")
	}

	s := newTestService(nil)
	s.SetProbes([]Probe{
		{Name: "multi", Argv: []string{"printf", "line one\nline two\n"}},
	})

	report := s.RunSuite(context.Background())
	if report.Checks[1].Detail != "line one" {
		t.Fatalf("Detail = %q, expected first line only", report.Checks[1].Detail)
	}
}

func TestDefaultProbes(t *testing.T) {
	probes := DefaultProbes()
	if len(probes) == 0 {
		t.Fatal("no default probes")
	}
	for _, p := range probes {
		if p.Name == "" || len(p.Argv) == 0 {
			t.Fatalf("malformed probe %+v", p)
		}
	}
}
