// Package metrics collects workflow and system statistics for the dashboards.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/agentops/agentops-go/internal/infrastructure/history"
	"github.com/agentops/agentops-go/internal/infrastructure/shell"
)

// Commit is one line of git history.
type Commit struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
}

// SystemSample is a point-in-time system resource reading.
type SystemSample struct {
	CPUPercent     float64 `json:"cpuPercent"`
	MemUsedBytes   uint64  `json:"memUsedBytes"`
	MemTotalBytes  uint64  `json:"memTotalBytes"`
	MemUsedPercent float64 `json:"memUsedPercent"`
}

// Collector gathers metrics from git, the run history and the host.
type Collector struct {
	runner *shell.Runner
	store  *history.RunStore
	logger *zap.Logger

	cpuPercent func() ([]float64, error)
}

// NewCollector creates a metrics collector.
func NewCollector(runner *shell.Runner, store *history.RunStore, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		runner: runner,
		store:  store,
		logger: logger,
		cpuPercent: func() ([]float64, error) {
			return cpu.Percent(0, false)
		},
	}
}

// RecentCommits returns the n most recent commits of the repository in the
// working directory.
func (c *Collector) RecentCommits(ctx context.Context, n int) ([]Commit, error) {
	if n <= 0 {
		n = 10
	}

	result, err := c.runner.Run(ctx, shell.Command{
		Argv: []string{"git", "log", "--oneline", "-n", strconv.Itoa(n)},
	})
	if err != nil {
		c.logger.Warn("failed to collect git history", zap.Error(err))
		return nil, fmt.Errorf("collect git history: %w", err)
	}

	return ParseOneline(result.Stdout), nil
}

// ParseOneline parses `git log --oneline` output into commits.
func ParseOneline(out string) []Commit {
	commits := make([]Commit, 0)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, subject, found := strings.Cut(line, " ")
		if !found {
			commits = append(commits, Commit{Hash: hash})
			continue
		}
		commits = append(commits, Commit{Hash: hash, Subject: subject})
	}
	return commits
}

// Sample reads current CPU and memory usage.
func (c *Collector) Sample() (SystemSample, error) {
	var sample SystemSample

	usage, err := c.cpuPercent()
	if err != nil {
		return sample, fmt.Errorf("read cpu stats: %w", err)
	}
	if len(usage) == 0 {
		return sample, fmt.Errorf("read cpu stats: no samples returned")
	}
	sample.CPUPercent = usage[0]

	vm, err := mem.VirtualMemory()
	if err != nil {
		return sample, fmt.Errorf("read memory stats: %w", err)
	}
	sample.MemUsedBytes = vm.Used
	sample.MemTotalBytes = vm.Total
	sample.MemUsedPercent = vm.UsedPercent

	return sample, nil
}

// HistoryStats aggregates run history from the store.
func (c *Collector) HistoryStats() (history.Stats, error) {
	return c.store.Stats()
}
