package metrics

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Dashboard renders a combined metrics snapshot. Sections that cannot be
// collected render a warning instead of failing the whole dashboard.
type Dashboard struct {
	collector *Collector
	logger    *zap.Logger

	// Commits is the number of git history lines shown.
	Commits int
}

// NewDashboard creates a dashboard over the given collector.
func NewDashboard(collector *Collector, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		collector: collector,
		logger:    logger,
		Commits:   10,
	}
}

// Render writes the dashboard to w.
func (d *Dashboard) Render(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, "=== agentops metrics ===")

	if sample, err := d.collector.Sample(); err != nil {
		d.logger.Warn("system sample unavailable", zap.Error(err))
		fmt.Fprintln(w, "system: unavailable")
	} else {
		fmt.Fprintf(w, "system: cpu %.1f%%, mem %.1f%% (%d / %d MB)\n",
			sample.CPUPercent, sample.MemUsedPercent,
			sample.MemUsedBytes/1024/1024, sample.MemTotalBytes/1024/1024)
	}

	if stats, err := d.collector.HistoryStats(); err != nil {
		d.logger.Warn("history stats unavailable", zap.Error(err))
		fmt.Fprintln(w, "runs: unavailable")
	} else {
		fmt.Fprintf(w, "runs: %d total, %.0f%% success, mean %.0f ms\n",
			stats.Total, stats.SuccessRate*100, stats.MeanDuration)
		for status, count := range stats.ByStatus {
			fmt.Fprintf(w, "  %-12s %d\n", status, count)
		}
	}

	commits, err := d.collector.RecentCommits(ctx, d.Commits)
	if err != nil {
		fmt.Fprintln(w, "commits: unavailable")
		return nil
	}
	fmt.Fprintf(w, "commits (%d):\n", len(commits))
	for _, c := range commits {
		fmt.Fprintf(w, "  %s %s\n", c.Hash, c.Subject)
	}

	return nil
}
