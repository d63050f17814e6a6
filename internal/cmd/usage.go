package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/usage"
)

// NewUsageCommand creates the 'xhsassist usage' command group
func NewUsageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show helper and model usage",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show totals over the whole usage log",
		Args:  cobra.NoArgs,
		RunE:  runUsageStats,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "today",
		Short: "Show calls made today",
		Args:  cobra.NoArgs,
		RunE:  runUsageToday,
	})
	return cmd
}

func openTracker(cmd *cobra.Command) (*usage.Tracker, bool, error) {
	cfg, _, err := loadConfig(cmd, "")
	if err != nil {
		return nil, false, err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	return usage.NewTracker(cfg.Usage.Path, cfg.Usage.MaxEntries, nil), jsonOut, nil
}

func runUsageStats(cmd *cobra.Command, args []string) error {
	tracker, jsonOut, err := openTracker(cmd)
	if err != nil {
		return err
	}
	stats, err := tracker.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("read usage log: %w", err)
	}

	w := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(w, stats)
	}
	printUsageStats(w, stats)
	return nil
}

func printUsageStats(w io.Writer, stats usage.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprintf(w, "\n=== Usage Statistics ===\n\n")
	if stats.TotalCalls == 0 {
		fmt.Fprintln(w, "No calls recorded yet.")
		return
	}
	fmt.Fprintf(w, "  Total calls: %d\n", stats.TotalCalls)
	fmt.Fprintf(w, "  Success rate: ")
	rateColor(stats.SuccessRate).Fprintf(w, "%.1f%%\n", stats.SuccessRate)
	fmt.Fprintf(w, "  Average response time: %s\n", stats.AvgResponseTime.Round(time.Millisecond))

	printDistribution(w, "Tasks", stats.TaskDistribution)
	printDistribution(w, "Models", stats.ModelDistribution)
	printDistribution(w, "Failures", stats.CategoryDistribution)

	fmt.Fprintf(w, "\n")
	cyan.Fprintf(w, "Recent calls:\n")
	for _, e := range stats.Recent {
		fmt.Fprintf(w, "  %s  %-13s %-7s %-7s %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Task, e.Model,
			statusLabel(e.Status == usage.StatusSuccess), e.ProcessingTime().Round(time.Millisecond))
	}
}

func printDistribution(w io.Writer, title string, dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	fmt.Fprintf(w, "\n")
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s:\n", title)
	for _, k := range usage.SortedKeys(dist) {
		fmt.Fprintf(w, "  %-16s %d\n", k, dist[k])
	}
}

func runUsageToday(cmd *cobra.Command, args []string) error {
	tracker, jsonOut, err := openTracker(cmd)
	if err != nil {
		return err
	}
	today, err := tracker.TodayStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("read usage log: %w", err)
	}

	w := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(w, today)
	}
	fmt.Fprintf(w, "Calls today: %d\n", today.Calls)
	printDistribution(w, "Tasks", today.Tasks)
	printDistribution(w, "Models", today.Model)
	return nil
}
