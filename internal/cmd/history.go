package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/history"
	"github.com/harrison/xhsassist/internal/models"
)

// NewHistoryCommand creates the 'xhsassist history' command group
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, inspect and prune recorded tasks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded tasks, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	list.Flags().String("kind", "", "Only show one task kind (transcribe, fetch-note, fetch-profile, analyze)")
	list.Flags().Bool("failed", false, "Only show failed tasks")
	list.Flags().Int("limit", history.DefaultListLimit, "Maximum number of tasks to show")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded task (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	})

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete tasks older than the retention period",
		Args:  cobra.NoArgs,
		RunE:  runHistoryPrune,
	}
	prune.Flags().Int("keep-days", -1, "Retention in days (-1 = history.keep_days from config)")
	cmd.AddCommand(prune)

	return cmd
}

// openHistory opens the history database read from config. A missing
// database is reported as an empty history rather than created.
func openHistory(cmd *cobra.Command) (*history.Store, int, error) {
	cfg, _, err := loadConfig(cmd, "")
	if err != nil {
		return nil, 0, err
	}
	if !cfg.History.Enabled {
		return nil, 0, fmt.Errorf("task history is disabled (history.enabled: false)")
	}
	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		return nil, cfg.History.KeepDays, nil
	}
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open task history: %w", err)
	}
	return store, cfg.History.KeepDays, nil
}

type historyRow struct {
	ID         string               `json:"id"`
	Kind       models.TaskKind      `json:"kind"`
	Target     string               `json:"target"`
	Success    bool                 `json:"success"`
	Category   models.ErrorCategory `json:"category,omitempty"`
	ExitCode   *int                 `json:"exit_code,omitempty"`
	DurationMs int64                `json:"duration_ms"`
	Message    string               `json:"message,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

func toRow(e *history.Entry) historyRow {
	return historyRow{
		ID: e.ID, Kind: e.Kind, Target: e.Target, Success: e.Success, Category: e.Category,
		ExitCode: e.ExitCode, DurationMs: e.DurationMs, Message: e.Message, CreatedAt: e.CreatedAt,
	}
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if store == nil {
		if jsonOut {
			return printJSON(w, []historyRow{})
		}
		fmt.Fprintln(w, "No tasks recorded yet.")
		return nil
	}
	defer store.Close()

	opts := history.ListOptions{}
	if kind, _ := cmd.Flags().GetString("kind"); kind != "" {
		k, err := models.ParseTaskKind(kind)
		if err != nil {
			return err
		}
		opts.Kind = k
	}
	opts.FailedOnly, _ = cmd.Flags().GetBool("failed")
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	entries, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if jsonOut {
		rows := make([]historyRow, len(entries))
		for i, e := range entries {
			rows[i] = toRow(e)
		}
		return printJSON(w, rows)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No tasks recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %-12s %-7s %8s  %s\n",
			e.ID[:8], e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind,
			statusLabel(e.Success), e.Duration().Round(100*time.Millisecond), e.Target)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return history.ErrNotFound
	}
	defer store.Close()

	e, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return printJSON(w, toRow(e))
	}
	printEntry(w, e)
	return nil
}

func printEntry(w io.Writer, e *history.Entry) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(w, "%s %s\n", e.Kind, e.ID)
	fmt.Fprintf(w, "  Target:   %s\n", e.Target)
	fmt.Fprintf(w, "  When:     %s\n", e.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  Duration: %s\n", e.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Status:   %s\n", statusLabel(e.Success))
	if e.ExitCode != nil {
		fmt.Fprintf(w, "  Exit:     %d\n", *e.ExitCode)
	}
	if !e.Success {
		fmt.Fprintf(w, "  Category: %s\n  Message:  %s\n", e.Category, e.Message)
		return
	}
	fmt.Fprintf(w, "  Payload:  %d bytes (xhsassist export %s)\n", len(e.Payload), e.ID[:8])
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, keepDays, err := openHistory(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if store == nil {
		fmt.Fprintln(w, "Nothing to prune.")
		return nil
	}
	defer store.Close()

	if flagDays, _ := cmd.Flags().GetInt("keep-days"); flagDays >= 0 {
		keepDays = flagDays
	}
	if keepDays == 0 {
		return errors.New("retention is 0 (keep everything); pass --keep-days to prune")
	}

	n, err := store.Cleanup(cmd.Context(), keepDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %d task(s) older than %d day(s).\n", n, keepDays)
	return nil
}
