package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for xhsassist
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xhsassist",
		Short: "Xiaohongshu content assistant",
		Long: `xhsassist transcribes videos, fetches Xiaohongshu notes and profiles,
and analyzes or rewrites note copy.

Each task runs one helper process (the Python crawler, the video
transcriber or the claude CLI) under a timeout, recovers its JSON result
and records the call in the usage log and the task history.

Configuration is loaded from .xhsassist/config.yaml (or $XHSASSIST_HOME)
if present. CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default: <home>/config.yaml)")
	pf.String("timeout", "", "Override the task timeout (e.g. 90s, 5m)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
	pf.String("log-dir", "", "Directory for run logs")
	pf.String("cookies", "", "Cookies file (JSON array of {name, value}) for crawler tasks")
	pf.Bool("json", false, "Print results as JSON")

	cmd.AddCommand(NewTranscribeCommand())
	cmd.AddCommand(NewFetchNoteCommand())
	cmd.AddCommand(NewFetchProfileCommand())
	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewUsageCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewExportCommand())

	return cmd
}
