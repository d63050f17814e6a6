package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/models"
)

// NewTranscribeCommand creates the transcribe command
func NewTranscribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <video-url>",
		Short: "Transcribe the audio of a video",
		Long: `Download a video, extract its audio and transcribe it with the
video transcriber helper.

Examples:
  xhsassist transcribe https://www.bilibili.com/video/BV1xx411c7mD
  xhsassist transcribe --timestamps https://v.douyin.com/abc123/
  xhsassist transcribe --timeout 20m --json https://www.youtube.com/watch?v=xyz`,
		Args: cobra.ExactArgs(1),
		RunE: runTranscribe,
	}
	cmd.Flags().Bool("timestamps", false, "Print the timestamped transcript")
	return cmd
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, models.TaskTranscribe)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.orch.Transcribe(cmd.Context(), args[0])
	if err != nil {
		return taskError(err)
	}

	w := cmd.OutOrStdout()
	if a.jsonOut {
		return printJSON(w, t)
	}

	if t.Title != "" {
		color.New(color.FgCyan, color.Bold).Fprintf(w, "%s\n\n", t.Title)
	}
	timestamps, _ := cmd.Flags().GetBool("timestamps")
	if timestamps && t.TimestampedText != "" {
		fmt.Fprintln(w, strings.TrimSpace(t.TimestampedText))
	} else {
		fmt.Fprintln(w, strings.TrimSpace(t.FullText))
	}
	fmt.Fprintf(w, "\n%d words, %d segments\n", t.WordCount, len(t.Segments))
	return nil
}
