package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/logger"
	"github.com/harrison/xhsassist/internal/models"
	"github.com/harrison/xhsassist/internal/orchestrator"
	"github.com/harrison/xhsassist/internal/render"
)

// NewFetchNoteCommand creates the fetch-note command
func NewFetchNoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-note <note-url>...",
		Short: "Fetch one or more Xiaohongshu notes",
		Long: `Fetch notes with the crawler helper. Several links are fetched
concurrently, one helper process each; a failing link does not stop the
others.

Examples:
  xhsassist fetch-note https://www.xiaohongshu.com/explore/64a1b2c3d4e5f6a7b8c9d0e1
  xhsassist fetch-note --cookies cookies.json http://xhslink.com/AbCdEf http://xhslink.com/GhIjKl`,
		Args: cobra.MinimumNArgs(1),
		RunE: runFetchNote,
	}
}

type noteOutput struct {
	URL   string       `json:"url"`
	Post  *models.Post `json:"post,omitempty"`
	Error string       `json:"error,omitempty"`
}

func runFetchNote(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, models.TaskFetchNote)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	errW := cmd.ErrOrStderr()

	if len(args) == 1 {
		post, err := a.orch.FetchNote(cmd.Context(), args[0], a.creds)
		if err != nil {
			return taskError(err)
		}
		if a.jsonOut {
			return printJSON(w, post)
		}
		fmt.Fprint(w, render.Post(post))
		return nil
	}

	var bar *logger.ProgressBar
	if isTTY(errW) {
		bar = logger.NewProgressBar(len(args), 20, true)
	}
	results := a.orch.FetchNotes(cmd.Context(), args, a.creds, func(r orchestrator.NoteResult) {
		if bar == nil {
			return
		}
		bar.Increment(r.Err != nil)
		fmt.Fprintf(errW, "\r%s", bar.Render())
		if bar.Done() == len(args) {
			fmt.Fprintln(errW)
		}
	})

	failed := 0
	outputs := make([]noteOutput, len(results))
	for i, r := range results {
		outputs[i] = noteOutput{URL: r.URL, Post: r.Post}
		if r.Err != nil {
			failed++
			outputs[i].Error = taskError(r.Err).Error()
		}
	}

	if a.jsonOut {
		if err := printJSON(w, outputs); err != nil {
			return err
		}
	} else {
		for i, o := range outputs {
			if i > 0 {
				fmt.Fprintln(w, "\n---")
			}
			if o.Error != "" {
				fmt.Fprintf(w, "%s %s\n  %s\n", statusLabel(false), o.URL, o.Error)
				continue
			}
			fmt.Fprint(w, render.Post(o.Post))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d notes failed", failed, len(args))
	}
	return nil
}

// NewFetchProfileCommand creates the fetch-profile command
func NewFetchProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-profile <profile-url>",
		Short: "Fetch a Xiaohongshu user profile and their notes",
		Long: `Fetch a user profile and up to --limit of their notes.

Examples:
  xhsassist fetch-profile https://www.xiaohongshu.com/user/profile/5f1e2d3c4b5a697887766554
  xhsassist fetch-profile --limit 30 --json https://www.xiaohongshu.com/user/profile/5f1e2d3c4b5a697887766554`,
		Args: cobra.ExactArgs(1),
		RunE: runFetchProfile,
	}
	cmd.Flags().Int("limit", orchestrator.DefaultProfileLimit,
		fmt.Sprintf("Number of notes to fetch (1-%d)", orchestrator.MaxProfileLimit))
	return cmd
}

func runFetchProfile(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, models.TaskFetchProfile)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	p, err := a.orch.FetchProfile(cmd.Context(), args[0], limit, a.creds)
	if err != nil {
		return taskError(err)
	}

	w := cmd.OutOrStdout()
	if a.jsonOut {
		return printJSON(w, p)
	}
	fmt.Fprint(w, render.Profile(p))
	return nil
}
