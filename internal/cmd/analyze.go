package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/claude"
	"github.com/harrison/xhsassist/internal/models"
)

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze a note's structure or rewrite it for a new topic",
		Long: `Send note copy to the claude CLI.

--mode analyze breaks the copy down into title, opening, structure,
narrative, wording and call-to-action, and ends with a reusable template.
--mode generate writes five notes on --topic that keep the original's
structure and voice.

The copy comes from the argument, --file (use - for stdin) or --url, which
fetches the note first.

Examples:
  xhsassist analyze --file note.txt
  xhsassist analyze --url https://www.xiaohongshu.com/explore/64a1b2c3d4e5f6a7b8c9d0e1 --thinking
  xhsassist analyze --mode generate --topic 露营装备 --keywords 轻量,平价 --file note.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}
	cmd.Flags().String("file", "", "Read the note copy from a file (- for stdin)")
	cmd.Flags().String("url", "", "Fetch the note copy from a Xiaohongshu link")
	cmd.Flags().String("mode", string(claude.ModeAnalyze), "analyze or generate")
	cmd.Flags().String("topic", "", "New topic (generate mode)")
	cmd.Flags().String("keywords", "", "Keywords to work in (generate mode)")
	cmd.Flags().Bool("deep", false, "Ask for a more thorough answer")
	cmd.Flags().Bool("thinking", false, "Ask for and print the reasoning section")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := claude.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	link, _ := cmd.Flags().GetString("url")
	sources := 0
	for _, set := range []bool{len(args) == 1, file != "", link != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("provide the note copy as an argument, --file or --url (exactly one)")
	}

	a, err := newApp(cmd, models.TaskAnalyze)
	if err != nil {
		return err
	}
	defer a.Close()

	var content string
	switch {
	case len(args) == 1:
		content = args[0]
	case file != "":
		content, err = readContent(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}
	default:
		post, err := a.orch.FetchNote(cmd.Context(), link, a.creds)
		if err != nil {
			return taskError(err)
		}
		content = strings.TrimSpace(post.Title + "\n\n" + post.Content)
	}

	req := claude.Request{Mode: mode, Content: content}
	req.Topic, _ = cmd.Flags().GetString("topic")
	req.Keywords, _ = cmd.Flags().GetString("keywords")
	req.Deep, _ = cmd.Flags().GetBool("deep")
	req.Thinking, _ = cmd.Flags().GetBool("thinking")

	res, err := a.analyzer.Run(cmd.Context(), req)
	if err != nil {
		return taskError(err)
	}

	w := cmd.OutOrStdout()
	if a.jsonOut {
		return printJSON(w, res)
	}
	printAnalysis(w, res)
	return nil
}

func readContent(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read note copy: %w", err)
	}
	return string(data), nil
}

func printAnalysis(w io.Writer, res *claude.Result) {
	cyan := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)

	if res.Thinking != "" {
		cyan.Fprintf(w, "Reasoning:\n")
		faint.Fprintf(w, "%s\n\n", res.Thinking)
	}
	if len(res.Notes) == 0 {
		fmt.Fprintln(w, res.Text)
		return
	}
	for i, n := range res.Notes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}
		cyan.Fprintf(w, "%d. %s\n", i+1, title)
		fmt.Fprintln(w, n.Body)
	}
}
