package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/history"
	"github.com/harrison/xhsassist/internal/render"
)

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <history-id>",
		Short: "Export a recorded task result as Markdown or HTML",
		Long: `Render the result of a recorded task. The id comes from
'xhsassist history list'; a unique prefix of at least four characters is
enough.

Examples:
  xhsassist export 3f2a9c1e
  xhsassist export 3f2a9c1e --format html --output note.html`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}
	cmd.Flags().String("format", string(render.FormatMarkdown), "md or html")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := render.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

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
	if !e.Success {
		return fmt.Errorf("task %s failed (%s: %s); nothing to export", e.ID[:8], e.Category, e.Message)
	}

	title := fmt.Sprintf("%s %s", e.Kind, e.Target)
	doc, err := render.New().Render(format, title, e.Kind, json.RawMessage(e.Payload))
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), doc)
		return err
	}
	if err := os.WriteFile(output, []byte(doc), 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
	return nil
}
