package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printJSON writes v as indented JSON without escaping HTML or CJK text.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// isTTY reports whether w is an interactive terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// rateColor picks green/yellow/red for a success percentage.
func rateColor(rate float64) *color.Color {
	switch {
	case rate >= 70:
		return color.New(color.FgGreen)
	case rate >= 40:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func statusLabel(ok bool) string {
	if ok {
		return color.New(color.FgGreen).Sprint("ok")
	}
	return color.New(color.FgRed).Sprint("failed")
}
