package logger

import (
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/xhsassist/internal/models"
)

// colorLevel colors a level tag.
func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// colorCategory colors an error category.
// Yellow: the user can retry with different input or settings.
// Red: the helper itself is broken.
func colorCategory(c models.ErrorCategory) string {
	switch c {
	case models.CategoryTimeout, models.CategoryInvalidInput, models.CategoryCancelled:
		return color.New(color.FgYellow).Sprint(string(c))
	default:
		return color.New(color.FgRed).Sprint(string(c))
	}
}
