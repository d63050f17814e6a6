package logger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ProgressBar tracks how many tasks of a batch have finished.
// Increment is safe to call from the goroutines running the tasks.
type ProgressBar struct {
	done        int
	failed      int
	total       int
	width       int
	enableColor bool
	mu          sync.RWMutex
}

// NewProgressBar creates a progress bar for total tasks.
func NewProgressBar(total, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{total: total, width: width, enableColor: enableColor}
}

// Increment records one finished task.
func (pb *ProgressBar) Increment(failed bool) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.done++
	if failed {
		pb.failed++
	}
}

// Done returns the number of finished tasks.
func (pb *ProgressBar) Done() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.done
}

// Percentage returns the progress percentage (0-100)
func (pb *ProgressBar) Percentage() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percentage()
}

func (pb *ProgressBar) percentage() int {
	if pb.total <= 0 {
		return 0
	}
	perc := (pb.done * 100) / pb.total
	if perc > 100 {
		perc = 100
	}
	return perc
}

// Render returns e.g. "[=====     ] 2/4 (50%) 1 failed".
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	perc := pb.percentage()
	filled := (perc * pb.width) / 100
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled) + "]"
	result := fmt.Sprintf("%s %d/%d (%d%%)", bar, pb.done, pb.total, perc)
	if pb.failed > 0 {
		result += fmt.Sprintf(" %d failed", pb.failed)
	}

	if !pb.enableColor {
		return result
	}
	switch {
	case pb.failed > 0:
		return color.New(color.FgYellow).Sprint(result)
	case perc == 100:
		return color.New(color.FgGreen).Sprint(result)
	default:
		return color.New(color.FgCyan).Sprint(result)
	}
}
